package util

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ParseInt parses s, returning defaultValue when it is not an integer
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

// ParsePagination reads ?limit= and ?offset= with the API-wide defaults and caps
func ParsePagination(c *gin.Context) (limit, offset int) {
	limit = ParseInt(c.DefaultQuery("limit", strconv.Itoa(DefaultPageSize)), DefaultPageSize)
	offset = ParseInt(c.DefaultQuery("offset", "0"), 0)
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ParseBool reads a query flag such as ?unread=true
func ParseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
