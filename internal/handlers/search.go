package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hirewire/backend/internal/search"
	"github.com/hirewire/backend/internal/util"
)

const maxQueryLength = 200

// Search finds users, posts or jobs. Elasticsearch answers when configured, the
// database otherwise.
// GET /api/v1/search?q=&type=users|posts|jobs
func (h *Handlers) Search(c *gin.Context) {
	viewerID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		util.RespondValidationError(c, "q", "search query is required")
		return
	}
	if len(query) > maxQueryLength {
		util.RespondValidationError(c, "q", "search query is too long")
		return
	}
	searchType := c.DefaultQuery("type", search.IndexUsers)
	limit, offset := util.ParsePagination(c)

	ctx := c.Request.Context()
	results, err := h.search.Search(ctx, searchType, query, limit, offset)
	if err != nil {
		respondError(c, err, "search", "search failed")
		return
	}

	for i := range results.Users {
		if results.Users[i].ID != viewerID {
			results.Users[i].Email = ""
		}
	}
	if len(results.Posts) > 0 {
		if err := h.markLiked(ctx, viewerID, results.Posts); err != nil {
			util.RespondInternalError(c, "search failed")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"results": results,
		"meta":    pageMeta(limit, offset, results.Count),
	})
}
