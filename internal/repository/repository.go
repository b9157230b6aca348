// Package repository is the relational data access layer. Every method takes a context
// and returns ErrNotFound / ErrDuplicate instead of driver errors.
package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicate    = errors.New("record already exists")
	ErrInvalidInput = errors.New("invalid input")
)

// Repositories bundles the GORM-backed stores that share one connection
type Repositories struct {
	Users            UserRepository
	Posts            PostRepository
	Connections      ConnectionRepository
	Messages         MessageRepository
	Notifications    NotificationRepository
	Jobs             JobRepository
	Applications     ApplicationRepository
	ProfileViews     ProfileViewRepository
	VerificationCode VerificationCodeRepository
}

// New builds every repository on db
func New(db *gorm.DB) *Repositories {
	return &Repositories{
		Users:            NewUserRepository(db),
		Posts:            NewPostRepository(db),
		Connections:      NewConnectionRepository(db),
		Messages:         NewMessageRepository(db),
		Notifications:    NewNotificationRepository(db),
		Jobs:             NewJobRepository(db),
		Applications:     NewApplicationRepository(db),
		ProfileViews:     NewProfileViewRepository(db),
		VerificationCode: NewVerificationCodeRepository(db),
	}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

// likePattern turns free text into a case-insensitive LIKE pattern with wildcards escaped
func likePattern(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	q = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(q)
	return "%" + q + "%"
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
