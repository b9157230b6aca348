package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hirewire/backend/internal/database"
	"github.com/hirewire/backend/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:", database.Options{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Email:    fmt.Sprintf("%s@example.com", username),
		Username: username,
		Name:     username,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// sendAt inserts a message with a fixed timestamp so ordering assertions are deterministic
func sendAt(t *testing.T, repo MessageRepository, from, to *models.User, content string, at time.Time) *models.Message {
	t.Helper()
	msg := &models.Message{SenderID: from.ID, RecipientID: to.ID, Content: content, CreatedAt: at}
	require.NoError(t, repo.CreateMessage(context.Background(), msg))
	return msg
}
