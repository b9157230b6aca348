package repository

import (
	"context"
	"testing"
	"time"

	"github.com/hirewire/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationLifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()
	alice, bob := createUser(t, db, "alice"), createUser(t, db, "bob")

	base := time.Now().UTC()
	var created []*models.Notification
	for i, typ := range []models.NotificationType{models.NotificationLike, models.NotificationComment, models.NotificationConnectionRequest} {
		n := &models.Notification{
			RecipientID: alice.ID,
			SenderID:    &bob.ID,
			Type:        typ,
			Message:     string(typ),
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.CreateNotification(ctx, n))
		created = append(created, n)
	}

	list, err := repo.ListNotifications(ctx, alice.ID, false, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, created[2].ID, list[0].ID, "newest first")

	count, err := repo.CountUnread(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// bob cannot mark alice's notification
	assert.ErrorIs(t, repo.MarkRead(ctx, created[0].ID, bob.ID), ErrNotFound)

	require.NoError(t, repo.MarkRead(ctx, created[0].ID, alice.ID))
	count, err = repo.CountUnread(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	unread, err := repo.ListNotifications(ctx, alice.ID, true, 10, 0)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	updated, err := repo.MarkAllRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)
	count, err = repo.CountUnread(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.ErrorIs(t, repo.DeleteNotification(ctx, created[1].ID, bob.ID), ErrNotFound)
	require.NoError(t, repo.DeleteNotification(ctx, created[1].ID, alice.ID))
	_, err = repo.GetNotification(ctx, created[1].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
