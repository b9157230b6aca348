package repository

import (
	"context"
	"time"

	"github.com/hirewire/backend/internal/models"
	"gorm.io/gorm"
)

type ConnectionRepository interface {
	CreateConnection(ctx context.Context, conn *models.Connection) error
	GetConnection(ctx context.Context, connectionID string) (*models.Connection, error)
	// FindBetween returns the connection row between a and b in either direction
	FindBetween(ctx context.Context, a, b string) (*models.Connection, error)
	// Accept flips a pending request to accepted and bumps both members' connection_count
	Accept(ctx context.Context, connectionID string) error
	Reject(ctx context.Context, connectionID string) error
	// DeleteConnection removes the row; accepted rows also decrement both counts
	DeleteConnection(ctx context.Context, connectionID string) error
	ListConnections(ctx context.Context, userID string, limit, offset int) ([]models.Connection, error)
	ListIncoming(ctx context.Context, userID string, limit, offset int) ([]models.Connection, error)
	ListOutgoing(ctx context.Context, userID string, limit, offset int) ([]models.Connection, error)
	ConnectedUserIDs(ctx context.Context, userID string) ([]string, error)
}

type connectionRepository struct {
	db *gorm.DB
}

func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

func (r *connectionRepository) CreateConnection(ctx context.Context, conn *models.Connection) error {
	if conn == nil || conn.RequesterID == conn.AddresseeID {
		return ErrInvalidInput
	}
	return translate(r.db.WithContext(ctx).Create(conn).Error)
}

func (r *connectionRepository) GetConnection(ctx context.Context, connectionID string) (*models.Connection, error) {
	var conn models.Connection
	err := r.db.WithContext(ctx).
		Preload("Requester").
		Preload("Addressee").
		Where("id = ?", connectionID).
		First(&conn).Error
	if err != nil {
		return nil, translate(err)
	}
	return &conn, nil
}

func (r *connectionRepository) FindBetween(ctx context.Context, a, b string) (*models.Connection, error) {
	var conn models.Connection
	err := r.db.WithContext(ctx).
		Where("(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)", a, b, b, a).
		First(&conn).Error
	if err != nil {
		return nil, translate(err)
	}
	return &conn, nil
}

func (r *connectionRepository) Accept(ctx context.Context, connectionID string) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conn models.Connection
		if err := tx.Where("id = ? AND status = ?", connectionID, models.ConnectionPending).First(&conn).Error; err != nil {
			return err
		}
		now := tx.NowFunc()
		if err := tx.Model(&conn).Updates(map[string]interface{}{
			"status":       models.ConnectionAccepted,
			"responded_at": now,
		}).Error; err != nil {
			return err
		}
		return adjustConnectionCounts(tx, conn.RequesterID, conn.AddresseeID, 1)
	}))
}

func (r *connectionRepository) Reject(ctx context.Context, connectionID string) error {
	result := r.db.WithContext(ctx).Model(&models.Connection{}).
		Where("id = ? AND status = ?", connectionID, models.ConnectionPending).
		Updates(map[string]interface{}{
			"status":       models.ConnectionRejected,
			"responded_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *connectionRepository) DeleteConnection(ctx context.Context, connectionID string) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conn models.Connection
		if err := tx.Where("id = ?", connectionID).First(&conn).Error; err != nil {
			return err
		}
		if err := tx.Delete(&conn).Error; err != nil {
			return err
		}
		if conn.Status == models.ConnectionAccepted {
			return adjustConnectionCounts(tx, conn.RequesterID, conn.AddresseeID, -1)
		}
		return nil
	}))
}

func adjustConnectionCounts(tx *gorm.DB, a, b string, delta int) error {
	return tx.Model(&models.User{}).
		Where("id IN ?", []string{a, b}).
		UpdateColumn("connection_count", gorm.Expr("connection_count + ?", delta)).Error
}

// ListConnections returns accepted connections involving userID, most recent first
func (r *connectionRepository) ListConnections(ctx context.Context, userID string, limit, offset int) ([]models.Connection, error) {
	limit, offset = clampPage(limit, offset)
	var conns []models.Connection
	err := r.db.WithContext(ctx).
		Preload("Requester").
		Preload("Addressee").
		Where("status = ? AND (requester_id = ? OR addressee_id = ?)", models.ConnectionAccepted, userID, userID).
		Order("updated_at DESC").
		Limit(limit).Offset(offset).
		Find(&conns).Error
	return conns, translate(err)
}

// ListIncoming returns pending requests addressed to userID
func (r *connectionRepository) ListIncoming(ctx context.Context, userID string, limit, offset int) ([]models.Connection, error) {
	limit, offset = clampPage(limit, offset)
	var conns []models.Connection
	err := r.db.WithContext(ctx).
		Preload("Requester").
		Where("addressee_id = ? AND status = ?", userID, models.ConnectionPending).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&conns).Error
	return conns, translate(err)
}

// ListOutgoing returns pending requests sent by userID
func (r *connectionRepository) ListOutgoing(ctx context.Context, userID string, limit, offset int) ([]models.Connection, error) {
	limit, offset = clampPage(limit, offset)
	var conns []models.Connection
	err := r.db.WithContext(ctx).
		Preload("Addressee").
		Where("requester_id = ? AND status = ?", userID, models.ConnectionPending).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&conns).Error
	return conns, translate(err)
}

func (r *connectionRepository) ConnectedUserIDs(ctx context.Context, userID string) ([]string, error) {
	var conns []models.Connection
	err := r.db.WithContext(ctx).
		Select("requester_id", "addressee_id").
		Where("status = ? AND (requester_id = ? OR addressee_id = ?)", models.ConnectionAccepted, userID, userID).
		Find(&conns).Error
	if err != nil {
		return nil, translate(err)
	}
	ids := make([]string, 0, len(conns))
	for i := range conns {
		ids = append(ids, conns[i].OtherParty(userID))
	}
	return ids, nil
}
