package models

import (
	"time"

	"gorm.io/gorm"
)

type ConnectionStatus string

const (
	ConnectionPending  ConnectionStatus = "pending"
	ConnectionAccepted ConnectionStatus = "accepted"
	ConnectionRejected ConnectionStatus = "rejected"
)

// Connection is a symmetric relationship once accepted. Requester sent the invitation.
type Connection struct {
	ID          string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RequesterID string           `gorm:"type:varchar(36);not null;uniqueIndex:idx_connections_pair" json:"requester_id"`
	Requester   *User            `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	AddresseeID string           `gorm:"type:varchar(36);not null;uniqueIndex:idx_connections_pair;index" json:"addressee_id"`
	Addressee   *User            `gorm:"foreignKey:AddresseeID" json:"addressee,omitempty"`
	Status      ConnectionStatus `gorm:"type:varchar(16);not null;default:pending;index" json:"status"`
	Note        string           `gorm:"type:text" json:"note,omitempty"`
	RespondedAt *time.Time       `json:"responded_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Connection) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	if c.Status == "" {
		c.Status = ConnectionPending
	}
	return nil
}

// OtherParty returns the id of the member on the other side from userID
func (c *Connection) OtherParty(userID string) string {
	if c.RequesterID == userID {
		return c.AddresseeID
	}
	return c.RequesterID
}

// Involves reports whether userID is either side of the connection
func (c *Connection) Involves(userID string) bool {
	return c.RequesterID == userID || c.AddresseeID == userID
}
