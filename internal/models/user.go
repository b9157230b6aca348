// Package models holds the GORM models shared by the repositories and handlers.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func generateUUID() string {
	return uuid.New().String()
}

// NewID assigns an id outside of GORM, for stores that do not run hooks.
func NewID() string {
	return generateUUID()
}

// NewOrderedID returns a time-ordered (v7) id. Ids from one process sort in creation
// order, so they break created_at ties on stores with millisecond timestamps.
func NewOrderedID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// User is a member profile. Recruiters and job seekers share the same model.
type User struct {
	ID       string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Name     string `gorm:"not null" json:"name"`

	Headline string   `json:"headline"`
	Bio      string   `gorm:"type:text" json:"bio"`
	Location string   `json:"location"`
	Company  string   `json:"company"`
	Website  string   `json:"website"`
	Skills   []string `gorm:"type:text;serializer:json" json:"skills"`

	ProfilePictureURL string `json:"profile_picture_url"`
	CoverPictureURL   string `json:"cover_picture_url"`
	ResumeURL         string `json:"resume_url,omitempty"`

	PasswordHash  string `gorm:"type:text" json:"-"`
	EmailVerified bool   `gorm:"default:false" json:"email_verified"`

	ConnectionCount int        `gorm:"default:0" json:"connection_count"`
	LastActiveAt    *time.Time `json:"last_active_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return nil
}

// PublicUser is the trimmed profile embedded in conversation listings and search results
type PublicUser struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	Name              string `json:"name"`
	Headline          string `json:"headline"`
	ProfilePictureURL string `json:"profile_picture_url"`
}

// Public returns the user's public card
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:                u.ID,
		Username:          u.Username,
		Name:              u.Name,
		Headline:          u.Headline,
		ProfilePictureURL: u.ProfilePictureURL,
	}
}

// ProfileView records that Viewer opened Profile's page.
type ProfileView struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ProfileID string    `gorm:"type:varchar(36);not null;index" json:"profile_id"`
	ViewerID  string    `gorm:"type:varchar(36);not null;index" json:"viewer_id"`
	Viewer    *User     `gorm:"foreignKey:ViewerID" json:"viewer,omitempty"`
	ViewedAt  time.Time `gorm:"not null;index" json:"viewed_at"`
}

func (v *ProfileView) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = generateUUID()
	}
	if v.ViewedAt.IsZero() {
		v.ViewedAt = tx.NowFunc()
	}
	return nil
}

// CodePurpose distinguishes email verification codes from password reset codes
type CodePurpose string

const (
	CodePurposeVerifyEmail   CodePurpose = "verify_email"
	CodePurposeResetPassword CodePurpose = "reset_password"
)

// VerificationCode is a short numeric code mailed to the user. Only its bcrypt hash is stored.
type VerificationCode struct {
	ID        string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string      `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Purpose   CodePurpose `gorm:"type:varchar(32);not null;index" json:"purpose"`
	CodeHash  string      `gorm:"type:text;not null" json:"-"`
	Attempts  int         `gorm:"default:0" json:"attempts"`
	ExpiresAt time.Time   `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time  `json:"used_at,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

func (v *VerificationCode) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = generateUUID()
	}
	return nil
}
