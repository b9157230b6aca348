package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is a feed entry. A share is a Post whose SharedPostID points at the original.
type Post struct {
	ID     string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID string `gorm:"type:varchar(36);not null;index" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Content  string `gorm:"type:text" json:"content"`
	ImageURL string `json:"image_url,omitempty"`

	SharedPostID *string `gorm:"type:varchar(36);index" json:"shared_post_id,omitempty"`
	SharedPost   *Post   `gorm:"foreignKey:SharedPostID" json:"shared_post,omitempty"`

	LikeCount    int `gorm:"default:0" json:"like_count"`
	CommentCount int `gorm:"default:0" json:"comment_count"`
	ShareCount   int `gorm:"default:0" json:"share_count"`

	// Set per request for the viewing user, never persisted.
	IsLiked bool `gorm:"-" json:"is_liked"`

	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

// Like is unique per (post, user)
type Like struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_likes_post_user" json:"post_id"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_likes_post_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = generateUUID()
	}
	return nil
}

type Comment struct {
	ID      string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID  string `gorm:"type:varchar(36);not null;index" json:"post_id"`
	UserID  string `gorm:"type:varchar(36);not null;index" json:"user_id"`
	User    *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Content string `gorm:"type:text;not null" json:"content"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}
