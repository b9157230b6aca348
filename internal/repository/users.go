package repository

import (
	"context"
	"strings"

	"github.com/hirewire/backend/internal/models"
	"gorm.io/gorm"
)

// UserRepository handles all database operations for users
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUsers(ctx context.Context, userIDs []string) ([]models.User, error)
	GetUsersByUsernames(ctx context.Context, usernames []string) ([]models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	UpdateUserFields(ctx context.Context, userID string, fields map[string]interface{}) error
	DeleteUser(ctx context.Context, userID string) error
	SearchUsers(ctx context.Context, query string, limit, offset int) ([]models.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return ErrInvalidInput
	}
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetUserByEmail matches case-insensitively
func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetUserByUsername matches case-insensitively
func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username))).
		First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) GetUsers(ctx context.Context, userIDs []string) ([]models.User, error) {
	var users []models.User
	if len(userIDs) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error
	return users, translate(err)
}

func (r *userRepository) GetUsersByUsernames(ctx context.Context, usernames []string) ([]models.User, error) {
	var users []models.User
	if len(usernames) == 0 {
		return users, nil
	}
	lowered := make([]string, len(usernames))
	for i, u := range usernames {
		lowered[i] = strings.ToLower(u)
	}
	err := r.db.WithContext(ctx).Where("LOWER(username) IN ?", lowered).Find(&users).Error
	return users, translate(err)
}

func (r *userRepository) UpdateUser(ctx context.Context, user *models.User) error {
	if user == nil || user.ID == "" {
		return ErrInvalidInput
	}
	return translate(r.db.WithContext(ctx).Save(user).Error)
}

// UpdateUserFields applies a partial update; zero values in fields are written
func (r *userRepository) UpdateUserFields(ctx context.Context, userID string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(fields)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser soft deletes the account
func (r *userRepository) DeleteUser(ctx context.Context, userID string) error {
	result := r.db.WithContext(ctx).Where("id = ?", userID).Delete(&models.User{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SearchUsers pattern-matches username, name, headline and skills
func (r *userRepository) SearchUsers(ctx context.Context, query string, limit, offset int) ([]models.User, error) {
	limit, offset = clampPage(limit, offset)
	pattern := likePattern(query)
	var users []models.User
	err := r.db.WithContext(ctx).
		Where(`(LOWER(username) LIKE ? ESCAPE '\' OR LOWER(name) LIKE ? ESCAPE '\' OR LOWER(headline) LIKE ? ESCAPE '\' OR LOWER(skills) LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern, pattern).
		Order("connection_count DESC, created_at DESC").
		Limit(limit).Offset(offset).
		Find(&users).Error
	return users, translate(err)
}

func (r *userRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, translate(err)
}
