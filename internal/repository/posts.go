package repository

import (
	"context"
	"errors"

	"github.com/hirewire/backend/internal/models"
	"gorm.io/gorm"
)

// Post counter columns that IncrementCounter may touch
const (
	CounterLikes    = "like_count"
	CounterComments = "comment_count"
	CounterShares   = "share_count"
)

// PostRepository covers posts and the engagement hanging off them (likes, comments)
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, postID string) (*models.Post, error)
	GetPosts(ctx context.Context, postIDs []string) ([]models.Post, error)
	UpdatePostContent(ctx context.Context, postID, content string) error
	DeletePost(ctx context.Context, postID string) error
	GetUserPosts(ctx context.Context, userID string, limit, offset int) ([]models.Post, error)
	GetFeed(ctx context.Context, authorIDs []string, limit, offset int) ([]models.Post, error)
	SearchPosts(ctx context.Context, query string, limit, offset int) ([]models.Post, error)
	IncrementCounter(ctx context.Context, postID, column string, delta int) error

	// ToggleLike likes the post, or unlikes it when already liked. Returns the new state.
	ToggleLike(ctx context.Context, postID, userID string) (liked bool, err error)
	LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)

	CreateComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, commentID string) (*models.Comment, error)
	GetComments(ctx context.Context, postID string, limit, offset int) ([]models.Comment, error)
	DeleteComment(ctx context.Context, commentID string) error
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) CreatePost(ctx context.Context, post *models.Post) error {
	if post == nil {
		return ErrInvalidInput
	}
	return translate(r.db.WithContext(ctx).Create(post).Error)
}

func (r *postRepository) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("SharedPost").
		Preload("SharedPost.User").
		Where("id = ?", postID).
		First(&post).Error
	if err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func (r *postRepository) UpdatePostContent(ctx context.Context, postID, content string) error {
	result := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).Update("content", content)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postRepository) DeletePost(ctx context.Context, postID string) error {
	result := r.db.WithContext(ctx).Where("id = ?", postID).Delete(&models.Post{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postRepository) GetUserPosts(ctx context.Context, userID string, limit, offset int) ([]models.Post, error) {
	return r.GetFeed(ctx, []string{userID}, limit, offset)
}

// GetFeed returns posts by any of authorIDs, newest first
func (r *postRepository) GetFeed(ctx context.Context, authorIDs []string, limit, offset int) ([]models.Post, error) {
	limit, offset = clampPage(limit, offset)
	var posts []models.Post
	if len(authorIDs) == 0 {
		return posts, nil
	}
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("SharedPost").
		Preload("SharedPost.User").
		Where("user_id IN ?", authorIDs).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&posts).Error
	return posts, translate(err)
}

// GetPosts loads posts by id in no particular order
func (r *postRepository) GetPosts(ctx context.Context, postIDs []string) ([]models.Post, error) {
	var posts []models.Post
	if len(postIDs) == 0 {
		return posts, nil
	}
	err := r.db.WithContext(ctx).Preload("User").Where("id IN ?", postIDs).Find(&posts).Error
	return posts, translate(err)
}

func (r *postRepository) SearchPosts(ctx context.Context, query string, limit, offset int) ([]models.Post, error) {
	limit, offset = clampPage(limit, offset)
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Where(`LOWER(content) LIKE ? ESCAPE '\'`, likePattern(query)).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&posts).Error
	return posts, translate(err)
}

func (r *postRepository) IncrementCounter(ctx context.Context, postID, column string, delta int) error {
	switch column {
	case CounterLikes, CounterComments, CounterShares:
	default:
		return ErrInvalidInput
	}
	return translate(r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error)
}

func (r *postRepository) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	liked := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Like
		err := tx.Where("post_id = ? AND user_id = ?", postID, userID).First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			return tx.Model(&models.Post{}).Where("id = ?", postID).
				UpdateColumn(CounterLikes, gorm.Expr(CounterLikes+" - 1")).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&models.Like{PostID: postID, UserID: userID}).Error; err != nil {
				return err
			}
			liked = true
			return tx.Model(&models.Post{}).Where("id = ?", postID).
				UpdateColumn(CounterLikes, gorm.Expr(CounterLikes+" + 1")).Error
		default:
			return err
		}
	})
	return liked, translate(err)
}

func (r *postRepository) LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	liked := make(map[string]bool, len(postIDs))
	if len(postIDs) == 0 {
		return liked, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, translate(err)
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

// CreateComment inserts the comment and bumps the post's comment_count in one transaction
func (r *postRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment == nil {
		return ErrInvalidInput
	}
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", comment.PostID).
			UpdateColumn(CounterComments, gorm.Expr(CounterComments+" + 1")).Error
	}))
}

func (r *postRepository) GetComment(ctx context.Context, commentID string) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Where("id = ?", commentID).First(&comment).Error; err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

// GetComments returns a post's comments oldest first
func (r *postRepository) GetComments(ctx context.Context, postID string, limit, offset int) ([]models.Comment, error) {
	limit, offset = clampPage(limit, offset)
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Limit(limit).Offset(offset).
		Find(&comments).Error
	return comments, translate(err)
}

func (r *postRepository) DeleteComment(ctx context.Context, commentID string) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.Where("id = ?", commentID).First(&comment).Error; err != nil {
			return err
		}
		if err := tx.Delete(&comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", comment.PostID).
			UpdateColumn(CounterComments, gorm.Expr(CounterComments+" - 1")).Error
	}))
}
