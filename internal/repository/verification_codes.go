package repository

import (
	"context"
	"time"

	"github.com/hirewire/backend/internal/models"
	"gorm.io/gorm"
)

type VerificationCodeRepository interface {
	// ReplaceCode invalidates any unused code of the same purpose and stores code
	ReplaceCode(ctx context.Context, code *models.VerificationCode) error
	// GetActiveCode returns the newest unused, unexpired code
	GetActiveCode(ctx context.Context, userID string, purpose models.CodePurpose) (*models.VerificationCode, error)
	IncrementAttempts(ctx context.Context, codeID string) error
	MarkUsed(ctx context.Context, codeID string) error
}

type verificationCodeRepository struct {
	db *gorm.DB
}

func NewVerificationCodeRepository(db *gorm.DB) VerificationCodeRepository {
	return &verificationCodeRepository{db: db}
}

func (r *verificationCodeRepository) ReplaceCode(ctx context.Context, code *models.VerificationCode) error {
	if code == nil {
		return ErrInvalidInput
	}
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND purpose = ? AND used_at IS NULL", code.UserID, code.Purpose).
			Delete(&models.VerificationCode{}).Error; err != nil {
			return err
		}
		return tx.Create(code).Error
	}))
}

func (r *verificationCodeRepository) GetActiveCode(ctx context.Context, userID string, purpose models.CodePurpose) (*models.VerificationCode, error) {
	var code models.VerificationCode
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND purpose = ? AND used_at IS NULL AND expires_at > ?", userID, purpose, time.Now().UTC()).
		Order("created_at DESC").
		First(&code).Error
	if err != nil {
		return nil, translate(err)
	}
	return &code, nil
}

func (r *verificationCodeRepository) IncrementAttempts(ctx context.Context, codeID string) error {
	return translate(r.db.WithContext(ctx).Model(&models.VerificationCode{}).
		Where("id = ?", codeID).
		UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error)
}

func (r *verificationCodeRepository) MarkUsed(ctx context.Context, codeID string) error {
	return translate(r.db.WithContext(ctx).Model(&models.VerificationCode{}).
		Where("id = ?", codeID).
		Update("used_at", time.Now().UTC()).Error)
}
