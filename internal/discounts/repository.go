package discounts

import (
	"context"
	"errors"
	"time"

	"ticketbooth/internal/shared/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository is the Postgres-backed Store
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, code *DiscountCode) error {
	err := r.db.WithContext(ctx).Create(code).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.InvalidRequest("code %s already exists", code.Code)
	}
	return err
}

func (r *Repository) GetByCode(ctx context.Context, code string) (*DiscountCode, error) {
	var dc DiscountCode
	err := r.db.WithContext(ctx).
		Preload("ApplicableEvents").
		Where("code = ?", code).
		First(&dc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("discount code %s not found", code)
	}
	if err != nil {
		return nil, err
	}
	return &dc, nil
}

func (r *Repository) ReserveUse(ctx context.Context, codeID uuid.UUID, use *DiscountUse) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&DiscountCode{}).
			Where("id = ? AND (max_uses <= 0 OR current_uses < max_uses)", codeID).
			Updates(map[string]interface{}{
				"current_uses": gorm.Expr("current_uses + 1"),
				"updated_at":   time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var dc DiscountCode
			err := tx.Select("id", "code").Where("id = ?", codeID).First(&dc).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("discount code %s not found", codeID)
			}
			if err != nil {
				return err
			}
			return apperrors.Discount(apperrors.ReasonUsageLimitReached, "code %s has reached its usage limit", dc.Code)
		}
		return tx.Create(use).Error
	})
}

func (r *Repository) ReleaseUse(ctx context.Context, useID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		result := tx.Model(&DiscountUse{}).
			Where("id = ? AND state = ?", useID, UseActive).
			Updates(map[string]interface{}{
				"state":       UseReleased,
				"released_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&DiscountUse{}).Where("id = ?", useID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return apperrors.NotFound("discount use %s not found", useID)
			}
			return nil
		}

		var use DiscountUse
		if err := tx.Where("id = ?", useID).First(&use).Error; err != nil {
			return err
		}
		return tx.Model(&DiscountCode{}).
			Where("id = ? AND current_uses > 0", use.DiscountCodeID).
			Updates(map[string]interface{}{
				"current_uses": gorm.Expr("current_uses - 1"),
				"updated_at":   now,
			}).Error
	})
}
