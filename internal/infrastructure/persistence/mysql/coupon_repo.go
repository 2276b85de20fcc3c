package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/sportsfest/registration/internal/domain/coupon"
	apperrors "github.com/sportsfest/registration/pkg/errors"
)

type couponRepository struct {
	db *gorm.DB
}

// NewCouponRepository creates the gorm coupon repository.
func NewCouponRepository(db *gorm.DB) coupon.Repository {
	return &couponRepository{db: db}
}

func (r *couponRepository) FindByID(ctx context.Context, id uint) (*coupon.Coupon, error) {
	var model CouponModel
	if err := getDB(ctx, r.db).First(&model, id).Error; err != nil {
		if isNotFound(err) {
			return nil, coupon.ErrCouponNotFound
		}
		return nil, apperrors.Wrap(err, "load coupon failed")
	}
	return &coupon.Coupon{
		ID:        model.ID,
		Code:      model.Code,
		Amount:    model.Amount,
		MaxUses:   model.MaxUses,
		UsedCount: model.UsedCount,
		Active:    model.Active,
		ExpiresAt: model.ExpiresAt,
	}, nil
}

// IncrementUsage is a single UPDATE; concurrent payments cannot lose a use.
func (r *couponRepository) IncrementUsage(ctx context.Context, id uint) error {
	result := getDB(ctx, r.db).Model(&CouponModel{}).
		Where("id = ?", id).
		Update("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "increment coupon usage failed")
	}
	if result.RowsAffected == 0 {
		return coupon.ErrCouponNotFound
	}
	return nil
}
