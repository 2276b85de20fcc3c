package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sportsfest/registration/internal/domain/tent"
	apperrors "github.com/sportsfest/registration/pkg/errors"
)

type trackingRepository struct {
	db *gorm.DB
}

// NewTrackingRepository creates the gorm tent tracking repository.
func NewTrackingRepository(db *gorm.DB) tent.TrackingRepository {
	return &trackingRepository{db: db}
}

func (r *trackingRepository) Get(ctx context.Context, organizationID, eventYearID, tentProductID uint) (*tent.Tracking, error) {
	return r.get(getDB(ctx, r.db), organizationID, eventYearID, tentProductID)
}

// AddPurchase is one upsert:
//
//	INSERT INTO tent_purchase_tracking (...) VALUES (...)
//	ON DUPLICATE KEY UPDATE
//	  quantity_purchased = quantity_purchased + ?,
//	  max_allowed = ?, company_team_count = ?,
//	  remaining_allowed = GREATEST(0, ? - quantity_purchased), updated_at = ?
//
// MySQL applies the assignments left to right, so remaining_allowed sees the
// incremented quantity_purchased. The row is read back in the same transaction.
func (r *trackingRepository) AddPurchase(ctx context.Context, p tent.Purchase) (*tent.Tracking, error) {
	now := time.Now().UTC()
	model := &TentPurchaseTrackingModel{
		OrganizationID:    p.OrganizationID,
		EventYearID:       p.EventYearID,
		TentProductID:     p.TentProductID,
		QuantityPurchased: p.Quantity,
		MaxAllowed:        p.MaxAllowed,
		RemainingAllowed:  tent.RemainingAllowed(p.MaxAllowed, p.Quantity),
		CompanyTeamCount:  p.TeamCount,
		UpdatedAt:         now,
	}

	var t *tent.Tracking
	err := getDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			DoUpdates: clause.Set{
				{Column: clause.Column{Name: "quantity_purchased"}, Value: gorm.Expr("quantity_purchased + ?", p.Quantity)},
				{Column: clause.Column{Name: "max_allowed"}, Value: p.MaxAllowed},
				{Column: clause.Column{Name: "company_team_count"}, Value: p.TeamCount},
				{Column: clause.Column{Name: "remaining_allowed"}, Value: gorm.Expr("GREATEST(0, ? - quantity_purchased)", p.MaxAllowed)},
				{Column: clause.Column{Name: "updated_at"}, Value: now},
			},
		}).Create(model).Error
		if err != nil {
			return apperrors.Wrap(err, "record tent purchase failed")
		}

		t, err = r.get(tx, p.OrganizationID, p.EventYearID, p.TentProductID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *trackingRepository) get(db *gorm.DB, organizationID, eventYearID, tentProductID uint) (*tent.Tracking, error) {
	var model TentPurchaseTrackingModel
	err := db.Where("organization_id = ? AND event_year_id = ? AND tent_product_id = ?",
		organizationID, eventYearID, tentProductID).First(&model).Error
	if err != nil {
		if isNotFound(err) {
			return nil, tent.ErrTrackingNotFound
		}
		return nil, apperrors.Wrap(err, "load tent tracking failed")
	}
	return &tent.Tracking{
		ID:                model.ID,
		OrganizationID:    model.OrganizationID,
		EventYearID:       model.EventYearID,
		TentProductID:     model.TentProductID,
		QuantityPurchased: model.QuantityPurchased,
		MaxAllowed:        model.MaxAllowed,
		RemainingAllowed:  model.RemainingAllowed,
		CompanyTeamCount:  model.CompanyTeamCount,
		UpdatedAt:         model.UpdatedAt,
	}, nil
}
