package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/sportsfest/registration/internal/domain/team"
	apperrors "github.com/sportsfest/registration/pkg/errors"
)

type teamRepository struct {
	db *gorm.DB
}

// NewTeamRepository creates the gorm team repository.
func NewTeamRepository(db *gorm.DB) team.Repository {
	return &teamRepository{db: db}
}

func (r *teamRepository) CountByOrganization(ctx context.Context, organizationID, eventYearID uint) (int, error) {
	var count int64
	err := getDB(ctx, r.db).Model(&CompanyTeamModel{}).
		Where("organization_id = ? AND event_year_id = ?", organizationID, eventYearID).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Wrap(err, "count teams failed")
	}
	return int(count), nil
}

func (r *teamRepository) Create(ctx context.Context, t *team.CompanyTeam) error {
	model := &CompanyTeamModel{
		OrganizationID: t.OrganizationID,
		EventYearID:    t.EventYearID,
		OrderID:        t.OrderID,
		Name:           t.Name,
		CreatedAt:      t.CreatedAt,
	}
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "create team failed")
	}
	t.ID = model.ID
	t.CreatedAt = model.CreatedAt
	return nil
}
