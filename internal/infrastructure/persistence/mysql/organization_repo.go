package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/sportsfest/registration/internal/domain/organization"
	apperrors "github.com/sportsfest/registration/pkg/errors"
)

type organizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository creates the gorm organization repository.
func NewOrganizationRepository(db *gorm.DB) organization.Repository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) FindByID(ctx context.Context, id uint) (*organization.Organization, error) {
	return r.findOne(getDB(ctx, r.db).Where("id = ?", id))
}

func (r *organizationRepository) FindBySlug(ctx context.Context, slug string) (*organization.Organization, error) {
	return r.findOne(getDB(ctx, r.db).Where("slug = ?", slug))
}

func (r *organizationRepository) findOne(query *gorm.DB) (*organization.Organization, error) {
	var model OrganizationModel
	if err := query.First(&model).Error; err != nil {
		if isNotFound(err) {
			return nil, organization.ErrOrganizationNotFound
		}
		return nil, apperrors.Wrap(err, "load organization failed")
	}
	return &organization.Organization{ID: model.ID, Slug: model.Slug, Name: model.Name}, nil
}
