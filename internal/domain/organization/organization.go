package organization

import (
	"context"

	apperrors "github.com/sportsfest/registration/pkg/errors"
)

// Organization is a company taking part in SportsFest. Slug is unique.
type Organization struct {
	ID   uint
	Slug string
	Name string
}

var ErrOrganizationNotFound = apperrors.New(apperrors.ErrCodeOrganizationNotFound, "Organization not found")

// Repository looks up organizations.
type Repository interface {
	FindByID(ctx context.Context, id uint) (*Organization, error)
	FindBySlug(ctx context.Context, slug string) (*Organization, error)
}
