// Package team holds the company teams an organization fields in an event year.
// Their count is one of the inputs of the tent quota.
package team

import (
	"context"
	"fmt"
	"time"
)

// CompanyTeam is one registered team of an organization.
// OrderID links teams created from a paid team_registration order.
type CompanyTeam struct {
	ID             uint
	OrganizationID uint
	EventYearID    uint
	OrderID        *uint
	Name           string
	CreatedAt      time.Time
}

// NewFromOrder builds the seq-th team created for a paid order.
func NewFromOrder(organizationID, eventYearID, orderID uint, seq int) *CompanyTeam {
	return &CompanyTeam{
		OrganizationID: organizationID,
		EventYearID:    eventYearID,
		OrderID:        &orderID,
		Name:           fmt.Sprintf("Team %d", seq),
		CreatedAt:      time.Now(),
	}
}

// Repository persists company teams.
type Repository interface {
	CountByOrganization(ctx context.Context, organizationID, eventYearID uint) (int, error)
	Create(ctx context.Context, team *CompanyTeam) error
}
