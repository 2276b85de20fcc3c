package tent

import (
	"context"
	"time"

	apperrors "github.com/sportsfest/registration/pkg/errors"
)

// Tracking is the durable record of tents an organization bought of one tent
// product in one event year. MaxAllowed and CompanyTeamCount are the values
// computed at the last confirmed sale.
type Tracking struct {
	ID                uint
	OrganizationID    uint
	EventYearID       uint
	TentProductID     uint
	QuantityPurchased int
	MaxAllowed        int
	RemainingAllowed  int
	CompanyTeamCount  int
	UpdatedAt         time.Time
}

// Purchase is a confirmed tent sale to record.
type Purchase struct {
	OrganizationID uint
	EventYearID    uint
	TentProductID  uint
	Quantity       int
	MaxAllowed     int
	TeamCount      int
}

var ErrTrackingNotFound = apperrors.New(apperrors.ErrCodeNotFound, "Tent purchase tracking not found")

// TrackingRepository persists per-organization tent purchases.
type TrackingRepository interface {
	// Get returns ErrTrackingNotFound when the organization never bought this tent.
	Get(ctx context.Context, organizationID, eventYearID, tentProductID uint) (*Tracking, error)

	// AddPurchase inserts or atomically increments the tracking row in one
	// statement: quantity_purchased += Quantity, max_allowed and
	// company_team_count refreshed, remaining_allowed recomputed from the new total.
	AddPurchase(ctx context.Context, p Purchase) (*Tracking, error)
}
