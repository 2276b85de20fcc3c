package product

import (
	"time"
)

// Type discriminates the products the ledger treats specially.
type Type string

const (
	TypeTeamRegistration Type = "team_registration"
	TypeTentRental       Type = "tent_rental"
	TypeOther            Type = "other"
)

// Status is the catalog lifecycle of a product.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusArchived Status = "archived"
)

// Product is a purchasable SKU of one event year.
//
// SoldCount and ReservedCount are only ever changed by the store's atomic
// Reserve/Release/ConfirmSale primitives. When TotalInventory is set,
// SoldCount+ReservedCount never exceeds it; a nil TotalInventory is unlimited.
type Product struct {
	ID                uint
	EventYearID       uint
	Name              string
	Type              Type
	Price             int64 // cents
	TotalInventory    *int
	SoldCount         int
	ReservedCount     int
	MaxQuantityPerOrg *int
	Status            Status
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsUnlimited reports whether stock is not tracked against a total.
func (p *Product) IsUnlimited() bool {
	return p.TotalInventory == nil
}

// Available returns total - sold - reserved floored at zero, or nil when unlimited.
func (p *Product) Available() *int {
	if p.TotalInventory == nil {
		return nil
	}
	available := *p.TotalInventory - p.SoldCount - p.ReservedCount
	if available < 0 {
		available = 0
	}
	return &available
}

// CanReserve reports whether quantity units are free right now.
// Only the store's conditional update may act on this; it is a display check.
func (p *Product) CanReserve(quantity int) bool {
	available := p.Available()
	return available == nil || *available >= quantity
}

// IsTent reports whether the product is a tent rental.
func (p *Product) IsTent() bool {
	return p.Type == TypeTentRental
}

// IsTeamRegistration reports whether the product is a team registration.
func (p *Product) IsTeamRegistration() bool {
	return p.Type == TypeTeamRegistration
}

// IsActive reports whether the product is on sale.
func (p *Product) IsActive() bool {
	return p.Status == StatusActive
}

// IntPtr is a helper for optional counters.
func IntPtr(v int) *int {
	return &v
}
