// Package availability reports, per product, how much an organization may still buy.
package availability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sportsfest/registration/internal/domain/order"
	"github.com/sportsfest/registration/internal/domain/organization"
	"github.com/sportsfest/registration/internal/domain/product"
	"github.com/sportsfest/registration/internal/domain/tent"
	"github.com/sportsfest/registration/pkg/tracing"
)

// TeamCounter is satisfied by the tent quota service.
type TeamCounter interface {
	GetCompanyTeamCount(ctx context.Context, organizationID, eventYearID uint) (int, error)
}

// ProductAvailability annotates one catalog product for an organization.
//
// MaxQuantityPerOrg is the static column for ordinary products and the
// team-derived quota for tents; nil means unlimited. AvailableQuantity is
// what remains of that allowance, nil when unlimited. InventoryAvailable is
// the live stock shared by all organizations.
type ProductAvailability struct {
	ProductID          uint         `json:"product_id"`
	Name               string       `json:"name"`
	Type               product.Type `json:"type"`
	Price              int64        `json:"price"`
	MaxQuantityPerOrg  *int         `json:"max_quantity_per_org"`
	PurchasedQuantity  int          `json:"purchased_quantity"`
	AvailableQuantity  *int         `json:"available_quantity"`
	InventoryAvailable *int         `json:"inventory_available"`
	IsTentProduct      bool         `json:"is_tent_product"`
	RequiresTeam       bool         `json:"requires_team"`
}

// Reporter builds the availability view of products for an organization.
type Reporter struct {
	products      product.Repository
	orders        order.Repository
	organizations organization.Repository
	teams         TeamCounter
}

// NewReporter creates a Reporter.
func NewReporter(products product.Repository, orders order.Repository, organizations organization.Repository, teams TeamCounter) *Reporter {
	return &Reporter{
		products:      products,
		orders:        orders,
		organizations: organizations,
		teams:         teams,
	}
}

// GetProductAvailability annotates every active product of the event year.
// It is a server-side snapshot: teams sitting in a cart are not counted.
func (r *Reporter) GetProductAvailability(ctx context.Context, organizationSlug string, eventYearID uint) ([]ProductAvailability, error) {
	ctx, span := tracing.StartSpan(ctx, "availability", "GetProductAvailability")
	span.SetAttributes(attribute.String("organization_slug", organizationSlug), attribute.Int64("event_year_id", int64(eventYearID)))
	defer span.End()

	org, err := r.organizations.FindBySlug(ctx, organizationSlug)
	if err != nil {
		return nil, err
	}

	products, err := r.products.ListActiveByEventYear(ctx, eventYearID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	snap, err := r.snapshot(ctx, org.ID, eventYearID, products)
	if err != nil {
		return nil, err
	}

	result := make([]ProductAvailability, 0, len(products))
	for _, p := range products {
		result = append(result, snap.annotate(p))
	}
	return result, nil
}

// ForProduct annotates a single product for the organization. Products of
// another event year and inactive products are not found, as in the listing.
func (r *Reporter) ForProduct(ctx context.Context, organizationID, eventYearID, productID uint) (*ProductAvailability, error) {
	p, err := r.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.EventYearID != eventYearID || !p.IsActive() {
		return nil, product.ErrProductNotFound
	}

	snap, err := r.snapshot(ctx, organizationID, eventYearID, []*product.Product{p})
	if err != nil {
		return nil, err
	}

	a := snap.annotate(p)
	return &a, nil
}

type snapshot struct {
	purchased map[uint]int
	teamCount int
}

func (r *Reporter) snapshot(ctx context.Context, organizationID, eventYearID uint, products []*product.Product) (*snapshot, error) {
	purchased, err := r.orders.PurchasedQuantities(ctx, organizationID, eventYearID)
	if err != nil {
		return nil, fmt.Errorf("sum purchased quantities: %w", err)
	}

	snap := &snapshot{purchased: purchased}
	for _, p := range products {
		if p.IsTent() {
			// only needed when a tent is listed
			snap.teamCount, err = r.teams.GetCompanyTeamCount(ctx, organizationID, eventYearID)
			if err != nil {
				return nil, err
			}
			break
		}
	}
	return snap, nil
}

func (s *snapshot) annotate(p *product.Product) ProductAvailability {
	a := ProductAvailability{
		ProductID:          p.ID,
		Name:               p.Name,
		Type:               p.Type,
		Price:              p.Price,
		PurchasedQuantity:  s.purchased[p.ID],
		InventoryAvailable: p.Available(),
		IsTentProduct:      p.IsTent(),
	}

	if p.IsTent() {
		teamCount := tent.ComputeTeamCount(s.teamCount, 0)
		a.MaxQuantityPerOrg = product.IntPtr(tent.MaxAllowed(teamCount))
		a.RequiresTeam = teamCount == 0
	} else {
		a.MaxQuantityPerOrg = p.MaxQuantityPerOrg
	}

	if a.MaxQuantityPerOrg != nil {
		a.AvailableQuantity = product.IntPtr(tent.RemainingAllowed(*a.MaxQuantityPerOrg, a.PurchasedQuantity))
	}
	return a
}
