package memory

import (
	"context"
	"slices"
	"time"

	"github.com/sportsfest/registration/internal/domain/coupon"
	"github.com/sportsfest/registration/internal/domain/organization"
	"github.com/sportsfest/registration/internal/domain/team"
	"github.com/sportsfest/registration/internal/domain/tent"
)

// TeamRepository implements team.Repository on the Store.
type TeamRepository struct {
	s *Store
}

var _ team.Repository = (*TeamRepository)(nil)

// CountByOrganization counts the created teams of the organization in the event year.
func (r *TeamRepository) CountByOrganization(ctx context.Context, organizationID, eventYearID uint) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	count := 0
	for _, t := range r.s.teams {
		if t.OrganizationID == organizationID && t.EventYearID == eventYearID {
			count++
		}
	}
	return count, nil
}

// Create stores t with a new id.
func (r *TeamRepository) Create(ctx context.Context, t *team.CompanyTeam) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t.ID = r.s.nextID()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	stored := *t
	r.s.teams = append(r.s.teams, &stored)

	id := t.ID
	r.s.onRollback(ctx, func() {
		r.s.teams = slices.DeleteFunc(r.s.teams, func(x *team.CompanyTeam) bool { return x.ID == id })
	})
	return nil
}

// OrganizationRepository implements organization.Repository on the Store.
type OrganizationRepository struct {
	s *Store
}

var _ organization.Repository = (*OrganizationRepository)(nil)

// FindByID returns a copy of the organization.
func (r *OrganizationRepository) FindByID(ctx context.Context, id uint) (*organization.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.organizations[id]
	if !ok {
		return nil, organization.ErrOrganizationNotFound
	}
	cp := *o
	return &cp, nil
}

// FindBySlug looks the organization up by slug.
func (r *OrganizationRepository) FindBySlug(ctx context.Context, slug string) (*organization.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, o := range r.s.organizations {
		if o.Slug == slug {
			cp := *o
			return &cp, nil
		}
	}
	return nil, organization.ErrOrganizationNotFound
}

// CouponRepository implements coupon.Repository on the Store.
type CouponRepository struct {
	s *Store
}

var _ coupon.Repository = (*CouponRepository)(nil)

// FindByID returns a copy of the coupon.
func (r *CouponRepository) FindByID(ctx context.Context, id uint) (*coupon.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.coupons[id]
	if !ok {
		return nil, coupon.ErrCouponNotFound
	}
	cp := *c
	return &cp, nil
}

// IncrementUsage adds one use to the coupon.
func (r *CouponRepository) IncrementUsage(ctx context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.coupons[id]
	if !ok {
		return coupon.ErrCouponNotFound
	}
	c.UsedCount++
	r.s.onRollback(ctx, func() { c.UsedCount-- })
	return nil
}

// TrackingRepository implements tent.TrackingRepository on the Store.
type TrackingRepository struct {
	s *Store
}

var _ tent.TrackingRepository = (*TrackingRepository)(nil)

// Get returns the tracking row, or tent.ErrTrackingNotFound before the first tent purchase.
func (r *TrackingRepository) Get(ctx context.Context, organizationID, eventYearID, tentProductID uint) (*tent.Tracking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tracking[trackingKey{organizationID, eventYearID, tentProductID}]
	if !ok {
		return nil, tent.ErrTrackingNotFound
	}
	cp := *t
	return &cp, nil
}

// AddPurchase upserts the tracking row and adds the purchased quantity.
func (r *TrackingRepository) AddPurchase(ctx context.Context, p tent.Purchase) (*tent.Tracking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := trackingKey{p.OrganizationID, p.EventYearID, p.TentProductID}
	t, ok := r.s.tracking[key]
	if !ok {
		t = &tent.Tracking{
			ID:             r.s.nextID(),
			OrganizationID: p.OrganizationID,
			EventYearID:    p.EventYearID,
			TentProductID:  p.TentProductID,
		}
		r.s.tracking[key] = t
		r.s.onRollback(ctx, func() { delete(r.s.tracking, key) })
	} else {
		previous := *t
		r.s.onRollback(ctx, func() {
			t.QuantityPurchased -= p.Quantity
			t.MaxAllowed = previous.MaxAllowed
			t.CompanyTeamCount = previous.CompanyTeamCount
			t.RemainingAllowed = tent.RemainingAllowed(t.MaxAllowed, t.QuantityPurchased)
		})
	}

	t.QuantityPurchased += p.Quantity
	t.MaxAllowed = p.MaxAllowed
	t.CompanyTeamCount = p.TeamCount
	t.RemainingAllowed = tent.RemainingAllowed(p.MaxAllowed, t.QuantityPurchased)
	t.UpdatedAt = time.Now()

	cp := *t
	return &cp, nil
}
