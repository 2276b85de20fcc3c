package payment

import (
	"context"

	"go.uber.org/zap"

	"github.com/sportsfest/registration/internal/domain/order"
	"github.com/sportsfest/registration/internal/domain/product"
	"github.com/sportsfest/registration/internal/domain/team"
	"github.com/sportsfest/registration/pkg/metrics"
)

// Side effect names, used as the metrics label and log field.
const (
	effectTeams     = "teams"
	effectInventory = "inventory"
	effectCoupon    = "coupon"
	effectPublish   = "publish"
	effectRelease   = "release"
)

// TeamCreator materializes the company teams bought with an order.
type TeamCreator interface {
	CreateTeams(ctx context.Context, o *order.Order, count int) error
}

// RepositoryTeamCreator numbers new teams after the ones the organization already has.
type RepositoryTeamCreator struct {
	teams team.Repository
}

// NewTeamCreator creates a TeamCreator over the team repository.
func NewTeamCreator(teams team.Repository) *RepositoryTeamCreator {
	return &RepositoryTeamCreator{teams: teams}
}

// CreateTeams creates count teams for the order's organization.
func (c *RepositoryTeamCreator) CreateTeams(ctx context.Context, o *order.Order, count int) error {
	existing, err := c.teams.CountByOrganization(ctx, o.OrganizationID, o.EventYearID)
	if err != nil {
		return err
	}
	for i := 1; i <= count; i++ {
		if err := c.teams.Create(ctx, team.NewFromOrder(o.OrganizationID, o.EventYearID, o.ID, existing+i)); err != nil {
			return err
		}
	}
	return nil
}

// fulfil runs the one-time effects of an order's first payment: teams,
// inventory confirmation and coupon usage.
func (s *Service) fulfil(ctx context.Context, o *order.Order, log *zap.Logger) {
	products := make(map[uint]*product.Product, len(o.Items))
	teams := 0
	for _, item := range o.Items {
		p, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			s.failed(effectInventory, log, err, zap.Uint("product_id", item.ProductID))
			continue
		}
		products[item.ProductID] = p
		if p.IsTeamRegistration() {
			teams += item.Quantity
		}
	}

	// teams first: tent confirmation needs a team to exist or be paid for
	if teams > 0 {
		if err := s.teams.CreateTeams(ctx, o, teams); err != nil {
			s.failed(effectTeams, log, err, zap.Int("teams", teams))
		}
	}

	for _, item := range o.Items {
		p, ok := products[item.ProductID]
		if !ok {
			continue
		}
		if p.IsTent() {
			res := s.tents.ConfirmTentSale(ctx, p.ID, o.OrganizationID, o.EventYearID, item.Quantity)
			if !res.Success {
				s.failed(effectInventory, log, res.Err(), zap.Uint("product_id", p.ID), zap.Int("quantity", item.Quantity))
			}
			continue
		}
		if res := s.ledger.ConfirmInventorySale(ctx, p.ID, item.Quantity); !res.Success {
			s.failed(effectInventory, log, res.Err(), zap.Uint("product_id", p.ID), zap.Int("quantity", item.Quantity))
		}
	}

	if o.CouponID != nil {
		if err := s.coupons.IncrementUsage(ctx, *o.CouponID); err != nil {
			s.failed(effectCoupon, log, err, zap.Uint("coupon_id", *o.CouponID))
		}
	}
}

// releaseItems gives back the reservations held by a cancelled order.
func (s *Service) releaseItems(ctx context.Context, o *order.Order, log *zap.Logger) {
	for _, item := range o.Items {
		if res := s.ledger.ReleaseInventory(ctx, item.ProductID, item.Quantity); !res.Success {
			s.failed(effectRelease, log, res.Err(), zap.Uint("product_id", item.ProductID), zap.Int("quantity", item.Quantity))
		}
	}
}

func (s *Service) publish(ctx context.Context, routingKey string, event any, log *zap.Logger) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		s.failed(effectPublish, log, err, zap.String("routing_key", routingKey))
	}
}

func (s *Service) failed(effect string, log *zap.Logger, err error, fields ...zap.Field) {
	metrics.RecordSideEffectFailure(effect)
	fields = append(fields, zap.String("effect", effect), zap.Error(err))
	log.Error("payment side effect failed", fields...)
}
