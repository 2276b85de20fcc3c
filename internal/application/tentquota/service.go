// Package tentquota enforces the dynamic tent ceiling of an organization:
// two tents per company team, counted from paid or created teams plus teams
// still in the cart at reservation time.
package tentquota

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/sportsfest/registration/internal/application/inventory"
	"github.com/sportsfest/registration/internal/domain/order"
	"github.com/sportsfest/registration/internal/domain/organization"
	"github.com/sportsfest/registration/internal/domain/product"
	"github.com/sportsfest/registration/internal/domain/team"
	"github.com/sportsfest/registration/internal/domain/tent"
	apperrors "github.com/sportsfest/registration/pkg/errors"
	"github.com/sportsfest/registration/pkg/metrics"
	"github.com/sportsfest/registration/pkg/tracing"
)

const tracerName = "tentquota"

const msgGenericFailure = "Failed to process tent reservation. Please try again."

// Result of a tent reservation or confirmation.
type Result struct {
	Success           bool   `json:"success"`
	QuantityPurchased int    `json:"quantity_purchased"`
	RemainingAllowed  int    `json:"remaining_allowed"`
	Error             string `json:"error,omitempty"`

	code int
}

// Err converts a failed result to an AppError, nil on success.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	code := r.code
	if code == 0 {
		code = apperrors.ErrCodeBusinessError
	}
	return apperrors.New(code, r.Error)
}

func failed(code int, message string) Result {
	return Result{Error: message, code: code}
}

// fromLedger carries a failed ledger result over unchanged.
func fromLedger(r inventory.Result) Result {
	var appErr *apperrors.AppError
	if errors.As(r.Err(), &appErr) {
		return failed(appErr.Code, appErr.Message)
	}
	return failed(0, r.Error)
}

// QuotaStatus is the read-only view used to gate the tent UI.
type QuotaStatus struct {
	ProductID          uint `json:"product_id"`
	CompanyTeamCount   int  `json:"company_team_count"`
	TeamsInCart        int  `json:"teams_in_cart"`
	MaxAllowed         int  `json:"max_allowed"`
	QuantityPurchased  int  `json:"quantity_purchased"`
	RemainingAllowed   int  `json:"remaining_allowed"`
	AvailableInventory *int `json:"available_inventory"`
	AtQuotaLimit       bool `json:"at_quota_limit"`
	CanPurchaseMore    bool `json:"can_purchase_more"`
	RequiresTeam       bool `json:"requires_team"`
}

// Service enforces the per-organization tent quota.
type Service struct {
	products      product.Repository
	orders        order.Repository
	teams         team.Repository
	organizations organization.Repository
	tracking      tent.TrackingRepository
	ledger        *inventory.Ledger
	logger        *zap.Logger
}

// NewService creates a tent quota Service.
func NewService(
	products product.Repository,
	orders order.Repository,
	teams team.Repository,
	organizations organization.Repository,
	tracking tent.TrackingRepository,
	ledger *inventory.Ledger,
	logger *zap.Logger,
) *Service {
	return &Service{
		products:      products,
		orders:        orders,
		teams:         teams,
		organizations: organizations,
		tracking:      tracking,
		ledger:        ledger,
		logger:        logger,
	}
}

// GetCompanyTeamCount is max(created teams, team registrations on non-abandoned orders).
// Paid registrations count before the fulfilment job has created the teams.
func (s *Service) GetCompanyTeamCount(ctx context.Context, organizationID, eventYearID uint) (int, error) {
	created, err := s.teams.CountByOrganization(ctx, organizationID, eventYearID)
	if err != nil {
		return 0, fmt.Errorf("count company teams: %w", err)
	}
	purchased, err := s.orders.PurchasedTeamRegistrations(ctx, organizationID, eventYearID)
	if err != nil {
		return 0, fmt.Errorf("sum purchased team registrations: %w", err)
	}
	return max(created, purchased), nil
}

// ReserveTentInventory checks the team requirement, live stock and the
// organization's durable quota, and only then reserves stock.
//
// The quota is checked against tents already bought (the tracking row), not
// against other organizations' reservations.
func (s *Service) ReserveTentInventory(ctx context.Context, productID, organizationID, eventYearID uint, quantity, teamsInCart int) Result {
	ctx, span := tracing.StartSpan(ctx, tracerName, "ReserveTentInventory")
	span.SetAttributes(
		attribute.Int64("product_id", int64(productID)),
		attribute.Int64("organization_id", int64(organizationID)),
		attribute.Int("quantity", quantity),
		attribute.Int("teams_in_cart", teamsInCart),
	)
	defer span.End()

	log := s.logger.With(
		zap.Uint("product_id", productID),
		zap.Uint("organization_id", organizationID),
		zap.Uint("event_year_id", eventYearID),
		zap.Int("quantity", quantity),
	)

	if quantity <= 0 {
		return failed(apperrors.ErrCodeInvalidParams, product.ErrInvalidQuantity.Message)
	}

	persisted, err := s.GetCompanyTeamCount(ctx, organizationID, eventYearID)
	if err != nil {
		log.Error("tent reservation: team count failed", zap.Error(err))
		return failed(apperrors.ErrCodeReservationUnavailable, msgGenericFailure)
	}

	teamCount := tent.ComputeTeamCount(persisted, teamsInCart)
	if teamCount == 0 {
		metrics.RecordTentRejection("team_required")
		return failed(apperrors.ErrCodeTeamRequired,
			"You must have at least one team registered (paid or in your cart) before reserving tents")
	}
	maxAllowed := tent.MaxAllowed(teamCount)

	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			metrics.RecordTentRejection("not_found")
			return failed(apperrors.ErrCodeProductNotFound, product.ErrProductNotFound.Message)
		}
		log.Error("tent reservation: load product failed", zap.Error(err))
		return failed(apperrors.ErrCodeReservationUnavailable, msgGenericFailure)
	}
	if available := p.Available(); available != nil && *available < quantity {
		metrics.RecordTentRejection("insufficient_inventory")
		return failed(apperrors.ErrCodeInsufficientInventory,
			fmt.Sprintf("Only %d tents available", *available))
	}

	purchased, err := s.purchasedTents(ctx, organizationID, eventYearID, productID)
	if err != nil {
		log.Error("tent reservation: load tracking failed", zap.Error(err))
		return failed(apperrors.ErrCodeReservationUnavailable, msgGenericFailure)
	}

	if tent.ExceedsQuota(purchased, quantity, maxAllowed) {
		metrics.RecordTentRejection("quota_exceeded")
		return failed(apperrors.ErrCodeTentQuotaExceeded, fmt.Sprintf(
			"Exceeds tent limit. Maximum %d tents allowed (%d teams x %d). Already purchased: %d",
			maxAllowed, teamCount, tent.TentsPerTeam, purchased))
	}

	if res := s.ledger.ReserveInventory(ctx, productID, quantity); !res.Success {
		return fromLedger(res)
	}

	return Result{
		Success:           true,
		QuantityPurchased: purchased,
		RemainingAllowed:  tent.RemainingAllowed(maxAllowed, purchased+quantity),
	}
}

// ReserveTentInventoryBySlug resolves the organization and reserves.
func (s *Service) ReserveTentInventoryBySlug(ctx context.Context, productID uint, organizationSlug string, eventYearID uint, quantity, teamsInCart int) Result {
	org, err := s.organizations.FindBySlug(ctx, organizationSlug)
	if err != nil {
		if errors.Is(err, organization.ErrOrganizationNotFound) {
			return failed(apperrors.ErrCodeOrganizationNotFound, organization.ErrOrganizationNotFound.Message)
		}
		s.logger.Error("tent reservation: load organization failed",
			zap.String("organization_slug", organizationSlug), zap.Error(err))
		return failed(apperrors.ErrCodeReservationUnavailable, msgGenericFailure)
	}
	return s.ReserveTentInventory(ctx, productID, org.ID, eventYearID, quantity, teamsInCart)
}

// ReleaseTentInventory gives back reserved tents. Tracking is untouched:
// it only records confirmed sales.
func (s *Service) ReleaseTentInventory(ctx context.Context, productID uint, quantity int) inventory.Result {
	return s.ledger.ReleaseInventory(ctx, productID, quantity)
}

// ConfirmTentSale converts reserved tents to sold and adds them to the
// organization's tracking row, refreshing the quota snapshot on it.
// Runs after payment, so the quota is recorded but not enforced; a missing
// team is still a hard block.
func (s *Service) ConfirmTentSale(ctx context.Context, productID, organizationID, eventYearID uint, quantity int) Result {
	ctx, span := tracing.StartSpan(ctx, tracerName, "ConfirmTentSale")
	span.SetAttributes(
		attribute.Int64("product_id", int64(productID)),
		attribute.Int64("organization_id", int64(organizationID)),
		attribute.Int("quantity", quantity),
	)
	defer span.End()

	log := s.logger.With(
		zap.Uint("product_id", productID),
		zap.Uint("organization_id", organizationID),
		zap.Uint("event_year_id", eventYearID),
		zap.Int("quantity", quantity),
	)

	persisted, err := s.GetCompanyTeamCount(ctx, organizationID, eventYearID)
	if err != nil {
		log.Error("tent confirmation: team count failed", zap.Error(err))
		return failed(apperrors.ErrCodeDatabaseError, "Failed to confirm tent sale")
	}
	teamCount := tent.ComputeTeamCount(persisted, 0)
	if teamCount == 0 {
		metrics.RecordTentRejection("team_required")
		return failed(apperrors.ErrCodeTeamRequired, "Cannot confirm tents for an organization without teams")
	}

	if res := s.ledger.ConfirmInventorySale(ctx, productID, quantity); !res.Success {
		return fromLedger(res)
	}

	tracking, err := s.tracking.AddPurchase(ctx, tent.Purchase{
		OrganizationID: organizationID,
		EventYearID:    eventYearID,
		TentProductID:  productID,
		Quantity:       quantity,
		MaxAllowed:     tent.MaxAllowed(teamCount),
		TeamCount:      teamCount,
	})
	if err != nil {
		span.RecordError(err)
		log.Error("tent confirmation: tracking update failed", zap.Error(err))
		return failed(apperrors.ErrCodeDatabaseError, "Tent sale confirmed but purchase tracking could not be updated")
	}

	log.Info("tent sale confirmed",
		zap.Int("quantity_purchased", tracking.QuantityPurchased),
		zap.Int("remaining_allowed", tracking.RemainingAllowed),
	)
	return Result{
		Success:           true,
		QuantityPurchased: tracking.QuantityPurchased,
		RemainingAllowed:  tracking.RemainingAllowed,
	}
}

// GetTentQuotaStatus returns nil when the product does not exist or the
// status cannot be computed.
func (s *Service) GetTentQuotaStatus(ctx context.Context, productID, organizationID, eventYearID uint, teamsInCart int) *QuotaStatus {
	log := s.logger.With(zap.Uint("product_id", productID), zap.Uint("organization_id", organizationID))

	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if !errors.Is(err, product.ErrProductNotFound) {
			log.Error("tent quota status: load product failed", zap.Error(err))
		}
		return nil
	}

	persisted, err := s.GetCompanyTeamCount(ctx, organizationID, eventYearID)
	if err != nil {
		log.Error("tent quota status: team count failed", zap.Error(err))
		return nil
	}
	purchased, err := s.purchasedTents(ctx, organizationID, eventYearID, productID)
	if err != nil {
		log.Error("tent quota status: load tracking failed", zap.Error(err))
		return nil
	}

	teamCount := tent.ComputeTeamCount(persisted, teamsInCart)
	maxAllowed := tent.MaxAllowed(teamCount)
	remaining := tent.RemainingAllowed(maxAllowed, purchased)
	available := p.Available()

	return &QuotaStatus{
		ProductID:          p.ID,
		CompanyTeamCount:   persisted,
		TeamsInCart:        max(teamsInCart, 0),
		MaxAllowed:         maxAllowed,
		QuantityPurchased:  purchased,
		RemainingAllowed:   remaining,
		AvailableInventory: available,
		AtQuotaLimit:       teamCount > 0 && purchased >= maxAllowed,
		CanPurchaseMore:    teamCount > 0 && remaining > 0 && (available == nil || *available > 0),
		RequiresTeam:       teamCount == 0,
	}
}

// purchasedTents reads quantity_purchased, 0 when the organization never bought this tent.
func (s *Service) purchasedTents(ctx context.Context, organizationID, eventYearID, productID uint) (int, error) {
	tracking, err := s.tracking.Get(ctx, organizationID, eventYearID, productID)
	if errors.Is(err, tent.ErrTrackingNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return tracking.QuantityPurchased, nil
}
