// Package cart drives reservations from cart edits: every unit placed in a
// cart is reserved on its product, and every unit taken out is released.
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sportsfest/registration/internal/application/inventory"
	"github.com/sportsfest/registration/internal/application/tentquota"
	domaincart "github.com/sportsfest/registration/internal/domain/cart"
	"github.com/sportsfest/registration/internal/domain/coupon"
	"github.com/sportsfest/registration/internal/domain/order"
	"github.com/sportsfest/registration/internal/domain/product"
	apperrors "github.com/sportsfest/registration/pkg/errors"
	"github.com/sportsfest/registration/pkg/metrics"
	"github.com/sportsfest/registration/pkg/saga"
)

// sagaTimeout bounds one add-item sequence.
const sagaTimeout = 10 * time.Second

var (
	ErrEmptyCart      = apperrors.New(apperrors.ErrCodeEmptyCart, "Cart is empty")
	ErrWrongEventYear = apperrors.New(apperrors.ErrCodeInvalidParams, "Product does not belong to this event year")
	errLimitUnknown   = apperrors.New(apperrors.ErrCodeReservationUnavailable, "Could not verify purchase limits. Please try again.")
)

// TxManager runs fn in one store transaction.
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Actor is the organization a cart belongs to, taken from the session.
type Actor struct {
	OrganizationID   uint
	OrganizationSlug string
}

// View is the cart as shown to the user.
type View struct {
	EventYearID uint       `json:"event_year_id"`
	Lines       []LineView `json:"lines"`
	TeamsInCart int        `json:"teams_in_cart"`
	Subtotal    int64      `json:"subtotal"`
}

// LineView is a cart line joined with its product.
type LineView struct {
	ProductID uint         `json:"product_id"`
	Name      string       `json:"name"`
	Type      product.Type `json:"type"`
	Quantity  int          `json:"quantity"`
	UnitPrice int64        `json:"unit_price"`
	LineTotal int64        `json:"line_total"`
}

// Service manages carts and turns them into orders.
type Service struct {
	carts    domaincart.Store
	products product.Repository
	orders   order.Repository
	coupons  coupon.Repository
	ledger   *inventory.Ledger
	tents    *tentquota.Service
	tx       TxManager
	logger   *zap.Logger
}

// NewService creates a cart Service.
func NewService(
	carts domaincart.Store,
	products product.Repository,
	orders order.Repository,
	coupons coupon.Repository,
	ledger *inventory.Ledger,
	tents *tentquota.Service,
	tx TxManager,
	logger *zap.Logger,
) *Service {
	return &Service{
		carts:    carts,
		products: products,
		orders:   orders,
		coupons:  coupons,
		ledger:   ledger,
		tents:    tents,
		tx:       tx,
		logger:   logger,
	}
}

func cartKey(actor Actor, eventYearID uint) domaincart.Key {
	return domaincart.Key{OrganizationID: actor.OrganizationID, EventYearID: eventYearID}
}

// GetCart returns the cart with current prices.
func (s *Service) GetCart(ctx context.Context, actor Actor, eventYearID uint) (*View, error) {
	c, err := s.carts.Get(ctx, cartKey(actor, eventYearID))
	if err != nil {
		return nil, err
	}

	view := &View{EventYearID: eventYearID, Lines: make([]LineView, 0, len(c.Lines)), TeamsInCart: c.TeamsInCart()}
	for _, line := range c.Lines {
		p, err := s.products.FindByID(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		lv := LineView{
			ProductID: p.ID,
			Name:      p.Name,
			Type:      p.Type,
			Quantity:  line.Quantity,
			UnitPrice: p.Price,
			LineTotal: p.Price * int64(line.Quantity),
		}
		view.Lines = append(view.Lines, lv)
		view.Subtotal += lv.LineTotal
	}
	return view, nil
}

// AddItem reserves quantity more units and adds them to the cart.
//
// The reservation runs first; if the organization's own limit is then
// exceeded, or the cart cannot be saved, the reservation is released again.
func (s *Service) AddItem(ctx context.Context, actor Actor, eventYearID, productID uint, quantity int) (*View, error) {
	defer metrics.ObserveCartOperation("add", time.Now())

	if quantity <= 0 {
		return nil, product.ErrInvalidQuantity
	}

	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, product.ErrProductInactive
	}
	if p.EventYearID != eventYearID {
		return nil, ErrWrongEventYear
	}

	key := cartKey(actor, eventYearID)
	current, err := s.carts.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	newQuantity := current.QuantityOf(p.ID) + quantity
	teamsInCart := current.TeamsInCart()

	sg := saga.NewSaga(sagaTimeout, saga.WithLogger(s.logger))
	sg.AddStep("reserve",
		func(ctx context.Context) error {
			return s.reserve(ctx, actor, p, eventYearID, quantity, teamsInCart)
		},
		func(ctx context.Context) error {
			return s.ledger.ReleaseInventory(ctx, p.ID, quantity).Err()
		},
	)
	sg.AddStep("check limit",
		func(ctx context.Context) error {
			return s.checkLimit(ctx, actor, p, eventYearID, newQuantity, teamsInCart)
		},
		nil,
	)
	sg.AddStep("save cart",
		func(ctx context.Context) error {
			_, err := s.carts.AddQuantity(ctx, key, p.ID, p.Type, quantity)
			return err
		},
		nil,
	)

	if err := sg.Execute(ctx); err != nil {
		s.logger.Info("add to cart declined",
			zap.Uint("organization_id", actor.OrganizationID),
			zap.Uint("product_id", p.ID),
			zap.Int("quantity", quantity),
			zap.Error(err),
		)
		return nil, stepCause(err)
	}

	return s.GetCart(ctx, actor, eventYearID)
}

// UpdateQuantity sets the cart quantity of a product, reserving or releasing the difference.
func (s *Service) UpdateQuantity(ctx context.Context, actor Actor, eventYearID, productID uint, quantity int) (*View, error) {
	if quantity < 0 {
		return nil, product.ErrInvalidQuantity
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, actor, eventYearID, productID)
	}

	defer metrics.ObserveCartOperation("update", time.Now())

	key := cartKey(actor, eventYearID)
	current, err := s.carts.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	delta := quantity - current.QuantityOf(productID)
	switch {
	case delta > 0:
		return s.AddItem(ctx, actor, eventYearID, productID, delta)
	case delta < 0:
		// a concurrent edit may have shrunk the line already; release only what left it
		removed, err := s.carts.Decrease(ctx, key, productID, -delta)
		if err != nil {
			return nil, err
		}
		s.release(ctx, productID, removed)
	}
	return s.GetCart(ctx, actor, eventYearID)
}

// RemoveItem drops a product from the cart and releases its reservation.
func (s *Service) RemoveItem(ctx context.Context, actor Actor, eventYearID, productID uint) (*View, error) {
	defer metrics.ObserveCartOperation("remove", time.Now())

	removed, err := s.carts.Remove(ctx, cartKey(actor, eventYearID), productID)
	if err != nil {
		return nil, err
	}
	s.release(ctx, productID, removed)
	return s.GetCart(ctx, actor, eventYearID)
}

// Checkout turns the cart into a pending order. The reservations stay in
// place and now belong to the order; the cart is emptied without releasing.
func (s *Service) Checkout(ctx context.Context, actor Actor, eventYearID uint, couponID *uint) (*order.Order, error) {
	defer metrics.ObserveCartOperation("checkout", time.Now())

	key := cartKey(actor, eventYearID)
	current, err := s.carts.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if current.IsEmpty() {
		return nil, ErrEmptyCart
	}

	items := make([]order.Item, 0, len(current.Lines))
	var subtotal int64
	for _, line := range current.Lines {
		p, err := s.products.FindByID(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		items = append(items, order.Item{ProductID: p.ID, Quantity: line.Quantity, UnitPrice: p.Price})
		subtotal += p.Price * int64(line.Quantity)
	}

	var discount int64
	if couponID != nil {
		c, err := s.coupons.FindByID(ctx, *couponID)
		if err != nil {
			return nil, err
		}
		if err := c.Validate(time.Now()); err != nil {
			return nil, err
		}
		discount = c.Discount(subtotal)
	}

	o := order.NewOrder(order.GenerateOrderNo(), actor.OrganizationID, eventYearID, items, discount, couponID)
	err = s.tx.Transaction(ctx, func(txCtx context.Context) error {
		return s.orders.Create(txCtx, o)
	})
	if err != nil {
		return nil, err
	}

	if err := s.carts.Clear(ctx, key); err != nil {
		s.logger.Warn("checkout: clear cart failed",
			zap.Uint("order_id", o.ID),
			zap.Stringer("cart", key),
			zap.Error(err),
		)
	}

	s.logger.Info("checkout completed",
		zap.Uint("order_id", o.ID),
		zap.String("order_no", o.OrderNo),
		zap.Uint("organization_id", actor.OrganizationID),
		zap.Int64("total", o.Total),
	)
	return o, nil
}

func (s *Service) reserve(ctx context.Context, actor Actor, p *product.Product, eventYearID uint, quantity, teamsInCart int) error {
	if p.IsTent() {
		return s.tents.ReserveTentInventoryBySlug(ctx, p.ID, actor.OrganizationSlug, eventYearID, quantity, teamsInCart).Err()
	}
	return s.ledger.ReserveInventory(ctx, p.ID, quantity).Err()
}

// checkLimit verifies the organization's own ceiling for newQuantity units in
// the cart: the tent quota (counting teams in the cart) or maxQuantityPerOrg.
func (s *Service) checkLimit(ctx context.Context, actor Actor, p *product.Product, eventYearID uint, newQuantity, teamsInCart int) error {
	if p.IsTent() {
		status := s.tents.GetTentQuotaStatus(ctx, p.ID, actor.OrganizationID, eventYearID, teamsInCart)
		if status == nil {
			return errLimitUnknown
		}
		if status.QuantityPurchased+newQuantity > status.MaxAllowed {
			return apperrors.Newf(apperrors.ErrCodeTentQuotaExceeded,
				"Exceeds tent limit. Maximum %d tents allowed (%d teams). Already purchased: %d, in cart: %d",
				status.MaxAllowed, status.CompanyTeamCount+status.TeamsInCart, status.QuantityPurchased, newQuantity)
		}
		return nil
	}

	if p.MaxQuantityPerOrg == nil {
		return nil
	}
	purchased, err := s.orders.PurchasedQuantities(ctx, actor.OrganizationID, eventYearID)
	if err != nil {
		s.logger.Error("check limit: purchased quantities failed", zap.Uint("product_id", p.ID), zap.Error(err))
		return errLimitUnknown
	}
	if already := purchased[p.ID]; already+newQuantity > *p.MaxQuantityPerOrg {
		return apperrors.Newf(apperrors.ErrCodeMaxQuantityExceeded,
			"Maximum %d of %s per organization. Already purchased: %d, in cart: %d",
			*p.MaxQuantityPerOrg, p.Name, already, newQuantity)
	}
	return nil
}

// release gives back reserved units. A failure leaves stock over-reserved
// and is only logged.
func (s *Service) release(ctx context.Context, productID uint, quantity int) {
	if quantity <= 0 {
		return
	}
	if res := s.ledger.ReleaseInventory(ctx, productID, quantity); !res.Success {
		s.logger.Warn("release after cart edit failed",
			zap.Uint("product_id", productID),
			zap.Int("quantity", quantity),
			zap.String("error", res.Error),
		)
	}
}

// stepCause unwraps a saga failure to the domain error behind it.
func stepCause(err error) error {
	var stepErr *saga.StepError
	if errors.As(err, &stepErr) {
		return stepErr.Cause
	}
	return fmt.Errorf("add to cart: %w", err)
}
