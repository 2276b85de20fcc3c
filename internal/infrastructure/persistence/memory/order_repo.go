package memory

import (
	"context"
	"slices"
	"time"

	"github.com/sportsfest/registration/internal/domain/order"
	"github.com/sportsfest/registration/internal/domain/product"
)

// OrderRepository implements order.Repository on the Store.
type OrderRepository struct {
	s *Store
}

var _ order.Repository = (*OrderRepository)(nil)

// Create assigns ids to the order and its items.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	if len(o.Items) == 0 {
		return order.ErrInvalidOrderItems
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o.ID = r.s.nextID()
	for i := range o.Items {
		o.Items[i].ID = r.s.nextID()
		o.Items[i].OrderID = o.ID
	}

	stored := *o
	stored.Items = slices.Clone(o.Items)
	stored.Payments = nil
	r.s.orders[o.ID] = &stored

	id := o.ID
	r.s.onRollback(ctx, func() { delete(r.s.orders, id) })
	return nil
}

// FindByID returns a copy of the order with its items and payments.
func (r *OrderRepository) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return r.withPayments(o), nil
}

// FindPaymentByIntentID returns the payment recorded for intentID.
func (r *OrderRepository) FindPaymentByIntentID(ctx context.Context, intentID string) (*order.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.payments[intentID]
	if !ok {
		return nil, order.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

// CreatePayment records p; a second payment for the same intent is ErrDuplicatePayment.
func (r *OrderRepository) CreatePayment(ctx context.Context, p *order.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.payments[p.StripePaymentIntentID]; exists {
		return order.ErrDuplicatePayment
	}
	if _, ok := r.s.orders[p.OrderID]; !ok {
		return order.ErrOrderNotFound
	}

	p.ID = r.s.nextID()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	stored := *p
	r.s.payments[p.StripePaymentIntentID] = &stored

	intentID := p.StripePaymentIntentID
	r.s.onRollback(ctx, func() { delete(r.s.payments, intentID) })
	return nil
}

// TransitionStatus moves the order to the new status only from one of from.
func (r *OrderRepository) TransitionStatus(ctx context.Context, id uint, from []order.Status, to order.Status) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return false, order.ErrOrderNotFound
	}
	if !slices.Contains(from, o.Status) {
		return false, nil
	}

	previous := o.Status
	o.Status = to
	o.UpdatedAt = time.Now()
	r.s.onRollback(ctx, func() { o.Status = previous })
	return true, nil
}

// SumCompletedPayments totals the completed payments of the order.
func (r *OrderRepository) SumCompletedPayments(ctx context.Context, orderID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var sum int64
	for _, p := range r.s.payments {
		if p.OrderID == orderID && p.Status == order.PaymentCompleted {
			sum += p.Amount
		}
	}
	return sum, nil
}

// PurchasedQuantities sums item quantities per product over non-abandoned orders.
func (r *OrderRepository) PurchasedQuantities(ctx context.Context, organizationID, eventYearID uint) (map[uint]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	quantities := make(map[uint]int)
	for _, o := range r.purchasedOrders(organizationID, eventYearID) {
		for _, item := range o.Items {
			quantities[item.ProductID] += item.Quantity
		}
	}
	return quantities, nil
}

// PurchasedTeamRegistrations counts team registration units over non-abandoned orders.
func (r *OrderRepository) PurchasedTeamRegistrations(ctx context.Context, organizationID, eventYearID uint) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	teams := 0
	for _, o := range r.purchasedOrders(organizationID, eventYearID) {
		for _, item := range o.Items {
			if p, ok := r.s.products[item.ProductID]; ok && p.Type == product.TypeTeamRegistration {
				teams += item.Quantity
			}
		}
	}
	return teams, nil
}

// purchasedOrders applies order.NotAbandoned. Caller holds s.mu.
func (r *OrderRepository) purchasedOrders(organizationID, eventYearID uint) []*order.Order {
	var result []*order.Order
	for _, o := range r.s.orders {
		if o.OrganizationID != organizationID || o.EventYearID != eventYearID {
			continue
		}
		if loaded := r.withPayments(o); order.NotAbandoned(loaded) {
			result = append(result, loaded)
		}
	}
	return result
}

// withPayments returns a copy of o with its payments attached. Caller holds s.mu.
func (r *OrderRepository) withPayments(o *order.Order) *order.Order {
	cp := *o
	cp.Items = slices.Clone(o.Items)
	cp.Payments = nil
	for _, p := range r.s.payments {
		if p.OrderID == o.ID {
			cp.Payments = append(cp.Payments, *p)
		}
	}
	slices.SortFunc(cp.Payments, func(a, b order.Payment) int { return int(a.ID) - int(b.ID) })
	return &cp
}
