package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sportsfest/registration/internal/domain/order"
	"github.com/sportsfest/registration/internal/domain/product"
	apperrors "github.com/sportsfest/registration/pkg/errors"
)

// orderRepository stores orders with their items and payments.
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates the gorm order repository.
func NewOrderRepository(db *gorm.DB) order.Repository {
	return &orderRepository{db: db}
}

// notAbandoned is order.NotAbandoned as a scope over "orders": the order
// has a completed payment, or it is neither pending nor cancelled.
func notAbandoned(db *gorm.DB) *gorm.DB {
	return db.Where(
		"(orders.status NOT IN ? OR EXISTS (SELECT 1 FROM order_payments op WHERE op.order_id = orders.id AND op.status = ?))",
		[]string{string(order.StatusPending), string(order.StatusCancelled)}, string(order.PaymentCompleted),
	)
}

// Create inserts the order and its items (gorm saves the association).
func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	if len(o.Items) == 0 {
		return order.ErrInvalidOrderItems
	}

	model := toOrderModel(o)
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "create order failed")
	}

	o.ID = model.ID
	for i := range o.Items {
		o.Items[i].ID = model.Items[i].ID
		o.Items[i].OrderID = model.ID
	}
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	var model OrderModel
	err := getDB(ctx, r.db).Preload("Items").Preload("Payments").First(&model, id).Error
	if err != nil {
		if isNotFound(err) {
			return nil, order.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "load order failed")
	}
	return toOrderEntity(&model), nil
}

func (r *orderRepository) FindPaymentByIntentID(ctx context.Context, intentID string) (*order.Payment, error) {
	var model OrderPaymentModel
	err := getDB(ctx, r.db).Where("stripe_payment_intent_id = ?", intentID).First(&model).Error
	if err != nil {
		if isNotFound(err) {
			return nil, order.ErrPaymentNotFound
		}
		return nil, apperrors.Wrap(err, "load payment failed")
	}
	p := toPaymentEntity(&model)
	return &p, nil
}

// CreatePayment relies on the unique intent index to refuse a second row.
func (r *orderRepository) CreatePayment(ctx context.Context, p *order.Payment) error {
	model := &OrderPaymentModel{
		OrderID:               p.OrderID,
		StripePaymentIntentID: p.StripePaymentIntentID,
		Status:                string(p.Status),
		Amount:                p.Amount,
		CreatedAt:             p.CreatedAt,
	}
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return order.ErrDuplicatePayment
		}
		return apperrors.Wrap(err, "create payment failed")
	}
	p.ID = model.ID
	p.CreatedAt = model.CreatedAt
	return nil
}

// TransitionStatus runs UPDATE orders SET status = ? WHERE id = ? AND status IN (?).
func (r *orderRepository) TransitionStatus(ctx context.Context, id uint, from []order.Status, to order.Status) (bool, error) {
	db := getDB(ctx, r.db)
	result := db.Model(&OrderModel{}).
		Where("id = ? AND status IN ?", id, statusStrings(from)).
		Updates(map[string]any{
			"status":     string(to),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, "update order status failed")
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := db.Model(&OrderModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, apperrors.Wrap(err, "load order failed")
	}
	if count == 0 {
		return false, order.ErrOrderNotFound
	}
	return false, nil
}

func (r *orderRepository) SumCompletedPayments(ctx context.Context, orderID uint) (int64, error) {
	var sum int64
	err := getDB(ctx, r.db).Model(&OrderPaymentModel{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("order_id = ? AND status = ?", orderID, string(order.PaymentCompleted)).
		Scan(&sum).Error
	if err != nil {
		return 0, apperrors.Wrap(err, "sum payments failed")
	}
	return sum, nil
}

func (r *orderRepository) PurchasedQuantities(ctx context.Context, organizationID, eventYearID uint) (map[uint]int, error) {
	var rows []struct {
		ProductID uint
		Quantity  int
	}
	err := getDB(ctx, r.db).Table("order_items").
		Select("order_items.product_id AS product_id, SUM(order_items.quantity) AS quantity").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.organization_id = ? AND orders.event_year_id = ?", organizationID, eventYearID).
		Scopes(notAbandoned).
		Group("order_items.product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "sum purchased quantities failed")
	}

	quantities := make(map[uint]int, len(rows))
	for _, row := range rows {
		quantities[row.ProductID] = row.Quantity
	}
	return quantities, nil
}

func (r *orderRepository) PurchasedTeamRegistrations(ctx context.Context, organizationID, eventYearID uint) (int, error) {
	var teams int
	err := getDB(ctx, r.db).Table("order_items").
		Select("COALESCE(SUM(order_items.quantity), 0)").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("orders.organization_id = ? AND orders.event_year_id = ?", organizationID, eventYearID).
		Where("products.type = ?", string(product.TypeTeamRegistration)).
		Scopes(notAbandoned).
		Scan(&teams).Error
	if err != nil {
		return 0, apperrors.Wrap(err, "sum team registrations failed")
	}
	return teams, nil
}

func statusStrings(statuses []order.Status) []string {
	s := make([]string, len(statuses))
	for i, status := range statuses {
		s[i] = string(status)
	}
	return s
}

func toOrderModel(o *order.Order) *OrderModel {
	items := make([]OrderItemModel, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemModel{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}

	return &OrderModel{
		OrderNo:        o.OrderNo,
		OrganizationID: o.OrganizationID,
		EventYearID:    o.EventYearID,
		Status:         string(o.Status),
		Total:          o.Total,
		Discount:       o.Discount,
		CouponID:       o.CouponID,
		Items:          items,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func toOrderEntity(m *OrderModel) *order.Order {
	items := make([]order.Item, len(m.Items))
	for i, item := range m.Items {
		items[i] = order.Item{
			ID:        item.ID,
			OrderID:   item.OrderID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}

	payments := make([]order.Payment, len(m.Payments))
	for i := range m.Payments {
		payments[i] = toPaymentEntity(&m.Payments[i])
	}

	return &order.Order{
		ID:             m.ID,
		OrderNo:        m.OrderNo,
		OrganizationID: m.OrganizationID,
		EventYearID:    m.EventYearID,
		Status:         order.Status(m.Status),
		Total:          m.Total,
		Discount:       m.Discount,
		CouponID:       m.CouponID,
		Items:          items,
		Payments:       payments,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func toPaymentEntity(m *OrderPaymentModel) order.Payment {
	return order.Payment{
		ID:                    m.ID,
		OrderID:               m.OrderID,
		StripePaymentIntentID: m.StripePaymentIntentID,
		Status:                order.PaymentStatus(m.Status),
		Amount:                m.Amount,
		CreatedAt:             m.CreatedAt,
	}
}
