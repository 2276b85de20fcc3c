package dto

import "github.com/sportsfest/registration/internal/domain/order"

// AddCartItemRequest reserves quantity more units of a product.
type AddCartItemRequest struct {
	EventYearID uint `json:"event_year_id" binding:"required" example:"2026"`
	ProductID   uint `json:"product_id" binding:"required" example:"12"`
	Quantity    int  `json:"quantity" binding:"required,min=1" example:"2"`
}

// UpdateCartItemRequest sets the line quantity; 0 removes the line.
type UpdateCartItemRequest struct {
	EventYearID uint `json:"event_year_id" binding:"required" example:"2026"`
	Quantity    int  `json:"quantity" binding:"min=0" example:"1"`
}

// CheckoutRequest optionally applies a coupon.
type CheckoutRequest struct {
	EventYearID uint  `json:"event_year_id" binding:"required" example:"2026"`
	CouponID    *uint `json:"coupon_id" example:"3"`
}

// EventYearQuery binds ?event_year_id=.
type EventYearQuery struct {
	EventYearID uint `form:"event_year_id" binding:"required"`
}

// OrderResponse is the order created by checkout.
type OrderResponse struct {
	ID       uint                `json:"id" example:"42"`
	OrderNo  string              `json:"order_no" example:"SF20261019-1f0c9a2b4e6d"`
	Status   string              `json:"status" example:"pending"`
	Total    int64               `json:"total" example:"152000"`
	Discount int64               `json:"discount" example:"1000"`
	Items    []OrderItemResponse `json:"items"`
}

// OrderItemResponse is one order line.
type OrderItemResponse struct {
	ProductID uint  `json:"product_id" example:"12"`
	Quantity  int   `json:"quantity" example:"2"`
	UnitPrice int64 `json:"unit_price" example:"2000"`
}

// NewOrderResponse converts an order entity.
func NewOrderResponse(o *order.Order) *OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}
	return &OrderResponse{
		ID:       o.ID,
		OrderNo:  o.OrderNo,
		Status:   string(o.Status),
		Total:    o.Total,
		Discount: o.Discount,
		Items:    items,
	}
}
