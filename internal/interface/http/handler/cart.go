package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/sportsfest/registration/internal/application/cart"
	"github.com/sportsfest/registration/internal/domain/order"
	"github.com/sportsfest/registration/internal/interface/http/dto"
	"github.com/sportsfest/registration/pkg/response"
)

// CartService is implemented by cart.Service.
type CartService interface {
	GetCart(ctx context.Context, actor cart.Actor, eventYearID uint) (*cart.View, error)
	AddItem(ctx context.Context, actor cart.Actor, eventYearID, productID uint, quantity int) (*cart.View, error)
	UpdateQuantity(ctx context.Context, actor cart.Actor, eventYearID, productID uint, quantity int) (*cart.View, error)
	RemoveItem(ctx context.Context, actor cart.Actor, eventYearID, productID uint) (*cart.View, error)
	Checkout(ctx context.Context, actor cart.Actor, eventYearID uint, couponID *uint) (*order.Order, error)
}

// CartHandler serves the /cart routes.
type CartHandler struct {
	carts CartService
}

// NewCartHandler creates a CartHandler.
func NewCartHandler(carts CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// GetCart
// @Summary      Current cart
// @Tags         cart
// @Produce      json
// @Security     BearerAuth
// @Param        event_year_id query int true "event year"
// @Success      200 {object} response.Response{data=cart.View}
// @Router       /api/v1/cart [get]
func (h *CartHandler) GetCart(c *gin.Context) {
	var q dto.EventYearQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	view, err := h.carts.GetCart(c.Request.Context(), actor(c), q.EventYearID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// AddItem reserves stock and adds it to the cart.
// @Summary      Add to cart
// @Description  Reserves inventory; tents are also checked against the team-based quota
// @Tags         cart
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.AddCartItemRequest true "item"
// @Success      200 {object} response.Response{data=cart.View}
// @Failure      400 {object} response.Response "40001 insufficient inventory, 40003 tent quota exceeded, 40004 team required, 40005 max quantity exceeded"
// @Router       /api/v1/cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	view, err := h.carts.AddItem(c.Request.Context(), actor(c), req.EventYearID, req.ProductID, req.Quantity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// UpdateItem sets a line's quantity, reserving or releasing the difference.
// @Summary      Update cart quantity
// @Tags         cart
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        product_id path int true "product id"
// @Param        request body dto.UpdateCartItemRequest true "quantity"
// @Success      200 {object} response.Response{data=cart.View}
// @Router       /api/v1/cart/items/{product_id} [put]
func (h *CartHandler) UpdateItem(c *gin.Context) {
	productID, ok := idParam(c, "product_id")
	if !ok {
		return
	}
	var req dto.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	view, err := h.carts.UpdateQuantity(c.Request.Context(), actor(c), req.EventYearID, productID, req.Quantity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// RemoveItem
// @Summary      Remove from cart
// @Tags         cart
// @Produce      json
// @Security     BearerAuth
// @Param        product_id    path  int true "product id"
// @Param        event_year_id query int true "event year"
// @Success      200 {object} response.Response{data=cart.View}
// @Router       /api/v1/cart/items/{product_id} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	productID, ok := idParam(c, "product_id")
	if !ok {
		return
	}
	var q dto.EventYearQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	view, err := h.carts.RemoveItem(c.Request.Context(), actor(c), q.EventYearID, productID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// Checkout turns the cart into a pending order. Reservations carry over
// until the payment is confirmed.
// @Summary      Checkout
// @Tags         cart
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CheckoutRequest true "checkout"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Failure      400 {object} response.Response "40010 empty cart"
// @Router       /api/v1/cart/checkout [post]
func (h *CartHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	o, err := h.carts.Checkout(c.Request.Context(), actor(c), req.EventYearID, req.CouponID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewOrderResponse(o))
}
