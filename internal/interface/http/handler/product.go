package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/sportsfest/registration/internal/application/availability"
	"github.com/sportsfest/registration/internal/application/inventory"
	"github.com/sportsfest/registration/internal/application/tentquota"
	"github.com/sportsfest/registration/internal/domain/product"
	"github.com/sportsfest/registration/internal/interface/http/dto"
	"github.com/sportsfest/registration/internal/interface/http/middleware"
	"github.com/sportsfest/registration/pkg/response"
)

// AvailabilityReporter is implemented by availability.Reporter.
type AvailabilityReporter interface {
	GetProductAvailability(ctx context.Context, organizationSlug string, eventYearID uint) ([]availability.ProductAvailability, error)
	ForProduct(ctx context.Context, organizationID, eventYearID, productID uint) (*availability.ProductAvailability, error)
}

// InventoryStatusReader is implemented by inventory.Ledger.
type InventoryStatusReader interface {
	GetInventoryStatus(ctx context.Context, productID uint) *inventory.Status
}

// TentQuotaReader is implemented by tentquota.Service.
type TentQuotaReader interface {
	GetTentQuotaStatus(ctx context.Context, productID, organizationID, eventYearID uint, teamsInCart int) *tentquota.QuotaStatus
}

// ProductHandler serves the read-only views used to gate the catalog UI.
type ProductHandler struct {
	reporter  AvailabilityReporter
	inventory InventoryStatusReader
	tents     TentQuotaReader
}

// NewProductHandler creates a ProductHandler.
func NewProductHandler(reporter AvailabilityReporter, inventory InventoryStatusReader, tents TentQuotaReader) *ProductHandler {
	return &ProductHandler{reporter: reporter, inventory: inventory, tents: tents}
}

// GetAvailability lists the event year's products for the caller's organization.
// @Summary      Product availability
// @Description  Per-organization limits, purchased quantities and live stock for every active product
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        event_year_id query int true "event year"
// @Success      200 {object} response.Response{data=[]availability.ProductAvailability}
// @Failure      401 {object} response.Response
// @Router       /api/v1/products/availability [get]
func (h *ProductHandler) GetAvailability(c *gin.Context) {
	var q dto.EventYearQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	_, slug := middleware.GetOrganization(c)
	products, err := h.reporter.GetProductAvailability(c.Request.Context(), slug, q.EventYearID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, products)
}

// GetProductAvailability annotates one product, e.g. to refresh a product page after a cart edit.
// @Summary      Product availability (single)
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id            path  int true "product id"
// @Param        event_year_id query int true "event year"
// @Success      200 {object} response.Response{data=availability.ProductAvailability}
// @Failure      400 {object} response.Response "40402 product not found"
// @Router       /api/v1/products/{id}/availability [get]
func (h *ProductHandler) GetProductAvailability(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var q dto.EventYearQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	orgID, _ := middleware.GetOrganization(c)
	a, err := h.reporter.ForProduct(c.Request.Context(), orgID, q.EventYearID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, a)
}

// GetInventory returns a product's stock counters.
// @Summary      Inventory status
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "product id"
// @Success      200 {object} response.Response{data=inventory.Status}
// @Failure      400 {object} response.Response "40402 product not found"
// @Router       /api/v1/products/{id}/inventory [get]
func (h *ProductHandler) GetInventory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	status := h.inventory.GetInventoryStatus(c.Request.Context(), id)
	if status == nil {
		response.Error(c, product.ErrProductNotFound)
		return
	}
	response.Success(c, status)
}

// GetTentQuota returns the organization's tent allowance for a tent product.
// @Summary      Tent quota status
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id            path  int true  "tent product id"
// @Param        event_year_id query int true  "event year"
// @Param        teams_in_cart query int false "unpaid team registrations in the cart"
// @Success      200 {object} response.Response{data=tentquota.QuotaStatus}
// @Router       /api/v1/products/{id}/tent-quota [get]
func (h *ProductHandler) GetTentQuota(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var q dto.TentQuotaQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	orgID, _ := middleware.GetOrganization(c)
	status := h.tents.GetTentQuotaStatus(c.Request.Context(), id, orgID, q.EventYearID, q.TeamsInCart)
	if status == nil {
		response.Error(c, product.ErrProductNotFound)
		return
	}
	response.Success(c, status)
}
