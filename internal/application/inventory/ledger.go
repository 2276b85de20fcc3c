// Package inventory is the stock ledger: reserve, release and confirm-sale
// over a product's counters, plus a read-only status snapshot.
//
// Mutations never return an error. They return a Result whose Success must
// be checked; store failures are logged and reported with a generic message.
package inventory

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/sportsfest/registration/internal/domain/product"
	apperrors "github.com/sportsfest/registration/pkg/errors"
	"github.com/sportsfest/registration/pkg/metrics"
	"github.com/sportsfest/registration/pkg/tracing"
)

const tracerName = "inventory"

// Result of a ledger mutation. AvailableInventory is nil for unlimited products.
type Result struct {
	Success            bool   `json:"success"`
	AvailableInventory *int   `json:"available_inventory"`
	Error              string `json:"error,omitempty"`

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

func succeeded(p *product.Product) Result {
	return Result{Success: true, AvailableInventory: p.Available()}
}

func failed(code int, message string) Result {
	return Result{Error: message, code: code}
}

// Status is a display snapshot of a product's counters.
type Status struct {
	ProductID          uint `json:"product_id"`
	TotalInventory     *int `json:"total_inventory"`
	SoldCount          int  `json:"sold_count"`
	ReservedCount      int  `json:"reserved_count"`
	AvailableInventory *int `json:"available_inventory"`
}

// Ledger reserves, releases and sells product inventory.
type Ledger struct {
	products product.Repository
	logger   *zap.Logger
}

// NewLedger creates a Ledger over the product repository.
func NewLedger(products product.Repository, logger *zap.Logger) *Ledger {
	return &Ledger{products: products, logger: logger}
}

// ReserveInventory claims quantity units if that many are free right now.
// The check and the increment are one conditional update in the store.
func (l *Ledger) ReserveInventory(ctx context.Context, productID uint, quantity int) Result {
	ctx, span := tracing.StartSpan(ctx, tracerName, "ReserveInventory")
	span.SetAttributes(attribute.Int64("product_id", int64(productID)), attribute.Int("quantity", quantity))
	defer span.End()

	if quantity <= 0 {
		return failed(apperrors.ErrCodeInvalidParams, product.ErrInvalidQuantity.Message)
	}

	p, err := l.products.Reserve(ctx, productID, quantity)
	metrics.RecordInventoryOperation("reserve", err == nil)
	switch {
	case err == nil:
		return succeeded(p)
	case errors.Is(err, product.ErrInsufficientInventory):
		return failed(apperrors.ErrCodeInsufficientInventory, product.ErrInsufficientInventory.Message)
	case errors.Is(err, product.ErrProductNotFound):
		return failed(apperrors.ErrCodeProductNotFound, product.ErrProductNotFound.Message)
	default:
		span.RecordError(err)
		l.logger.Error("reserve inventory failed",
			zap.Uint("product_id", productID),
			zap.Int("quantity", quantity),
			zap.Error(err),
		)
		return failed(apperrors.ErrCodeReservationUnavailable, "Failed to reserve inventory. Please try again.")
	}
}

// ReleaseInventory gives back quantity reserved units, never below zero.
// An unknown product releases nothing and reports zero available.
func (l *Ledger) ReleaseInventory(ctx context.Context, productID uint, quantity int) Result {
	ctx, span := tracing.StartSpan(ctx, tracerName, "ReleaseInventory")
	span.SetAttributes(attribute.Int64("product_id", int64(productID)), attribute.Int("quantity", quantity))
	defer span.End()

	if quantity <= 0 {
		return failed(apperrors.ErrCodeInvalidParams, product.ErrInvalidQuantity.Message)
	}

	p, err := l.products.Release(ctx, productID, quantity)
	metrics.RecordInventoryOperation("release", err == nil)
	switch {
	case err == nil:
		return succeeded(p)
	case errors.Is(err, product.ErrProductNotFound):
		return Result{Success: true, AvailableInventory: product.IntPtr(0)}
	default:
		span.RecordError(err)
		l.logger.Error("release inventory failed",
			zap.Uint("product_id", productID),
			zap.Int("quantity", quantity),
			zap.Error(err),
		)
		return failed(apperrors.ErrCodeDatabaseError, "Failed to release inventory")
	}
}

// ConfirmInventorySale turns quantity reserved units into sold units.
// Calling it twice for one sale counts the sale twice; callers guard it.
func (l *Ledger) ConfirmInventorySale(ctx context.Context, productID uint, quantity int) Result {
	ctx, span := tracing.StartSpan(ctx, tracerName, "ConfirmInventorySale")
	span.SetAttributes(attribute.Int64("product_id", int64(productID)), attribute.Int("quantity", quantity))
	defer span.End()

	if quantity <= 0 {
		return failed(apperrors.ErrCodeInvalidParams, product.ErrInvalidQuantity.Message)
	}

	p, err := l.products.ConfirmSale(ctx, productID, quantity)
	metrics.RecordInventoryOperation("confirm", err == nil)
	switch {
	case err == nil:
		return succeeded(p)
	case errors.Is(err, product.ErrProductNotFound):
		return failed(apperrors.ErrCodeProductNotFound, product.ErrProductNotFound.Message)
	default:
		span.RecordError(err)
		l.logger.Error("confirm inventory sale failed",
			zap.Uint("product_id", productID),
			zap.Int("quantity", quantity),
			zap.Error(err),
		)
		return failed(apperrors.ErrCodeDatabaseError, "Failed to confirm inventory sale")
	}
}

// GetInventoryStatus returns the product's counters, or nil when the product
// does not exist or cannot be read.
func (l *Ledger) GetInventoryStatus(ctx context.Context, productID uint) *Status {
	p, err := l.products.FindByID(ctx, productID)
	if err != nil {
		if !errors.Is(err, product.ErrProductNotFound) {
			l.logger.Error("get inventory status failed", zap.Uint("product_id", productID), zap.Error(err))
		}
		return nil
	}

	return &Status{
		ProductID:          p.ID,
		TotalInventory:     p.TotalInventory,
		SoldCount:          p.SoldCount,
		ReservedCount:      p.ReservedCount,
		AvailableInventory: p.Available(),
	}
}
