package inventory

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sportsfest/registration/internal/domain/product"
	"github.com/sportsfest/registration/internal/infrastructure/persistence/memory"
	apperrors "github.com/sportsfest/registration/pkg/errors"
)

func newLedger(t *testing.T, total *int) (*Ledger, *memory.Store, uint) {
	t.Helper()
	store := memory.NewStore()
	p := store.AddProduct(product.Product{
		EventYearID:    2026,
		Name:           "Lunch voucher",
		Type:           product.TypeOther,
		TotalInventory: total,
	})
	return NewLedger(store.Products(), zap.NewNop()), store, p.ID
}

func TestLedger_ReserveInventory(t *testing.T) {
	ctx := context.Background()
	ledger, _, id := newLedger(t, product.IntPtr(10))

	res := ledger.ReserveInventory(ctx, id, 4)
	require.True(t, res.Success)
	assert.Equal(t, 6, *res.AvailableInventory)
	assert.NoError(t, res.Err())

	res = ledger.ReserveInventory(ctx, id, 7)
	assert.False(t, res.Success)
	assert.Nil(t, res.AvailableInventory)
	assert.Equal(t, "Insufficient inventory available", res.Error)

	var appErr *apperrors.AppError
	require.ErrorAs(t, res.Err(), &appErr)
	assert.Equal(t, apperrors.ErrCodeInsufficientInventory, appErr.Code)

	res = ledger.ReserveInventory(ctx, 999, 1)
	assert.False(t, res.Success)
	assert.Equal(t, "Product not found", res.Error)

	res = ledger.ReserveInventory(ctx, id, 0)
	assert.False(t, res.Success)
}

func TestLedger_ReserveInventory_Unlimited(t *testing.T) {
	ctx := context.Background()
	ledger, store, id := newLedger(t, nil)

	res := ledger.ReserveInventory(ctx, id, 500)
	require.True(t, res.Success)
	assert.Nil(t, res.AvailableInventory)

	p, err := store.Products().FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 500, p.ReservedCount)
}

func TestLedger_ReleaseInventory_FloorsAtZero(t *testing.T) {
	ctx := context.Background()
	ledger, store, id := newLedger(t, product.IntPtr(10))

	require.True(t, ledger.ReserveInventory(ctx, id, 3).Success)
	require.True(t, ledger.ReleaseInventory(ctx, id, 5).Success)
	res := ledger.ReleaseInventory(ctx, id, 5)
	require.True(t, res.Success)
	assert.Equal(t, 10, *res.AvailableInventory)

	p, err := store.Products().FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, p.ReservedCount)

	res = ledger.ReleaseInventory(ctx, 999, 1)
	assert.True(t, res.Success)
	assert.Equal(t, 0, *res.AvailableInventory)
}

func TestLedger_ConfirmInventorySale(t *testing.T) {
	ctx := context.Background()
	ledger, _, id := newLedger(t, product.IntPtr(10))

	require.True(t, ledger.ReserveInventory(ctx, id, 3).Success)
	res := ledger.ConfirmInventorySale(ctx, id, 3)
	require.True(t, res.Success)

	status := ledger.GetInventoryStatus(ctx, id)
	require.NotNil(t, status)
	assert.Equal(t, 3, status.SoldCount)
	assert.Equal(t, 0, status.ReservedCount)
	assert.Equal(t, 7, *status.AvailableInventory)

	assert.Nil(t, ledger.GetInventoryStatus(ctx, 999))
	assert.False(t, ledger.ConfirmInventorySale(ctx, 999, 1).Success)
}

func TestLedger_StoreFailureIsGeneric(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(failingProducts{err: errors.New("connection refused")}, zap.NewNop())

	res := ledger.ReserveInventory(ctx, 1, 1)
	assert.False(t, res.Success)
	assert.Equal(t, "Failed to reserve inventory. Please try again.", res.Error)
	assert.NotContains(t, res.Error, "connection refused")

	assert.False(t, ledger.ReleaseInventory(ctx, 1, 1).Success)
	assert.False(t, ledger.ConfirmInventorySale(ctx, 1, 1).Success)
	assert.Nil(t, ledger.GetInventoryStatus(ctx, 1))
}

// Random concurrent reserve/release/confirm never breaks sold+reserved <= total.
func TestLedger_ConservationUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	const total = 50
	ledger, store, id := newLedger(t, product.IntPtr(total))

	var (
		wg        sync.WaitGroup
		violation atomic.Bool
	)
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			held := 0
			for i := 0; i < 200; i++ {
				q := rng.Intn(3) + 1
				switch op := rng.Intn(3); {
				case op == 0:
					if ledger.ReserveInventory(ctx, id, q).Success {
						held += q
					}
				case op == 1 && held > 0:
					q = min(q, held)
					ledger.ReleaseInventory(ctx, id, q)
					held -= q
				case op == 2 && held > 0:
					q = min(q, held)
					ledger.ConfirmInventorySale(ctx, id, q)
					held -= q
				}

				p, err := store.Products().FindByID(ctx, id)
				if err != nil || p.SoldCount+p.ReservedCount > total || p.SoldCount < 0 || p.ReservedCount < 0 {
					violation.Store(true)
				}
			}
			if held > 0 {
				ledger.ReleaseInventory(ctx, id, held)
			}
		}(int64(w))
	}
	wg.Wait()

	assert.False(t, violation.Load())
	p, err := store.Products().FindByID(ctx, id)
	require.NoError(t, err)
	assert.LessOrEqual(t, p.SoldCount, total)
	assert.Equal(t, 0, p.ReservedCount)
}

// A burst asking for more than is available gets exactly the available amount.
func TestLedger_NoOverReservation(t *testing.T) {
	ctx := context.Background()
	ledger, store, id := newLedger(t, product.IntPtr(20))

	var (
		wg      sync.WaitGroup
		granted atomic.Int64
	)
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ledger.ReserveInventory(ctx, id, 1).Success {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(20), granted.Load())
	p, err := store.Products().FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 20, p.ReservedCount)
	assert.Equal(t, 0, *p.Available())
}

type failingProducts struct {
	err error
}

func (f failingProducts) FindByID(ctx context.Context, id uint) (*product.Product, error) {
	return nil, f.err
}

func (f failingProducts) ListActiveByEventYear(ctx context.Context, eventYearID uint) ([]*product.Product, error) {
	return nil, f.err
}

func (f failingProducts) Reserve(ctx context.Context, id uint, quantity int) (*product.Product, error) {
	return nil, f.err
}

func (f failingProducts) Release(ctx context.Context, id uint, quantity int) (*product.Product, error) {
	return nil, f.err
}

func (f failingProducts) ConfirmSale(ctx context.Context, id uint, quantity int) (*product.Product, error) {
	return nil, f.err
}
