package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportsfest/registration/internal/domain/cart"
	"github.com/sportsfest/registration/internal/domain/order"
	"github.com/sportsfest/registration/internal/domain/product"
	"github.com/sportsfest/registration/internal/domain/tent"
)

func TestProductRepository_Counters(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := s.AddProduct(product.Product{EventYearID: 1, Type: product.TypeOther, TotalInventory: product.IntPtr(5)})
	repo := s.Products()

	got, err := repo.Reserve(ctx, p.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, got.ReservedCount)

	_, err = repo.Reserve(ctx, p.ID, 3)
	assert.ErrorIs(t, err, product.ErrInsufficientInventory)

	got, err = repo.ConfirmSale(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ReservedCount)
	assert.Equal(t, 2, got.SoldCount)

	got, err = repo.Release(ctx, p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ReservedCount)

	_, err = repo.Reserve(ctx, 999, 1)
	assert.ErrorIs(t, err, product.ErrProductNotFound)
}

func TestStore_TransactionRollback(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := s.AddProduct(product.Product{EventYearID: 1, Type: product.TypeOther, TotalInventory: product.IntPtr(5)})

	o := order.NewOrder("SF1", 1, 1, []order.Item{{ProductID: p.ID, Quantity: 1}}, 0, nil)
	require.NoError(t, s.Orders().Create(ctx, o))

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(txCtx context.Context) error {
		if _, err := s.Products().Reserve(txCtx, p.ID, 2); err != nil {
			return err
		}
		if err := s.Orders().CreatePayment(txCtx, &order.Payment{OrderID: o.ID, StripePaymentIntentID: "pi_1", Status: order.PaymentCompleted, Amount: 100}); err != nil {
			return err
		}
		if _, err := s.Orders().TransitionStatus(txCtx, o.ID, order.ConfirmableStatuses, order.StatusFullyPaid); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ReservedCount)

	_, err = s.Orders().FindPaymentByIntentID(ctx, "pi_1")
	assert.ErrorIs(t, err, order.ErrPaymentNotFound)

	reloaded, err := s.Orders().FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, reloaded.Status)
}

func TestOrderRepository_DuplicatePayment(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	o := order.NewOrder("SF1", 1, 1, []order.Item{{ProductID: 1, Quantity: 1}}, 0, nil)
	require.NoError(t, s.Orders().Create(ctx, o))

	require.NoError(t, s.Orders().CreatePayment(ctx, &order.Payment{OrderID: o.ID, StripePaymentIntentID: "pi_1"}))
	err := s.Orders().CreatePayment(ctx, &order.Payment{OrderID: o.ID, StripePaymentIntentID: "pi_1"})
	assert.ErrorIs(t, err, order.ErrDuplicatePayment)
}

func TestTrackingRepository_AddPurchase(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Tracking()

	_, err := repo.Get(ctx, 1, 1, 7)
	assert.ErrorIs(t, err, tent.ErrTrackingNotFound)

	got, err := repo.AddPurchase(ctx, tent.Purchase{OrganizationID: 1, EventYearID: 1, TentProductID: 7, Quantity: 1, MaxAllowed: 2, TeamCount: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, got.QuantityPurchased)
	assert.Equal(t, 1, got.RemainingAllowed)

	got, err = repo.AddPurchase(ctx, tent.Purchase{OrganizationID: 1, EventYearID: 1, TentProductID: 7, Quantity: 2, MaxAllowed: 4, TeamCount: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, got.QuantityPurchased)
	assert.Equal(t, 4, got.MaxAllowed)
	assert.Equal(t, 2, got.CompanyTeamCount)
	assert.Equal(t, 1, got.RemainingAllowed)
}

func TestCartStore(t *testing.T) {
	ctx := context.Background()
	s := NewCartStore()
	key := cart.Key{OrganizationID: 1, EventYearID: 2026}

	qty, err := s.AddQuantity(ctx, key, 5, product.TypeTentRental, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, qty)

	qty, err = s.AddQuantity(ctx, key, 5, product.TypeTentRental, -2)
	require.NoError(t, err)
	assert.Equal(t, 0, qty)

	c, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	_, err = s.AddQuantity(ctx, key, 6, product.TypeOther, 3)
	require.NoError(t, err)

	taken, err := s.Decrease(ctx, key, 6, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, taken)

	taken, err = s.Decrease(ctx, key, 6, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, taken, "only what the line held")

	_, err = s.AddQuantity(ctx, key, 7, product.TypeOther, 4)
	require.NoError(t, err)
	removed, err := s.Remove(ctx, key, 7)
	require.NoError(t, err)
	assert.Equal(t, 4, removed)

	removed, err = s.Remove(ctx, key, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestIntentLocker(t *testing.T) {
	ctx := context.Background()
	l := NewIntentLocker()

	ok, err := l.Acquire(ctx, "pi_1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = l.Acquire(ctx, "pi_1", time.Minute)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, "pi_1"))
	ok, _ = l.Acquire(ctx, "pi_1", time.Minute)
	assert.True(t, ok)
}
