package tentquota

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sportsfest/registration/internal/application/inventory"
	"github.com/sportsfest/registration/internal/domain/order"
	"github.com/sportsfest/registration/internal/domain/organization"
	"github.com/sportsfest/registration/internal/domain/product"
	"github.com/sportsfest/registration/internal/domain/team"
	"github.com/sportsfest/registration/internal/domain/tent"
	"github.com/sportsfest/registration/internal/infrastructure/persistence/memory"
	apperrors "github.com/sportsfest/registration/pkg/errors"
)

const eventYear = uint(2026)

type fixture struct {
	store   *memory.Store
	svc     *Service
	org     *organization.Organization
	tent    *product.Product
	teamReg *product.Product
}

func newFixture(t *testing.T, tentStock int) *fixture {
	t.Helper()
	store := memory.NewStore()
	ledger := inventory.NewLedger(store.Products(), zap.NewNop())

	f := &fixture{
		store: store,
		svc: NewService(store.Products(), store.Orders(), store.Teams(), store.Organizations(),
			store.Tracking(), ledger, zap.NewNop()),
		org: store.AddOrganization(organization.Organization{Slug: "acme", Name: "Acme Corp"}),
		tent: store.AddProduct(product.Product{
			EventYearID: eventYear, Name: "10x10 Tent", Type: product.TypeTentRental,
			Price: 25000, TotalInventory: product.IntPtr(tentStock),
		}),
		teamReg: store.AddProduct(product.Product{
			EventYearID: eventYear, Name: "Team Registration", Type: product.TypeTeamRegistration, Price: 150000,
		}),
	}
	return f
}

func (f *fixture) addTeams(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, f.store.Teams().Create(context.Background(), &team.CompanyTeam{
			OrganizationID: f.org.ID, EventYearID: eventYear, Name: "Team",
		}))
	}
}

func (f *fixture) seedPurchased(t *testing.T, qty int) {
	t.Helper()
	_, err := f.store.Tracking().AddPurchase(context.Background(), tent.Purchase{
		OrganizationID: f.org.ID, EventYearID: eventYear, TentProductID: f.tent.ID,
		Quantity: qty, MaxAllowed: 4, TeamCount: 2,
	})
	require.NoError(t, err)
}

func (f *fixture) product(t *testing.T, id uint) *product.Product {
	t.Helper()
	p, err := f.store.Products().FindByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func codeOf(t *testing.T, err error) int {
	t.Helper()
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Code
}

func TestReserveTentInventory_QuotaEnforced(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	f.addTeams(t, 2)
	f.seedPurchased(t, 3)

	res := f.svc.ReserveTentInventory(ctx, f.tent.ID, f.org.ID, eventYear, 2, 0)
	require.False(t, res.Success)
	assert.Equal(t, apperrors.ErrCodeTentQuotaExceeded, codeOf(t, res.Err()))
	assert.Contains(t, res.Error, "Maximum 4 tents")
	assert.Contains(t, res.Error, "2 teams")
	assert.Contains(t, res.Error, "Already purchased: 3")
	assert.Equal(t, 0, f.product(t, f.tent.ID).ReservedCount)

	res = f.svc.ReserveTentInventory(ctx, f.tent.ID, f.org.ID, eventYear, 1, 0)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 0, res.RemainingAllowed)
	assert.Equal(t, 3, res.QuantityPurchased)
	assert.Equal(t, 1, f.product(t, f.tent.ID).ReservedCount)
}

func TestReserveTentInventory_ZeroTeamsBlocked(t *testing.T) {
	f := newFixture(t, 100)

	res := f.svc.ReserveTentInventory(context.Background(), f.tent.ID, f.org.ID, eventYear, 1, 0)
	require.False(t, res.Success)
	assert.Equal(t, apperrors.ErrCodeTeamRequired, codeOf(t, res.Err()))
	assert.Contains(t, res.Error, "at least one team")
	assert.Equal(t, 0, f.product(t, f.tent.ID).ReservedCount)
}

func TestReserveTentInventory_TeamsInCartCount(t *testing.T) {
	f := newFixture(t, 10)

	res := f.svc.ReserveTentInventory(context.Background(), f.tent.ID, f.org.ID, eventYear, 2, 1)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 0, res.RemainingAllowed)
}

func TestReserveTentInventory_InsufficientStock(t *testing.T) {
	f := newFixture(t, 1)
	f.addTeams(t, 3)

	res := f.svc.ReserveTentInventory(context.Background(), f.tent.ID, f.org.ID, eventYear, 2, 0)
	require.False(t, res.Success)
	assert.Equal(t, apperrors.ErrCodeInsufficientInventory, codeOf(t, res.Err()))
	assert.Equal(t, "Only 1 tents available", res.Error)
}

func TestReserveTentInventoryBySlug(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	f.addTeams(t, 1)

	res := f.svc.ReserveTentInventoryBySlug(ctx, f.tent.ID, "acme", eventYear, 1, 0)
	assert.True(t, res.Success, res.Error)

	res = f.svc.ReserveTentInventoryBySlug(ctx, f.tent.ID, "nobody", eventYear, 1, 0)
	require.False(t, res.Success)
	assert.Equal(t, apperrors.ErrCodeOrganizationNotFound, codeOf(t, res.Err()))
}

func TestGetCompanyTeamCount_MaxOfCreatedAndPurchased(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	f.addTeams(t, 1)

	paid := order.NewOrder("SF1", f.org.ID, eventYear, []order.Item{{ProductID: f.teamReg.ID, Quantity: 3, UnitPrice: 150000}}, 0, nil)
	require.NoError(t, f.store.Orders().Create(ctx, paid))
	_, err := f.store.Orders().TransitionStatus(ctx, paid.ID, order.ConfirmableStatuses, order.StatusFullyPaid)
	require.NoError(t, err)

	abandoned := order.NewOrder("SF2", f.org.ID, eventYear, []order.Item{{ProductID: f.teamReg.ID, Quantity: 5, UnitPrice: 150000}}, 0, nil)
	require.NoError(t, f.store.Orders().Create(ctx, abandoned))

	count, err := f.svc.GetCompanyTeamCount(ctx, f.org.ID, eventYear)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	f.addTeams(t, 3)
	count, err = f.svc.GetCompanyTeamCount(ctx, f.org.ID, eventYear)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestConfirmTentSale_SelfHealsQuota(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	f.addTeams(t, 1)

	require.True(t, f.svc.ReserveTentInventory(ctx, f.tent.ID, f.org.ID, eventYear, 1, 0).Success)
	res := f.svc.ConfirmTentSale(ctx, f.tent.ID, f.org.ID, eventYear, 1)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, res.QuantityPurchased)
	assert.Equal(t, 1, res.RemainingAllowed)

	f.addTeams(t, 1)
	require.True(t, f.svc.ReserveTentInventory(ctx, f.tent.ID, f.org.ID, eventYear, 2, 0).Success)
	res = f.svc.ConfirmTentSale(ctx, f.tent.ID, f.org.ID, eventYear, 2)
	require.True(t, res.Success, res.Error)

	tracking, err := f.store.Tracking().Get(ctx, f.org.ID, eventYear, f.tent.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, tracking.QuantityPurchased)
	assert.Equal(t, 4, tracking.MaxAllowed)
	assert.Equal(t, 2, tracking.CompanyTeamCount)
	assert.Equal(t, 1, tracking.RemainingAllowed)
}

func TestConfirmTentSale_ZeroTeamsBlocked(t *testing.T) {
	f := newFixture(t, 10)

	res := f.svc.ConfirmTentSale(context.Background(), f.tent.ID, f.org.ID, eventYear, 1)
	require.False(t, res.Success)
	assert.Equal(t, 0, f.product(t, f.tent.ID).SoldCount)
}

func TestConfirmTentSale_ConcurrentConfirmationsAllCounted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 50)
	f.addTeams(t, 10)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.svc.ConfirmTentSale(ctx, f.tent.ID, f.org.ID, eventYear, 1)
		}()
	}
	wg.Wait()

	tracking, err := f.store.Tracking().Get(ctx, f.org.ID, eventYear, f.tent.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, tracking.QuantityPurchased)
	assert.Equal(t, 10, tracking.RemainingAllowed)
	assert.Equal(t, 10, f.product(t, f.tent.ID).SoldCount)
}

func TestGetTentQuotaStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)

	status := f.svc.GetTentQuotaStatus(ctx, f.tent.ID, f.org.ID, eventYear, 0)
	require.NotNil(t, status)
	assert.True(t, status.RequiresTeam)
	assert.False(t, status.CanPurchaseMore)
	assert.False(t, status.AtQuotaLimit)

	f.addTeams(t, 2)
	f.seedPurchased(t, 4)
	status = f.svc.GetTentQuotaStatus(ctx, f.tent.ID, f.org.ID, eventYear, 0)
	require.NotNil(t, status)
	assert.True(t, status.AtQuotaLimit)
	assert.False(t, status.CanPurchaseMore)
	assert.Equal(t, 4, status.MaxAllowed)

	status = f.svc.GetTentQuotaStatus(ctx, f.tent.ID, f.org.ID, eventYear, 1)
	require.NotNil(t, status)
	assert.False(t, status.AtQuotaLimit)
	assert.True(t, status.CanPurchaseMore)
	assert.Equal(t, 2, status.RemainingAllowed)
	assert.Equal(t, 10, *status.AvailableInventory)

	assert.Nil(t, f.svc.GetTentQuotaStatus(ctx, 999, f.org.ID, eventYear, 0))
}

// One team, no tents yet, ten in stock.
func TestTentLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	f.addTeams(t, 1)

	res := f.svc.ReserveTentInventory(ctx, f.tent.ID, f.org.ID, eventYear, 2, 0)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 0, res.RemainingAllowed)

	// the quota is against durable purchases; the cart is trusted to stop its own overflow
	status := f.svc.GetTentQuotaStatus(ctx, f.tent.ID, f.org.ID, eventYear, 0)
	require.NotNil(t, status)
	assert.Equal(t, 2, status.MaxAllowed)

	res = f.svc.ReserveTentInventory(ctx, f.tent.ID, f.org.ID, eventYear, 3, 0)
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "Exceeds tent limit")

	res = f.svc.ConfirmTentSale(ctx, f.tent.ID, f.org.ID, eventYear, 2)
	require.True(t, res.Success, res.Error)

	p := f.product(t, f.tent.ID)
	assert.Equal(t, 2, p.SoldCount)
	assert.Equal(t, 0, p.ReservedCount)

	tracking, err := f.store.Tracking().Get(ctx, f.org.ID, eventYear, f.tent.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, tracking.QuantityPurchased)
	assert.Equal(t, 0, tracking.RemainingAllowed)

	res = f.svc.ReserveTentInventory(ctx, f.tent.ID, f.org.ID, eventYear, 1, 0)
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "Exceeds tent limit")
}
