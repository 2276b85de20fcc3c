package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sportsfest/registration/internal/application/availability"
	"github.com/sportsfest/registration/internal/application/cart"
	"github.com/sportsfest/registration/internal/application/inventory"
	"github.com/sportsfest/registration/internal/application/payment"
	"github.com/sportsfest/registration/internal/application/tentquota"
	"github.com/sportsfest/registration/internal/domain/order"
	"github.com/sportsfest/registration/internal/domain/product"
	"github.com/sportsfest/registration/internal/infrastructure/gateway"
	"github.com/sportsfest/registration/internal/interface/http/middleware"
	apperrors "github.com/sportsfest/registration/pkg/errors"
	"github.com/sportsfest/registration/pkg/jwt"
)

const webhookSecret = "whsec_test"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type fakeCart struct {
	actor    cart.Actor
	err      error
	quantity int
}

func (f *fakeCart) view(eventYearID uint) *cart.View {
	return &cart.View{EventYearID: eventYearID, Lines: []cart.LineView{{ProductID: 3, Quantity: f.quantity}}}
}

func (f *fakeCart) GetCart(ctx context.Context, actor cart.Actor, eventYearID uint) (*cart.View, error) {
	f.actor = actor
	return f.view(eventYearID), f.err
}

func (f *fakeCart) AddItem(ctx context.Context, actor cart.Actor, eventYearID, productID uint, quantity int) (*cart.View, error) {
	f.actor = actor
	if f.err != nil {
		return nil, f.err
	}
	f.quantity += quantity
	return f.view(eventYearID), nil
}

func (f *fakeCart) UpdateQuantity(ctx context.Context, actor cart.Actor, eventYearID, productID uint, quantity int) (*cart.View, error) {
	f.quantity = quantity
	return f.view(eventYearID), f.err
}

func (f *fakeCart) RemoveItem(ctx context.Context, actor cart.Actor, eventYearID, productID uint) (*cart.View, error) {
	f.quantity = 0
	return &cart.View{EventYearID: eventYearID}, f.err
}

func (f *fakeCart) Checkout(ctx context.Context, actor cart.Actor, eventYearID uint, couponID *uint) (*order.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &order.Order{ID: 42, OrderNo: "SF-1", Status: order.StatusPending, Total: 4000,
		Items: []order.Item{{ProductID: 3, Quantity: 2, UnitPrice: 2000}}}, nil
}

type fakePayments struct {
	confirmations []payment.Confirmation
	failures      []payment.Intent
	directOrg     uint
	err           error
}

func (f *fakePayments) ConfirmDirect(ctx context.Context, organizationID uint, intentID string) (*payment.Receipt, error) {
	f.directOrg = organizationID
	if f.err != nil {
		return nil, f.err
	}
	return &payment.Receipt{OrderID: 42, Status: order.StatusFullyPaid, Outcome: payment.OutcomeConfirmed}, nil
}

func (f *fakePayments) ConfirmPayment(ctx context.Context, c payment.Confirmation) (*payment.Receipt, error) {
	f.confirmations = append(f.confirmations, c)
	if f.err != nil {
		return nil, f.err
	}
	return &payment.Receipt{OrderID: c.Intent.OrderID, Outcome: payment.OutcomeDuplicate}, nil
}

func (f *fakePayments) HandlePaymentFailed(ctx context.Context, intent payment.Intent) error {
	f.failures = append(f.failures, intent)
	return f.err
}

type fakeProducts struct{}

func (fakeProducts) GetProductAvailability(ctx context.Context, slug string, eventYearID uint) ([]availability.ProductAvailability, error) {
	return []availability.ProductAvailability{{ProductID: 1, Name: slug}}, nil
}

func (fakeProducts) ForProduct(ctx context.Context, organizationID, eventYearID, productID uint) (*availability.ProductAvailability, error) {
	if productID != 1 {
		return nil, product.ErrProductNotFound
	}
	return &availability.ProductAvailability{ProductID: productID, PurchasedQuantity: int(organizationID)}, nil
}

func (fakeProducts) GetInventoryStatus(ctx context.Context, productID uint) *inventory.Status {
	if productID != 1 {
		return nil
	}
	return &inventory.Status{ProductID: 1, TotalInventory: product.IntPtr(10), AvailableInventory: product.IntPtr(8)}
}

func (fakeProducts) GetTentQuotaStatus(ctx context.Context, productID, organizationID, eventYearID uint, teamsInCart int) *tentquota.QuotaStatus {
	return &tentquota.QuotaStatus{ProductID: productID, TeamsInCart: teamsInCart, MaxAllowed: 2 * (int(organizationID) + teamsInCart)}
}

type testAPI struct {
	engine   *gin.Engine
	token    string
	carts    *fakeCart
	payments *fakePayments
	verifier *gateway.Verifier
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtManager := jwt.NewManager("test-secret", time.Hour)
	token, err := jwtManager.GenerateToken(5, 1, "acme")
	require.NoError(t, err)

	api := &testAPI{
		engine:   gin.New(),
		token:    token,
		carts:    &fakeCart{},
		payments: &fakePayments{},
		verifier: gateway.NewVerifier(webhookSecret, 0),
	}

	products := NewProductHandler(fakeProducts{}, fakeProducts{}, fakeProducts{})
	carts := NewCartHandler(api.carts)
	payments := NewPaymentHandler(api.payments, api.verifier, zap.NewNop())
	auth := middleware.NewAuthMiddleware(jwtManager)

	api.engine.POST("/webhooks/payments", payments.Webhook)
	g := api.engine.Group("", auth.RequireAuth())
	g.GET("/products/availability", products.GetAvailability)
	g.GET("/products/:id/availability", products.GetProductAvailability)
	g.GET("/products/:id/inventory", products.GetInventory)
	g.GET("/products/:id/tent-quota", products.GetTentQuota)
	g.GET("/cart", carts.GetCart)
	g.POST("/cart/items", carts.AddItem)
	g.PUT("/cart/items/:product_id", carts.UpdateItem)
	g.DELETE("/cart/items/:product_id", carts.RemoveItem)
	g.POST("/cart/checkout", carts.Checkout)
	g.POST("/payments/confirm", payments.Confirm)
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token)
	return a.serve(t, req)
}

func (a *testAPI) webhook(t *testing.T, payload string, sign bool) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewBufferString(payload))
	if sign {
		req.Header.Set(gateway.SignatureHeader, a.verifier.SignatureFor(time.Now(), []byte(payload)))
	}
	return a.serve(t, req)
}

func (a *testAPI) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestAuthRequired(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/cart?event_year_id=1", nil)
	w, env := api.serve(t, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperrors.ErrCodeUnauthorized, env.Code)

	req = httptest.NewRequest(http.MethodGet, "/cart?event_year_id=1", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w, env = api.serve(t, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperrors.ErrCodeInvalidToken, env.Code)
}

func TestCartHandler(t *testing.T) {
	api := newTestAPI(t)

	w, env := api.do(t, http.MethodPost, "/cart/items", map[string]any{"event_year_id": 1, "product_id": 3, "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 0, env.Code, env.Message)
	assert.Equal(t, cart.Actor{OrganizationID: 1, OrganizationSlug: "acme"}, api.carts.actor)

	var view cart.View
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, 2, view.Lines[0].Quantity)

	_, env = api.do(t, http.MethodPut, "/cart/items/3", map[string]any{"event_year_id": 1, "quantity": 1})
	assert.Equal(t, 0, env.Code)
	assert.Equal(t, 1, api.carts.quantity)

	_, env = api.do(t, http.MethodDelete, "/cart/items/3?event_year_id=1", nil)
	assert.Equal(t, 0, env.Code)
	assert.Equal(t, 0, api.carts.quantity)

	_, env = api.do(t, http.MethodGet, "/cart?event_year_id=1", nil)
	assert.Equal(t, 0, env.Code)

	_, env = api.do(t, http.MethodPost, "/cart/checkout", map[string]any{"event_year_id": 1})
	require.Equal(t, 0, env.Code)
	var o struct {
		ID     uint   `json:"id"`
		Status string `json:"status"`
		Total  int64  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &o))
	assert.Equal(t, uint(42), o.ID)
	assert.Equal(t, "pending", o.Status)
	assert.Equal(t, int64(4000), o.Total)
}

func TestCartHandler_Errors(t *testing.T) {
	api := newTestAPI(t)

	_, env := api.do(t, http.MethodPost, "/cart/items", map[string]any{"event_year_id": 1, "product_id": 3, "quantity": 0})
	assert.Equal(t, apperrors.ErrCodeBindError, env.Code)

	_, env = api.do(t, http.MethodPut, "/cart/items/abc", map[string]any{"event_year_id": 1, "quantity": 1})
	assert.Equal(t, apperrors.ErrCodeInvalidParams, env.Code)

	_, env = api.do(t, http.MethodGet, "/cart", nil)
	assert.Equal(t, apperrors.ErrCodeBindError, env.Code)

	api.carts.err = apperrors.New(apperrors.ErrCodeTentQuotaExceeded, "Exceeds tent limit. You can purchase 0 more tent(s).")
	w, env := api.do(t, http.MethodPost, "/cart/items", map[string]any{"event_year_id": 1, "product_id": 3, "quantity": 1})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, apperrors.ErrCodeTentQuotaExceeded, env.Code)
	assert.Contains(t, env.Message, "Exceeds tent limit")

	api.carts.err = apperrors.Wrap(errors.New("connection refused"), "load cart failed")
	w, env = api.do(t, http.MethodGet, "/cart?event_year_id=1", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "load cart failed", env.Message)
}

func TestProductHandler(t *testing.T) {
	api := newTestAPI(t)

	_, env := api.do(t, http.MethodGet, "/products/availability?event_year_id=1", nil)
	require.Equal(t, 0, env.Code)
	var list []availability.ProductAvailability
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "acme", list[0].Name)

	_, env = api.do(t, http.MethodGet, "/products/1/availability?event_year_id=1", nil)
	require.Equal(t, 0, env.Code)
	var single availability.ProductAvailability
	require.NoError(t, json.Unmarshal(env.Data, &single))
	assert.Equal(t, 1, single.PurchasedQuantity)

	_, env = api.do(t, http.MethodGet, "/products/3/availability?event_year_id=1", nil)
	assert.Equal(t, apperrors.ErrCodeProductNotFound, env.Code)

	_, env = api.do(t, http.MethodGet, "/products/1/inventory", nil)
	require.Equal(t, 0, env.Code)
	assert.JSONEq(t, `{"product_id":1,"total_inventory":10,"sold_count":0,"reserved_count":0,"available_inventory":8}`, string(env.Data))

	_, env = api.do(t, http.MethodGet, "/products/2/inventory", nil)
	assert.Equal(t, apperrors.ErrCodeProductNotFound, env.Code)

	_, env = api.do(t, http.MethodGet, "/products/0/inventory", nil)
	assert.Equal(t, apperrors.ErrCodeInvalidParams, env.Code)

	_, env = api.do(t, http.MethodGet, "/products/4/tent-quota?event_year_id=1&teams_in_cart=2", nil)
	require.Equal(t, 0, env.Code)
	var status tentquota.QuotaStatus
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, 2, status.TeamsInCart)
	assert.Equal(t, 6, status.MaxAllowed)
}

func TestPaymentHandler_Confirm(t *testing.T) {
	api := newTestAPI(t)

	_, env := api.do(t, http.MethodPost, "/payments/confirm", map[string]any{"payment_intent_id": "pi_1"})
	require.Equal(t, 0, env.Code)
	assert.Equal(t, uint(1), api.payments.directOrg)

	var receipt payment.Receipt
	require.NoError(t, json.Unmarshal(env.Data, &receipt))
	assert.Equal(t, payment.OutcomeConfirmed, receipt.Outcome)

	_, env = api.do(t, http.MethodPost, "/payments/confirm", map[string]any{})
	assert.Equal(t, apperrors.ErrCodeBindError, env.Code)

	api.payments.err = payment.ErrPaymentNotCompleted
	_, env = api.do(t, http.MethodPost, "/payments/confirm", map[string]any{"payment_intent_id": "pi_1"})
	assert.Equal(t, apperrors.ErrCodePaymentNotCompleted, env.Code)
}

const succeededEvent = `{"id":"evt_1","type":"payment_intent.succeeded",
	"data":{"object":{"id":"pi_1","status":"succeeded","amount":4000,"metadata":{"order_id":"42"}}}}`

func TestPaymentHandler_Webhook(t *testing.T) {
	api := newTestAPI(t)

	w, env := api.webhook(t, succeededEvent, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperrors.ErrCodeInvalidSignature, env.Code)
	assert.Empty(t, api.payments.confirmations)

	w, env = api.webhook(t, succeededEvent, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true,"outcome":"duplicate"}`, string(env.Data))
	require.Len(t, api.payments.confirmations, 1)
	c := api.payments.confirmations[0]
	assert.Equal(t, payment.SourceWebhook, c.Source)
	assert.Equal(t, uint(42), c.Intent.OrderID)
	assert.Zero(t, c.OrganizationID)

	w, _ = api.webhook(t, `{"id":"evt_2","type":"payment_intent.payment_failed",
		"data":{"object":{"id":"pi_2","status":"requires_payment_method","metadata":{"order_id":"42"}}}}`, true)
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, api.payments.failures, 1)
	assert.Equal(t, "pi_2", api.payments.failures[0].ID)

	w, env = api.webhook(t, `{"id":"evt_3","type":"customer.created","data":{"object":{}}}`, true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, string(env.Data))

	w, env = api.webhook(t, `{"broken"`, true)
	assert.Equal(t, apperrors.ErrCodeInvalidParams, env.Code)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPaymentHandler_WebhookErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"no order reference", payment.ErrIntentWithoutOrder, http.StatusOK},
		{"unknown order", order.ErrOrderNotFound, http.StatusOK},
		{"in progress", payment.ErrPaymentInProgress, http.StatusConflict},
		{"store failure", apperrors.Wrap(errors.New("deadlock"), "create payment failed"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			api.payments.err = tt.err

			w, _ := api.webhook(t, succeededEvent, true)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
