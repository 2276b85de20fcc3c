package redis

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sportsfest/registration/internal/domain/cart"
	"github.com/sportsfest/registration/internal/domain/product"
	apperrors "github.com/sportsfest/registration/pkg/errors"
)

//go:embed cart_add.lua
var cartAddLua string

var cartAddScript = redis.NewScript(cartAddLua)

//go:embed cart_take.lua
var cartTakeLua string

var cartTakeScript = redis.NewScript(cartTakeLua)

const (
	qtyPrefix  = "qty:"
	typePrefix = "type:"
)

// CartStore keeps one hash per cart:
//
//	cart:{organization_id}:{event_year_id}
//	  qty:{product_id}  -> quantity
//	  type:{product_id} -> product type
//
// Every write refreshes the TTL, so an idle cart disappears on its own.
type CartStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ cart.Store = (*CartStore)(nil)

// NewCartStore creates a CartStore whose keys expire after ttl of inactivity.
func NewCartStore(client *redis.Client, ttl time.Duration) *CartStore {
	return &CartStore{client: client, ttl: ttl}
}

// Get loads the cart; a missing key is an empty cart.
func (s *CartStore) Get(ctx context.Context, key cart.Key) (*cart.Cart, error) {
	fields, err := s.client.HGetAll(ctx, cartKey(key)).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, "load cart failed")
	}

	lines := make([]cart.Line, 0, len(fields)/2)
	for field, value := range fields {
		id, ok := strings.CutPrefix(field, qtyPrefix)
		if !ok {
			continue
		}
		productID, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			continue
		}
		qty, err := strconv.Atoi(value)
		if err != nil || qty <= 0 {
			continue
		}
		lines = append(lines, cart.Line{
			ProductID:   uint(productID),
			ProductType: product.Type(fields[typePrefix+id]),
			Quantity:    qty,
		})
	}
	return cart.New(key, lines), nil
}

// AddQuantity runs cart_add.lua so the increment, the cleanup of empty lines
// and the TTL refresh happen as one step.
func (s *CartStore) AddQuantity(ctx context.Context, key cart.Key, productID uint, productType product.Type, delta int) (int, error) {
	qty, err := cartAddScript.Run(ctx, s.client,
		[]string{cartKey(key)},
		productID, string(productType), delta, s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return 0, apperrors.Wrap(err, "update cart failed")
	}
	return qty, nil
}

// Decrease takes up to quantity units off the line and returns how many it took.
func (s *CartStore) Decrease(ctx context.Context, key cart.Key, productID uint, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, nil
	}
	return s.take(ctx, key, productID, quantity)
}

// Remove drops the line and returns the quantity it held.
func (s *CartStore) Remove(ctx context.Context, key cart.Key, productID uint) (int, error) {
	return s.take(ctx, key, productID, 0)
}

// take runs cart_take.lua, which reads and shrinks the line in one step.
func (s *CartStore) take(ctx context.Context, key cart.Key, productID uint, quantity int) (int, error) {
	taken, err := cartTakeScript.Run(ctx, s.client,
		[]string{cartKey(key)},
		productID, quantity, s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return 0, apperrors.Wrap(err, "remove cart item failed")
	}
	return taken, nil
}

// Clear deletes the cart.
func (s *CartStore) Clear(ctx context.Context, key cart.Key) error {
	if err := s.client.Del(ctx, cartKey(key)).Err(); err != nil {
		return apperrors.Wrap(err, "clear cart failed")
	}
	return nil
}

func cartKey(key cart.Key) string {
	return fmt.Sprintf("cart:%d:%d", key.OrganizationID, key.EventYearID)
}
