// Package cart models an organization's open shopping cart for one event year.
//
// Every unit in a cart holds a reservation on its product. The cart itself is
// session state (kept in Redis with a TTL), not a purchase record.
package cart

import (
	"context"
	"fmt"
	"sort"

	"github.com/sportsfest/registration/internal/domain/product"
)

// Key identifies a cart.
type Key struct {
	OrganizationID uint
	EventYearID    uint
}

// String formats the key as "org:year" for logs.
func (k Key) String() string {
	return fmt.Sprintf("%d:%d", k.OrganizationID, k.EventYearID)
}

// Line is the reserved quantity of one product.
type Line struct {
	ProductID   uint
	ProductType product.Type
	Quantity    int
}

// Cart holds the lines an organization has reserved for an event year.
type Cart struct {
	Key   Key
	Lines []Line
}

// New returns a cart with lines sorted by product id.
func New(key Key, lines []Line) *Cart {
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return &Cart{Key: key, Lines: lines}
}

// QuantityOf returns the quantity in the cart of a product.
func (c *Cart) QuantityOf(productID uint) int {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l.Quantity
		}
	}
	return 0
}

// TeamsInCart is the number of team registrations not yet paid for.
// It only ever adjusts the tent quota at reservation time.
func (c *Cart) TeamsInCart() int {
	teams := 0
	for _, l := range c.Lines {
		if l.ProductType == product.TypeTeamRegistration {
			teams += l.Quantity
		}
	}
	return teams
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Store keeps carts between requests.
type Store interface {
	// Get returns the cart, empty when none exists.
	Get(ctx context.Context, key Key) (*Cart, error)

	// AddQuantity atomically adds delta to a line and returns the new quantity.
	// A line that drops to zero or below is removed.
	AddQuantity(ctx context.Context, key Key, productID uint, productType product.Type, delta int) (int, error)

	// Decrease atomically takes up to quantity units off a line and returns
	// how many it took, 0 when the line is absent.
	Decrease(ctx context.Context, key Key, productID uint, quantity int) (int, error)

	// Remove deletes a line and returns the quantity it held.
	Remove(ctx context.Context, key Key, productID uint) (int, error)

	Clear(ctx context.Context, key Key) error
}
