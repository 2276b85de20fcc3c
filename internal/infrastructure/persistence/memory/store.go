// Package memory is an in-process implementation of every store port.
//
// It gives the same atomic guarantees as the MySQL store: each counter
// mutation is one critical section, and Transaction rolls back every write
// made through its context when fn fails. Used for local runs
// (storage.driver=memory) and by the application tests.
package memory

import (
	"context"
	"sync"

	"github.com/sportsfest/registration/internal/domain/coupon"
	"github.com/sportsfest/registration/internal/domain/order"
	"github.com/sportsfest/registration/internal/domain/organization"
	"github.com/sportsfest/registration/internal/domain/product"
	"github.com/sportsfest/registration/internal/domain/team"
	"github.com/sportsfest/registration/internal/domain/tent"
)

// Store holds all tables. Repositories are views over one Store.
type Store struct {
	mu sync.Mutex

	// serializes transactions; plain repository calls do not take it
	txMu sync.Mutex

	products      map[uint]*product.Product
	orders        map[uint]*order.Order
	payments      map[string]*order.Payment // by intent id
	teams         []*team.CompanyTeam
	organizations map[uint]*organization.Organization
	coupons       map[uint]*coupon.Coupon
	tracking      map[trackingKey]*tent.Tracking

	lastID uint
}

type trackingKey struct {
	organizationID uint
	eventYearID    uint
	productID      uint
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		products:      make(map[uint]*product.Product),
		orders:        make(map[uint]*order.Order),
		payments:      make(map[string]*order.Payment),
		organizations: make(map[uint]*organization.Organization),
		coupons:       make(map[uint]*coupon.Coupon),
		tracking:      make(map[trackingKey]*tent.Tracking),
	}
}

type txKey struct{}

type memTx struct {
	undo []func()
}

// Transaction runs fn with a context whose writes are undone if fn fails.
// A context already inside a transaction joins it.
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*memTx); ok {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memTx{}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// onRollback registers an undo step. Must be called with s.mu held;
// undo steps also run with s.mu held.
func (s *Store) onRollback(ctx context.Context, undo func()) {
	if tx, ok := ctx.Value(txKey{}).(*memTx); ok {
		tx.undo = append(tx.undo, undo)
	}
}

func (s *Store) nextID() uint {
	s.lastID++
	return s.lastID
}

// AddProduct seeds a product and returns it with its id.
func (s *Store) AddProduct(p product.Product) *product.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == 0 {
		p.ID = s.nextID()
	}
	if p.Status == "" {
		p.Status = product.StatusActive
	}
	s.products[p.ID] = &p
	return copyProduct(&p)
}

// AddOrganization seeds an organization and returns it with its id.
func (s *Store) AddOrganization(o organization.Organization) *organization.Organization {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.ID == 0 {
		o.ID = s.nextID()
	}
	s.organizations[o.ID] = &o
	cp := o
	return &cp
}

// AddCoupon seeds a coupon and returns it with its id.
func (s *Store) AddCoupon(c coupon.Coupon) *coupon.Coupon {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == 0 {
		c.ID = s.nextID()
	}
	s.coupons[c.ID] = &c
	cp := c
	return &cp
}

// Products returns the product repository.
func (s *Store) Products() *ProductRepository {
	return &ProductRepository{s: s}
}

// Orders returns the order repository.
func (s *Store) Orders() *OrderRepository {
	return &OrderRepository{s: s}
}

// Teams returns the team repository.
func (s *Store) Teams() *TeamRepository {
	return &TeamRepository{s: s}
}

// Organizations returns the organization repository.
func (s *Store) Organizations() *OrganizationRepository {
	return &OrganizationRepository{s: s}
}

// Coupons returns the coupon repository.
func (s *Store) Coupons() *CouponRepository {
	return &CouponRepository{s: s}
}

// Tracking returns the tent tracking repository.
func (s *Store) Tracking() *TrackingRepository {
	return &TrackingRepository{s: s}
}

func copyProduct(p *product.Product) *product.Product {
	cp := *p
	if p.TotalInventory != nil {
		cp.TotalInventory = product.IntPtr(*p.TotalInventory)
	}
	if p.MaxQuantityPerOrg != nil {
		cp.MaxQuantityPerOrg = product.IntPtr(*p.MaxQuantityPerOrg)
	}
	return &cp
}
