package memory

import (
	"context"
	"sort"
	"time"

	"github.com/sportsfest/registration/internal/domain/product"
)

// ProductRepository implements product.Repository on the Store.
type ProductRepository struct {
	s *Store
}

var _ product.Repository = (*ProductRepository)(nil)

// FindByID returns a copy of the product.
func (r *ProductRepository) FindByID(ctx context.Context, id uint) (*product.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, product.ErrProductNotFound
	}
	return copyProduct(p), nil
}

// ListActiveByEventYear returns the active products of the event year ordered by id.
func (r *ProductRepository) ListActiveByEventYear(ctx context.Context, eventYearID uint) ([]*product.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var list []*product.Product
	for _, p := range r.s.products {
		if p.EventYearID == eventYearID && p.IsActive() {
			list = append(list, copyProduct(p))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// Reserve moves quantity from available to reserved if enough is available.
func (r *ProductRepository) Reserve(ctx context.Context, id uint, quantity int) (*product.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, product.ErrProductNotFound
	}
	if p.TotalInventory != nil && *p.TotalInventory-p.SoldCount-p.ReservedCount < quantity {
		return nil, product.ErrInsufficientInventory
	}

	p.ReservedCount += quantity
	p.UpdatedAt = time.Now()
	r.s.onRollback(ctx, func() { p.ReservedCount -= quantity })
	return copyProduct(p), nil
}

// Release returns up to quantity reserved units to available.
func (r *ProductRepository) Release(ctx context.Context, id uint, quantity int) (*product.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, product.ErrProductNotFound
	}

	released := min(quantity, p.ReservedCount)
	p.ReservedCount -= released
	p.UpdatedAt = time.Now()
	r.s.onRollback(ctx, func() { p.ReservedCount += released })
	return copyProduct(p), nil
}

// ConfirmSale moves quantity from reserved to sold.
func (r *ProductRepository) ConfirmSale(ctx context.Context, id uint, quantity int) (*product.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, product.ErrProductNotFound
	}

	released := min(quantity, p.ReservedCount)
	p.ReservedCount -= released
	p.SoldCount += quantity
	p.UpdatedAt = time.Now()
	r.s.onRollback(ctx, func() {
		p.ReservedCount += released
		p.SoldCount -= quantity
	})
	return copyProduct(p), nil
}
