package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sportsfest/registration/internal/domain/cart"
	"github.com/sportsfest/registration/internal/domain/product"
)

// CartStore keeps carts in process memory. Carts do not expire.
type CartStore struct {
	mu    sync.Mutex
	carts map[cart.Key]map[uint]cart.Line
}

var _ cart.Store = (*CartStore)(nil)

// NewCartStore creates an empty CartStore.
func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[cart.Key]map[uint]cart.Line)}
}

// Get returns a copy of the cart.
func (s *CartStore) Get(ctx context.Context, key cart.Key) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]cart.Line, 0, len(s.carts[key]))
	for _, l := range s.carts[key] {
		lines = append(lines, l)
	}
	return cart.New(key, lines), nil
}

// AddQuantity adds quantity to the line, creating it if needed.
func (s *CartStore) AddQuantity(ctx context.Context, key cart.Key, productID uint, productType product.Type, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, ok := s.carts[key]
	if !ok {
		lines = make(map[uint]cart.Line)
		s.carts[key] = lines
	}

	line := lines[productID]
	line.ProductID = productID
	line.ProductType = productType
	line.Quantity += delta
	if line.Quantity <= 0 {
		delete(lines, productID)
		return 0, nil
	}
	lines[productID] = line
	return line.Quantity, nil
}

// Decrease takes up to quantity units off the line and returns how many it took.
func (s *CartStore) Decrease(ctx context.Context, key cart.Key, productID uint, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.take(key, productID, quantity), nil
}

// Remove drops the line and returns the quantity it held.
func (s *CartStore) Remove(ctx context.Context, key cart.Key, productID uint) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.take(key, productID, 0), nil
}

// take removes up to quantity units, the whole line when quantity is 0.
// Caller holds s.mu.
func (s *CartStore) take(key cart.Key, productID uint, quantity int) int {
	lines := s.carts[key]
	line, ok := lines[productID]
	if !ok {
		return 0
	}
	if quantity == 0 || quantity >= line.Quantity {
		delete(lines, productID)
		return line.Quantity
	}
	line.Quantity -= quantity
	lines[productID] = line
	return quantity
}

// Clear deletes the cart.
func (s *CartStore) Clear(ctx context.Context, key cart.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, key)
	return nil
}

// IntentLocker is a process-local in-flight lock per payment intent.
type IntentLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time
}

// NewIntentLocker creates an IntentLocker with no locks held.
func NewIntentLocker() *IntentLocker {
	return &IntentLocker{locks: make(map[string]time.Time)}
}

// Acquire takes the lock unless a live holder exists.
func (l *IntentLocker) Acquire(ctx context.Context, intentID string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if expires, held := l.locks[intentID]; held && now.Before(expires) {
		return false, nil
	}
	l.locks[intentID] = now.Add(ttl)
	return true, nil
}

// Release frees the lock for intentID.
func (l *IntentLocker) Release(ctx context.Context, intentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.locks, intentID)
	return nil
}
