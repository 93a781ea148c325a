package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nourabuelenin/flash-sale/internal/domain"
)

// fakeStore backs the service tests with in-memory state shared
// across the hold, order, and idempotency repository interfaces, so
// cross-service flows (webhook -> finalize -> release) can be observed
// end to end.
type fakeStore struct {
	products map[string]*domain.Product
	holds    map[string]*domain.Hold
	orders   map[string]*domain.Order
	records  map[string]domain.IdempotencyRecord

	failAdjustFor string // product ID whose stock adjustments error
}

func newFakeStore(products []domain.Product, holds []domain.Hold, orders []domain.Order) *fakeStore {
	f := &fakeStore{
		products: make(map[string]*domain.Product),
		holds:    make(map[string]*domain.Hold),
		orders:   make(map[string]*domain.Order),
		records:  make(map[string]domain.IdempotencyRecord),
	}
	for i := range products {
		p := products[i]
		f.products[p.ID] = &p
	}
	for i := range holds {
		h := holds[i]
		f.holds[h.ID] = &h
	}
	for i := range orders {
		o := orders[i]
		f.orders[o.ID] = &o
	}
	return f
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeStore) GetProductForUpdate(_ context.Context, productID string) (domain.Product, error) {
	p, ok := f.products[productID]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return *p, nil
}

func (f *fakeStore) GetProduct(_ context.Context, productID string) (domain.Product, error) {
	p, ok := f.products[productID]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return *p, nil
}

func (f *fakeStore) AdjustStock(_ context.Context, productID string, delta int) error {
	if productID == f.failAdjustFor {
		return errors.New("adjust stock: boom")
	}
	p, ok := f.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if p.Stock+delta < 0 {
		return fmt.Errorf("stock would go negative for %s", productID)
	}
	p.Stock += delta
	return nil
}

func (f *fakeStore) CreateHold(_ context.Context, hold domain.Hold) error {
	f.holds[hold.ID] = &hold
	return nil
}

func (f *fakeStore) GetHoldByTokenForUpdate(_ context.Context, token string) (domain.Hold, error) {
	for _, h := range f.holds {
		if h.Token == token {
			return *h, nil
		}
	}
	return domain.Hold{}, domain.ErrHoldNotFound
}

func (f *fakeStore) GetHoldForUpdate(_ context.Context, holdID string) (domain.Hold, error) {
	h, ok := f.holds[holdID]
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	return *h, nil
}

func (f *fakeStore) ListExpiredHoldIDs(_ context.Context, now time.Time) ([]string, error) {
	var ids []string
	for _, h := range f.holds {
		if h.Status == domain.HoldStatusActive && h.ExpiresAt.Before(now) {
			ids = append(ids, h.ID)
		}
	}
	return ids, nil
}

func (f *fakeStore) MarkHoldReleased(_ context.Context, holdID string, at time.Time) error {
	h, ok := f.holds[holdID]
	if !ok {
		return domain.ErrHoldNotFound
	}
	if h.Status != domain.HoldStatusActive {
		return domain.ErrHoldAlreadyProcessed
	}
	h.Status = domain.HoldStatusReleased
	t := at
	h.ReleasedAt = &t
	return nil
}

func (f *fakeStore) MarkHoldConverted(_ context.Context, holdID string, at time.Time) error {
	h, ok := f.holds[holdID]
	if !ok {
		return domain.ErrHoldNotFound
	}
	if h.Status != domain.HoldStatusActive {
		return domain.ErrHoldNotActive
	}
	h.Status = domain.HoldStatusConverted
	t := at
	h.ConvertedAt = &t
	return nil
}

func (f *fakeStore) CreateOrder(_ context.Context, order domain.Order) error {
	for _, o := range f.orders {
		if o.HoldID == order.HoldID {
			return domain.ErrHoldNotActive
		}
	}
	f.orders[order.ID] = &order
	return nil
}

func (f *fakeStore) GetOrderForUpdate(_ context.Context, orderID string) (domain.Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return *o, nil
}

func (f *fakeStore) UpdateOrderStatus(_ context.Context, orderID string, status domain.OrderStatus, transactionID *string) error {
	o, ok := f.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Status = status
	if transactionID != nil {
		o.TransactionID = transactionID
	}
	return nil
}

func (f *fakeStore) GetHoldToken(_ context.Context, holdID string) (string, error) {
	h, ok := f.holds[holdID]
	if !ok {
		return "", domain.ErrHoldNotFound
	}
	return h.Token, nil
}

func (f *fakeStore) FindRecord(_ context.Context, key string) (*domain.IdempotencyRecord, error) {
	rec, ok := f.records[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (f *fakeStore) LockKey(_ context.Context, _ string) error {
	return nil
}

func (f *fakeStore) InsertRecord(_ context.Context, rec domain.IdempotencyRecord) error {
	if _, ok := f.records[rec.Key]; ok {
		return domain.ErrIdempotencyConflict
	}
	f.records[rec.Key] = rec
	return nil
}

func (f *fakeStore) activeQuantity(productID string) int {
	total := 0
	for _, h := range f.holds {
		if h.ProductID == productID && h.Status == domain.HoldStatusActive {
			total += h.Quantity
		}
	}
	return total
}

// fakeCache records invalidations.
type fakeCache struct {
	invalidated []string
}

func (c *fakeCache) InvalidateProduct(_ context.Context, productID string) {
	c.invalidated = append(c.invalidated, productID)
}

// txTrackingStore counts open transaction nesting so tests can tell
// whether a side effect fired while one was still open.
type txTrackingStore struct {
	*fakeStore
	depth int
}

func (s *txTrackingStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.depth++
	err := s.fakeStore.WithTx(ctx, fn)
	s.depth--
	return err
}

// txAwareCache splits invalidations by whether the store had a
// transaction open when they fired.
type txAwareCache struct {
	store     *txTrackingStore
	inTx      []string
	committed []string
}

func (c *txAwareCache) InvalidateProduct(_ context.Context, productID string) {
	if c.store.depth > 0 {
		c.inTx = append(c.inTx, productID)
		return
	}
	c.committed = append(c.committed, productID)
}

// lockingStore emulates the per-key exclusive lock: LockKey blocks
// until the holding transaction ends, like an advisory lock released
// at commit.
type lockingStore struct {
	*fakeStore
	mu   sync.Mutex // guards keys and the records map
	keys map[string]*sync.Mutex
}

func newLockingStore(base *fakeStore) *lockingStore {
	return &lockingStore{fakeStore: base, keys: make(map[string]*sync.Mutex)}
}

type heldKeysKey struct{}

type heldKeys struct {
	mus []*sync.Mutex
}

func (s *lockingStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	held := &heldKeys{}
	err := fn(context.WithValue(ctx, heldKeysKey{}, held))
	for _, mu := range held.mus {
		mu.Unlock()
	}
	return err
}

func (s *lockingStore) LockKey(ctx context.Context, key string) error {
	held, ok := ctx.Value(heldKeysKey{}).(*heldKeys)
	if !ok {
		return errors.New("lock key: no transaction")
	}
	s.mu.Lock()
	mu := s.keys[key]
	if mu == nil {
		mu = &sync.Mutex{}
		s.keys[key] = mu
	}
	s.mu.Unlock()

	mu.Lock()
	held.mus = append(held.mus, mu)
	return nil
}

func (s *lockingStore) FindRecord(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fakeStore.FindRecord(ctx, key)
}

func (s *lockingStore) InsertRecord(ctx context.Context, rec domain.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fakeStore.InsertRecord(ctx, rec)
}
