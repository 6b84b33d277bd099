package service_test

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/SergeyBogomolovv/storefront-orders/internal/entities"
	"github.com/SergeyBogomolovv/storefront-orders/internal/pricing"
	"github.com/SergeyBogomolovv/storefront-orders/internal/service"
	"github.com/SergeyBogomolovv/storefront-orders/pkg/cache"
	"github.com/SergeyBogomolovv/storefront-orders/pkg/pagination"
	"github.com/SergeyBogomolovv/storefront-orders/pkg/trm"
)

const currency = "LKR"

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func lkr(amount int64) entities.Money {
	return entities.NewMoney(amount, currency)
}

// memoryStore is an in-memory OrderStore with the same compare-and-swap and
// transaction uniqueness guarantees as the postgres one. Timestamps are kept
// at microsecond precision, like TIMESTAMPTZ.
type memoryStore struct {
	mu      sync.Mutex
	orders  map[string]entities.Order
	paidBy  map[string]string
	updates int
	// listLimit is the limit of the last ListOrdersByOwner call.
	listLimit int

	// block makes every call wait for ctx to be done.
	block bool
	// failWith is returned by every call when set.
	failWith error
	// hold parks GetOrderByID until it is closed. loading is signalled
	// when a read gets parked.
	hold    chan struct{}
	loading chan struct{}
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		orders: make(map[string]entities.Order),
		paidBy: make(map[string]string),
	}
}

func (m *memoryStore) guard(ctx context.Context) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return m.failWith
}

func (m *memoryStore) SaveOrder(ctx context.Context, o entities.Order) error {
	if err := m.guard(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o.Items = nil
	m.orders[o.ID] = storedPrecision(cloneOrder(o))
	return nil
}

func (m *memoryStore) SaveItems(ctx context.Context, orderID string, items []entities.LineItem) error {
	if err := m.guard(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.orders[orderID]
	o.Items = slices.Clone(items)
	m.orders[orderID] = o
	return nil
}

func (m *memoryStore) GetOrderByID(ctx context.Context, orderID string) (entities.Order, error) {
	if err := m.guard(ctx); err != nil {
		return entities.Order{}, err
	}
	if m.hold != nil {
		select {
		case m.loading <- struct{}{}:
		default:
		}
		<-m.hold
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return entities.Order{}, entities.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (m *memoryStore) UpdateOrder(ctx context.Context, o entities.Order, expectedVersion int64) error {
	if err := m.guard(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.orders[o.ID]
	if !ok {
		return entities.ErrOrderNotFound
	}
	if stored.Version != expectedVersion {
		return entities.ErrVersionConflict
	}
	if o.Payment != nil {
		if other, ok := m.paidBy[o.Payment.ProviderTransactionID]; ok && other != o.ID {
			return &entities.DuplicatePaymentError{OrderID: o.ID, IncomingTxID: o.Payment.ProviderTransactionID}
		}
		m.paidBy[o.Payment.ProviderTransactionID] = o.ID
	}

	stored.Status = o.Status
	stored.Payment = o.Payment
	stored.Delivery = o.Delivery
	stored.Version = expectedVersion + 1
	m.orders[o.ID] = storedPrecision(cloneOrder(stored))
	m.updates++
	return nil
}

func (m *memoryStore) ListOrdersByOwner(ctx context.Context, ownerID string, after *pagination.Cursor, limit int) ([]entities.Order, error) {
	if err := m.guard(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listLimit = limit

	var res []entities.Order
	for _, o := range m.orders {
		if o.OwnerID != ownerID {
			continue
		}
		if after != nil && !before(o, after.CreatedAt, after.ID.String()) {
			continue
		}
		res = append(res, cloneOrder(o))
	}
	slices.SortFunc(res, func(a, b entities.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (m *memoryStore) get(id string) entities.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneOrder(m.orders[id])
}

func (m *memoryStore) updateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates
}

func before(o entities.Order, createdAt time.Time, id string) bool {
	if !o.CreatedAt.Equal(createdAt) {
		return o.CreatedAt.Before(createdAt)
	}
	return o.ID < id
}

func cloneOrder(o entities.Order) entities.Order {
	o.Items = slices.Clone(o.Items)
	if o.Payment != nil {
		p := *o.Payment
		o.Payment = &p
	}
	if o.Delivery != nil {
		d := *o.Delivery
		o.Delivery = &d
	}
	return o
}

func storedPrecision(o entities.Order) entities.Order {
	o.CreatedAt = o.CreatedAt.Round(time.Microsecond)
	if o.Payment != nil {
		o.Payment.PaidAt = o.Payment.PaidAt.Round(time.Microsecond)
	}
	if o.Delivery != nil {
		o.Delivery.DeliveredAt = o.Delivery.DeliveredAt.Round(time.Microsecond)
	}
	return o
}

type memoryCatalog map[string]entities.Product

func (c memoryCatalog) GetProduct(_ context.Context, productID string) (entities.Product, error) {
	p, ok := c[productID]
	if !ok {
		return entities.Product{}, entities.ErrProductNotFound
	}
	return p, nil
}

type gatewayMock struct {
	mock.Mock
}

func (g *gatewayMock) CreateIntent(ctx context.Context, orderID string, amount entities.Money) (string, error) {
	args := g.Called(ctx, orderID, amount)
	return args.String(0), args.Error(1)
}

func (g *gatewayMock) CaptureResult(ctx context.Context, intentRef string) (entities.Capture, error) {
	args := g.Called(ctx, intentRef)
	return args.Get(0).(entities.Capture), args.Error(1)
}

type noopTx struct{}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }

// inlineTx runs callbacks directly; memoryStore has no transactions.
type inlineTx struct{}

func (inlineTx) BeginTx(ctx context.Context) (context.Context, trm.Transaction, error) {
	return ctx, noopTx{}, nil
}

func (inlineTx) Do(ctx context.Context, cb func(ctx context.Context) error) error {
	return cb(ctx)
}

var catalog = memoryCatalog{
	"p-1": {ID: "p-1", Name: "Keyboard", Price: lkr(1000), Available: true},
	"p-2": {ID: "p-2", Name: "Mouse", Price: lkr(250), Available: true},
	"p-9": {ID: "p-9", Name: "Discontinued", Price: lkr(100), Available: false},
}

var (
	alice = entities.Identity{ID: "alice"}
	bob   = entities.Identity{ID: "bob"}
	admin = entities.Identity{ID: "root", IsAdmin: true}
)

type orderService interface {
	CreateOrder(ctx context.Context, who entities.Identity, draft entities.OrderDraft) (entities.Order, error)
	GetOrder(ctx context.Context, who entities.Identity, orderID string) (entities.Order, error)
	ListOrdersForUser(ctx context.Context, who entities.Identity, userID, pageToken string, limit int) (service.Page, error)
	OrdersForUser(ctx context.Context, who entities.Identity, userID string) iter.Seq2[entities.Order, error]
	ApplyCapture(ctx context.Context, orderID string, capture entities.Capture) (entities.Order, error)
	ConfirmPayment(ctx context.Context, who entities.Identity, orderID string, capture entities.Capture) (entities.Order, error)
	CreatePaymentIntent(ctx context.Context, who entities.Identity, orderID string) (string, error)
	CapturePayment(ctx context.Context, who entities.Identity, orderID, intentRef string) (entities.Order, error)
	MarkDelivered(ctx context.Context, who entities.Identity, orderID string) (entities.Order, error)
}

type fixture struct {
	svc     orderService
	store   *memoryStore
	gateway *gatewayMock
}

func newFixture(t *testing.T, opts ...service.Option) fixture {
	t.Helper()

	store := newMemoryStore()
	gateway := &gatewayMock{}
	t.Cleanup(func() { gateway.AssertExpectations(t) })

	cfg := service.Config{
		StoreTimeout: 50 * time.Millisecond,
		Shipping:     pricing.ShippingRule{Flat: lkr(500), FreeOver: entities.Zero(currency)},
		Tax:          pricing.TaxRule{Rate: decimal.RequireFromString("0.10")},
	}
	opts = append([]service.Option{service.WithClock(func() time.Time { return fixedNow })}, opts...)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewOrderService(logger, inlineTx{}, store, catalog, cache.NewLRUCache[[]byte](100, time.Minute), gateway, cfg, opts...)

	return fixture{svc: svc, store: store, gateway: gateway}
}

// placeOrder places the reference order: 2 x 1000 + 500 shipping + 10% tax = 2700.
func (f fixture) placeOrder(t *testing.T, who entities.Identity) entities.Order {
	t.Helper()
	order, err := f.svc.CreateOrder(context.Background(), who, entities.OrderDraft{
		Items:           []entities.DraftItem{{ProductID: "p-1", Quantity: 2}},
		ShippingAddress: entities.Address{Address: "1 Main St", City: "Colombo", PostalCode: "00100", Country: "LK"},
		PaymentMethod:   "PayPal",
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	return order
}
