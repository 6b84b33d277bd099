package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/SergeyBogomolovv/storefront-orders/internal/entities"
	"github.com/SergeyBogomolovv/storefront-orders/internal/pricing"
	"github.com/SergeyBogomolovv/storefront-orders/pkg/pagination"
	"github.com/SergeyBogomolovv/storefront-orders/pkg/trm"
	"github.com/SergeyBogomolovv/storefront-orders/pkg/utils"
)

type OrderStore interface {
	// SaveOrder and SaveItems are called inside one transaction on creation.
	SaveOrder(ctx context.Context, o entities.Order) error
	SaveItems(ctx context.Context, orderID string, items []entities.LineItem) error

	GetOrderByID(ctx context.Context, orderID string) (entities.Order, error)

	// UpdateOrder writes the lifecycle fields of o only if the stored version
	// still equals expectedVersion, and bumps it. It returns
	// entities.ErrVersionConflict otherwise.
	UpdateOrder(ctx context.Context, o entities.Order, expectedVersion int64) error

	// ListOrdersByOwner returns orders newest first, strictly after the cursor.
	ListOrdersByOwner(ctx context.Context, ownerID string, after *pagination.Cursor, limit int) ([]entities.Order, error)
}

type ProductCatalog interface {
	GetProduct(ctx context.Context, productID string) (entities.Product, error)
}

type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Delete(key string)
}

var ErrInvalidPageToken = errors.New("invalid page token")

type Config struct {
	// StoreTimeout bounds every single store call.
	StoreTimeout time.Duration
	Shipping     pricing.ShippingRule
	Tax          pricing.TaxRule
}

type Option func(*orderService)

func WithClock(now func() time.Time) Option {
	return func(s *orderService) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *orderService) { s.newID = newID }
}

type orderService struct {
	logger    *slog.Logger
	txManager trm.Manager
	store     OrderStore
	catalog   ProductCatalog
	cache     Cache
	gateway   PaymentGateway
	cfg       Config

	loads   singleflight.Group
	cacheMu sync.Mutex
	now     func() time.Time
	newID   func() string
}

func NewOrderService(
	logger *slog.Logger,
	txManager trm.Manager,
	store OrderStore,
	catalog ProductCatalog,
	cache Cache,
	gateway PaymentGateway,
	cfg Config,
	opts ...Option,
) *orderService {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 3 * time.Second
	}
	s := &orderService{
		logger:    logger.With(slog.String("service", "order")),
		txManager: txManager,
		store:     store,
		catalog:   catalog,
		cache:     cache,
		gateway:   gateway,
		cfg:       cfg,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *orderService) CreateOrder(ctx context.Context, who entities.Identity, draft entities.OrderDraft) (entities.Order, error) {
	if who.IsAnonymous() {
		return entities.Order{}, entities.ErrForbidden
	}
	if len(draft.Items) == 0 {
		return entities.Order{}, entities.ErrEmptyOrder
	}

	items := make([]pricing.Item, 0, len(draft.Items))
	for i, it := range draft.Items {
		product, err := s.getProduct(ctx, it.ProductID)
		if errors.Is(err, entities.ErrProductNotFound) || (err == nil && !product.Available) {
			return entities.Order{}, &entities.LineItemError{
				Index:     i,
				ProductID: it.ProductID,
				Reason:    "product is missing or discontinued",
				Kind:      entities.ErrCatalogMismatch,
			}
		}
		if err != nil {
			return entities.Order{}, err
		}
		items = append(items, pricing.Item{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  it.Quantity,
		})
	}

	quote, err := pricing.ComputeTotals(items, s.cfg.Shipping, s.cfg.Tax)
	if err != nil {
		return entities.Order{}, err
	}

	order := entities.Order{
		ID:              s.newID(),
		OwnerID:         who.ID,
		Items:           quote.Items,
		ShippingAddress: draft.ShippingAddress,
		PaymentMethod:   draft.PaymentMethod,
		Totals:          quote.Totals,
		Status:          entities.StatusPlaced,
		CreatedAt:       s.timestamp(),
		Version:         1,
	}

	err = s.withStore(ctx, func(ctx context.Context) error {
		return s.txManager.Do(ctx, func(ctx context.Context) error {
			if err := s.store.SaveOrder(ctx, order); err != nil {
				return fmt.Errorf("failed to save order: %w", err)
			}
			if err := s.store.SaveItems(ctx, order.ID, order.Items); err != nil {
				return fmt.Errorf("failed to save items: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return entities.Order{}, err
	}

	s.cacheOrder(order)
	s.logger.Debug("order placed",
		slog.String("order_id", order.ID),
		slog.String("owner_id", order.OwnerID),
		slog.String("grand_total", order.Totals.Grand.String()),
	)
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, who entities.Identity, orderID string) (entities.Order, error) {
	order, err := s.cachedOrder(ctx, orderID)
	if err != nil {
		return entities.Order{}, err
	}
	if !order.CanBeAccessedBy(who) {
		return entities.Order{}, fmt.Errorf("order %s: %w", orderID, entities.ErrForbidden)
	}
	return order, nil
}

type Page struct {
	Orders        []entities.Order
	NextPageToken string
}

// ListOrdersForUser returns one page of the user's orders, newest first.
// An empty pageToken starts from the beginning; an empty NextPageToken in
// the result means there are no more pages.
func (s *orderService) ListOrdersForUser(ctx context.Context, who entities.Identity, userID, pageToken string, limit int) (Page, error) {
	if who.ID != userID && !who.IsAdmin {
		return Page{}, entities.ErrForbidden
	}

	cursor, err := pagination.ParseCursor(pageToken)
	if err != nil {
		return Page{}, fmt.Errorf("%w: page token: %w", ErrInvalidPageToken, err)
	}

	limit = pagination.NormalizeLimit(limit)
	var orders []entities.Order
	err = s.withStore(ctx, func(ctx context.Context) error {
		var err error
		orders, err = s.store.ListOrdersByOwner(ctx, userID, cursor, pagination.LimitWithBuffer(limit))
		return err
	})
	if err != nil {
		return Page{}, err
	}

	page := Page{Orders: orders}
	if len(orders) > limit {
		page.Orders = orders[:limit]
		last := page.Orders[limit-1]
		id, err := uuid.Parse(last.ID)
		if err != nil {
			return Page{}, fmt.Errorf("order %s: malformed id: %w", last.ID, err)
		}
		page.NextPageToken = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: id})
	}
	return page, nil
}

// OrdersForUser lazily walks every order of the user, fetching pages only
// as the caller iterates. Stopping early fetches nothing more.
func (s *orderService) OrdersForUser(ctx context.Context, who entities.Identity, userID string) iter.Seq2[entities.Order, error] {
	return func(yield func(entities.Order, error) bool) {
		token := ""
		for {
			page, err := s.ListOrdersForUser(ctx, who, userID, token, pagination.DefaultLimit)
			if err != nil {
				yield(entities.Order{}, err)
				return
			}
			for _, o := range page.Orders {
				if !yield(o, nil) {
					return
				}
			}
			if page.NextPageToken == "" {
				return
			}
			token = page.NextPageToken
		}
	}
}

// timestamp is the current time at the precision the store keeps, so an
// order returned right after a write equals the one read back later.
func (s *orderService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *orderService) getProduct(ctx context.Context, productID string) (entities.Product, error) {
	var product entities.Product
	err := s.withStore(ctx, func(ctx context.Context) error {
		var err error
		product, err = s.catalog.GetProduct(ctx, productID)
		return err
	})
	return product, err
}

func (s *orderService) cachedOrder(ctx context.Context, orderID string) (entities.Order, error) {
	if order, ok := s.fromCache(orderID); ok {
		return order, nil
	}

	// The load is shared by every waiting caller, so it runs detached from
	// the caller that started it. withStore still bounds it by StoreTimeout.
	loaded := s.loads.DoChan(orderID, func() (any, error) {
		order, err := s.loadOrder(context.WithoutCancel(ctx), orderID)
		if err != nil {
			return entities.Order{}, err
		}
		s.cacheOrder(order)
		return order, nil
	})

	select {
	case <-ctx.Done():
		return entities.Order{}, classifyStoreErr(ctx.Err())
	case res := <-loaded:
		if res.Err != nil {
			return entities.Order{}, res.Err
		}
		return res.Val.(entities.Order), nil
	}
}

func (s *orderService) fromCache(orderID string) (entities.Order, bool) {
	data, ok := s.cache.Get(orderID)
	if !ok {
		return entities.Order{}, false
	}
	var order entities.Order
	if err := order.Unmarshal(data); err != nil {
		s.logger.Error("failed to unmarshal cached order", slog.String("order_id", orderID), slog.Any("error", err))
		s.cache.Delete(orderID)
		return entities.Order{}, false
	}
	return order, true
}

// cacheOrder never replaces a cached order with an older version of itself.
func (s *orderService) cacheOrder(order entities.Order) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if cached, ok := s.fromCache(order.ID); ok && cached.Version > order.Version {
		return
	}

	data, err := order.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal order", slog.String("order_id", order.ID), slog.Any("error", err))
		s.cache.Delete(order.ID)
		return
	}
	s.cache.Set(order.ID, data)
}

// loadOrder always reads from the store. State transitions must never
// decide on a cached copy.
func (s *orderService) loadOrder(ctx context.Context, orderID string) (entities.Order, error) {
	var order entities.Order
	err := s.withStore(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.store.GetOrderByID(ctx, orderID)
		return err
	})
	if err != nil {
		return entities.Order{}, err
	}
	return order, nil
}

// withStore runs fn with the configured store timeout and folds
// infrastructure failures into entities.ErrStoreUnavailable.
func (s *orderService) withStore(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	return classifyStoreErr(fn(ctx))
}

func classifyStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, entities.ErrOrderNotFound),
		errors.Is(err, entities.ErrProductNotFound),
		errors.Is(err, entities.ErrVersionConflict),
		errors.Is(err, entities.ErrDuplicatePaymentAttempt),
		errors.Is(err, entities.ErrStoreUnavailable),
		errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %w", entities.ErrStoreUnavailable, err)
	}
}

var casRetry = utils.RetryConfig{
	MaxAttempts:  8,
	InitialDelay: 2 * time.Millisecond,
	MaxDelay:     50 * time.Millisecond,
	Multiplier:   2,
	RetryIf: func(err error) bool {
		return errors.Is(err, entities.ErrVersionConflict)
	},
}

// transition is the only write path for an existing order. It re-reads the
// order from the store, lets apply decide, and commits with a
// compare-and-swap on Version. A lost race re-runs apply against the fresh
// state. apply returning false means "nothing to write" and the current
// state is returned as is.
func (s *orderService) transition(ctx context.Context, orderID string, apply func(o *entities.Order) (bool, error)) (entities.Order, error) {
	var result entities.Order
	err := utils.Retry(ctx, casRetry, func() error {
		order, err := s.loadOrder(ctx, orderID)
		if err != nil {
			return err
		}

		changed, err := apply(&order)
		if err != nil {
			return err
		}
		if !changed {
			result = order
			return nil
		}
		if err := order.Validate(); err != nil {
			return err
		}

		expected := order.Version
		if err := s.withStore(ctx, func(ctx context.Context) error {
			return s.store.UpdateOrder(ctx, order, expected)
		}); err != nil {
			return err
		}
		order.Version = expected + 1
		result = order
		return nil
	})
	if errors.Is(err, entities.ErrVersionConflict) {
		return entities.Order{}, fmt.Errorf("%w: order %s: %w", entities.ErrStoreUnavailable, orderID, err)
	}
	if err != nil {
		return entities.Order{}, err
	}

	s.cacheOrder(result)
	return result, nil
}
