package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/SergeyBogomolovv/storefront-orders/internal/entities"
	"github.com/SergeyBogomolovv/storefront-orders/pkg/pagination"
	"github.com/SergeyBogomolovv/storefront-orders/pkg/trm"
)

const (
	uniqueViolation      = "23505"
	paymentTxIDIndexName = "orders_payment_tx_id_key"
)

type postgresRepo struct {
	db *sqlx.DB
	qb sq.StatementBuilderType
}

func NewPostgresRepo(db *sqlx.DB) *postgresRepo {
	return &postgresRepo{
		db: db,
		qb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *postgresRepo) SaveOrder(ctx context.Context, o entities.Order) error {
	query, args := r.qb.Insert("orders").
		Columns(
			"id", "owner_id", "address", "city", "postal_code", "country", "payment_method",
			"currency", "items_total", "shipping_total", "tax_total", "grand_total",
			"status", "version", "created_at",
		).
		Values(
			o.ID, o.OwnerID, o.ShippingAddress.Address, o.ShippingAddress.City,
			o.ShippingAddress.PostalCode, o.ShippingAddress.Country, o.PaymentMethod,
			o.Totals.Grand.Currency, o.Totals.Items.Amount, o.Totals.Shipping.Amount,
			o.Totals.Tax.Amount, o.Totals.Grand.Amount,
			string(o.Status), o.Version, o.CreatedAt,
		).
		MustSql()

	if _, err := r.querier(ctx).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

func (r *postgresRepo) SaveItems(ctx context.Context, orderID string, items []entities.LineItem) error {
	if len(items) == 0 {
		return nil
	}

	q := r.qb.Insert("order_items").Columns(itemColumns...)
	for i, it := range items {
		q = q.Values(orderID, i, it.ProductID, it.Name, it.UnitPrice.Amount, it.Quantity, it.Subtotal.Amount)
	}

	query, args := q.MustSql()
	if _, err := r.querier(ctx).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save items: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetOrderByID(ctx context.Context, orderID string) (entities.Order, error) {
	query, args := r.qb.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": orderID}).
		MustSql()

	var order Order
	err := r.querier(ctx).GetContext(ctx, &order, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Order{}, entities.ErrOrderNotFound
	}
	if err != nil {
		return entities.Order{}, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := r.itemsByOrder(ctx, []string{orderID})
	if err != nil {
		return entities.Order{}, err
	}

	return OrderToEntity(order, items[orderID])
}

// UpdateOrder writes only the lifecycle columns. The frozen quote is never
// touched after creation.
func (r *postgresRepo) UpdateOrder(ctx context.Context, o entities.Order, expectedVersion int64) error {
	q := r.qb.Update("orders").
		Set("status", string(o.Status)).
		Set("version", sq.Expr("version + 1")).
		Where(sq.Eq{"id": o.ID, "version": expectedVersion})

	if p := o.Payment; p != nil {
		q = q.Set("payment_tx_id", p.ProviderTransactionID).
			Set("paid_at", p.PaidAt).
			Set("captured_amount", p.CapturedAmount.Amount).
			Set("captured_currency", p.CapturedAmount.Currency)
	}
	if d := o.Delivery; d != nil {
		q = q.Set("delivered_at", nullTime(d.DeliveredAt)).
			Set("delivered_by", nullString(d.DeliveredBy))
	}

	query, args := q.MustSql()
	res, err := r.querier(ctx).ExecContext(ctx, query, args...)
	if isUniqueViolation(err, paymentTxIDIndexName) {
		return &entities.DuplicatePaymentError{
			OrderID:      o.ID,
			IncomingTxID: o.Payment.ProviderTransactionID,
		}
	}
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if n == 1 {
		return nil
	}

	exists, err := r.orderExists(ctx, o.ID)
	if err != nil {
		return err
	}
	if !exists {
		return entities.ErrOrderNotFound
	}
	return entities.ErrVersionConflict
}

func (r *postgresRepo) ListOrdersByOwner(ctx context.Context, ownerID string, after *pagination.Cursor, limit int) ([]entities.Order, error) {
	q := r.qb.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit))
	if after != nil {
		q = q.Where(sq.Expr("(created_at, id) < (?, ?)", after.CreatedAt, after.ID))
	}

	query, args := q.MustSql()
	var orders []Order
	if err := r.querier(ctx).SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select orders: %w", err)
	}
	if len(orders) == 0 {
		return []entities.Order{}, nil
	}

	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := r.itemsByOrder(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]entities.Order, 0, len(orders))
	for _, o := range orders {
		order, err := OrderToEntity(o, items[o.ID])
		if err != nil {
			return nil, err
		}
		result = append(result, order)
	}
	return result, nil
}

func (r *postgresRepo) itemsByOrder(ctx context.Context, orderIDs []string) (map[string][]Item, error) {
	query, args := r.qb.Select(itemColumns...).
		From("order_items").
		Where(sq.Eq{"order_id": orderIDs}).
		OrderBy("order_id", "position").
		MustSql()

	var items []Item
	if err := r.querier(ctx).SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select items: %w", err)
	}

	res := make(map[string][]Item, len(orderIDs))
	for _, it := range items {
		res[it.OrderID] = append(res[it.OrderID], it)
	}
	return res, nil
}

func (r *postgresRepo) orderExists(ctx context.Context, orderID string) (bool, error) {
	query, args := r.qb.Select("1").
		Prefix("SELECT EXISTS (").
		From("orders").
		Where(sq.Eq{"id": orderID}).
		Suffix(")").
		MustSql()

	var exists bool
	if err := r.querier(ctx).GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("failed to check order: %w", err)
	}
	return exists, nil
}

// Ping is used by the health check.
func (r *postgresRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *postgresRepo) querier(ctx context.Context) trm.Querier {
	return trm.QuerierFrom(ctx, r.db)
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == uniqueViolation && pqErr.Constraint == constraint
}
