package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/SergeyBogomolovv/storefront-orders/internal/entities"
	"github.com/SergeyBogomolovv/storefront-orders/pkg/trm"
)

// catalogRepo reads the product catalog owned by the storefront admin.
type catalogRepo struct {
	db *sqlx.DB
	qb sq.StatementBuilderType
}

func NewCatalogRepo(db *sqlx.DB) *catalogRepo {
	return &catalogRepo{
		db: db,
		qb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *catalogRepo) GetProduct(ctx context.Context, productID string) (entities.Product, error) {
	query, args := r.qb.Select("id", "name", "price", "currency", "available").
		From("products").
		Where(sq.Eq{"id": productID}).
		MustSql()

	var p Product
	err := trm.QuerierFrom(ctx, r.db).GetContext(ctx, &p, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Product{}, entities.ErrProductNotFound
	}
	if err != nil {
		return entities.Product{}, fmt.Errorf("failed to get product: %w", err)
	}
	return ProductToEntity(p), nil
}
