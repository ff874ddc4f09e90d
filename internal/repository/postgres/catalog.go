package postgres

import (
	"context"
	"fmt"

	"github.com/mugworks/checkout/internal/domain"
	"github.com/mugworks/checkout/pkg/database"
)

// CatalogRepository reads trusted variant data from PostgreSQL.
type CatalogRepository struct {
	pool database.DBTX
}

// NewCatalogRepository creates a new PostgreSQL-backed catalog repository.
func NewCatalogRepository(pool database.DBTX) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// GetVariants retrieves active variants by id. Missing or inactive ids are
// simply absent from the result; the caller decides whether that is an error.
func (r *CatalogRepository) GetVariants(ctx context.Context, variantIDs []string) ([]domain.ProductVariant, error) {
	if len(variantIDs) == 0 {
		return []domain.ProductVariant{}, nil
	}

	query := `
		SELECT id, product_id, name, sku, price_amount, currency, stock_quantity, active, created_at, updated_at
		FROM product_variants
		WHERE id = ANY($1) AND active`

	rows, err := r.pool.Query(ctx, query, variantIDs)
	if err != nil {
		return nil, fmt.Errorf("get variants: %w", err)
	}
	defer rows.Close()

	var variants []domain.ProductVariant
	for rows.Next() {
		var v domain.ProductVariant
		if err := rows.Scan(
			&v.ID,
			&v.ProductID,
			&v.Name,
			&v.SKU,
			&v.PriceAmount,
			&v.Currency,
			&v.StockQuantity,
			&v.Active,
			&v.CreatedAt,
			&v.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan variant row: %w", err)
		}
		variants = append(variants, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variant rows: %w", err)
	}

	if variants == nil {
		variants = []domain.ProductVariant{}
	}

	return variants, nil
}
