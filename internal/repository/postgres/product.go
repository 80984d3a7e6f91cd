package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yangxb919/prspares-website/internal/domain"
	"github.com/yangxb919/prspares-website/internal/repository"
	"github.com/yangxb919/prspares-website/pkg/database"
)

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// escapeLike escapes LIKE wildcards so user input matches literally.
var escapeLike = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace

// List returns products matching the filter with the total count. The model
// token matches specs->>'model' exactly (case-insensitive) or appears in the
// title; the search term matches the title or any spec value.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Model != "" {
		conditions = append(conditions, fmt.Sprintf("(specs->>'model' ILIKE $%d OR title ILIKE $%d)", argIndex, argIndex+1))
		args = append(args, escapeLike(filter.Model), "%"+escapeLike(filter.Model)+"%")
		argIndex += 2
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR specs::text ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT id, title, specs, images, created_at,
			   count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY created_at DESC NULLS LAST, id`, whereClause)

	if filter.Page > 0 {
		limit := filter.PerPage
		if limit <= 0 {
			limit = 24
		}
		query += fmt.Sprintf("\n\t\tLIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, limit, (filter.Page-1)*limit)
	}

	ctx, end := database.TraceQuery(ctx, "ListProducts", query)
	products, total, err := r.list(ctx, query, args)
	end(err)
	if err != nil {
		return nil, 0, err
	}

	// A page past the end returns no rows and so no window count.
	if len(products) == 0 && filter.Page > 1 {
		total, err = r.count(ctx, whereClause, args[:len(args)-2])
		if err != nil {
			return nil, 0, err
		}
	}
	return products, total, nil
}

func (r *ProductRepository) list(ctx context.Context, query string, args []any) ([]domain.Product, int, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products   = []domain.Product{}
		totalCount int
	)
	for rows.Next() {
		var (
			p         domain.Product
			specsJSON []byte
		)
		if err := rows.Scan(&p.ID, &p.Title, &specsJSON, &p.Images, &p.CreatedAt, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		if len(specsJSON) > 0 {
			if err := json.Unmarshal(specsJSON, &p.Specs); err != nil {
				return nil, 0, fmt.Errorf("unmarshal specs of product %s: %w", p.ID, err)
			}
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, totalCount, nil
}

func (r *ProductRepository) count(ctx context.Context, whereClause string, args []any) (int, error) {
	query := "SELECT count(*) FROM products " + whereClause

	ctx, end := database.TraceQuery(ctx, "CountProducts", query)
	var n int
	err := r.db.QueryRow(ctx, query, args...).Scan(&n)
	end(err)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// Ping checks that the products table is reachable.
func (r *ProductRepository) Ping(ctx context.Context) error {
	var one int
	if err := r.db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}
