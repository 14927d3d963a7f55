package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"merchant-checkout/internal/db"

	sq "github.com/Masterminds/squirrel"
	"github.com/govalues/decimal"
)

var productColumns = []string{"gtin", "name", "description", "price", "currency", "image_url"}

type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByGTIN(ctx context.Context, gtin string) (*Product, error)
	GetByGTINs(ctx context.Context, gtins []string) (map[string]Product, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var (
		p     Product
		price string
	)
	if err := row.Scan(&p.GTIN, &p.Name, &p.Description, &price, &p.Currency, &p.ImageURL); err != nil {
		return Product{}, err
	}
	d, err := decimal.Parse(price)
	if err != nil {
		return Product{}, fmt.Errorf("product %s has invalid price %q: %w", p.GTIN, price, err)
	}
	p.Price = d
	return p, nil
}

func (r *repository) List(ctx context.Context) ([]Product, error) {
	query, args, err := db.Builder.Select(productColumns...).From("products").OrderBy("gtin").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

func (r *repository) GetByGTIN(ctx context.Context, gtin string) (*Product, error) {
	query, args, err := db.Builder.Select(productColumns...).
		From("products").
		Where(sq.Eq{"gtin": gtin}).
		ToSql()
	if err != nil {
		return nil, err
	}

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetByGTINs(ctx context.Context, gtins []string) (map[string]Product, error) {
	result := make(map[string]Product, len(gtins))
	if len(gtins) == 0 {
		return result, nil
	}

	query, args, err := db.Builder.Select(productColumns...).
		From("products").
		Where(sq.Eq{"gtin": gtins}).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result[p.GTIN] = p
	}

	return result, rows.Err()
}
