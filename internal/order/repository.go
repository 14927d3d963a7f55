package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"merchant-checkout/internal/db"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/govalues/decimal"
)

var orderColumns = []string{
	"id", "total_price", "currency", "payment_reference",
	"stage", "created_at", "stage_changed_at",
}

type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	// AttachPaymentReference writes the gateway reference exactly once.
	AttachPaymentReference(ctx context.Context, id uuid.UUID, ref string) error
	ListUnattached(ctx context.Context, olderThan time.Time) ([]Order, error)
	ListOrphaned(ctx context.Context) ([]Order, error)
	MarkOrphaned(ctx context.Context, id uuid.UUID) (bool, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, o *Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, total_price, currency, stage,
			created_at, stage_changed_at
		) VALUES ($1,$2,$3,$4,$5,$6)
	`,
		o.ID,
		o.TotalPrice.String(),
		o.Currency,
		string(o.Stage),
		o.CreatedAt,
		o.StageChangedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, item := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				order_id, position, gtin, quantity, unit_price
			) VALUES ($1,$2,$3,$4,$5)
		`,
			o.ID,
			i,
			item.GTIN,
			item.Quantity,
			item.UnitPrice.String(),
		)
		if err != nil {
			return fmt.Errorf("insert order item %d: %w", i, err)
		}
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var (
		o     Order
		total string
		ref   sql.NullString
		stage string
	)
	if err := row.Scan(&o.ID, &total, &o.Currency, &ref, &stage, &o.CreatedAt, &o.StageChangedAt); err != nil {
		return Order{}, err
	}

	d, err := decimal.Parse(total)
	if err != nil {
		return Order{}, fmt.Errorf("order %s has invalid total %q: %w", o.ID, total, err)
	}
	o.TotalPrice = d
	o.Stage = Stage(stage)
	if ref.Valid {
		o.PaymentReference = &ref.String
	}
	return o, nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	query, args, err := db.Builder.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	o, err := scanOrder(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	items, err := r.items(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return &o, nil
}

func (r *repository) items(ctx context.Context, orderID uuid.UUID) ([]Item, error) {
	query, args, err := db.Builder.Select("gtin", "quantity", "unit_price").
		From("order_items").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var (
			it    Item
			price string
		)
		if err := rows.Scan(&it.GTIN, &it.Quantity, &price); err != nil {
			return nil, err
		}
		if it.UnitPrice, err = decimal.Parse(price); err != nil {
			return nil, fmt.Errorf("item %s has invalid price %q: %w", it.GTIN, price, err)
		}
		items = append(items, it)
	}

	return items, rows.Err()
}

func (r *repository) AttachPaymentReference(ctx context.Context, id uuid.UUID, ref string) error {
	query, args, err := db.Builder.Update("orders").
		Set("payment_reference", ref).
		Set("stage", string(StageAttached)).
		Set("stage_changed_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"payment_reference": nil}).
		Where(sq.Eq{"stage": string(StagePendingAttachment)}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyAttached
	}
	return nil
}

func (r *repository) list(ctx context.Context, where sq.Sqlizer) ([]Order, error) {
	query, args, err := db.Builder.Select(orderColumns...).
		From("orders").
		Where(where).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *repository) ListUnattached(ctx context.Context, olderThan time.Time) ([]Order, error) {
	return r.list(ctx, sq.And{
		sq.Eq{"stage": string(StagePendingAttachment)},
		sq.Lt{"created_at": olderThan},
	})
}

// ListOrphaned returns every order still lacking a payment reference,
// whether or not the reconciler has flagged it yet.
func (r *repository) ListOrphaned(ctx context.Context) ([]Order, error) {
	return r.list(ctx, sq.Eq{"stage": []string{
		string(StageOrphaned),
		string(StagePendingAttachment),
	}})
}

func (r *repository) MarkOrphaned(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET stage = $1, stage_changed_at = NOW()
		WHERE id = $2
		  AND stage = $3
		  AND payment_reference IS NULL
	`, string(StageOrphaned), id, string(StagePendingAttachment))
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
