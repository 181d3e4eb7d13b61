package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/georgemunganga/supply-backend/internal/apperr"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const orderColumns = `id,order_number,requester_id,requester_name,product_id,product_name,product_category,
	quantity,selections,recipient_name,recipient_contact,recipient_address,status,created_at,updated_at`

func (r *postgresRepo) CreateOrder(ctx context.Context, o *Order) error {
	selections, err := json.Marshal(o.Selections)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO supply_orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		o.ID, o.OrderNumber, o.Requester.ID, o.Requester.Name,
		o.ProductID, o.ProductName, o.ProductCategory,
		o.Quantity, string(selections),
		o.Recipient.Name, o.Recipient.Contact, o.Recipient.Address,
		o.Status, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetOrderByID(ctx context.Context, id string) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM supply_orders WHERE id=$1`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("order", id)
	}
	return o, err
}

func (r *postgresRepo) ListOrders(ctx context.Context, f Filter) ([]*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM supply_orders WHERE 1=1`
	args := []interface{}{}
	n := 1
	if f.Status != "" {
		query += fmt.Sprintf(` AND status=$%d`, n)
		args = append(args, f.Status)
		n++
	}
	if f.RequesterID != "" {
		query += fmt.Sprintf(` AND requester_id=$%d`, n)
		args = append(args, f.RequesterID)
		n++
	}
	if f.ProductID != "" {
		query += fmt.Sprintf(` AND product_id=$%d`, n)
		args = append(args, f.ProductID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *postgresRepo) UpdateOrder(ctx context.Context, o *Order) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE supply_orders SET status=$1, updated_at=$2 WHERE id=$3`,
		o.Status, o.UpdatedAt, o.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("order", o.ID)
	}
	return nil
}

func (r *postgresRepo) DeleteOrder(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM supply_orders WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("order", id)
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func scanOrder(scan func(...interface{}) error) (*Order, error) {
	o := &Order{}
	var selections []byte
	err := scan(
		&o.ID, &o.OrderNumber, &o.Requester.ID, &o.Requester.Name,
		&o.ProductID, &o.ProductName, &o.ProductCategory,
		&o.Quantity, &selections,
		&o.Recipient.Name, &o.Recipient.Contact, &o.Recipient.Address,
		&o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Selections = map[string]string{}
	if len(selections) > 0 {
		if err := json.Unmarshal(selections, &o.Selections); err != nil {
			return nil, fmt.Errorf("decode selections of order %s: %w", o.ID, err)
		}
	}
	return o, nil
}
