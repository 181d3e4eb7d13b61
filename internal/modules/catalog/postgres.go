package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/georgemunganga/supply-backend/internal/apperr"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const productColumns = `id,category,name,description,image_ref,base_stock,option_groups,version,created_at,updated_at`

// stockColumns flattens a stock mode into the base_stock / option_groups pair.
func stockColumns(mode StockMode) (int, []byte, error) {
	switch s := mode.(type) {
	case VariantStock:
		groups, err := json.Marshal(s.Groups)
		return 0, groups, err
	case SimpleStock:
		return s.Count, nil, nil
	default:
		return 0, nil, fmt.Errorf("unknown stock mode %T", mode)
	}
}

func (r *postgresRepo) Create(ctx context.Context, p *Product) error {
	base, groups, err := stockColumns(p.Stock)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,1,$8,$9)`,
		p.ID, p.Category, p.Name, p.Description, p.ImageRef,
		base, nullableJSON(groups), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert product: %w", err)
	}
	p.Version = 1
	return nil
}

func scanProduct(scan func(...interface{}) error) (*Product, error) {
	p := &Product{}
	var base int
	var groups []byte
	err := scan(&p.ID, &p.Category, &p.Name, &p.Description, &p.ImageRef,
		&base, &groups, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	var og []OptionGroup
	if len(groups) > 0 {
		if err := json.Unmarshal(groups, &og); err != nil {
			return nil, fmt.Errorf("decode option groups of %s: %w", p.ID, err)
		}
	}
	p.Stock = ModeFor(base, og)
	return p, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id)
	p, err := scanProduct(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("product", id)
	}
	return p, err
}

func (r *postgresRepo) List(ctx context.Context, f Filter) ([]*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	args := []interface{}{}
	if f.Category != "" {
		query += ` AND category=$1`
		args = append(args, f.Category)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Update is a compare-and-set on the version column; the row is only touched
// when nobody else wrote it since p was read.
func (r *postgresRepo) Update(ctx context.Context, p *Product) error {
	base, groups, err := stockColumns(p.Stock)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET category=$1, name=$2, description=$3, image_ref=$4,
		    base_stock=$5, option_groups=$6, version=version+1, updated_at=$7
		WHERE id=$8 AND version=$9`,
		p.Category, p.Name, p.Description, p.ImageRef,
		base, nullableJSON(groups), p.UpdatedAt, p.ID, p.Version)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id=$1)`, p.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound("product", p.ID)
		}
		return ErrVersionConflict
	}
	p.Version++
	return nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("product", id)
	}
	return nil
}

// isUniqueViolation returns true when the error is a PostgreSQL unique constraint violation (code 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// nullableJSON passes JSON as text; lib/pq would otherwise send []byte as bytea.
func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
