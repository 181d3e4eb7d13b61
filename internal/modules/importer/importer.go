// Package importer loads catalog products in bulk from wide-form rows.
//
// A batch is validated in full before anything is written: one bad row
// rejects the whole batch. Rows are then written one at a time. A store
// failure stops the batch and the returned *ImportError lists the rows that
// were already saved. Rows carrying an id are idempotent, so the same batch
// can be re-submitted after a partial failure and the saved rows are skipped.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/georgemunganga/supply-backend/internal/apperr"
	"github.com/georgemunganga/supply-backend/internal/modules/catalog"
	"github.com/georgemunganga/supply-backend/internal/modules/stock"
)

// ImportError is a row-scoped failure of a bulk import. For validation
// failures Committed is empty; for persistence failures it lists the rows
// written before the failing one.
type ImportError struct {
	Row       int    `json:"row"`
	Field     string `json:"field,omitempty"`
	Committed []int  `json:"committed"`
	Err       error  `json:"-"`
}

func (e *ImportError) Error() string {
	if len(e.Committed) == 0 {
		return fmt.Sprintf("import failed at row %d: %v; nothing was saved", e.Row, e.Err)
	}
	return fmt.Sprintf("import failed at row %d: %v; rows %v were already saved", e.Row, e.Err, e.Committed)
}

func (e *ImportError) Unwrap() error { return e.Err }

// Kind is KindImport for bad rows. A store failure while writing is
// KindUnavailable: the data was fine and the batch can be re-submitted.
func (e *ImportError) Kind() apperr.Kind {
	var ve *apperr.ValidationError
	if !errors.As(e.Err, &ve) {
		return apperr.KindUnavailable
	}
	return apperr.KindImport
}

// RowResult reports what happened to one row.
type RowResult struct {
	Row       int    `json:"row"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
}

// Result summarises a successful import.
type Result struct {
	Created []RowResult `json:"created"`
	// Skipped rows carried an id that already exists in the catalog.
	Skipped []RowResult `json:"skipped"`
}

// Importer validates and persists wide-form rows.
type Importer struct {
	repo       catalog.Repository
	ledger     *stock.Ledger
	categories catalog.Categories
	logger     *zap.Logger
	now        func() time.Time
}

// NewImporter creates an importer writing to repo.
func NewImporter(repo catalog.Repository, ledger *stock.Ledger, categories catalog.Categories, logger *zap.Logger) *Importer {
	if len(categories) == 0 {
		categories = catalog.DefaultCategories
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		repo:       repo,
		ledger:     ledger,
		categories: categories,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Validate decodes and checks every row without writing anything. The first
// failure is returned as an *ImportError naming the row and field. Rows are
// numbered by their 1-based position in the batch.
func (im *Importer) Validate(rows []Row) ([]*catalog.Product, error) {
	return im.validate(rows, positions(len(rows)))
}

// ValidateSheet is Validate for a decoded CSV; rows are numbered by their
// line in the file.
func (im *Importer) ValidateSheet(s *Sheet) ([]*catalog.Product, error) {
	return im.validate(s.Rows, s.Lines)
}

// Import validates the whole batch, then writes it row by row.
func (im *Importer) Import(ctx context.Context, rows []Row) (*Result, error) {
	return im.importRows(ctx, rows, positions(len(rows)))
}

// ImportSheet is Import for a decoded CSV; results and errors carry file
// line numbers.
func (im *Importer) ImportSheet(ctx context.Context, s *Sheet) (*Result, error) {
	return im.importRows(ctx, s.Rows, s.Lines)
}

func (im *Importer) validate(rows []Row, nums []int) ([]*catalog.Product, error) {
	if len(rows) == 0 {
		return nil, apperr.Invalid("rows", "batch is empty")
	}
	products := make([]*catalog.Product, 0, len(rows))
	ids := make(map[string]int, len(rows))
	for i, row := range rows {
		num := nums[i]
		p, err := decodeRow(num, row, im.categories)
		if err != nil {
			return nil, asImportError(num, err)
		}
		if err := im.ledger.ValidateLayout(p.Stock); err != nil {
			return nil, asImportError(num, err)
		}
		if p.ID != "" {
			if first, dup := ids[p.ID]; dup {
				return nil, asImportError(num, rowError(num, ColID, fmt.Sprintf("id %q already used by row %d", p.ID, first)))
			}
			ids[p.ID] = num
		}
		products = append(products, p)
	}
	return products, nil
}

func (im *Importer) importRows(ctx context.Context, rows []Row, nums []int) (*Result, error) {
	products, err := im.validate(rows, nums)
	if err != nil {
		return nil, err
	}

	res := &Result{Created: []RowResult{}, Skipped: []RowResult{}}
	var committed []int
	for i, p := range products {
		num := nums[i]
		now := im.now()
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		p.CreatedAt, p.UpdatedAt = now, now

		err := im.repo.Create(ctx, p)
		switch {
		case err == nil:
			res.Created = append(res.Created, RowResult{Row: num, ProductID: p.ID, Name: p.Name})
		case errors.Is(err, catalog.ErrAlreadyExists):
			res.Skipped = append(res.Skipped, RowResult{Row: num, ProductID: p.ID, Name: p.Name})
		default:
			im.logger.Error("catalog import stopped",
				zap.Int("row", num),
				zap.Ints("committed_rows", committed),
				zap.Error(err))
			return res, &ImportError{Row: num, Committed: committed, Err: err}
		}
		committed = append(committed, num)
	}

	im.logger.Info("catalog import finished",
		zap.Int("rows", len(rows)),
		zap.Int("created", len(res.Created)),
		zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

func positions(n int) []int {
	nums := make([]int, n)
	for i := range nums {
		nums[i] = i + 1
	}
	return nums
}

func asImportError(num int, err error) *ImportError {
	ie := &ImportError{Row: num, Err: err}
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		if ve.Row == 0 {
			ve.Row = num
		}
		ie.Field = ve.Field
	}
	return ie
}
