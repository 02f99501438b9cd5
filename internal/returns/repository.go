package returns

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/profitpulse/profitpulse/internal/billing"
	"github.com/profitpulse/profitpulse/internal/platform/db"
)

// Repository persists returns in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const returnColumns = `id, tenant_id, invoice_id, invoice_number, status, type, reason, total, created_by, created_at, updated_at`

// Create inserts a draft return.
func (r *Repository) Create(ctx context.Context, ret Return) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO returns
(tenant_id, invoice_id, invoice_number, status, type, reason, total, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,'','',0,$5,NOW(),NOW()) RETURNING id`,
		ret.TenantID, ret.InvoiceID, ret.InvoiceNumber, string(StatusDraft), ret.CreatedBy).Scan(&id)
	return id, err
}

// Get loads the return and its item selections.
func (r *Repository) Get(ctx context.Context, tenantID, id int64) (*Return, error) {
	ret, err := scanReturn(r.pool.QueryRow(ctx, `SELECT `+returnColumns+` FROM returns WHERE tenant_id=$1 AND id=$2`, tenantID, id))
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT product_name, lot_code, quantity, unit_price, subtotal
FROM return_items WHERE return_id=$1 ORDER BY position ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []billing.ReturnItem{}
	for rows.Next() {
		var item billing.ReturnItem
		if err := rows.Scan(&item.ProductName, &item.LotCode, &item.Quantity, &item.UnitPrice, &item.Subtotal); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	ret.Items = items
	return ret, nil
}

// SaveDraft replaces the draft's item selections.
func (r *Repository) SaveDraft(ctx context.Context, ret *Return) error {
	return db.WithTx(ctx, r.pool, pgx.RepeatableRead, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE returns SET total=$3, updated_at=NOW()
WHERE tenant_id=$1 AND id=$2 AND status='draft'`, ret.TenantID, ret.ID, ret.Total)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM return_items WHERE return_id=$1`, ret.ID); err != nil {
			return err
		}
		for pos, item := range ret.Items {
			if _, err := tx.Exec(ctx, `INSERT INTO return_items
(return_id, position, product_name, lot_code, quantity, unit_price, subtotal)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				ret.ID, pos, item.ProductName, item.LotCode, item.Quantity, item.UnitPrice, item.Subtotal); err != nil {
				return err
			}
		}
		return nil
	})
}

// Process freezes a draft with its classification, reason and total.
func (r *Repository) Process(ctx context.Context, ret *Return) error {
	tag, err := r.pool.Exec(ctx, `UPDATE returns SET status='processed', type=$3, reason=$4, total=$5, updated_at=NOW()
WHERE tenant_id=$1 AND id=$2 AND status='draft'`,
		ret.TenantID, ret.ID, string(ret.Type), ret.Reason, ret.Total)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProcessed
	}
	return nil
}

// List returns headers matching the filter.
func (r *Repository) List(ctx context.Context, tenantID int64, req ListReturnsRequest) ([]Return, int, error) {
	where := `tenant_id=$1`
	args := []any{tenantID}
	if req.InvoiceID != nil {
		args = append(args, *req.InvoiceID)
		where += fmt.Sprintf(` AND invoice_id=$%d`, len(args))
	}
	if req.Status != nil {
		args = append(args, string(*req.Status))
		where += fmt.Sprintf(` AND status=$%d`, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM returns WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, req.Offset)
	query := fmt.Sprintf(`SELECT %s FROM returns WHERE %s ORDER BY id DESC LIMIT $%d OFFSET $%d`,
		returnColumns, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	result := []Return{}
	for rows.Next() {
		ret, err := scanReturnRow(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *ret)
	}
	return result, total, rows.Err()
}

func scanReturn(row pgx.Row) (*Return, error) {
	ret, err := scanReturnRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return ret, nil
}

func scanReturnRow(row pgx.Row) (*Return, error) {
	var ret Return
	var status, retType string
	err := row.Scan(&ret.ID, &ret.TenantID, &ret.InvoiceID, &ret.InvoiceNumber, &status, &retType,
		&ret.Reason, &ret.Total, &ret.CreatedBy, &ret.CreatedAt, &ret.UpdatedAt)
	if err != nil {
		return nil, err
	}
	ret.Status = Status(status)
	ret.Type = billing.ReturnType(retType)
	return &ret, nil
}
