package invoices

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/profitpulse/profitpulse/internal/billing"
	"github.com/profitpulse/profitpulse/internal/platform/db"
)

// Repository persists invoices in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const invoiceColumns = `id, tenant_id, number, customer_id, customer_name, customer_contact, customer_address,
date, due_date, payment_terms, status, payment_status, discount_type, discount_value,
subtotal, discount_amount, tax_total, grand_total, created_by, created_at, updated_at`

// Create inserts a draft invoice and assigns its document number.
func (r *Repository) Create(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, pgx.RepeatableRead, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO invoices
(tenant_id, customer_id, customer_name, customer_contact, customer_address, date, due_date, payment_terms,
 status, payment_status, discount_type, discount_value, subtotal, discount_amount, tax_total, grand_total,
 created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,0,0,0,0,$13,NOW(),NOW()) RETURNING id`,
			inv.TenantID, inv.CustomerID, inv.CustomerName, inv.CustomerContact, inv.CustomerAddress,
			inv.Date, inv.DueDate, inv.PaymentTerms, string(StatusDraft), string(PaymentUnpaid),
			string(inv.DiscountType), inv.DiscountValue, inv.CreatedBy).Scan(&id)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE invoices SET number=$2 WHERE id=$1`, id, fmt.Sprintf("INV-%06d", id))
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Get loads the invoice header and its items in stored order.
func (r *Repository) Get(ctx context.Context, tenantID, id int64) (*Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE tenant_id=$1 AND id=$2`, tenantID, id))
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT product_name, lot_code, quantity, unit_price, tax_rate, subtotal, line_tax, line_total
FROM invoice_items WHERE invoice_id=$1 ORDER BY position ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []billing.LineItem{}
	for rows.Next() {
		var item billing.LineItem
		if err := rows.Scan(&item.ProductName, &item.LotCode, &item.Quantity, &item.UnitPrice, &item.TaxRate,
			&item.Subtotal, &item.LineTax, &item.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	inv.Items = items
	return inv, nil
}

// SaveDraft replaces the invoice's items, discount and totals in one
// transaction. Callers must have recomputed totals through the engine first.
func (r *Repository) SaveDraft(ctx context.Context, inv *Invoice) error {
	return db.WithTx(ctx, r.pool, pgx.RepeatableRead, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE invoices SET discount_type=$3, discount_value=$4,
subtotal=$5, discount_amount=$6, tax_total=$7, grand_total=$8, updated_at=NOW()
WHERE tenant_id=$1 AND id=$2 AND status='draft'`,
			inv.TenantID, inv.ID, string(inv.DiscountType), inv.DiscountValue,
			inv.Subtotal, inv.DiscountAmount, inv.TaxTotal, inv.GrandTotal)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id=$1`, inv.ID); err != nil {
			return err
		}
		for pos, item := range inv.Items {
			if _, err := tx.Exec(ctx, `INSERT INTO invoice_items
(invoice_id, position, product_name, lot_code, quantity, unit_price, tax_rate, subtotal, line_tax, line_total)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
				inv.ID, pos, item.ProductName, item.LotCode, item.Quantity, item.UnitPrice, item.TaxRate,
				item.Subtotal, item.LineTax, item.LineTotal); err != nil {
				return err
			}
		}
		return nil
	})
}

// Finalize freezes a draft and stores its settled totals.
func (r *Repository) Finalize(ctx context.Context, inv *Invoice) error {
	tag, err := r.pool.Exec(ctx, `UPDATE invoices SET status='final',
subtotal=$3, discount_amount=$4, tax_total=$5, grand_total=$6, updated_at=NOW()
WHERE tenant_id=$1 AND id=$2 AND status='draft'`,
		inv.TenantID, inv.ID, inv.Subtotal, inv.DiscountAmount, inv.TaxTotal, inv.GrandTotal)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrImmutable
	}
	return nil
}

// SetPaymentStatus transitions the settlement state.
func (r *Repository) SetPaymentStatus(ctx context.Context, tenantID, id int64, status PaymentStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE invoices SET payment_status=$3, updated_at=NOW() WHERE tenant_id=$1 AND id=$2`,
		tenantID, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns invoice headers matching the filter.
func (r *Repository) List(ctx context.Context, tenantID int64, req ListInvoicesRequest) ([]Invoice, int, error) {
	where := `tenant_id=$1`
	args := []any{tenantID}
	add := func(clause string, val any) {
		args = append(args, val)
		where += fmt.Sprintf(clause, len(args))
	}
	if req.CustomerID != nil {
		add(` AND customer_id=$%d`, *req.CustomerID)
	}
	if req.Status != nil {
		add(` AND status=$%d`, string(*req.Status))
	}
	if req.PaymentStatus != nil {
		add(` AND payment_status=$%d`, string(*req.PaymentStatus))
	}
	if req.DateFrom != nil {
		add(` AND date >= $%d`, *req.DateFrom)
	}
	if req.DateTo != nil {
		add(` AND date <= $%d`, *req.DateTo)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, req.Offset)
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE %s ORDER BY date DESC, id DESC LIMIT $%d OFFSET $%d`,
		invoiceColumns, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	result := []Invoice{}
	for rows.Next() {
		inv, err := scanInvoiceRow(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *inv)
	}
	return result, total, rows.Err()
}

// MarkOverdue flips unpaid final invoices past their due date, across all
// tenants. Used by the nightly scan job.
func (r *Repository) MarkOverdue(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE invoices SET payment_status='overdue', updated_at=NOW()
WHERE status='final' AND payment_status='unpaid' AND due_date IS NOT NULL AND due_date < NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Summary aggregates dashboard counters for a tenant.
func (r *Repository) Summary(ctx context.Context, tenantID int64) (Summary, error) {
	var s Summary
	err := r.pool.QueryRow(ctx, `SELECT
COUNT(*) FILTER (WHERE status='draft'),
COUNT(*) FILTER (WHERE status='final'),
COUNT(*) FILTER (WHERE status='final' AND payment_status='unpaid'),
COUNT(*) FILTER (WHERE payment_status='overdue'),
COALESCE(SUM(grand_total) FILTER (WHERE payment_status='paid'), 0),
COALESCE(SUM(grand_total) FILTER (WHERE status='final' AND payment_status<>'paid'), 0)
FROM invoices WHERE tenant_id=$1`, tenantID).
		Scan(&s.DraftCount, &s.FinalCount, &s.UnpaidCount, &s.OverdueCount, &s.PaidRevenue, &s.OpenRevenue)
	return s, err
}

// TenantIDs lists tenants with at least one invoice, for cache warmup.
func (r *Repository) TenantIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT tenant_id FROM invoices ORDER BY tenant_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	inv, err := scanInvoiceRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func scanInvoiceRow(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var status, payStatus, discountType string
	err := row.Scan(&inv.ID, &inv.TenantID, &inv.Number, &inv.CustomerID, &inv.CustomerName, &inv.CustomerContact,
		&inv.CustomerAddress, &inv.Date, &inv.DueDate, &inv.PaymentTerms, &status, &payStatus,
		&discountType, &inv.DiscountValue, &inv.Subtotal, &inv.DiscountAmount, &inv.TaxTotal, &inv.GrandTotal,
		&inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	inv.Status = Status(status)
	inv.PaymentStatus = PaymentStatus(payStatus)
	inv.DiscountType = billing.DiscountType(discountType)
	return &inv, nil
}
