package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists catalog data in PostgreSQL. Every query filters by
// tenant; rows from other tenants are invisible.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, tenant_id, name, sku, category, unit, is_active, created_at, updated_at`

const lotColumns = `id, tenant_id, product_id, product_name, code, supplier, received_date, available_qty, unit_price, cost_price, created_at, updated_at`

func (r *Repository) CreateProduct(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO products (tenant_id, name, sku, category, unit, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,TRUE,NOW(),NOW()) RETURNING id`, p.TenantID, p.Name, p.SKU, p.Category, p.Unit).Scan(&id)
	if err != nil {
		return 0, mapDuplicate(err)
	}
	return id, nil
}

func (r *Repository) GetProduct(ctx context.Context, tenantID, id int64) (*Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	return scanProduct(row)
}

func (r *Repository) ListProducts(ctx context.Context, tenantID int64, search string, limit, offset int) ([]Product, int, error) {
	where := `tenant_id=$1`
	args := []any{tenantID}
	if search != "" {
		where += ` AND (name ILIKE $2 OR sku ILIKE $2)`
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY name ASC LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.SKU, &p.Category, &p.Unit, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *Repository) UpdateProduct(ctx context.Context, tenantID, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	set := make([]string, 0, len(updates))
	args := []any{tenantID, id}
	for col, val := range updates {
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	query := `UPDATE products SET ` + strings.Join(set, ", ") + `, updated_at=NOW() WHERE tenant_id=$1 AND id=$2`
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) CreateLot(ctx context.Context, lot Lot) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO lots (tenant_id, product_id, product_name, code, supplier, received_date, available_qty, unit_price, cost_price, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW(),NOW()) RETURNING id`,
		lot.TenantID, lot.ProductID, lot.ProductName, lot.Code, lot.Supplier, lot.ReceivedDate, lot.AvailableQty, lot.UnitPrice, lot.CostPrice).Scan(&id)
	if err != nil {
		return 0, mapDuplicate(err)
	}
	return id, nil
}

func (r *Repository) GetLotByCode(ctx context.Context, tenantID int64, code string) (*Lot, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+lotColumns+` FROM lots WHERE tenant_id=$1 AND code=$2`, tenantID, code)
	return scanLot(row)
}

func (r *Repository) LotsByCodes(ctx context.Context, tenantID int64, codes []string) ([]Lot, error) {
	if len(codes) == 0 {
		return []Lot{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+lotColumns+` FROM lots WHERE tenant_id=$1 AND code = ANY($2)`, tenantID, codes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLots(rows)
}

func (r *Repository) ListLots(ctx context.Context, tenantID int64, req ListLotsRequest) ([]Lot, int, error) {
	where := `tenant_id=$1`
	args := []any{tenantID}
	if req.ProductID != nil {
		args = append(args, *req.ProductID)
		where += fmt.Sprintf(` AND product_id=$%d`, len(args))
	}
	if req.AvailableOnly {
		where += ` AND available_qty > 0`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM lots WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, req.Offset)
	query := fmt.Sprintf(`SELECT %s FROM lots WHERE %s ORDER BY received_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		lotColumns, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	lots, err := collectLots(rows)
	return lots, total, err
}

// AdjustLotQty shifts a lot's available quantity by delta, flooring at zero.
// The floor keeps over-allocation advisory rather than failing finalization.
func (r *Repository) AdjustLotQty(ctx context.Context, tenantID int64, code string, delta int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE lots SET available_qty = GREATEST(available_qty + $3, 0), updated_at=NOW()
WHERE tenant_id=$1 AND code=$2`, tenantID, code, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.SKU, &p.Category, &p.Unit, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanLot(row pgx.Row) (*Lot, error) {
	var lot Lot
	err := row.Scan(&lot.ID, &lot.TenantID, &lot.ProductID, &lot.ProductName, &lot.Code, &lot.Supplier, &lot.ReceivedDate,
		&lot.AvailableQty, &lot.UnitPrice, &lot.CostPrice, &lot.CreatedAt, &lot.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &lot, nil
}

func collectLots(rows pgx.Rows) ([]Lot, error) {
	lots := []Lot{}
	for rows.Next() {
		var lot Lot
		if err := rows.Scan(&lot.ID, &lot.TenantID, &lot.ProductID, &lot.ProductName, &lot.Code, &lot.Supplier, &lot.ReceivedDate,
			&lot.AvailableQty, &lot.UnitPrice, &lot.CostPrice, &lot.CreatedAt, &lot.UpdatedAt); err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

func mapDuplicate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}
	return err
}
