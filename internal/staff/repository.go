package staff

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists staff accounts in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const memberColumns = `id, tenant_id, email, name, role, password_hash, is_active, created_at, updated_at`

// Create inserts a staff account.
func (r *Repository) Create(ctx context.Context, m Member) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO staff
(tenant_id, email, name, role, password_hash, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,TRUE,NOW(),NOW()) RETURNING id`,
		m.TenantID, m.Email, m.Name, string(m.Role), m.PasswordHash).Scan(&id)
	if err != nil {
		return 0, mapDuplicate(err)
	}
	return id, nil
}

// Get loads a staff member by id.
func (r *Repository) Get(ctx context.Context, tenantID, id int64) (*Member, error) {
	return scanMember(r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM staff WHERE tenant_id=$1 AND id=$2`, tenantID, id))
}

// GetByEmail loads a staff member by email, for authentication.
func (r *Repository) GetByEmail(ctx context.Context, tenantID int64, email string) (*Member, error) {
	return scanMember(r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM staff WHERE tenant_id=$1 AND email=$2`, tenantID, email))
}

// List returns the tenant's staff.
func (r *Repository) List(ctx context.Context, tenantID int64, activeOnly bool, limit, offset int) ([]Member, int, error) {
	where := `tenant_id=$1`
	args := []any{tenantID}
	if activeOnly {
		where += ` AND is_active`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM staff WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM staff WHERE %s ORDER BY name ASC LIMIT $%d OFFSET $%d`,
		memberColumns, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	members := []Member{}
	for rows.Next() {
		m, err := scanMemberRow(rows)
		if err != nil {
			return nil, 0, err
		}
		members = append(members, *m)
	}
	return members, total, rows.Err()
}

// Update applies the given column updates.
func (r *Repository) Update(ctx context.Context, tenantID, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	set := ``
	args := []any{tenantID, id}
	for col, val := range updates {
		args = append(args, val)
		set += fmt.Sprintf(`%s=$%d, `, col, len(args))
	}
	tag, err := r.pool.Exec(ctx, `UPDATE staff SET `+set+`updated_at=NOW() WHERE tenant_id=$1 AND id=$2`, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanMember(row pgx.Row) (*Member, error) {
	m, err := scanMemberRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func scanMemberRow(row pgx.Row) (*Member, error) {
	var m Member
	var role string
	err := row.Scan(&m.ID, &m.TenantID, &m.Email, &m.Name, &role, &m.PasswordHash, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.Role = Role(role)
	return &m, nil
}

func mapDuplicate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}
	return err
}
