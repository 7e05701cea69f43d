package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promodesk/promodesk/internal/platform/db"
	"github.com/promodesk/promodesk/internal/platform/httpx"
	"github.com/promodesk/promodesk/internal/rbac"
)

// Repository defines persistence operations for user administration.
type Repository interface {
	List(ctx context.Context, req ListUsersRequest) ([]User, int, error)
	UpdateRole(ctx context.Context, id int64, role rbac.Role) (*User, error)
	SetActive(ctx context.Context, id int64, active bool) (*User, error)
	BulkUpdateRole(ctx context.Context, ids []int64, role rbac.Role) (int64, error)
	CountByStatus(ctx context.Context) (Overview, error)
	CountByRole(ctx context.Context) ([]RoleCount, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = "id, name, email, role, is_active, created_at, updated_at"

// List returns a filtered page of users plus the unpaginated total.
func (r *PGRepository) List(ctx context.Context, req ListUsersRequest) ([]User, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if req.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argPos))
		args = append(args, *req.Role)
		argPos++
	}
	if req.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argPos))
		args = append(args, *req.IsActive)
		argPos++
	}
	if req.Search != nil && *req.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+*req.Search+"%")
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM users %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("users: count: %w", err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}
	query := fmt.Sprintf(`
		SELECT %s FROM users
		%s
		ORDER BY id
		LIMIT $%d OFFSET $%d`, userColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("users: scan: %w", err)
		}
		result = append(result, *user)
	}
	return result, total, rows.Err()
}

// UpdateRole assigns a new role.
func (r *PGRepository) UpdateRole(ctx context.Context, id int64, role rbac.Role) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1
		RETURNING `+userColumns, id, role)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %d", httpx.ErrNotFound, id)
		}
		return nil, fmt.Errorf("users: update role: %w", err)
	}
	return user, nil
}

// SetActive sets the activation flag.
func (r *PGRepository) SetActive(ctx context.Context, id int64, active bool) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1
		RETURNING `+userColumns, id, active)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %d", httpx.ErrNotFound, id)
		}
		return nil, fmt.Errorf("users: set active: %w", err)
	}
	return user, nil
}

// BulkUpdateRole assigns role to every listed id inside one transaction and
// returns the number of rows touched.
func (r *PGRepository) BulkUpdateRole(ctx context.Context, ids []int64, role rbac.Role) (int64, error) {
	var modified int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE users SET role = $1, updated_at = NOW() WHERE id = ANY($2)`, role, ids)
		if err != nil {
			return fmt.Errorf("users: bulk update role: %w", err)
		}
		modified = tag.RowsAffected()
		return nil
	})
	return modified, err
}

// CountByStatus aggregates totals for the stats overview.
func (r *PGRepository) CountByStatus(ctx context.Context) (Overview, error) {
	var overview Overview
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_active),
		       COUNT(*) FILTER (WHERE NOT is_active)
		FROM users`).Scan(&overview.TotalUsers, &overview.ActiveUsers, &overview.InactiveUsers)
	if err != nil {
		return Overview{}, fmt.Errorf("users: count by status: %w", err)
	}
	return overview, nil
}

// CountByRole breaks down account counts per role.
func (r *PGRepository) CountByRole(ctx context.Context) ([]RoleCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT role, COUNT(*) FROM users GROUP BY role ORDER BY role`)
	if err != nil {
		return nil, fmt.Errorf("users: count by role: %w", err)
	}
	defer rows.Close()

	var stats []RoleCount
	for rows.Next() {
		var rc RoleCount
		if err := rows.Scan(&rc.Role, &rc.Count); err != nil {
			return nil, fmt.Errorf("users: scan role count: %w", err)
		}
		stats = append(stats, rc)
	}
	return stats, rows.Err()
}

func scanUser(row pgx.Row) (*User, error) {
	var user User
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.IsActive,
		&user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

var _ Repository = (*PGRepository)(nil)
