package items

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promodesk/promodesk/internal/platform/httpx"
)

// Repository defines persistence operations for items and the orphaned
// artifact queue.
type Repository interface {
	Get(ctx context.Context, id int64) (*Item, error)
	List(ctx context.Context, req ListItemsRequest) ([]Item, int, error)
	Create(ctx context.Context, item Item) (*Item, error)
	Update(ctx context.Context, id int64, updates map[string]any) (*Item, error)
	SetActive(ctx context.Context, id int64, active bool, updatedBy int64) error
	DeactivateByOwner(ctx context.Context, ownerID int64) (int64, error)
	EnqueueOrphan(ctx context.Context, storageKey string) error
	ListOrphans(ctx context.Context, limit int) ([]Orphan, error)
	DeleteOrphan(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const itemColumns = "id, image, start_date, end_date, note, created_by, updated_by, is_active, created_at, updated_at"

// Get fetches an item by id. Soft-deleted items remain reachable here; only
// listings filter on the active flag.
func (r *PGRepository) Get(ctx context.Context, id int64) (*Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: item %d", httpx.ErrNotFound, id)
		}
		return nil, fmt.Errorf("items: get: %w", err)
	}
	return item, nil
}

// List returns a page of items plus the unpaginated total.
func (r *PGRepository) List(ctx context.Context, req ListItemsRequest) ([]Item, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if req.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}
	if req.CreatedBy != nil {
		conditions = append(conditions, fmt.Sprintf("created_by = $%d", argPos))
		args = append(args, *req.CreatedBy)
		argPos++
	}
	if req.Search != nil && *req.Search != "" {
		conditions = append(conditions, fmt.Sprintf("note ILIKE $%d", argPos))
		args = append(args, "%"+*req.Search+"%")
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM items %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("items: count: %w", err)
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
		SELECT %s FROM items
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, itemColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("items: list: %w", err)
	}
	defer rows.Close()

	var result []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("items: scan: %w", err)
		}
		result = append(result, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("items: rows: %w", err)
	}
	return result, total, nil
}

// Create inserts a new item.
func (r *PGRepository) Create(ctx context.Context, item Item) (*Item, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO items (image, start_date, end_date, note, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+itemColumns,
		item.Image, item.StartDate, item.EndDate, item.Note, item.CreatedBy)
	created, err := scanItem(row)
	if err != nil {
		return nil, fmt.Errorf("items: create: %w", err)
	}
	return created, nil
}

// Update applies a partial column update and returns the resulting row.
func (r *PGRepository) Update(ctx context.Context, id int64, updates map[string]any) (*Item, error) {
	query := "UPDATE items SET updated_at = NOW()"
	var args []any
	argPos := 1

	for _, column := range []string{"image", "start_date", "end_date", "note", "updated_by"} {
		if v, ok := updates[column]; ok {
			query += fmt.Sprintf(", %s = $%d", column, argPos)
			args = append(args, v)
			argPos++
		}
	}

	query += fmt.Sprintf(" WHERE id = $%d RETURNING %s", argPos, itemColumns)
	args = append(args, id)

	item, err := scanItem(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: item %d", httpx.ErrNotFound, id)
		}
		return nil, fmt.Errorf("items: update: %w", err)
	}
	return item, nil
}

// SetActive flips the soft-delete flag.
func (r *PGRepository) SetActive(ctx context.Context, id int64, active bool, updatedBy int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE items SET is_active = $2, updated_by = $3, updated_at = NOW() WHERE id = $1`,
		id, active, updatedBy)
	if err != nil {
		return fmt.Errorf("items: set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: item %d", httpx.ErrNotFound, id)
	}
	return nil
}

// DeactivateByOwner soft-deletes every active item created by ownerID and
// returns the number touched. Used by the user-deletion cascade.
func (r *PGRepository) DeactivateByOwner(ctx context.Context, ownerID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE items SET is_active = FALSE, updated_at = NOW()
		WHERE created_by = $1 AND is_active = TRUE`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("items: deactivate by owner: %w", err)
	}
	return tag.RowsAffected(), nil
}

// EnqueueOrphan records a storage key whose direct deletion failed so the
// sweep worker can retry it.
func (r *PGRepository) EnqueueOrphan(ctx context.Context, storageKey string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO image_orphans (storage_key) VALUES ($1) ON CONFLICT DO NOTHING`, storageKey)
	if err != nil {
		return fmt.Errorf("items: enqueue orphan: %w", err)
	}
	return nil
}

// ListOrphans returns the oldest queued orphans.
func (r *PGRepository) ListOrphans(ctx context.Context, limit int) ([]Orphan, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, storage_key, created_at FROM image_orphans ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("items: list orphans: %w", err)
	}
	defer rows.Close()

	var orphans []Orphan
	for rows.Next() {
		var o Orphan
		if err := rows.Scan(&o.ID, &o.StorageKey, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("items: scan orphan: %w", err)
		}
		orphans = append(orphans, o)
	}
	return orphans, rows.Err()
}

// DeleteOrphan removes a swept entry from the queue.
func (r *PGRepository) DeleteOrphan(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM image_orphans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("items: delete orphan: %w", err)
	}
	return nil
}

func scanItem(row pgx.Row) (*Item, error) {
	var item Item
	if err := row.Scan(&item.ID, &item.Image, &item.StartDate, &item.EndDate, &item.Note,
		&item.CreatedBy, &item.UpdatedBy, &item.IsActive, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	return &item, nil
}

var _ Repository = (*PGRepository)(nil)
