package audit

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL audit repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Append inserts one entry.
func (r *PGRepository) Append(ctx context.Context, entry Entry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs (actor_id, activity, description, ip, occurred_at) VALUES ($1, $2, $3, $4, $5)`,
		entry.ActorID, entry.Activity, entry.Description, entry.IP, entry.At)
	return err
}

// List returns matching entries, newest first, plus the unpaged total.
func (r *PGRepository) List(ctx context.Context, filter Filter) ([]Entry, int, error) {
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * perPage

	const where = ` WHERE ($1 = 0 OR actor_id = $1)
		AND ($2 = '' OR activity = $2)
		AND ($3::timestamptz IS NULL OR occurred_at >= $3)`

	var since any
	if !filter.Since.IsZero() {
		since = filter.Since
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs`+where,
		filter.ActorID, filter.Activity, since).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, actor_id, activity, description, ip, occurred_at FROM audit_logs`+where+
			` ORDER BY occurred_at DESC LIMIT $4 OFFSET $5`,
		filter.ActorID, filter.Activity, since, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Activity, &e.Description, &e.IP, &e.At); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// DeleteOlderThan prunes entries outside the retention window. Used by
// the retention job, never by request handling.
func (r *PGRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
