package rbac

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ezrah1/orlando/internal/platform/db"
)

// PGStorage implements Storage against PostgreSQL.
type PGStorage struct {
	pool *pgxpool.Pool
}

// NewPGStorage constructs a PostgreSQL grant store.
func NewPGStorage(pool *pgxpool.Pool) *PGStorage {
	return &PGStorage{pool: pool}
}

// RoleGrants returns the role-level grants for a role.
func (s *PGStorage) RoleGrants(ctx context.Context, role string) ([]GrantRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT module, resource, action, allowed FROM role_grants WHERE role = $1`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGrantRows(rows)
}

// UserOverrides returns the per-user overrides for an actor.
func (s *PGStorage) UserOverrides(ctx context.Context, actorID int64) ([]GrantRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT module, resource, action, allowed FROM user_overrides WHERE user_id = $1`, actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGrantRows(rows)
}

// ReplaceRoleGrants swaps the full grant set for a role.
func (s *PGStorage) ReplaceRoleGrants(ctx context.Context, role string, grants []GrantRow) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_grants WHERE role = $1`, role); err != nil {
			return err
		}
		for _, row := range grants {
			if _, err := tx.Exec(ctx,
				`INSERT INTO role_grants (role, module, resource, action, allowed) VALUES ($1, $2, $3, $4, $5)`,
				role, row.Key.Module, row.Key.Resource, row.Key.Action, row.Allowed); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertUserOverride writes a single per-user override.
func (s *PGStorage) UpsertUserOverride(ctx context.Context, actorID int64, row GrantRow) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_overrides (user_id, module, resource, action, allowed)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, module, resource, action) DO UPDATE SET allowed = EXCLUDED.allowed`,
		actorID, row.Key.Module, row.Key.Resource, row.Key.Action, row.Allowed)
	return err
}

// DeleteUserOverride removes a per-user override.
func (s *PGStorage) DeleteUserOverride(ctx context.Context, actorID int64, key GrantKey) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM user_overrides WHERE user_id = $1 AND module = $2 AND resource = $3 AND action = $4`,
		actorID, key.Module, key.Resource, key.Action)
	return err
}

type pgRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanGrantRows(rows pgRows) ([]GrantRow, error) {
	var out []GrantRow
	for rows.Next() {
		var (
			module, resource, action string
			allowed                  bool
		)
		if err := rows.Scan(&module, &resource, &action, &allowed); err != nil {
			return nil, err
		}
		key := GrantKey{Module: Module(module), Resource: Resource(resource), Action: Action(action)}.Normalize()
		if err := key.Validate(); err != nil {
			continue
		}
		out = append(out, GrantRow{Key: key, Allowed: allowed})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
