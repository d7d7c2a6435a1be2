package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// DefaultGrantTTL is how long a flattened grant map stays cached before
// it is rebuilt from storage.
const DefaultGrantTTL = 15 * time.Minute

// GrantRow is a single stored grant, either role-level or a user override.
type GrantRow struct {
	Key     GrantKey
	Allowed bool
}

// Storage fetches raw grants from the persistent store.
type Storage interface {
	RoleGrants(ctx context.Context, role string) ([]GrantRow, error)
	UserOverrides(ctx context.Context, actorID int64) ([]GrantRow, error)
}

// GrantCache holds flattened grant maps keyed by (actorID, role) with a
// fixed TTL. Expiry is handled by Redis; reads past the TTL simply miss.
type GrantCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewGrantCache constructs a Redis-backed grant cache.
func NewGrantCache(client *redis.Client, ttl time.Duration) *GrantCache {
	if ttl <= 0 {
		ttl = DefaultGrantTTL
	}
	return &GrantCache{client: client, ttl: ttl}
}

func grantCacheKey(actorID int64, role string) string {
	return fmt.Sprintf("rbac:grants:%d:%s", actorID, role)
}

// Get returns the cached grant set, reporting a miss for absent or
// undecodable entries.
func (c *GrantCache) Get(ctx context.Context, actorID int64, role string) (GrantSet, bool, error) {
	payload, err := c.client.Get(ctx, grantCacheKey(actorID, role)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var encoded map[string]bool
	if err := json.Unmarshal(payload, &encoded); err != nil {
		return nil, false, nil
	}
	grants := make(GrantSet, len(encoded))
	for raw, allowed := range encoded {
		key, err := ParseGrantKey(raw)
		if err != nil {
			continue
		}
		grants[key] = allowed
	}
	return grants, true, nil
}

// Set stores the grant set under the cache TTL.
func (c *GrantCache) Set(ctx context.Context, actorID int64, role string, grants GrantSet) error {
	encoded := make(map[string]bool, len(grants))
	for key, allowed := range grants {
		encoded[key.String()] = allowed
	}
	payload, err := json.Marshal(encoded)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, grantCacheKey(actorID, role), payload, c.ttl).Err()
}

// InvalidateActor drops every cached grant map for one actor. Called when
// the actor's overrides or role assignment change.
func (c *GrantCache) InvalidateActor(ctx context.Context, actorID int64) error {
	return c.deleteByPattern(ctx, fmt.Sprintf("rbac:grants:%d:*", actorID))
}

// InvalidateRole drops every cached grant map derived from a role. Called
// when the role's grant set changes.
func (c *GrantCache) InvalidateRole(ctx context.Context, role string) error {
	return c.deleteByPattern(ctx, "rbac:grants:*:"+role)
}

func (c *GrantCache) deleteByPattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Store produces the effective, flattened grant map for an actor. It
// merges role grants, inherited grants, and user overrides, caches the
// result, and degrades to the static defaults when storage is down.
type Store struct {
	storage   Storage
	cache     *GrantCache
	hierarchy *Hierarchy
	logger    *slog.Logger
	group     singleflight.Group
}

// NewStore constructs a Store. The cache may be nil, which disables
// caching but keeps the merge semantics intact.
func NewStore(storage Storage, cache *GrantCache, hierarchy *Hierarchy, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if hierarchy == nil {
		hierarchy = DefaultHierarchy()
	}
	return &Store{storage: storage, cache: cache, hierarchy: hierarchy, logger: logger}
}

// Load returns the effective grant set for the actor. It never fails:
// a broken grant store degrades to the static per-role defaults, which
// keeps permission checks deterministic while storage recovers.
func (s *Store) Load(ctx context.Context, actorID int64, role string) GrantSet {
	if s.cache != nil {
		if grants, ok, err := s.cache.Get(ctx, actorID, role); err != nil {
			s.logger.Warn("grant cache read", slog.Any("error", err))
		} else if ok {
			return grants
		}
	}

	// Concurrent requests for the same actor collapse into one storage
	// round-trip; last-writer-wins on the cache set is acceptable for a
	// read-mostly map.
	key := grantCacheKey(actorID, role)
	result, err, _ := s.group.Do(key, func() (any, error) {
		grants, err := s.merge(ctx, actorID, role)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, actorID, role, grants); err != nil {
				s.logger.Warn("grant cache write", slog.Any("error", err))
			}
		}
		return grants, nil
	})
	if err != nil {
		s.logger.Error("load grants, falling back to defaults",
			slog.Int64("actor_id", actorID),
			slog.String("role", role),
			slog.Any("error", err))
		return DefaultGrants(role)
	}
	return result.(GrantSet).Clone()
}

// merge builds the flattened map: primary role grants first, inherited
// roles may only add allows, user overrides win unconditionally.
func (s *Store) merge(ctx context.Context, actorID int64, role string) (GrantSet, error) {
	grants := make(GrantSet)

	primary, err := s.storage.RoleGrants(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("role grants %q: %w", role, err)
	}
	for _, row := range primary {
		grants[row.Key] = row.Allowed
	}

	for _, inherited := range s.hierarchy.InheritedRoles(role) {
		rows, err := s.storage.RoleGrants(ctx, inherited)
		if err != nil {
			return nil, fmt.Errorf("inherited grants %q: %w", inherited, err)
		}
		for _, row := range rows {
			if !row.Allowed {
				continue
			}
			if _, exists := grants[row.Key]; exists {
				continue
			}
			grants[row.Key] = true
		}
	}

	overrides, err := s.storage.UserOverrides(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("user overrides %d: %w", actorID, err)
	}
	for _, row := range overrides {
		grants[row.Key] = row.Allowed
	}

	return grants, nil
}

// Invalidate drops the cached grant map for one actor.
func (s *Store) Invalidate(ctx context.Context, actorID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateActor(ctx, actorID); err != nil {
		s.logger.Warn("invalidate actor grants", slog.Int64("actor_id", actorID), slog.Any("error", err))
	}
}

// InvalidateRole drops cached grant maps for every actor holding the role.
func (s *Store) InvalidateRole(ctx context.Context, role string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateRole(ctx, role); err != nil {
		s.logger.Warn("invalidate role grants", slog.String("role", role), slog.Any("error", err))
	}
}

// Hierarchy exposes the role-inheritance table for introspection handlers.
func (s *Store) Hierarchy() *Hierarchy {
	return s.hierarchy
}
