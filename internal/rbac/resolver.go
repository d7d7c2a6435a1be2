package rbac

import (
	"context"
	"log/slog"
)

// DecisionAuditor receives the resolver's security-relevant outcomes.
// Denials are always reported; allow decisions only when the resolver is
// configured to audit them.
type DecisionAuditor interface {
	RecordDecision(ctx context.Context, actorID int64, key GrantKey, allowed bool)
	RecordDenial(ctx context.Context, actorID int64, key GrantKey, reason string)
}

// DecisionMetrics counts permission outcomes for observability.
type DecisionMetrics interface {
	PermissionCheck(module string, allowed bool)
}

// Resolver answers point permission queries and the any/all combinators.
// It never returns an error: every failure path resolves to deny.
type Resolver struct {
	store          *Store
	auditor        DecisionAuditor
	metrics        DecisionMetrics
	logger         *slog.Logger
	auditDecisions bool
}

// ResolverOption customises a Resolver.
type ResolverOption func(*Resolver)

// WithAuditor wires an audit sink into the resolver.
func WithAuditor(a DecisionAuditor) ResolverOption {
	return func(r *Resolver) { r.auditor = a }
}

// WithMetrics wires decision counters into the resolver.
func WithMetrics(m DecisionMetrics) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

// WithDecisionAudit records every decision, not just denials.
func WithDecisionAudit(enabled bool) ResolverOption {
	return func(r *Resolver) { r.auditDecisions = enabled }
}

// NewResolver constructs a Resolver over the given grant store.
func NewResolver(store *Store, logger *slog.Logger, opts ...ResolverOption) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{store: store, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HasPermission reports whether the actor may perform the keyed action.
// Resolution order: super_admin bypass, exact grant, wildcard-resource
// grant, static default (exact then wildcard), deny.
func (r *Resolver) HasPermission(ctx context.Context, actor Actor, key GrantKey) bool {
	key = key.Normalize()
	if err := key.Validate(); err != nil {
		r.deny(ctx, actor, key, "malformed permission key")
		return false
	}
	if actor.IsSuperAdmin() {
		r.allow(ctx, actor, key)
		return true
	}
	if actor.ID == 0 {
		r.deny(ctx, actor, key, "anonymous actor")
		return false
	}

	grants := r.store.Load(ctx, actor.ID, actor.Role)
	if allowed, ok := lookup(grants, key); ok {
		r.outcome(ctx, actor, key, allowed, "grant")
		return allowed
	}
	if allowed, ok := lookup(DefaultGrants(actor.Role), key); ok {
		r.outcome(ctx, actor, key, allowed, "default")
		return allowed
	}

	r.deny(ctx, actor, key, "no matching grant")
	return false
}

// HasAny reports whether at least one of the checks passes. Evaluation
// short-circuits on the first allow.
func (r *Resolver) HasAny(ctx context.Context, actor Actor, keys ...GrantKey) bool {
	for _, key := range keys {
		if r.HasPermission(ctx, actor, key) {
			return true
		}
	}
	return false
}

// HasAll reports whether every check passes. Evaluation short-circuits
// on the first deny. An empty list passes vacuously.
func (r *Resolver) HasAll(ctx context.Context, actor Actor, keys ...GrantKey) bool {
	for _, key := range keys {
		if !r.HasPermission(ctx, actor, key) {
			return false
		}
	}
	return true
}

// EffectiveGrants exposes the actor's flattened grant map for the
// introspection endpoint.
func (r *Resolver) EffectiveGrants(ctx context.Context, actor Actor) GrantSet {
	if actor.ID == 0 {
		return GrantSet{}
	}
	return r.store.Load(ctx, actor.ID, actor.Role)
}

func lookup(grants GrantSet, key GrantKey) (bool, bool) {
	if allowed, ok := grants[key]; ok {
		return allowed, true
	}
	if !key.Resource.IsWildcard() {
		wildcard := GrantKey{Module: key.Module, Resource: ResourceAny, Action: key.Action}
		if allowed, ok := grants[wildcard]; ok {
			return allowed, true
		}
	}
	return false, false
}

func (r *Resolver) allow(ctx context.Context, actor Actor, key GrantKey) {
	r.outcome(ctx, actor, key, true, "super_admin")
}

func (r *Resolver) deny(ctx context.Context, actor Actor, key GrantKey, reason string) {
	if r.metrics != nil {
		r.metrics.PermissionCheck(string(key.Module), false)
	}
	if r.auditor != nil {
		r.auditor.RecordDenial(ctx, actor.ID, key, reason)
	}
}

func (r *Resolver) outcome(ctx context.Context, actor Actor, key GrantKey, allowed bool, source string) {
	if !allowed {
		r.deny(ctx, actor, key, "denied by "+source)
		return
	}
	if r.metrics != nil {
		r.metrics.PermissionCheck(string(key.Module), true)
	}
	if r.auditDecisions && r.auditor != nil {
		r.auditor.RecordDecision(ctx, actor.ID, key, true)
	}
}
