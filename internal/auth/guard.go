package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Ezrah1/orlando/internal/audit"
	"github.com/Ezrah1/orlando/internal/rbac"
	"github.com/Ezrah1/orlando/internal/shared"
)

// Verdict is the guard's decision for one request. Actor is only set
// when State is StateAuthenticated.
type Verdict struct {
	State SessionState
	Actor rbac.Actor
}

// Guard validates session authenticity before any permission check is
// meaningful. Every failure mode degrades to Anonymous; the guard never
// returns an error to request handling.
type Guard struct {
	repo    Repository
	audit   *audit.Service
	logger  *slog.Logger
	metrics SecurityMetrics
	timeout time.Duration
}

// NewGuard constructs a Guard with the given idle timeout.
func NewGuard(repo Repository, sink *audit.Service, logger *slog.Logger, timeout time.Duration) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultConfig().SessionTimeout
	}
	return &Guard{repo: repo, audit: sink, logger: logger, timeout: timeout}
}

// SetMetrics wires hijack counters into the guard.
func (g *Guard) SetMetrics(m SecurityMetrics) {
	g.metrics = m
}

// Check validates the token against the persisted session record and the
// current request's IP and user agent. An authenticated verdict also
// refreshes the idle timer.
func (g *Guard) Check(ctx context.Context, token, ip, ua string) Verdict {
	if token == "" {
		return Verdict{State: StateAnonymous}
	}

	rec, err := g.repo.FindSession(ctx, token)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			g.logger.Error("session lookup", slog.Any("error", err))
		}
		g.audit.Record(ctx, audit.Entry{
			Activity:    audit.ActivityAccessDenied,
			Description: "unknown session token",
			IP:          ip,
		})
		return Verdict{State: StateAnonymous}
	}

	// Tokens revoked out-of-band (logout elsewhere, account disabled,
	// sweep job) surface here as an inactive row.
	if !rec.IsActive || !rec.UserActive {
		return Verdict{State: StateAnonymous}
	}

	now := time.Now().UTC()
	if now.Sub(rec.LastActivity) > g.timeout {
		g.terminate(ctx, rec, audit.Entry{
			ActorID:     rec.UserID,
			Activity:    audit.ActivitySessionExpired,
			Description: "idle timeout",
			IP:          ip,
		})
		return Verdict{State: StateExpired}
	}

	if rec.IP != ip || rec.UserAgent != ua {
		if g.metrics != nil {
			g.metrics.SessionHijack()
		}
		g.terminate(ctx, rec, audit.Entry{
			ActorID:     rec.UserID,
			Activity:    audit.ActivitySessionHijacked,
			Description: "client fingerprint mismatch",
			IP:          ip,
		})
		g.audit.Record(ctx, audit.Entry{
			ActorID:     rec.UserID,
			Activity:    audit.ActivityAccessDenied,
			Description: "session hijack suspected",
			IP:          ip,
		})
		return Verdict{State: StateHijacked}
	}

	if err := g.repo.TouchSession(ctx, token, now); err != nil {
		g.logger.Warn("touch session", slog.Any("error", err))
	}
	return Verdict{
		State: StateAuthenticated,
		Actor: rbac.Actor{ID: rec.UserID, Role: rec.Role, SessionToken: token},
	}
}

func (g *Guard) terminate(ctx context.Context, rec *SessionRecord, entry audit.Entry) {
	if err := g.repo.DeactivateSession(ctx, rec.Token); err != nil {
		g.logger.Error("deactivate session", slog.Any("error", err))
	}
	g.audit.Record(ctx, entry)
}
