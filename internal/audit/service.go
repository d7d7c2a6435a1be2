package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/Ezrah1/orlando/internal/rbac"
	"github.com/Ezrah1/orlando/internal/shared"
)

// Activity types recorded by the security core.
const (
	ActivityLogin           = "login"
	ActivityLoginFailed     = "login_failed"
	ActivityLockout         = "lockout"
	ActivityLogout          = "logout"
	ActivityAccessDenied    = "access_denied"
	ActivityPermissionCheck = "permission_check"
	ActivitySessionExpired  = "session_expired"
	ActivitySessionHijacked = "session_hijacked"
)

// Entry is one immutable audit record. Entries are appended and never
// updated or deleted by request handling; only the retention job prunes.
type Entry struct {
	ID          int64
	ActorID     int64
	Activity    string
	Description string
	IP          string
	At          time.Time
}

// Repository persists and lists audit entries.
type Repository interface {
	Append(ctx context.Context, entry Entry) error
	List(ctx context.Context, filter Filter) ([]Entry, int, error)
}

// Filter narrows audit listings.
type Filter struct {
	ActorID  int64
	Activity string
	Since    time.Time
	Page     int
	PerPage  int
}

// Service is the append-only audit sink. Writes never fail the caller:
// a broken audit store is logged and swallowed, because audit loss must
// not turn into a request outage.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs the audit sink.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Record appends an entry, stamping the time when absent.
func (s *Service) Record(ctx context.Context, entry Entry) {
	if entry.Activity == "" {
		s.logger.Warn("audit entry dropped: missing activity")
		return
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger.Error("audit append", slog.String("activity", entry.Activity), slog.Any("error", err))
	}
}

// List returns entries matching the filter with pagination metadata.
func (s *Service) List(ctx context.Context, filter Filter) ([]Entry, shared.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return entries, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Resolver adapts the sink to the permission resolver's auditor contract.
type Resolver struct {
	svc *Service
}

// NewResolverAuditor wraps the sink for use by rbac.Resolver.
func NewResolverAuditor(svc *Service) *Resolver {
	return &Resolver{svc: svc}
}

// RecordDecision logs an allow decision at permission-check verbosity.
func (a *Resolver) RecordDecision(ctx context.Context, actorID int64, key rbac.GrantKey, allowed bool) {
	a.svc.Record(ctx, Entry{
		ActorID:     actorID,
		Activity:    ActivityPermissionCheck,
		Description: key.String() + " allowed",
	})
}

// RecordDenial logs a denied permission check.
func (a *Resolver) RecordDenial(ctx context.Context, actorID int64, key rbac.GrantKey, reason string) {
	a.svc.Record(ctx, Entry{
		ActorID:     actorID,
		Activity:    ActivityAccessDenied,
		Description: key.String() + ": " + reason,
	})
}
