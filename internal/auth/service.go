package auth

import (
	"context"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Ezrah1/orlando/internal/audit"
	"github.com/Ezrah1/orlando/internal/rbac"
	"github.com/Ezrah1/orlando/internal/shared"
)

// legacyHashPrefix marks password hashes imported from the old console.
// They are verified once and immediately rehashed to bcrypt; this code
// path is a migration aid, not a supported scheme.
const legacyHashPrefix = "sha1$"

// Config holds the authentication policy knobs.
type Config struct {
	MaxLoginAttempts int
	LockoutWindow    time.Duration
	SessionTimeout   time.Duration
}

// DefaultConfig matches the documented policy: five failures lock the
// account, sessions expire after 30 minutes of inactivity.
func DefaultConfig() Config {
	return Config{
		MaxLoginAttempts: 5,
		LockoutWindow:    15 * time.Minute,
		SessionTimeout:   30 * time.Minute,
	}
}

// SecurityMetrics counts security-relevant outcomes. All methods must be
// safe to call on the zero value of the implementing type.
type SecurityMetrics interface {
	LoginAttempt(result string)
	SessionHijack()
}

// Service wraps authentication business rules.
type Service struct {
	repo    Repository
	audit   *audit.Service
	logger  *slog.Logger
	metrics SecurityMetrics
	cfg     Config
}

// NewService constructs a new Service.
func NewService(repo Repository, sink *audit.Service, logger *slog.Logger, cfg Config) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxLoginAttempts <= 0 {
		cfg.MaxLoginAttempts = DefaultConfig().MaxLoginAttempts
	}
	if cfg.LockoutWindow <= 0 {
		cfg.LockoutWindow = DefaultConfig().LockoutWindow
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = DefaultConfig().SessionTimeout
	}
	return &Service{repo: repo, audit: sink, logger: logger, cfg: cfg}
}

// SetMetrics wires login counters into the service.
func (s *Service) SetMetrics(m SecurityMetrics) {
	s.metrics = m
}

func (s *Service) countLogin(result string) {
	if s.metrics != nil {
		s.metrics.LoginAttempt(result)
	}
}

// SessionTimeout exposes the configured idle timeout.
func (s *Service) SessionTimeout() time.Duration {
	return s.cfg.SessionTimeout
}

// Authenticate validates credentials and issues a new session. Prior
// sessions for the user are deactivated: last login wins.
func (s *Service) Authenticate(ctx context.Context, email, password, ip, ua string) (rbac.Actor, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return rbac.Actor{}, shared.ErrInvalidCredentials
	}

	failures, err := s.repo.CountRecentFailures(ctx, email, time.Now().Add(-s.cfg.LockoutWindow))
	if err != nil {
		// Storage trouble on the lockout counter denies the login rather
		// than waving it through.
		s.logger.Error("count login failures", slog.Any("error", err))
		return rbac.Actor{}, shared.ErrInvalidCredentials
	}
	if failures >= s.cfg.MaxLoginAttempts {
		s.audit.Record(ctx, audit.Entry{
			Activity:    audit.ActivityLockout,
			Description: "login blocked for " + email,
			IP:          ip,
		})
		s.countLogin("lockout")
		return rbac.Actor{}, shared.ErrAccountLocked
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		s.recordFailure(ctx, email, ip)
		return rbac.Actor{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		s.recordFailure(ctx, email, ip)
		return rbac.Actor{}, shared.ErrInvalidCredentials
	}
	if !s.verifyPassword(ctx, user, password) {
		s.recordFailure(ctx, email, ip)
		return rbac.Actor{}, shared.ErrInvalidCredentials
	}

	if err := s.repo.RecordAttempt(ctx, email, ip, true); err != nil {
		s.logger.Warn("record login success", slog.Any("error", err))
	}
	if err := s.repo.ClearFailures(ctx, email); err != nil {
		s.logger.Warn("clear login failures", slog.Any("error", err))
	}

	now := time.Now().UTC()
	sess := Session{
		Token:        uuid.NewString(),
		UserID:       user.ID,
		IP:           ip,
		UserAgent:    ua,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		s.logger.Error("create session", slog.Any("error", err))
		return rbac.Actor{}, fmt.Errorf("auth: create session: %w", err)
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:     user.ID,
		Activity:    audit.ActivityLogin,
		Description: "login for " + email,
		IP:          ip,
	})
	s.countLogin("success")
	return rbac.Actor{ID: user.ID, Role: user.Role, SessionToken: sess.Token}, nil
}

// Logout terminates the session for the given token.
func (s *Service) Logout(ctx context.Context, actor rbac.Actor) error {
	if actor.SessionToken == "" {
		return nil
	}
	if err := s.repo.DeactivateSession(ctx, actor.SessionToken); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:  actor.ID,
		Activity: audit.ActivityLogout,
	})
	return nil
}

// ExtendSession refreshes the idle timer for an active session. Returns
// ErrSessionInvalid when the token no longer identifies one.
func (s *Service) ExtendSession(ctx context.Context, actor rbac.Actor) error {
	if actor.SessionToken == "" {
		return shared.ErrSessionInvalid
	}
	rec, err := s.repo.FindSession(ctx, actor.SessionToken)
	if err != nil || !rec.IsActive {
		return shared.ErrSessionInvalid
	}
	if err := s.repo.TouchSession(ctx, actor.SessionToken, time.Now().UTC()); err != nil {
		s.logger.Warn("extend session", slog.Any("error", err))
		return shared.ErrSessionInvalid
	}
	return nil
}

func (s *Service) recordFailure(ctx context.Context, email, ip string) {
	s.countLogin("failure")
	if err := s.repo.RecordAttempt(ctx, email, ip, false); err != nil {
		s.logger.Warn("record login failure", slog.Any("error", err))
	}
	s.audit.Record(ctx, audit.Entry{
		Activity:    audit.ActivityLoginFailed,
		Description: "failed login for " + email,
		IP:          ip,
	})
}

// verifyPassword checks the password against the stored hash. Legacy
// SHA-1 hashes verify once and are rehashed to bcrypt in place.
func (s *Service) verifyPassword(ctx context.Context, user *User, password string) bool {
	if legacy, ok := strings.CutPrefix(user.PasswordHash, legacyHashPrefix); ok {
		sum := sha1.Sum([]byte(password))
		if subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(legacy)) != 1 {
			return false
		}
		if rehashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost); err == nil {
			if err := s.repo.UpdatePasswordHash(ctx, user.ID, string(rehashed)); err != nil {
				s.logger.Warn("rehash legacy password", slog.Any("error", err))
			}
		}
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// IsCredentialError reports whether the error should surface as a plain
// "invalid credentials" response.
func IsCredentialError(err error) bool {
	return errors.Is(err, shared.ErrInvalidCredentials)
}
