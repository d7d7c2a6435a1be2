package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/Ezrah1/orlando/internal/platform/httpx"
	"github.com/Ezrah1/orlando/internal/rbac"
	"github.com/Ezrah1/orlando/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	csrf     *shared.CSRFManager
	validate *validator.Validate
	secure   bool
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, csrf *shared.CSRFManager, secure bool) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		csrf:     csrf,
		validate: validator.New(),
		secure:   secure,
	}
}

// MountRoutes registers auth routes on the provided router. Login gets a
// stricter per-IP rate limit than the global one.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))).
		Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Post("/extend", h.handleExtend)
	r.Get("/session", h.handleSession)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	UserID    int64  `json:"user_id"`
	Role      string `json:"role"`
	CSRFToken string `json:"csrf_token"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	actor, err := h.service.Authenticate(r.Context(), req.Email, req.Password, clientIP(r), r.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrAccountLocked):
			httpx.RespondError(w, httpx.ErrLocked)
		case IsCredentialError(err):
			httpx.RespondError(w, httpx.ErrUnauthorized)
		default:
			h.logger.Error("login", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}

	SetSessionCookie(w, actor.SessionToken, h.secure)
	httpx.JSON(w, http.StatusOK, loginResponse{
		UserID:    actor.ID,
		Role:      actor.Role,
		CSRFToken: h.csrf.TokenFor(actor.SessionToken),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.ActorFromContext(r.Context())
	if ok {
		if err := h.service.Logout(r.Context(), actor); err != nil {
			h.logger.Warn("logout", slog.Any("error", err))
		}
	}
	clearSessionCookie(w, h.secure)
	httpx.NoContent(w)
}

func (h *Handler) handleExtend(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if err := h.service.ExtendSession(r.Context(), actor); err != nil {
		if errors.Is(err, shared.ErrSessionInvalid) {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{
		"expires_at": time.Now().UTC().Add(h.service.SessionTimeout()).Format(time.RFC3339),
	})
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.ActorFromContext(r.Context())
	if !ok {
		httpx.JSON(w, http.StatusOK, map[string]any{"state": StateAnonymous})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"state":      StateAuthenticated,
		"user_id":    actor.ID,
		"role":       actor.Role,
		"csrf_token": h.csrf.TokenFor(actor.SessionToken),
	})
}
