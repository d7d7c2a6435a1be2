package users

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Ezrah1/orlando/internal/platform/httpx"
	"github.com/Ezrah1/orlando/internal/rbac"
)

// Handler wires user management endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     rbac.Middleware
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: mw, validate: validator.New()}
}

// MountRoutes registers user routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(rbac.ModuleUsers, rbac.ActionRead)).Get("/", h.list)
	r.With(h.rbac.Require(rbac.ModuleUsers, rbac.ActionRead)).Get("/{id}", h.get)
	r.With(h.rbac.Require(rbac.ModuleUsers, rbac.ActionWrite)).Post("/", h.create)
	r.With(h.rbac.Require(rbac.ModuleUsers, rbac.ActionWrite)).Put("/{id}", h.update)
	r.With(h.rbac.Require(rbac.ModuleUsers, rbac.ActionWrite)).Post("/{id}/deactivate", h.deactivate)
	r.With(h.rbac.Require(rbac.ModuleUsers, rbac.ActionWrite)).Post("/{id}/activate", h.activate)

	r.With(h.rbac.Require(rbac.ModuleUsers, rbac.ActionRead)).Get("/{id}/overrides", h.overrides)
	r.With(h.rbac.Require(rbac.ModuleUsers, rbac.ActionWrite)).Put("/{id}/overrides", h.setOverride)
	r.With(h.rbac.Require(rbac.ModuleUsers, rbac.ActionWrite)).Delete("/{id}/overrides", h.removeOverride)
}

type userResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

func toResponse(u User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toResponse(u))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*user))
}

type createRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	Role     string `json:"role" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	user, err := h.service.Create(r.Context(), req.Email, req.Name, req.Role, req.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(*user))
}

type updateRequest struct {
	Name string `json:"name" validate:"required"`
	Role string `json:"role" validate:"required"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	user, err := h.service.Update(r.Context(), id, req.Name, req.Role)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*user))
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.SetActive(r.Context(), id, active); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

type overrideResponse struct {
	Module   string `json:"module"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Allowed  bool   `json:"allowed"`
}

func (h *Handler) overrides(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rows, err := h.service.Overrides(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]overrideResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, overrideResponse{
			Module:   string(row.Key.Module),
			Resource: string(row.Key.Resource),
			Action:   string(row.Key.Action),
			Allowed:  row.Allowed,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type overrideRequest struct {
	Module   string `json:"module" validate:"required"`
	Resource string `json:"resource"`
	Action   string `json:"action" validate:"required"`
	Allowed  bool   `json:"allowed"`
}

func (h *Handler) setOverride(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req overrideRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	key := rbac.GrantKey{
		Module:   rbac.Module(req.Module),
		Resource: rbac.Resource(req.Resource),
		Action:   rbac.Action(req.Action),
	}
	if err := h.service.SetOverride(r.Context(), id, key, req.Allowed); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) removeOverride(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req overrideRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	key := rbac.GrantKey{
		Module:   rbac.Module(req.Module),
		Resource: rbac.Resource(req.Resource),
		Action:   rbac.Action(req.Action),
	}
	if err := h.service.RemoveOverride(r.Context(), id, key); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return 0, false
	}
	return id, true
}
