package roles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Ezrah1/orlando/internal/platform/httpx"
	"github.com/Ezrah1/orlando/internal/rbac"
)

// Handler wires role catalogue and grant management endpoints.
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

// MountRoutes registers role routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(rbac.ModuleRoles, rbac.ActionRead)).Get("/", h.list)
	r.With(h.rbac.Require(rbac.ModuleRoles, rbac.ActionRead)).Get("/{role}/grants", h.grants)
	r.With(h.rbac.Require(rbac.ModuleRoles, rbac.ActionWrite)).Put("/{role}/grants", h.setGrants)
}

type roleResponse struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Inherits    []string `json:"inherits"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	roles := h.service.List(r.Context())
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, roleResponse{
			Name:        role.Name,
			DisplayName: role.DisplayName,
			Inherits:    role.Inherits,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type grantItem struct {
	Module   string `json:"module" validate:"required"`
	Resource string `json:"resource"`
	Action   string `json:"action" validate:"required"`
	Allowed  bool   `json:"allowed"`
}

func (h *Handler) grants(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "role")
	if !h.service.Known(role) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	rows, err := h.service.Grants(r.Context(), role)
	if err != nil {
		h.logger.Error("role grants", slog.String("role", role), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]grantItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, grantItem{
			Module:   string(row.Key.Module),
			Resource: string(row.Key.Resource),
			Action:   string(row.Key.Action),
			Allowed:  row.Allowed,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type setGrantsRequest struct {
	Grants []grantItem `json:"grants" validate:"required,dive"`
}

func (h *Handler) setGrants(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "role")
	if !h.service.Known(role) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req setGrantsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	rows := make([]rbac.GrantRow, 0, len(req.Grants))
	for _, g := range req.Grants {
		key := rbac.GrantKey{
			Module:   rbac.Module(g.Module),
			Resource: rbac.Resource(g.Resource),
			Action:   rbac.Action(g.Action),
		}.Normalize()
		if err := key.Validate(); err != nil {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
		rows = append(rows, rbac.GrantRow{Key: key, Allowed: g.Allowed})
	}
	if err := h.service.SetGrants(r.Context(), role, rows); err != nil {
		h.logger.Error("set role grants", slog.String("role", role), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
