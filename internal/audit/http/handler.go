// Package audithttp exposes the audit trail over HTTP.
package audithttp

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Ezrah1/orlando/internal/audit"
	"github.com/Ezrah1/orlando/internal/platform/httpx"
	"github.com/Ezrah1/orlando/internal/rbac"
	"github.com/Ezrah1/orlando/internal/shared"
)

// Handler serves the audit listing endpoints.
type Handler struct {
	logger  *slog.Logger
	service *audit.Service
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *audit.Service, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: mw}
}

// MountRoutes registers audit routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(rbac.ModuleAudit, rbac.ActionRead)).Get("/", h.list)
}

type entryResponse struct {
	ID          int64  `json:"id"`
	ActorID     int64  `json:"actor_id"`
	Activity    string `json:"activity"`
	Description string `json:"description"`
	IP          string `json:"ip,omitempty"`
	At          string `json:"at"`
}

type listResponse struct {
	Entries    []entryResponse   `json:"entries"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.Filter{
		Activity: q.Get("activity"),
	}
	if raw := q.Get("actor_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.ActorID = id
		}
	}
	if raw := q.Get("since"); raw != "" {
		if since, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.Since = since
		}
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		filter.Page = page
	}
	if perPage, err := strconv.Atoi(q.Get("per_page")); err == nil {
		filter.PerPage = perPage
	}

	entries, pagination, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list audit entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	resp := listResponse{Entries: make([]entryResponse, 0, len(entries)), Pagination: pagination}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, entryResponse{
			ID:          e.ID,
			ActorID:     e.ActorID,
			Activity:    e.Activity,
			Description: e.Description,
			IP:          e.IP,
			At:          e.At.UTC().Format(time.RFC3339),
		})
	}
	httpx.JSON(w, http.StatusOK, resp)
}
