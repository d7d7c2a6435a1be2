package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Ezrah1/orlando/internal/platform/httpx"
)

// Handler exposes permission introspection for the console: the current
// actor's flattened grants and ad hoc any/all checks used to build
// role-specific navigation.
type Handler struct {
	logger   *slog.Logger
	resolver *Resolver
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, resolver *Resolver) *Handler {
	return &Handler{logger: logger, resolver: resolver, validate: validator.New()}
}

// MountRoutes registers permission routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/effective", h.effective)
	r.Post("/check", h.check)
}

type grantResponse struct {
	Module   string `json:"module"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Allowed  bool   `json:"allowed"`
}

func (h *Handler) effective(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	grants := h.resolver.EffectiveGrants(r.Context(), actor)
	out := make([]grantResponse, 0, len(grants))
	for key, allowed := range grants {
		out = append(out, grantResponse{
			Module:   string(key.Module),
			Resource: string(key.Resource),
			Action:   string(key.Action),
			Allowed:  allowed,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role":   actor.Role,
		"grants": out,
	})
}

type checkItem struct {
	Module   string `json:"module" validate:"required"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

type checkRequest struct {
	Mode   string      `json:"mode" validate:"omitempty,oneof=any all"`
	Checks []checkItem `json:"checks" validate:"required,min=1,dive"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	var req checkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	keys := make([]GrantKey, 0, len(req.Checks))
	for _, c := range req.Checks {
		keys = append(keys, GrantKey{
			Module:   Module(c.Module),
			Resource: Resource(c.Resource),
			Action:   Action(c.Action),
		})
	}

	var allowed bool
	if req.Mode == "all" {
		allowed = h.resolver.HasAll(r.Context(), actor, keys...)
	} else {
		allowed = h.resolver.HasAny(r.Context(), actor, keys...)
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"allowed": allowed})
}
