package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/carcrm/internal/application"
	"github.com/atvirokodosprendimai/carcrm/internal/domain"
	"github.com/atvirokodosprendimai/carcrm/internal/pagination"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-ID"

type contextKey string

const principalKey contextKey = "principal"

type Handler struct {
	service *application.PipelineService
	log     zerolog.Logger
}

func NewRouter(service *application.PipelineService, log zerolog.Logger) http.Handler {
	h := &Handler{service: service, log: log}
	r := chi.NewRouter()
	r.Use(h.requestID, h.accessLog, middleware.Recoverer)

	r.Route("/api", func(api chi.Router) {
		// catalog reads are public
		api.Get("/cars", h.handleListCars)
		api.Get("/cars/brands", h.handleCarBrands)
		api.Get("/cars/search", h.handleSearchCars)
		api.Get("/cars/by-brand/{brand}", h.handleCarsByBrand)
		api.Get("/cars/models/{brand}", h.handleModelsByBrand)
		api.Get("/cars/{id}", h.handleGetCar)

		api.Group(func(auth chi.Router) {
			auth.Use(h.requireAuth)

			auth.Get("/whoami", h.handleWhoAmI)
			auth.Get("/audit", h.handleListAuditLogs)

			auth.Get("/clients", h.handleListClients)
			auth.Post("/clients", h.handleCreateClient)
			auth.Get("/clients/search", h.handleSearchClients)
			auth.Get("/clients/urgent", h.handleUrgentClients)
			auth.Get("/clients/stats", h.handleClientStats)
			auth.Get("/clients/by-urgency/{urgency}", h.handleClientsByUrgency)
			auth.Get("/clients/{id}", h.handleGetClient)
			auth.Patch("/clients/{id}", h.handleUpdateClient)
			auth.Put("/clients/{id}/urgency", h.handleUpdateClientUrgency)
			auth.Delete("/clients/{id}", h.handleDeleteClient)
			auth.Get("/clients/{id}/opportunities", h.handleOpportunitiesByClient)

			auth.Get("/opportunities", h.handleListOpportunities)
			auth.Post("/opportunities", h.handleCreateOpportunity)
			auth.Get("/opportunities/stats", h.handleOpportunityStats)
			auth.Get("/opportunities/{id}", h.handleGetOpportunity)
			auth.Patch("/opportunities/{id}", h.handleUpdateOpportunity)
			auth.Put("/opportunities/{id}/stage", h.handleUpdateOpportunityStage)
			auth.Delete("/opportunities/{id}", h.handleDeleteOpportunity)
			auth.Get("/opportunities/{id}/notes", h.handleNotesByOpportunity)

			auth.Get("/notes", h.handleListNotes)
			auth.Post("/notes", h.handleCreateNote)
			auth.Post("/notes/delete", h.handleDeleteNotes)
			auth.Get("/notes/search", h.handleSearchNotes)
			auth.Get("/notes/stats", h.handleNoteStats)
			auth.Get("/notes/{id}", h.handleGetNote)
			auth.Patch("/notes/{id}", h.handleUpdateNote)
			auth.Delete("/notes/{id}", h.handleDeleteNote)

			auth.Post("/cars", h.handleCreateCar)
			auth.Get("/cars/stats", h.handleCarStats)
			auth.Patch("/cars/{id}", h.handleUpdateCar)
			auth.Delete("/cars/{id}", h.handleDeleteCar)
		})
	})

	return r
}

func (h *Handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := h.log.With().Str("request_id", id).Logger().WithContext(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zerolog.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := h.authenticateRequest(r)
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, principal)))
	})
}

func (h *Handler) authenticateRequest(r *http.Request) (domain.Principal, error) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return domain.Principal{}, domain.Unauthorized("unauthorized")
	}
	return h.service.Authenticate(r.Context(), strings.TrimSpace(authHeader[7:]))
}

func principalFromContext(ctx context.Context) domain.Principal {
	p, _ := ctx.Value(principalKey).(domain.Principal)
	return p
}

func principalID(r *http.Request) domain.PrincipalID {
	return principalFromContext(r.Context()).ID
}

func (h *Handler) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, principalFromContext(r.Context()))
}

func (h *Handler) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	items, err := h.service.ListAuditLogs(r.Context(), principalID(r), limit)
	respond(w, http.StatusOK, items, err)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]any{"error": domain.Message(err)})
}

func respond(w http.ResponseWriter, status int, payload any, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, status, payload)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			return de
		}
		return domain.InvalidInput("invalid payload")
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.InvalidInput("invalid id")
	}
	return id, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.InvalidInput("invalid %s", key)
	}
	return v, nil
}

func queryID(r *http.Request, key string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, domain.InvalidInput("invalid %s", key)
	}
	return &v, nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		return pagination.Params{}, err
	}
	cursor, err := queryID(r, "cursor")
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Limit: limit, Cursor: cursor}, nil
}

func queryUrgency(r *http.Request) (*domain.Urgency, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("urgency"))
	if raw == "" {
		return nil, nil
	}
	u, err := domain.ParseUrgency(raw)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func queryStage(r *http.Request) (*domain.Stage, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("stage"))
	if raw == "" {
		return nil, nil
	}
	s, err := domain.ParseStage(raw)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
