package http

import (
	"net/http"
	"strings"

	"github.com/atvirokodosprendimai/carcrm/internal/domain"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) handleListClients(w http.ResponseWriter, r *http.Request) {
	params, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	urgency, err := queryUrgency(r)
	if err != nil {
		writeError(w, err)
		return
	}
	filter := domain.ClientFilter{Urgency: urgency, SearchTerm: r.URL.Query().Get("q")}
	page, err := h.service.ListClients(r.Context(), principalID(r), filter, params)
	respond(w, http.StatusOK, page, err)
}

func (h *Handler) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req domain.ClientInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.service.CreateClient(r.Context(), principalID(r), req)
	respond(w, http.StatusCreated, c, err)
}

func (h *Handler) handleSearchClients(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	items, err := h.service.SearchClients(r.Context(), principalID(r), r.URL.Query().Get("q"), limit)
	respond(w, http.StatusOK, items, err)
}

func (h *Handler) handleUrgentClients(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.UrgentClients(r.Context(), principalID(r))
	respond(w, http.StatusOK, items, err)
}

func (h *Handler) handleClientStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.ClientStats(r.Context(), principalID(r))
	respond(w, http.StatusOK, stats, err)
}

func (h *Handler) handleClientsByUrgency(w http.ResponseWriter, r *http.Request) {
	urgency, err := domain.ParseUrgency(chi.URLParam(r, "urgency"))
	if err != nil {
		writeError(w, err)
		return
	}
	items, err := h.service.ClientsByUrgency(r.Context(), principalID(r), urgency)
	respond(w, http.StatusOK, items, err)
}

func (h *Handler) handleGetClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := h.service.GetClient(r.Context(), principalID(r), id)
	respond(w, http.StatusOK, c, err)
}

func (h *Handler) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req domain.ClientChanges
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.service.UpdateClient(r.Context(), principalID(r), id, req)
	respond(w, http.StatusOK, c, err)
}

type urgencyRequest struct {
	Urgency domain.Urgency `json:"urgency"`
}

func (h *Handler) handleUpdateClientUrgency(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req urgencyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.service.UpdateClientUrgency(r.Context(), principalID(r), id, req.Urgency)
	respond(w, http.StatusOK, c, err)
}

func (h *Handler) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	err = h.service.DeleteClient(r.Context(), principalID(r), id)
	respond(w, http.StatusOK, map[string]any{"ok": true}, err)
}

func (h *Handler) handleOpportunitiesByClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	items, err := h.service.OpportunitiesByClient(r.Context(), principalID(r), id)
	respond(w, http.StatusOK, items, err)
}

func (h *Handler) handleListOpportunities(w http.ResponseWriter, r *http.Request) {
	params, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var filter domain.OpportunityFilter
	if filter.Stage, err = queryStage(r); err != nil {
		writeError(w, err)
		return
	}
	if filter.Urgency, err = queryUrgency(r); err != nil {
		writeError(w, err)
		return
	}
	if filter.ClientID, err = queryID(r, "client_id"); err != nil {
		writeError(w, err)
		return
	}
	page, err := h.service.ListOpportunities(r.Context(), principalID(r), filter, params)
	respond(w, http.StatusOK, page, err)
}

func (h *Handler) handleCreateOpportunity(w http.ResponseWriter, r *http.Request) {
	var req domain.OpportunityInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	o, err := h.service.CreateOpportunity(r.Context(), principalID(r), req)
	respond(w, http.StatusCreated, o, err)
}

func (h *Handler) handleOpportunityStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.OpportunityStats(r.Context(), principalID(r))
	respond(w, http.StatusOK, stats, err)
}

func (h *Handler) handleGetOpportunity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	o, err := h.service.GetOpportunity(r.Context(), principalID(r), id)
	respond(w, http.StatusOK, o, err)
}

func (h *Handler) handleUpdateOpportunity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req domain.OpportunityChanges
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	o, err := h.service.UpdateOpportunity(r.Context(), principalID(r), id, req)
	respond(w, http.StatusOK, o, err)
}

type stageRequest struct {
	Stage domain.Stage `json:"stage"`
}

func (h *Handler) handleUpdateOpportunityStage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req stageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	o, err := h.service.UpdateOpportunityStage(r.Context(), principalID(r), id, req.Stage)
	respond(w, http.StatusOK, o, err)
}

func (h *Handler) handleDeleteOpportunity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	err = h.service.DeleteOpportunity(r.Context(), principalID(r), id)
	respond(w, http.StatusOK, map[string]any{"ok": true}, err)
}

func (h *Handler) handleNotesByOpportunity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	params, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := h.service.NotesByOpportunity(r.Context(), principalID(r), id, params)
	respond(w, http.StatusOK, page, err)
}

func (h *Handler) handleListNotes(w http.ResponseWriter, r *http.Request) {
	params, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	filter := domain.NoteFilter{SearchTerm: r.URL.Query().Get("q")}
	if filter.OpportunityID, err = queryID(r, "opportunity_id"); err != nil {
		writeError(w, err)
		return
	}
	page, err := h.service.ListNotes(r.Context(), principalID(r), filter, params)
	respond(w, http.StatusOK, page, err)
}

func (h *Handler) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req domain.NoteInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	n, err := h.service.CreateNote(r.Context(), principalID(r), req)
	respond(w, http.StatusCreated, n, err)
}

type deleteNotesRequest struct {
	IDs []int64 `json:"ids"`
}

func (h *Handler) handleDeleteNotes(w http.ResponseWriter, r *http.Request) {
	var req deleteNotesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	deleted, err := h.service.DeleteNotes(r.Context(), principalID(r), req.IDs)
	respond(w, http.StatusOK, map[string]any{"deleted": deleted}, err)
}

func (h *Handler) handleSearchNotes(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	items, err := h.service.SearchNotes(r.Context(), principalID(r), r.URL.Query().Get("q"), limit)
	respond(w, http.StatusOK, items, err)
}

func (h *Handler) handleNoteStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.NoteStats(r.Context(), principalID(r))
	respond(w, http.StatusOK, stats, err)
}

func (h *Handler) handleGetNote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	n, err := h.service.GetNote(r.Context(), principalID(r), id)
	respond(w, http.StatusOK, n, err)
}

func (h *Handler) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req domain.NoteChanges
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	n, err := h.service.UpdateNote(r.Context(), principalID(r), id, req)
	respond(w, http.StatusOK, n, err)
}

func (h *Handler) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	err = h.service.DeleteNote(r.Context(), principalID(r), id)
	respond(w, http.StatusOK, map[string]any{"ok": true}, err)
}

func (h *Handler) handleListCars(w http.ResponseWriter, r *http.Request) {
	params, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	filter := domain.CarFilter{
		Brand:      strings.TrimSpace(r.URL.Query().Get("brand")),
		SearchTerm: r.URL.Query().Get("q"),
	}
	page, err := h.service.ListCars(r.Context(), filter, params)
	respond(w, http.StatusOK, page, err)
}

func (h *Handler) handleCarBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.service.Brands(r.Context())
	respond(w, http.StatusOK, brands, err)
}

func (h *Handler) handleSearchCars(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	items, err := h.service.SearchCars(r.Context(), r.URL.Query().Get("q"), limit)
	respond(w, http.StatusOK, items, err)
}

func (h *Handler) handleCarsByBrand(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.CarsByBrand(r.Context(), chi.URLParam(r, "brand"))
	respond(w, http.StatusOK, items, err)
}

func (h *Handler) handleModelsByBrand(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ModelsByBrand(r.Context(), chi.URLParam(r, "brand"))
	respond(w, http.StatusOK, items, err)
}

func (h *Handler) handleGetCar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := h.service.GetCar(r.Context(), id)
	respond(w, http.StatusOK, c, err)
}

func (h *Handler) handleCreateCar(w http.ResponseWriter, r *http.Request) {
	var req domain.CarInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.service.CreateCar(r.Context(), principalID(r), req)
	respond(w, http.StatusCreated, c, err)
}

func (h *Handler) handleCarStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.CarStats(r.Context())
	respond(w, http.StatusOK, stats, err)
}

func (h *Handler) handleUpdateCar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req domain.CarChanges
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.service.UpdateCar(r.Context(), principalID(r), id, req)
	respond(w, http.StatusOK, c, err)
}

func (h *Handler) handleDeleteCar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	err = h.service.DeleteCar(r.Context(), principalID(r), id)
	respond(w, http.StatusOK, map[string]any{"ok": true}, err)
}
