package rpcjson

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/atvirokodosprendimai/carcrm/internal/domain"
	"github.com/atvirokodosprendimai/carcrm/internal/pagination"
)

var errInvalidParams = errors.New("invalid params")

type handlerFunc func(ctx context.Context, principal domain.Principal, raw json.RawMessage) (any, error)

type method struct {
	public bool
	call   handlerFunc
}

// bind decodes the params object into P before calling fn. The token field
// shared by every request is ignored by P.
func bind[P any](fn func(ctx context.Context, principal domain.Principal, p P) (any, error)) handlerFunc {
	return func(ctx context.Context, principal domain.Principal, raw json.RawMessage) (any, error) {
		var p P
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &p); err != nil {
				var de *domain.Error
				if errors.As(err, &de) {
					return nil, de
				}
				return nil, errInvalidParams
			}
		}
		return fn(ctx, principal, p)
	}
}

type noParams struct{}

type idParams struct {
	ID int64 `json:"id"`
}

type pageParams struct {
	Limit  int    `json:"limit"`
	Cursor *int64 `json:"cursor"`
}

func (p pageParams) params() pagination.Params {
	return pagination.Params{Limit: p.Limit, Cursor: p.Cursor}
}

type searchParams struct {
	Q     string `json:"q"`
	Limit int    `json:"limit"`
}

type brandParams struct {
	Brand string `json:"brand"`
}

func (s *Server) routes() map[string]method {
	svc := s.service
	return map[string]method{
		"auth.whoami": {call: bind(func(_ context.Context, p domain.Principal, _ noParams) (any, error) {
			return p, nil
		})},
		"audit.list": {call: bind(func(ctx context.Context, p domain.Principal, in struct {
			Limit int `json:"limit"`
		}) (any, error) {
			return svc.ListAuditLogs(ctx, p.ID, in.Limit)
		})},

		"clients.list": {call: bind(func(ctx context.Context, p domain.Principal, in struct {
			pageParams
			Urgency *domain.Urgency `json:"urgency"`
			Q       string          `json:"q"`
		}) (any, error) {
			return svc.ListClients(ctx, p.ID, domain.ClientFilter{Urgency: in.Urgency, SearchTerm: in.Q}, in.params())
		})},
		"clients.create": {call: bind(func(ctx context.Context, p domain.Principal, in domain.ClientInput) (any, error) {
			return svc.CreateClient(ctx, p.ID, in)
		})},
		"clients.get": {call: bind(func(ctx context.Context, p domain.Principal, in idParams) (any, error) {
			return svc.GetClient(ctx, p.ID, in.ID)
		})},
		"clients.update": {call: bind(func(ctx context.Context, p domain.Principal, in struct {
			idParams
			domain.ClientChanges
		}) (any, error) {
			return svc.UpdateClient(ctx, p.ID, in.ID, in.ClientChanges)
		})},
		"clients.urgency": {call: bind(func(ctx context.Context, p domain.Principal, in struct {
			idParams
			Urgency domain.Urgency `json:"urgency"`
		}) (any, error) {
			return svc.UpdateClientUrgency(ctx, p.ID, in.ID, in.Urgency)
		})},
		"clients.delete": {call: bind(func(ctx context.Context, p domain.Principal, in idParams) (any, error) {
			return map[string]any{"ok": true}, svc.DeleteClient(ctx, p.ID, in.ID)
		})},
		"clients.search": {call: bind(func(ctx context.Context, p domain.Principal, in searchParams) (any, error) {
			return svc.SearchClients(ctx, p.ID, in.Q, in.Limit)
		})},
		"clients.by_urgency": {call: bind(func(ctx context.Context, p domain.Principal, in struct {
			Urgency domain.Urgency `json:"urgency"`
		}) (any, error) {
			return svc.ClientsByUrgency(ctx, p.ID, in.Urgency)
		})},
		"clients.urgent": {call: bind(func(ctx context.Context, p domain.Principal, _ noParams) (any, error) {
			return svc.UrgentClients(ctx, p.ID)
		})},
		"clients.stats": {call: bind(func(ctx context.Context, p domain.Principal, _ noParams) (any, error) {
			return svc.ClientStats(ctx, p.ID)
		})},

		"opportunities.list": {call: bind(func(ctx context.Context, p domain.Principal, in struct {
			pageParams
			Stage    *domain.Stage   `json:"stage"`
			Urgency  *domain.Urgency `json:"urgency"`
			ClientID *int64          `json:"client_id"`
		}) (any, error) {
			filter := domain.OpportunityFilter{Stage: in.Stage, Urgency: in.Urgency, ClientID: in.ClientID}
			return svc.ListOpportunities(ctx, p.ID, filter, in.params())
		})},
		"opportunities.create": {call: bind(func(ctx context.Context, p domain.Principal, in domain.OpportunityInput) (any, error) {
			return svc.CreateOpportunity(ctx, p.ID, in)
		})},
		"opportunities.get": {call: bind(func(ctx context.Context, p domain.Principal, in idParams) (any, error) {
			return svc.GetOpportunity(ctx, p.ID, in.ID)
		})},
		"opportunities.by_client": {call: bind(func(ctx context.Context, p domain.Principal, in struct {
			ClientID int64 `json:"client_id"`
		}) (any, error) {
			return svc.OpportunitiesByClient(ctx, p.ID, in.ClientID)
		})},
		"opportunities.update": {call: bind(func(ctx context.Context, p domain.Principal, in struct {
			idParams
			domain.OpportunityChanges
		}) (any, error) {
			return svc.UpdateOpportunity(ctx, p.ID, in.ID, in.OpportunityChanges)
		})},
		"opportunities.stage": {call: bind(func(ctx context.Context, p domain.Principal, in struct {
			idParams
			Stage domain.Stage `json:"stage"`
		}) (any, error) {
			return svc.UpdateOpportunityStage(ctx, p.ID, in.ID, in.Stage)
		})},
		"opportunities.delete": {call: bind(func(ctx context.Context, p domain.Principal, in idParams) (any, error) {
			return map[string]any{"ok": true}, svc.DeleteOpportunity(ctx, p.ID, in.ID)
		})},
		"opportunities.stats": {call: bind(func(ctx context.Context, p domain.Principal, _ noParams) (any, error) {
			return svc.OpportunityStats(ctx, p.ID)
		})},

		"notes.list": {call: bind(func(ctx context.Context, p domain.Principal, in struct {
			pageParams
			OpportunityID *int64 `json:"opportunity_id"`
			Q             string `json:"q"`
		}) (any, error) {
			return svc.ListNotes(ctx, p.ID, domain.NoteFilter{OpportunityID: in.OpportunityID, SearchTerm: in.Q}, in.params())
		})},
		"notes.by_opportunity": {call: bind(func(ctx context.Context, p domain.Principal, in struct {
			pageParams
			OpportunityID int64 `json:"opportunity_id"`
		}) (any, error) {
			return svc.NotesByOpportunity(ctx, p.ID, in.OpportunityID, in.params())
		})},
		"notes.create": {call: bind(func(ctx context.Context, p domain.Principal, in domain.NoteInput) (any, error) {
			return svc.CreateNote(ctx, p.ID, in)
		})},
		"notes.get": {call: bind(func(ctx context.Context, p domain.Principal, in idParams) (any, error) {
			return svc.GetNote(ctx, p.ID, in.ID)
		})},
		"notes.update": {call: bind(func(ctx context.Context, p domain.Principal, in struct {
			idParams
			domain.NoteChanges
		}) (any, error) {
			return svc.UpdateNote(ctx, p.ID, in.ID, in.NoteChanges)
		})},
		"notes.delete": {call: bind(func(ctx context.Context, p domain.Principal, in idParams) (any, error) {
			return map[string]any{"ok": true}, svc.DeleteNote(ctx, p.ID, in.ID)
		})},
		"notes.delete_many": {call: bind(func(ctx context.Context, p domain.Principal, in struct {
			IDs []int64 `json:"ids"`
		}) (any, error) {
			n, err := svc.DeleteNotes(ctx, p.ID, in.IDs)
			return map[string]any{"deleted": n}, err
		})},
		"notes.search": {call: bind(func(ctx context.Context, p domain.Principal, in searchParams) (any, error) {
			return svc.SearchNotes(ctx, p.ID, in.Q, in.Limit)
		})},
		"notes.stats": {call: bind(func(ctx context.Context, p domain.Principal, _ noParams) (any, error) {
			return svc.NoteStats(ctx, p.ID)
		})},

		"cars.list": {public: true, call: bind(func(ctx context.Context, _ domain.Principal, in struct {
			pageParams
			Brand string `json:"brand"`
			Q     string `json:"q"`
		}) (any, error) {
			return svc.ListCars(ctx, domain.CarFilter{Brand: in.Brand, SearchTerm: in.Q}, in.params())
		})},
		"cars.get": {public: true, call: bind(func(ctx context.Context, _ domain.Principal, in idParams) (any, error) {
			return svc.GetCar(ctx, in.ID)
		})},
		"cars.brands": {public: true, call: bind(func(ctx context.Context, _ domain.Principal, _ noParams) (any, error) {
			return svc.Brands(ctx)
		})},
		"cars.by_brand": {public: true, call: bind(func(ctx context.Context, _ domain.Principal, in brandParams) (any, error) {
			return svc.CarsByBrand(ctx, in.Brand)
		})},
		"cars.models": {public: true, call: bind(func(ctx context.Context, _ domain.Principal, in brandParams) (any, error) {
			return svc.ModelsByBrand(ctx, in.Brand)
		})},
		"cars.search": {public: true, call: bind(func(ctx context.Context, _ domain.Principal, in searchParams) (any, error) {
			return svc.SearchCars(ctx, in.Q, in.Limit)
		})},
		"cars.create": {call: bind(func(ctx context.Context, p domain.Principal, in domain.CarInput) (any, error) {
			return svc.CreateCar(ctx, p.ID, in)
		})},
		"cars.update": {call: bind(func(ctx context.Context, p domain.Principal, in struct {
			idParams
			domain.CarChanges
		}) (any, error) {
			return svc.UpdateCar(ctx, p.ID, in.ID, in.CarChanges)
		})},
		"cars.delete": {call: bind(func(ctx context.Context, p domain.Principal, in idParams) (any, error) {
			return map[string]any{"ok": true}, svc.DeleteCar(ctx, p.ID, in.ID)
		})},
		"cars.stats": {call: bind(func(ctx context.Context, _ domain.Principal, _ noParams) (any, error) {
			return svc.CarStats(ctx)
		})},
	}
}
