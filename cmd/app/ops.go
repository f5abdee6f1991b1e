package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// op is one remote operation reachable over both transports: the JSON-RPC
// method on the unix socket and the equivalent HTTP route.
type op struct {
	rpc    string
	method string
	path   string
}

var (
	opWhoAmI = op{"auth.whoami", http.MethodGet, "/api/whoami"}
	opAudit  = op{"audit.list", http.MethodGet, "/api/audit"}

	opClientsList   = op{"clients.list", http.MethodGet, "/api/clients"}
	opClientsCreate = op{"clients.create", http.MethodPost, "/api/clients"}
	opClientsGet    = op{"clients.get", http.MethodGet, "/api/clients/%d"}
	opClientsDelete = op{"clients.delete", http.MethodDelete, "/api/clients/%d"}
	opClientsSearch = op{"clients.search", http.MethodGet, "/api/clients/search"}
	opClientsUrgent = op{"clients.urgent", http.MethodGet, "/api/clients/urgent"}
	opClientsStats  = op{"clients.stats", http.MethodGet, "/api/clients/stats"}

	opOpportunitiesList   = op{"opportunities.list", http.MethodGet, "/api/opportunities"}
	opOpportunitiesCreate = op{"opportunities.create", http.MethodPost, "/api/opportunities"}
	opOpportunitiesStage  = op{"opportunities.stage", http.MethodPut, "/api/opportunities/%d/stage"}
	opOpportunitiesDelete = op{"opportunities.delete", http.MethodDelete, "/api/opportunities/%d"}
	opOpportunitiesStats  = op{"opportunities.stats", http.MethodGet, "/api/opportunities/stats"}

	opNotesList       = op{"notes.list", http.MethodGet, "/api/notes"}
	opNotesCreate     = op{"notes.create", http.MethodPost, "/api/notes"}
	opNotesDeleteMany = op{"notes.delete_many", http.MethodPost, "/api/notes/delete"}
	opNotesStats      = op{"notes.stats", http.MethodGet, "/api/notes/stats"}

	opCarsList   = op{"cars.list", http.MethodGet, "/api/cars"}
	opCarsCreate = op{"cars.create", http.MethodPost, "/api/cars"}
	opCarsBrands = op{"cars.brands", http.MethodGet, "/api/cars/brands"}
	opCarsDelete = op{"cars.delete", http.MethodDelete, "/api/cars/%d"}
	opCarsStats  = op{"cars.stats", http.MethodGet, "/api/cars/stats"}
)

// do runs o with params. Over HTTP an "id" param fills the path, GET params
// become the query string and anything else is sent as the JSON body.
func (o op) do(ctx context.Context, cfg cliConfig, params map[string]any, out any) error {
	if params == nil {
		params = map[string]any{}
	}
	if cfg.Transport == "uds" {
		params["token"] = cfg.Token
		return newRPCClient(cfg.Socket).call(ctx, o.rpc, params, out)
	}

	path := o.path
	if id, ok := params["id"]; ok {
		path = fmt.Sprintf(o.path, id)
		delete(params, "id")
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	if o.method == http.MethodGet || o.method == http.MethodDelete {
		if q := queryString(params); q != "" {
			path += "?" + q
		}
		return client.request(ctx, o.method, path, nil, out)
	}
	return client.request(ctx, o.method, path, params, out)
}

func queryString(params map[string]any) string {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, fmt.Sprint(v))
	}
	return values.Encode()
}
