package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atvirokodosprendimai/carcrm/internal/application"
	"github.com/atvirokodosprendimai/carcrm/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	srv   *httptest.Server
	alice string
	bob   string
}

func newAPIFixture(t *testing.T) apiFixture {
	t.Helper()
	ctx := context.Background()
	svc := application.NewPipelineService(testutil.NewTestRepository(t), application.WithClock(testutil.FixedClock()))

	tokens := make([]string, 0, 2)
	for _, email := range []string{"alice@example.com", "bob@example.com"} {
		_, err := svc.CreatePrincipal(ctx, email, "")
		require.NoError(t, err)
		_, token, err := svc.IssueAPIToken(ctx, email, "test", nil)
		require.NoError(t, err)
		tokens = append(tokens, token)
	}

	srv := httptest.NewServer(NewRouter(svc, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return apiFixture{srv: srv, alice: tokens[0], bob: tokens[1]}
}

func (f apiFixture) do(t *testing.T, method, path, token string, body any, out any) *http.Response {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &payload)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

type idResponse struct {
	ID int64 `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func TestOwnerRoutesRequireToken(t *testing.T) {
	f := newAPIFixture(t)

	var body errorResponse
	resp := f.do(t, http.MethodGet, "/api/clients", "", nil, &body)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, body.Error)

	resp = f.do(t, http.MethodGet, "/api/clients", "wrong", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var me struct {
		Email string `json:"email"`
	}
	resp = f.do(t, http.MethodGet, "/api/whoami", f.alice, nil, &me)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice@example.com", me.Email)
}

func TestCatalogReadsArePublic(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/api/cars", "", map[string]any{"brand": "Ford", "model": "Ka"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var car idResponse
	resp = f.do(t, http.MethodPost, "/api/cars", f.alice, map[string]any{"brand": "Ford", "model": "Ka", "year": 2022}, &car)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var brands []string
	resp = f.do(t, http.MethodGet, "/api/cars/brands", "", nil, &brands)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"Ford"}, brands)

	resp = f.do(t, http.MethodGet, fmt.Sprintf("/api/cars/%d", car.ID), "", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var conflict errorResponse
	resp = f.do(t, http.MethodPost, "/api/cars", f.bob, map[string]any{"brand": "Ford", "model": "Ka", "year": 2022}, &conflict)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "this car model is already registered", conflict.Error)

	resp = f.do(t, http.MethodGet, "/api/cars/stats", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestErrorStatusMapping(t *testing.T) {
	f := newAPIFixture(t)

	var client idResponse
	resp := f.do(t, http.MethodPost, "/api/clients", f.alice, map[string]any{"name": "Jonas", "email": "jonas@example.com"}, &client)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/clients", f.alice, map[string]any{"name": "Again", "email": "jonas@example.com"}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/clients", f.alice, map[string]any{"name": "X", "urgency": "SOMEDAY"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodGet, fmt.Sprintf("/api/clients/%d", client.ID), f.bob, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/clients?limit=500", f.alice, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var opp idResponse
	resp = f.do(t, http.MethodPost, "/api/opportunities", f.alice, map[string]any{"client_id": client.ID, "car_label": "Ford Ka"}, &opp)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var conflict errorResponse
	resp = f.do(t, http.MethodDelete, fmt.Sprintf("/api/clients/%d", client.ID), f.alice, nil, &conflict)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "cannot delete client: 1 opportunities linked", conflict.Error)

	var note idResponse
	resp = f.do(t, http.MethodPost, "/api/notes", f.alice, map[string]any{"opportunity_id": opp.ID, "title": "call", "content": "called back"}, &note)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/notes/delete", f.bob, map[string]any{"ids": []int64{note.ID}}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestClientPagesCarryCursor(t *testing.T) {
	f := newAPIFixture(t)
	for i := 0; i < 3; i++ {
		resp := f.do(t, http.MethodPost, "/api/clients", f.alice, map[string]any{"name": fmt.Sprintf("c%d", i)}, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	var page struct {
		Items      []idResponse `json:"items"`
		NextCursor *int64       `json:"next_cursor"`
	}
	resp := f.do(t, http.MethodGet, "/api/clients?limit=2", f.alice, nil, &page)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, page.Items, 2)
	require.NotNil(t, page.NextCursor)

	cursor := *page.NextCursor
	page.NextCursor = nil
	resp = f.do(t, http.MethodGet, fmt.Sprintf("/api/clients?limit=2&cursor=%d", cursor), f.alice, nil, &page)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, cursor, page.Items[0].ID)
	assert.Nil(t, page.NextCursor)
}

func TestPatchDistinguishesNullFromAbsent(t *testing.T) {
	f := newAPIFixture(t)

	var client struct {
		ID    int64   `json:"id"`
		Email *string `json:"email"`
		Phone *string `json:"phone"`
	}
	resp := f.do(t, http.MethodPost, "/api/clients", f.alice, map[string]any{"name": "X", "email": "x@example.com", "phone": "+37060000000"}, &client)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	path := fmt.Sprintf("/api/clients/%d", client.ID)
	resp = f.do(t, http.MethodPatch, path, f.alice, map[string]any{"email": nil}, &client)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, client.Email)
	require.NotNil(t, client.Phone, "absent fields are left alone")
	assert.Equal(t, "+37060000000", *client.Phone)
}

func TestRequestIDIsEchoed(t *testing.T) {
	f := newAPIFixture(t)

	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/api/cars/brands", nil)
	require.NoError(t, err)
	req.Header.Set(requestIDHeader, "trace-me")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "trace-me", resp.Header.Get(requestIDHeader))

	resp = f.do(t, http.MethodGet, "/api/cars/brands", "", nil, nil)
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))
}
