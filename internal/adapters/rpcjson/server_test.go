package rpcjson

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/atvirokodosprendimai/carcrm/internal/application"
	"github.com/atvirokodosprendimai/carcrm/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	ctx := context.Background()
	svc := application.NewPipelineService(testutil.NewTestRepository(t), application.WithClock(testutil.FixedClock()))
	_, err := svc.CreatePrincipal(ctx, "alice@example.com", "Alice")
	require.NoError(t, err)
	_, token, err := svc.IssueAPIToken(ctx, "alice@example.com", "test", nil)
	require.NoError(t, err)
	return newServer(svc, zerolog.Nop()), token
}

func call(t *testing.T, s *Server, method string, params map[string]any) response {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	return s.dispatch(context.Background(), request{JSONRPC: "2.0", Method: method, Params: raw, ID: 1})
}

func TestDispatchProtocolErrors(t *testing.T) {
	s, _ := newTestServer(t)

	resp := s.dispatch(context.Background(), request{JSONRPC: "1.0", Method: "cars.brands", ID: 1})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidRequest, resp.Error.Code)

	resp = call(t, s, "cars.fly", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeNoMethod, resp.Error.Code)

	resp = s.dispatch(context.Background(), request{JSONRPC: "2.0", Method: "cars.get", Params: json.RawMessage(`{"id":"seven"}`), ID: 1})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestDispatchRequiresTokenForOwnedData(t *testing.T) {
	s, token := newTestServer(t)

	resp := call(t, s, "clients.list", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeUnauthorized, resp.Error.Code)

	resp = call(t, s, "cars.brands", nil)
	assert.Nil(t, resp.Error)

	resp = call(t, s, "auth.whoami", map[string]any{"token": token})
	require.Nil(t, resp.Error)
}

func TestDispatchMapsDomainErrors(t *testing.T) {
	s, token := newTestServer(t)

	resp := call(t, s, "clients.create", map[string]any{"token": token, "name": "Jonas", "email": "j@example.com"})
	require.Nil(t, resp.Error)

	resp = call(t, s, "clients.create", map[string]any{"token": token, "name": "Again", "email": "j@example.com"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeConflict, resp.Error.Code)
	assert.Equal(t, "a client with email j@example.com already exists", resp.Error.Message)

	resp = call(t, s, "clients.create", map[string]any{"token": token, "name": "X", "urgency": "MAYBE"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidInput, resp.Error.Code)

	resp = call(t, s, "clients.get", map[string]any{"token": token, "id": 999})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeNotFound, resp.Error.Code)

	resp = call(t, s, "notes.delete_many", map[string]any{"token": token, "ids": []int64{999}})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeForbidden, resp.Error.Code)
}

func TestUnixSocketRoundTrip(t *testing.T) {
	s, token := newTestServer(t)

	dir, err := os.MkdirTemp("", "carcrm-rpc")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	started, err := Start(filepath.Join(dir, "rpc.sock"), s.service, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = started.Close() })

	conn, err := net.DialTimeout("unix", filepath.Join(dir, "rpc.sock"), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	enc, dec := json.NewEncoder(conn), json.NewDecoder(conn)
	for _, req := range []map[string]any{
		{"jsonrpc": "2.0", "method": "cars.create", "params": map[string]any{"token": token, "brand": "Ford", "model": "Ka"}, "id": 1},
		{"jsonrpc": "2.0", "method": "cars.brands", "id": 2},
	} {
		require.NoError(t, enc.Encode(req))
	}

	var created struct {
		Result struct {
			ID int64 `json:"id"`
		} `json:"result"`
		Error *rpcError `json:"error"`
	}
	require.NoError(t, dec.Decode(&created))
	require.Nil(t, created.Error)
	assert.Positive(t, created.Result.ID)

	var brands struct {
		Result []string `json:"result"`
		ID     int      `json:"id"`
	}
	require.NoError(t, dec.Decode(&brands))
	assert.Equal(t, 2, brands.ID)
	assert.Equal(t, []string{"Ford"}, brands.Result)
}
