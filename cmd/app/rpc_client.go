package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
)

const rpcDialTimeout = 5 * time.Second

// rpcClient sends one JSON-RPC 2.0 call per connection to the server socket.
type rpcClient struct {
	socket string
}

type rpcCall struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      string `json:"id"`
}

type rpcReply struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcFault       `json:"error"`
	ID     string          `json:"id"`
}

// rpcFault is an error object returned by the server. Codes at or above
// 40000 mirror HTTP statuses times one hundred.
type rpcFault struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcFault) Error() string {
	switch e.Code / 100 {
	case 400:
		return "invalid input: " + e.Message
	case 401:
		return "unauthorized: " + e.Message + " (run \"carcrm auth login\")"
	case 403:
		return "forbidden: " + e.Message
	case 404:
		return "not found: " + e.Message
	case 409:
		return "conflict: " + e.Message
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func newRPCClient(socket string) *rpcClient {
	return &rpcClient{socket: socket}
}

func (c *rpcClient) call(ctx context.Context, method string, params any, out any) error {
	dialer := net.Dialer{Timeout: rpcDialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socket)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", c.socket, err)
	}
	defer func() { _ = conn.Close() }()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	id := uuid.NewString()
	if err := json.NewEncoder(conn).Encode(rpcCall{JSONRPC: "2.0", Method: method, Params: params, ID: id}); err != nil {
		return fmt.Errorf("send %s: %w", method, err)
	}

	var reply rpcReply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return fmt.Errorf("read %s reply: %w", method, err)
	}
	if reply.Error != nil {
		return reply.Error
	}
	if reply.ID != id {
		return fmt.Errorf("%s: reply id %q does not match call %q", method, reply.ID, id)
	}
	if out == nil || len(reply.Result) == 0 {
		return nil
	}
	return json.Unmarshal(reply.Result, out)
}
