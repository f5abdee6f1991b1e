package rpcjson

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/carcrm/internal/application"
	"github.com/atvirokodosprendimai/carcrm/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	codeParse          = -32700
	codeInvalidRequest = -32600
	codeNoMethod       = -32601
	codeInvalidParams  = -32602

	codeInvalidInput = 40000
	codeUnauthorized = 40100
	codeForbidden    = 40300
	codeNotFound     = 40400
	codeConflict     = 40900
	codeInternal     = 50000
)

type Server struct {
	service  *application.PipelineService
	methods  map[string]method
	log      zerolog.Logger
	listener net.Listener
	path     string
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type response struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
	ID      any       `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Start listens on the unix socket at path, replacing any stale socket file.
func Start(path string, service *application.PipelineService, log zerolog.Logger) (*Server, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, err
	}

	s := newServer(service, log)
	s.listener, s.path = ln, path
	go s.serve()
	return s, nil
}

func newServer(service *application.PipelineService, log zerolog.Logger) *Server {
	s := &Server{service: service, log: log}
	s.methods = s.routes()
	return s
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Error().Err(err).Msg("rpc accept failed")
			}
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) Close() error {
	err := s.listener.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) handleConn(conn io.ReadWriteCloser) {
	defer func() { _ = conn.Close() }()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			_ = enc.Encode(failure(nil, codeParse, "parse error"))
			return
		}

		resp := s.handle(req)
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

// handle runs one call with a call-scoped logger in its context and logs
// the outcome.
func (s *Server) handle(req request) response {
	start := time.Now()
	log := s.log.With().Str("call_id", uuid.NewString()).Str("method", req.Method).Logger()
	resp := s.dispatch(log.WithContext(context.Background()), req)

	event := log.Debug()
	if resp.Error != nil {
		event = event.Int("code", resp.Error.Code)
	}
	event.Dur("duration", time.Since(start)).Msg("rpc call")
	return resp
}

func (s *Server) dispatch(ctx context.Context, req request) response {
	if req.JSONRPC != "2.0" || strings.TrimSpace(req.Method) == "" {
		return failure(req.ID, codeInvalidRequest, "invalid request")
	}
	m, ok := s.methods[req.Method]
	if !ok {
		return failure(req.ID, codeNoMethod, "method not found")
	}

	var principal domain.Principal
	if !m.public {
		var p struct {
			Token string `json:"token"`
		}
		if !decodeParams(req.Params, &p) {
			return failure(req.ID, codeInvalidParams, "invalid params")
		}
		var err error
		if principal, err = s.service.Authenticate(ctx, p.Token); err != nil {
			return s.appError(ctx, req, err)
		}
	}

	result, err := m.call(ctx, principal, req.Params)
	if err != nil {
		return s.appError(ctx, req, err)
	}
	return response{JSONRPC: "2.0", Result: result, ID: req.ID}
}

func decodeParams(raw json.RawMessage, out any) bool {
	if len(raw) == 0 {
		return true
	}
	return json.Unmarshal(raw, out) == nil
}

func failure(id any, code int, message string) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: code, Message: message}, ID: id}
}

// appError maps err onto an application error code. Anything outside the
// domain taxonomy is logged and reported without detail.
func (s *Server) appError(ctx context.Context, req request, err error) response {
	if errors.Is(err, errInvalidParams) {
		return failure(req.ID, codeInvalidParams, "invalid params")
	}
	code := codeFor(err)
	if code == codeInternal {
		zerolog.Ctx(ctx).Error().Err(err).Msg("rpc call failed")
	}
	return failure(req.ID, code, domain.Message(err))
}

func codeFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return codeInvalidInput
	case errors.Is(err, domain.ErrUnauthorized):
		return codeUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return codeForbidden
	case errors.Is(err, domain.ErrNotFound):
		return codeNotFound
	case errors.Is(err, domain.ErrConflict):
		return codeConflict
	default:
		return codeInternal
	}
}
