// Package mcp exposes the tool registry over a JSON-RPC 2.0 HTTP endpoint
// speaking the MCP tool-calling methods: initialize, list_tools, call_tool.
// Tool-level failures come back as structured error results inside a 200
// response; only malformed requests produce JSON-RPC errors.
package mcp

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/besplago/gamemaster/internal/tools"
)

const protocolVersion = "2024-11-05"

// maxBodyBytes bounds a single request body.
const maxBodyBytes = 4 << 20

// Config carries the server's collaborators.
type Config struct {
	Registry *tools.Registry
	Limiter  *RateLimiter
	Logger   *slog.Logger
}

// Server is the HTTP front for the tool registry.
type Server struct {
	registry *tools.Registry
	limiter  *RateLimiter
	log      *slog.Logger
}

// NewServer builds a server. The limiter is optional.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("nil registry")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		registry: cfg.Registry,
		limiter:  cfg.Limiter,
		log:      log,
	}, nil
}

// Handler returns the HTTP mux: /healthz and the /mcp endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/mcp", s.handleMCP)
	return mux
}

func (s *Server) handleMCP(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		rw.WriteHeader(http.StatusBadRequest)
		_, _ = rw.Write([]byte("bad body"))
		return
	}
	_ = r.Body.Close()

	req, err := parseRPCRequest(body)
	if err != nil {
		writeJSON(rw, http.StatusBadRequest, rpcErr(nil, codeParseError, "bad jsonrpc request", err.Error()))
		return
	}

	session := strings.TrimSpace(r.Header.Get("X-Session-Id"))
	if session == "" {
		session = r.RemoteAddr
	}

	if isCallMethod(req.Method) && !s.limiter.Allow(session) {
		retry := s.limiter.RetryAfter(session)
		rw.Header().Set("Retry-After", strconv.Itoa(retry))
		writeJSON(rw, http.StatusTooManyRequests, rpcErr(req.ID, codeServerError, "rate limit exceeded",
			map[string]any{"code": tools.ErrRateLimit, "retryAfterSeconds": retry}))
		return
	}

	writeJSON(rw, http.StatusOK, s.dispatch(req))
}

func isCallMethod(method string) bool {
	return method == "call_tool" || method == "tools/call"
}

func (s *Server) dispatch(req rpcRequest) rpcResponse {
	switch req.Method {
	case "initialize":
		return rpcOK(req.ID, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{"listChanged": false},
			},
			"serverInfo": map[string]any{
				"name": "gamemaster",
			},
		})

	case "list_tools", "tools/list":
		return rpcOK(req.ID, map[string]any{"tools": s.registry.Descriptors()})

	case "call_tool", "tools/call":
		var p struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if len(req.Params) == 0 {
			return rpcErr(req.ID, codeInvalidParams, "missing params", nil)
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return rpcErr(req.ID, codeInvalidParams, "bad params", err.Error())
		}
		if p.Name == "" {
			return rpcErr(req.ID, codeInvalidParams, "missing tool name", nil)
		}
		if !s.registry.Known(p.Name) {
			return rpcErr(req.ID, codeMethodNotFound, "tool not found", map[string]any{"name": p.Name})
		}
		result, err := s.registry.Call(p.Name, p.Arguments)
		if err != nil {
			return rpcErr(req.ID, codeServerError, err.Error(), nil)
		}
		if result.IsError {
			s.log.Warn("tool call returned error result", "tool", p.Name)
		}
		return rpcOK(req.ID, result)

	default:
		return rpcErr(req.ID, codeMethodNotFound, "method not found", nil)
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("content-type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
