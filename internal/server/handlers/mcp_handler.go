package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-mcp/internal/service/tools"
)

const apiKeyHeader = "X-API-Key"

// BackendFactory builds a backend bound to a caller supplied API key.
type BackendFactory func(apiKey string) (tools.Backend, error)

// ServerBuilder wraps a backend in an MCP server.
type ServerBuilder func(backend tools.Backend) *mcp.Server

// MCPHandler serves the streamable HTTP transport. Each request gets a server bound
// either to the caller's API key or to the process-wide backend.
type MCPHandler struct {
	fallback   tools.Backend
	newBackend BackendFactory
	build      ServerBuilder
	stream     http.Handler
	logger     *zap.Logger
}

// NewMCPHandler constructs the handler. fallback may be nil when the process has no
// backend credentials of its own; requests must then carry an API key.
func NewMCPHandler(fallback tools.Backend, newBackend BackendFactory, build ServerBuilder, logger *zap.Logger) *MCPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &MCPHandler{fallback: fallback, newBackend: newBackend, build: build, logger: logger}
	h.stream = mcp.NewStreamableHTTPHandler(h.serverFor, &mcp.StreamableHTTPOptions{Stateless: true})
	return h
}

// Serve hands the request to the MCP transport.
func (h *MCPHandler) Serve(c *gin.Context) {
	h.stream.ServeHTTP(c.Writer, c.Request)
}

// serverFor returns nil when no credentials are available, which the transport answers with 400.
func (h *MCPHandler) serverFor(r *http.Request) *mcp.Server {
	if key := apiKeyFromRequest(r); key != "" && h.newBackend != nil {
		backend, err := h.newBackend(key)
		if err != nil {
			h.logger.Warn("rejecting request api key", zap.Error(err))
			return nil
		}
		return h.build(backend)
	}

	if h.fallback == nil {
		h.logger.Warn("mcp request without credentials", zap.String("remote_addr", r.RemoteAddr))
		return nil
	}
	return h.build(h.fallback)
}

func apiKeyFromRequest(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(apiKeyHeader)); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
