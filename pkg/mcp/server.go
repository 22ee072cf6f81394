package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"

	"github.com/macropower/rulecat/pkg/hook"
	"github.com/macropower/rulecat/pkg/version"
)

const shutdownTimeout = 5 * time.Second

var tracer = otel.Tracer("mcp")

// Server implements the MCP server for rulecat.
type Server struct {
	dispatcher *hook.Dispatcher
	server     *mcp.Server
	address    string
	root       string
}

// NewServer creates a new MCP server. Tool paths are resolved against root
// and may not leave it.
// An empty address serves over stdio, anything else over streamable HTTP.
func NewServer(address string, d *hook.Dispatcher, root string) (*Server, error) {
	if d == nil {
		return nil, errors.New("dispatcher is required")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %q: %w", root, err)
	}

	impl := &mcp.Implementation{
		Name:    name,
		Version: version.GetVersion(),
	}

	s := &Server{
		address:    address,
		dispatcher: d,
		root:       absRoot,
		server: mcp.NewServer(impl, &mcp.ServerOptions{
			Instructions: instructions,
		}),
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "detect_context",
		Description: "Detect the languages, frameworks, cloud providers and maturity of a project directory.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path": newPathSchema(),
			},
		},
	}, WithTracing(tracer, s.handleDetectContext))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "select_rules",
		Description: "Select the rules that best fit a request in a project directory. Returns rule paths ranked by relevance. You MUST specify the request.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"prompt": {
					Type:        "string",
					Description: "The user's request, in their own words.",
				},
				"path": newPathSchema(),
				"maxRules": {
					Type:        "integer",
					Description: "Maximum number of rules to select. Defaults to the server configuration.",
				},
			},
			Required: []string{"prompt"},
		},
	}, WithTracing(tracer, s.handleSelectRules))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_rules",
		Description: "Get the content of rules. You MUST use paths from select_rules or search_rules output EXACTLY.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"paths": {
					Type:        "array",
					Description: "The rule paths to load.",
					Items: &jsonschema.Schema{
						Type: "string",
					},
				},
			},
			Required: []string{"paths"},
		},
	}, WithTracing(tracer, s.handleGetRules))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_rules",
		Description: "Search the rule catalog by path or title.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query": {
					Type:        "string",
					Description: "Text to fuzzy-match against rule paths and titles.",
				},
				"limit": {
					Type:        "integer",
					Description: "Maximum number of results. Defaults to 10.",
				},
			},
			Required: []string{"query"},
		},
	}, WithTracing(tracer, s.handleSearchRules))
}

var errOutsideRoot = errors.New("INVALID INPUT ERROR: path must be inside the server root")

// resolve returns the absolute directory for a tool path argument. Relative
// paths are joined to the root. The result, with symlinks evaluated where it
// exists, must not leave the root.
func (s *Server) resolve(path string) (string, error) {
	dir := s.root

	switch {
	case path == "":
		return dir, nil
	case filepath.IsAbs(path):
		dir = filepath.Clean(path)
	default:
		dir = filepath.Join(s.root, path)
	}

	if !within(s.root, dir) {
		return "", fmt.Errorf("%w: %s", errOutsideRoot, path)
	}

	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		// Missing directories are detected as empty.
		return dir, nil //nolint:nilerr // Nothing to follow.
	}

	realRoot, err := filepath.EvalSymlinks(s.root)
	if err != nil {
		realRoot = s.root
	}

	if !within(realRoot, resolved) {
		return "", fmt.Errorf("%w: %s", errOutsideRoot, path)
	}

	return dir, nil
}

// within reports whether path is root or below it. Both must be clean and
// absolute.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Server returns the underlying MCP server.
func (s *Server) Server() *mcp.Server {
	return s.server
}

// Serve starts the MCP server and blocks until ctx is done or the transport
// fails.
func (s *Server) Serve(ctx context.Context) error {
	slog.InfoContext(ctx, "starting MCP server",
		slog.String("address", s.address),
		slog.String("root", s.root),
	)

	if s.address == "" {
		err := s.serveStdio(ctx)
		if err != nil {
			return fmt.Errorf("serve stdio: %w", err)
		}

		return nil
	}

	err := s.serveHTTP(ctx)
	if err != nil {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	return nil
}

func (s *Server) serveHTTP(ctx context.Context) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)

	server := &http.Server{
		Addr:    s.address,
		Handler: handler,

		ReadHeaderTimeout: 10 * time.Second,
	}

	return ListenAndServe(ctx, server)
}

func (s *Server) serveStdio(ctx context.Context) error {
	t := mcp.NewLoggingTransport(mcp.NewStdioTransport(), os.Stderr)

	err := s.server.Run(ctx, t)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP server failed: %w", err)
	}

	return nil
}

// ListenAndServe runs server until ctx is done, then shuts it down.
func ListenAndServe(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", server.Addr, err)
		}

		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			return fmt.Errorf("shutdown %s: %w", server.Addr, err)
		}

		return nil
	}
}
