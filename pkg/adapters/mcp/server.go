// Package mcp exposes a feedback loop as an MCP server, so agent hosts can
// read loop state and dispatch events as tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/loopkit/loopkit"
)

// Loop is the view of a feedback loop the MCP server needs. The loopkit
// Handle satisfies it.
type Loop interface {
	Snapshot() ([]byte, error)
	DispatchKind(kind string, payload map[string]any) error
	Kinds() []string
}

// Server wraps a loop and exposes it over MCP.
type Server struct {
	loop      Loop
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance for one loop.
func NewServer(loop Loop) *Server {
	s := &Server{
		loop:      loop,
		mcpServer: server.NewMCPServer("loopkit-mcp", strings.TrimSpace(loopkit.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := httpServer.ListenAndServe()
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func (s *Server) registerTools() {
	// TOOL: loop_state
	s.mcpServer.AddTool(mcp.NewTool("loop_state",
		mcp.WithDescription("Read the loop's latest committed state as JSON."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snap, err := s.loop.Snapshot()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("snapshot failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(snap)), nil
	})

	// TOOL: loop_dispatch
	dispatchTool := mcp.NewTool("loop_dispatch",
		mcp.WithDescription("Dispatch an event into the loop. The event is queued and applied asynchronously."),
		mcp.WithString("kind", mcp.Required(), mcp.Description("Registered event kind")),
		mcp.WithString("payload", mcp.Description("JSON object with the event payload (optional)")),
	)
	s.mcpServer.AddTool(dispatchTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		kind, _ := args["kind"].(string)
		if kind == "" {
			return mcp.NewToolResultError("missing event kind"), nil
		}

		payload := map[string]any{}
		if payloadStr, ok := args["payload"].(string); ok && payloadStr != "" {
			if err := json.Unmarshal([]byte(payloadStr), &payload); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid payload JSON: %v", err)), nil
			}
		}

		if err := s.loop.DispatchKind(kind, payload); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("dispatch failed: %v", err)), nil
		}
		return mcp.NewToolResultText(`{"status":"accepted"}`), nil
	})

	// TOOL: loop_kinds
	s.mcpServer.AddTool(mcp.NewTool("loop_kinds",
		mcp.WithDescription("List the event kinds this loop accepts."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, _ := json.Marshal(s.loop.Kinds())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) registerResources() {
	// EXPOSE: loopkit://state
	s.mcpServer.AddResource(mcp.NewResource("loopkit://state", "Current Loop State",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		snap, err := s.loop.Snapshot()
		if err != nil {
			return nil, fmt.Errorf("failed to read state: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "loopkit://state",
				MIMEType: "application/json",
				Text:     string(snap),
			},
		}, nil
	})
}
