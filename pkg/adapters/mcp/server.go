// Package mcp exposes the flow engine as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/aretw0/intake/pkg/sanitizer"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// TurnResponse is the structured output of start_flow and flow_turn.
type TurnResponse struct {
	SessionID       string          `json:"session_id" jsonschema_description:"The session the turn was applied to"`
	Message         string          `json:"message" jsonschema_description:"Text to show to the user"`
	CurrentStep     domain.Step     `json:"current_step" jsonschema_description:"Step the session now waits at"`
	NextStep        domain.Step     `json:"next_step,omitempty"`
	ValidationError string          `json:"validation_error,omitempty"`
	IsComplete      bool            `json:"is_complete" jsonschema_description:"True once the summary was produced"`
	Summary         *domain.Summary `json:"summary,omitempty"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
}

// Server wraps the flow engine and exposes it as an MCP Server.
type Server struct {
	engine    ports.FlowEngine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine ports.FlowEngine, version string, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("intake-mcp", version, server.WithToolCapabilities(false)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		errs <- sse.Start(addr)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_flow",
		mcp.WithDescription("Start a new intake session and return the first question."),
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("flow_turn",
		mcp.WithDescription("Send the user's answer to an intake session. An empty message repeats the pending question."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID returned by start_flow")),
		mcp.WithString("message", mcp.Description("The user's answer")),
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleTurn))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get the stored record of an intake session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	), s.handleGetSession)
}

func toResponse(id string, res *domain.Result) TurnResponse {
	return TurnResponse{
		SessionID:       id,
		Message:         res.Message,
		CurrentStep:     res.CurrentStep,
		NextStep:        res.NextStep,
		ValidationError: res.ValidationError,
		IsComplete:      res.IsComplete,
		Summary:         res.Summary,
		Metadata:        res.Metadata,
	}
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (TurnResponse, error) {
	id, err := s.engine.CreateSession(ctx)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("start failed: %w", err)
	}
	res, err := s.engine.ProcessTurn(ctx, id, "")
	if err != nil {
		return TurnResponse{}, fmt.Errorf("start failed: %w", err)
	}
	s.logger.Debug("MCP session started", "session_id", id)
	return toResponse(id, res), nil
}

func (s *Server) handleTurn(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (TurnResponse, error) {
	id, _ := args["session_id"].(string)
	if id == "" {
		return TurnResponse{}, errors.New("session_id is required")
	}
	raw, _ := args["message"].(string)
	input, err := sanitizer.CheckInput(raw)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("invalid input: %w", err)
	}

	res, err := s.engine.ProcessTurn(ctx, id, input)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("turn failed: %w", err)
	}
	return toResponse(id, res), nil
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, err := s.engine.Inspect(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("inspect failed: %v", err)), nil
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
