package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nodus-reseau/leadform"
	"github.com/nodus-reseau/leadform/internal/logging"
	"github.com/nodus-reseau/leadform/pkg/domain"
	"github.com/nodus-reseau/leadform/pkg/runner"
	"github.com/nodus-reseau/leadform/pkg/wizard"
)

// FormResourceURI is the resource listing the steps of every persona.
const FormResourceURI = "leadform://form"

// SubmitResponse is the result of the submit tool.
type SubmitResponse struct {
	Notice domain.Notice `json:"notice" jsonschema_description:"Message to show to the respondent"`
	View   wizard.View   `json:"view" jsonschema_description:"Session screen after the attempt"`
}

// Server exposes wizard sessions as MCP tools, so an agent can fill the form
// on behalf of a respondent.
type Server struct {
	sessions      *wizard.Sessions
	mcpServer     *server.MCPServer
	logger        *slog.Logger
	newID         func() string
	defaultSource string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for rejected inputs and failed commands.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithIDGenerator replaces the random session ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Server) {
		s.newID = fn
	}
}

// WithDefaultSource sets the source of sessions started without one.
func WithDefaultSource(source string) Option {
	return func(s *Server) {
		s.defaultSource = source
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *wizard.Sessions, opts ...Option) *Server {
	s := &Server{
		sessions:      sessions,
		mcpServer:     server.NewMCPServer("leadform-mcp", strings.TrimSpace(leadform.Version)),
		logger:        logging.NewNop(),
		newID:         uuid.NewString,
		defaultSource: domain.DefaultSource,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP SSE transport on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening (sse)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionParam() mcp.ToolOption {
	return mcp.WithString("session_id", mcp.Required(), mcp.Description("Session returned by start_session"))
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Open a new lead form on its splash screen. Commands are accepted once ready_in_ms has elapsed."),
		mcp.WithString("source", mcp.Description("Acquisition source of the respondent (defaults to direct)")),
		mcp.WithOutputSchema[wizard.View](),
	), s.handleStart)

	s.mcpServer.AddTool(mcp.NewTool("get_view",
		mcp.WithDescription("Get the current screen of a session."),
		sessionParam(),
		mcp.WithOutputSchema[wizard.View](),
	), s.command(func(ctx context.Context, id string, _ mcp.CallToolRequest) (wizard.View, error) {
		return s.sessions.View(ctx, id)
	}))

	s.mcpServer.AddTool(mcp.NewTool("answer",
		mcp.WithDescription("Set the answer of the displayed free-text step (nom, prénom, téléphone, e-mail, classes of a parent)."),
		sessionParam(),
		mcp.WithString("value", mcp.Required(), mcp.Description("Answer as typed by the respondent")),
		mcp.WithOutputSchema[wizard.View](),
	), s.command(func(ctx context.Context, id string, req mcp.CallToolRequest) (wizard.View, error) {
		value, err := s.input(req, "value")
		if err != nil {
			return wizard.View{}, err
		}
		return s.sessions.Answer(ctx, id, value)
	}))

	s.mcpServer.AddTool(mcp.NewTool("advance",
		mcp.WithDescription("Go to the next step. Does nothing while the displayed step is unanswered."),
		sessionParam(),
		mcp.WithOutputSchema[wizard.View](),
	), s.command(func(ctx context.Context, id string, _ mcp.CallToolRequest) (wizard.View, error) {
		return s.sessions.Advance(ctx, id)
	}))

	s.mcpServer.AddTool(mcp.NewTool("retreat",
		mcp.WithDescription("Go back to the previous step."),
		sessionParam(),
		mcp.WithOutputSchema[wizard.View](),
	), s.command(func(ctx context.Context, id string, _ mcp.CallToolRequest) (wizard.View, error) {
		return s.sessions.Retreat(ctx, id)
	}))

	s.mcpServer.AddTool(mcp.NewTool("jump",
		mcp.WithDescription("Move to a step index, as the edit links of the recap do. The index equal to the step count is the recap."),
		sessionParam(),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based step index")),
		mcp.WithOutputSchema[wizard.View](),
	), s.command(func(ctx context.Context, id string, req mcp.CallToolRequest) (wizard.View, error) {
		args := req.GetArguments()
		if _, ok := args["index"]; !ok {
			return wizard.View{}, errors.New("missing index")
		}
		return s.sessions.JumpTo(ctx, id, req.GetInt("index", 0))
	}))

	s.mcpServer.AddTool(mcp.NewTool("select",
		mcp.WithDescription("Pick an option of the displayed choice step (profil or classe) by its value."),
		sessionParam(),
		mcp.WithString("value", mcp.Required(), mcp.Description("Option value from step.options")),
		mcp.WithBoolean("advance", mcp.Description("Move to the next step in the same call (default true)")),
		mcp.WithOutputSchema[wizard.View](),
	), s.command(func(ctx context.Context, id string, req mcp.CallToolRequest) (wizard.View, error) {
		value, err := s.input(req, "value")
		if err != nil {
			return wizard.View{}, err
		}
		return s.sessions.Select(ctx, id, value, req.GetBool("advance", true))
	}))

	s.mcpServer.AddTool(mcp.NewTool("submit",
		mcp.WithDescription("Send the form from the recap screen. On failure the session stays on the recap and submit can be called again."),
		sessionParam(),
		mcp.WithOutputSchema[SubmitResponse](),
	), s.handleSubmit)
}

func (s *Server) handleStart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source := strings.TrimSpace(req.GetString("source", ""))
	if source == "" {
		source = s.defaultSource
	}
	view, err := s.sessions.Start(ctx, s.newID(), source)
	if err != nil {
		return s.toolError("start_session", err), nil
	}
	return structured(view)
}

func (s *Server) handleSubmit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, notice, err := s.sessions.Submit(ctx, id)
	if notice.Kind == "" && err != nil {
		return s.toolError("submit", err), nil
	}
	if err != nil {
		s.logger.Warn("mcp submit failed", "session_id", id, "err", err)
	}
	result, rerr := structured(SubmitResponse{Notice: notice, View: view})
	if rerr != nil {
		return nil, rerr
	}
	result.IsError = notice.Kind == domain.NoticeFailure
	return result, nil
}

type commandFunc func(ctx context.Context, id string, req mcp.CallToolRequest) (wizard.View, error)

// command adapts a session command to a tool handler. Command errors are
// reported to the agent as tool errors, not protocol errors.
func (s *Server) command(fn commandFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		view, err := fn(ctx, id, req)
		if err != nil {
			return s.toolError(req.Params.Name, err), nil
		}
		return structured(view)
	}
}

func (s *Server) input(req mcp.CallToolRequest, key string) (string, error) {
	raw, err := req.RequireString(key)
	if err != nil {
		return "", err
	}
	clean, err := runner.SanitizeInput(raw)
	if err != nil {
		s.logger.Warn("mcp input rejected", "tool", req.Params.Name, "size", len(raw), "err", err)
		return "", fmt.Errorf("input rejected: %w", err)
	}
	return clean, nil
}

func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	s.logger.Debug("mcp command rejected", "tool", tool, "err", err)
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", tool, err))
}

func structured(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultStructured(v, string(data)), nil
}

// formDescription lists the steps shown to each persona, and to a respondent
// who has not picked one yet.
func formDescription() map[string][]domain.Step {
	out := map[string][]domain.Step{
		"": domain.BaseSteps(),
	}
	for _, opt := range domain.PersonaOptions {
		out[opt.Value] = domain.Steps(domain.Answers{domain.FieldTypePersonne: opt.Value})
	}
	return out
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(FormResourceURI, "Lead form steps by persona",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(formDescription())
		if err != nil {
			return nil, fmt.Errorf("encode form description: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      FormResourceURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
