package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/cognito"
	"github.com/aretw0/cognito/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// GraphURI is the resource holding the workflow diagram.
const GraphURI = "cognito://graph"

// Service is the part of cognito.Service exposed to MCP clients.
type Service interface {
	Query(ctx context.Context, q cognito.Query) (*cognito.Answer, error)
	Resume(ctx context.Context, walkID, decision string) (*cognito.Answer, error)
	Pending(ctx context.Context) ([]string, error)
	Diagram(walk *domain.State) string
}

// AskArgs are the arguments of the ask tool.
type AskArgs struct {
	Query       string `json:"query"`
	UserID      string `json:"user_id,omitempty"`
	TargetRoute string `json:"target_route,omitempty"`
}

// ResumeArgs are the arguments of the resume tool.
type ResumeArgs struct {
	WalkID   string `json:"walk_id"`
	Decision string `json:"decision"`
}

// PendingResponse lists walks awaiting approval.
type PendingResponse struct {
	Walks []string `json:"walks" jsonschema_description:"IDs of walks awaiting a human decision"`
}

// Server exposes a cognito service as an MCP server.
type Server struct {
	svc       Service
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(svc Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		svc:    svc,
		logger: logger,
		mcpServer: server.NewMCPServer("cognito-mcp", cognito.Version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
			server.WithRecovery(),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is cancelled.
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
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
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
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("ask",
		mcp.WithDescription("Route a question through the specialist workflow. Critical actions suspend the walk and return a pending approval."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The user's question or request")),
		mcp.WithString("user_id", mcp.Description("Caller identity (optional)")),
		mcp.WithString("target_route", mcp.Description("Force a specialist such as finance_expert (optional)")),
		mcp.WithOutputSchema[cognito.Answer](),
	), mcp.NewStructuredToolHandler(s.handleAsk))

	s.mcpServer.AddTool(mcp.NewTool("resume",
		mcp.WithDescription("Approve or reject the pending critical action of a suspended walk."),
		mcp.WithString("walk_id", mcp.Required(), mcp.Description("ID of the suspended walk")),
		mcp.WithString("decision", mcp.Required(), mcp.Enum("APPROVE", "REJECT"), mcp.Description("Human decision")),
		mcp.WithOutputSchema[cognito.Answer](),
	), mcp.NewStructuredToolHandler(s.handleResume))

	s.mcpServer.AddTool(mcp.NewTool("pending",
		mcp.WithDescription("List walks awaiting a human decision."),
		mcp.WithOutputSchema[PendingResponse](),
	), mcp.NewStructuredToolHandler(s.handlePending))

	s.mcpServer.AddTool(mcp.NewTool("graph",
		mcp.WithDescription("Get the workflow as a Mermaid diagram."),
	), func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(s.svc.Diagram(nil)), nil
	})
}

func (s *Server) handleAsk(ctx context.Context, _ mcp.CallToolRequest, args AskArgs) (cognito.Answer, error) {
	ans, err := s.svc.Query(ctx, cognito.Query{
		RawInput:    args.Query,
		UserID:      args.UserID,
		TargetRoute: args.TargetRoute,
	})
	if err != nil {
		s.logger.Warn("mcp ask failed", "err", err)
		return cognito.Answer{}, fmt.Errorf("ask failed: %w", err)
	}
	return *ans, nil
}

func (s *Server) handleResume(ctx context.Context, _ mcp.CallToolRequest, args ResumeArgs) (cognito.Answer, error) {
	if args.WalkID == "" {
		return cognito.Answer{}, errors.New("walk_id is required")
	}
	ans, err := s.svc.Resume(ctx, args.WalkID, args.Decision)
	if err != nil {
		s.logger.Warn("mcp resume failed", "walk_id", args.WalkID, "err", err)
		return cognito.Answer{}, fmt.Errorf("resume failed: %w", err)
	}
	return *ans, nil
}

func (s *Server) handlePending(ctx context.Context, _ mcp.CallToolRequest, _ struct{}) (PendingResponse, error) {
	ids, err := s.svc.Pending(ctx)
	if err != nil {
		return PendingResponse{}, fmt.Errorf("pending failed: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return PendingResponse{Walks: ids}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Workflow Graph",
		mcp.WithMIMEType("text/vnd.mermaid"),
	), func(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      GraphURI,
				MIMEType: "text/vnd.mermaid",
				Text:     s.svc.Diagram(nil),
			},
		}, nil
	})
}
