// Package mcp exposes the review service as MCP tools over stdio, so
// agent runtimes can request reviews and browse session history.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jmallory/revu/internal/models"
	"github.com/jmallory/revu/internal/provider"
	"github.com/jmallory/revu/internal/review"
	"github.com/jmallory/revu/internal/store"
)

// Server wraps the review data layer and provider as MCP tools.
type Server struct {
	store    store.Store
	provider provider.Generator
}

// NewServer creates the MCP server wrapper. The provider may be nil when
// no credential is configured; the review tool then reports an error.
func NewServer(s store.Store, p provider.Generator) *Server {
	return &Server{store: s, provider: p}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("revu", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.reviewCodeTool())
	srv.AddTool(s.listSessionsTool())
	srv.AddTool(s.getSessionTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// revu_review_code
func (s *Server) reviewCodeTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("revu_review_code",
		mcp.WithDescription("Run an AI code review on a snippet of source code. Returns a JSON review with summary, issues (line, severity, message, suggestion), general suggestions, and optionally the full corrected source."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Source code to review")),
		mcp.WithString("language", mcp.Required(), mcp.Description("Programming language of the code, e.g. go, python")),
		mcp.WithString("strictness", mcp.Description("Review strictness: lenient, normal, strict")),
		mcp.WithString("detail_level", mcp.Description("Explanation depth: brief, normal, deep")),
		mcp.WithString("focus_areas", mcp.Description("Comma-separated focus areas: security, performance, readability, maintainability")),
		mcp.WithString("output_language", mcp.Description("Natural language for review text: en, ja")),
	)
	return tool, s.handleReviewCode
}

func (s *Server) handleReviewCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.provider == nil {
		return mcp.NewToolResultError("LLM provider not configured (set an API key)"), nil
	}

	code, err := request.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: code"), nil
	}
	language, err := request.RequireString("language")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: language"), nil
	}

	settings := review.Settings{
		Strictness:     review.Strictness(request.GetString("strictness", string(review.StrictnessNormal))),
		DetailLevel:    review.DetailLevel(request.GetString("detail_level", string(review.DetailNormal))),
		OutputLanguage: review.OutputLanguage(request.GetString("output_language", string(review.OutputEnglish))),
	}
	if areas := request.GetString("focus_areas", ""); areas != "" {
		for _, a := range strings.Split(areas, ",") {
			a = strings.TrimSpace(a)
			if a != "" {
				settings.FocusAreas = append(settings.FocusAreas, review.FocusArea(a))
			}
		}
	}
	if err := settings.Validate(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid settings: %v", err)), nil
	}

	result, err := s.provider.GenerateReview(ctx, code, language, settings)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("review failed: %v", err)), nil
	}

	settingsJSON, _ := json.Marshal(settings)
	userContent, _ := json.Marshal(map[string]any{
		"type":     "user_code",
		"code":     code,
		"language": language,
	})
	session := &models.ReviewSession{
		UserID:   "mcp",
		Code:     code,
		Language: language,
		Provider: s.provider.Name(),
		Settings: settingsJSON,
	}
	if err := s.store.CreateSession(ctx, session, &models.ReviewMessage{
		Role:    models.RoleUser,
		Content: userContent,
	}); err == nil {
		if resultJSON, err := json.Marshal(result); err == nil {
			_ = s.store.AppendMessage(ctx, &models.ReviewMessage{
				SessionID: session.ID,
				Role:      models.RoleAssistant,
				Content:   resultJSON,
			})
		}
	}

	data, err := json.Marshal(map[string]any{
		"session_id": session.ID,
		"result":     result,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// revu_list_review_sessions
func (s *Server) listSessionsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("revu_list_review_sessions",
		mcp.WithDescription("List recent review sessions, newest first. Returns a JSON array with id, language, provider, and created_at."),
		mcp.WithString("user", mcp.Description("Filter by user id (default: all users)")),
	)
	return tool, s.handleListSessions
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := s.store.ListSessions(ctx, store.SessionListFilter{
		UserID: request.GetString("user", ""),
		Limit:  50,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list sessions: %v", err)), nil
	}

	type sessionOut struct {
		ID        string `json:"id"`
		UserID    string `json:"user_id"`
		Language  string `json:"language"`
		Provider  string `json:"provider"`
		CreatedAt string `json:"created_at"`
	}

	out := make([]sessionOut, len(sessions))
	for i, sess := range sessions {
		out[i] = sessionOut{
			ID:        sess.ID,
			UserID:    sess.UserID,
			Language:  sess.Language,
			Provider:  sess.Provider,
			CreatedAt: sess.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal sessions: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// revu_get_review_session
func (s *Server) getSessionTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("revu_get_review_session",
		mcp.WithDescription("Get one review session with its full message transcript (submitted code and review result)."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Review session id")),
	)
	return tool, s.handleGetSession
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: session_id"), nil
	}

	sess, err := s.store.GetSessionDetail(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("session not found: %s", id)), nil
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal session: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
