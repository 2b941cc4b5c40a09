package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmallory/revu/internal/models"
	"github.com/jmallory/revu/internal/review"
	"github.com/jmallory/revu/internal/store"
)

// fixedProvider answers every review with a canned result.
type fixedProvider struct {
	result   *review.Result
	err      error
	lastCode string
	settings review.Settings
}

func (p *fixedProvider) Name() string { return "fixed" }

func (p *fixedProvider) GenerateReview(ctx context.Context, code, language string, settings review.Settings) (*review.Result, error) {
	p.lastCode = code
	p.settings = settings
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

func setupTestMCP(t *testing.T, p *fixedProvider) (*Server, store.Store) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })

	var srv *Server
	if p != nil {
		srv = NewServer(s, p)
	} else {
		srv = NewServer(s, nil)
	}
	return srv, s
}

// callToolReq builds a mcpgo.CallToolRequest with the given name and arguments.
func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

func TestReviewCodeTool(t *testing.T) {
	prov := &fixedProvider{result: &review.Result{
		Summary:     "tidy",
		Issues:      []review.Issue{},
		Suggestions: []string{},
	}}
	srv, s := setupTestMCP(t, prov)

	req := callToolReq("revu_review_code", map[string]any{
		"code":        "x = 1",
		"language":    "python",
		"strictness":  "strict",
		"focus_areas": "security, performance",
	})
	result, err := srv.handleReviewCode(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var out struct {
		SessionID string         `json:"session_id"`
		Result    *review.Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	assert.NotEmpty(t, out.SessionID)
	assert.Equal(t, "tidy", out.Result.Summary)

	// Settings flowed into the provider call.
	assert.Equal(t, review.StrictnessStrict, prov.settings.Strictness)
	assert.Equal(t, []review.FocusArea{review.FocusSecurity, review.FocusPerformance}, prov.settings.FocusAreas)

	// Session persisted under the mcp identity with both turns.
	sess, err := s.GetSessionDetail(context.Background(), out.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "mcp", sess.UserID)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, models.RoleAssistant, sess.Messages[1].Role)
}

func TestReviewCodeTool_Errors(t *testing.T) {
	t.Run("missing code", func(t *testing.T) {
		srv, _ := setupTestMCP(t, &fixedProvider{})
		result, err := srv.handleReviewCode(context.Background(), callToolReq("revu_review_code", map[string]any{"language": "go"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "code")
	})

	t.Run("invalid settings", func(t *testing.T) {
		srv, _ := setupTestMCP(t, &fixedProvider{})
		result, err := srv.handleReviewCode(context.Background(), callToolReq("revu_review_code", map[string]any{
			"code": "x", "language": "go", "strictness": "savage",
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "invalid settings")
	})

	t.Run("no provider configured", func(t *testing.T) {
		srv, _ := setupTestMCP(t, nil)
		result, err := srv.handleReviewCode(context.Background(), callToolReq("revu_review_code", map[string]any{
			"code": "x", "language": "go",
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "not configured")
	})

	t.Run("provider failure", func(t *testing.T) {
		srv, _ := setupTestMCP(t, &fixedProvider{err: errors.New("upstream down")})
		result, err := srv.handleReviewCode(context.Background(), callToolReq("revu_review_code", map[string]any{
			"code": "x", "language": "go",
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "review failed")
	})
}

func TestListSessionsTool(t *testing.T) {
	srv, s := setupTestMCP(t, nil)

	for _, user := range []string{"alice", "alice", "bob"} {
		require.NoError(t, s.CreateSession(context.Background(), &models.ReviewSession{
			UserID:   user,
			Code:     "x",
			Language: "go",
			Provider: "openai",
		}, nil))
	}

	t.Run("all users", func(t *testing.T) {
		result, err := srv.handleListSessions(context.Background(), callToolReq("revu_list_review_sessions", nil))
		require.NoError(t, err)
		require.False(t, result.IsError)

		var out []map[string]any
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
		assert.Len(t, out, 3)
	})

	t.Run("filtered by user", func(t *testing.T) {
		result, err := srv.handleListSessions(context.Background(), callToolReq("revu_list_review_sessions", map[string]any{"user": "alice"}))
		require.NoError(t, err)

		var out []map[string]any
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
		assert.Len(t, out, 2)
	})
}

func TestGetSessionTool(t *testing.T) {
	srv, s := setupTestMCP(t, nil)

	session := &models.ReviewSession{UserID: "alice", Code: "x = 1", Language: "python", Provider: "openai"}
	require.NoError(t, s.CreateSession(context.Background(), session, &models.ReviewMessage{
		Role:    models.RoleUser,
		Content: json.RawMessage(`{"type":"user_code","code":"x = 1","language":"python"}`),
	}))

	t.Run("returns session with transcript", func(t *testing.T) {
		result, err := srv.handleGetSession(context.Background(), callToolReq("revu_get_review_session", map[string]any{"session_id": session.ID}))
		require.NoError(t, err)
		require.False(t, result.IsError)

		var sess models.ReviewSession
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &sess))
		assert.Equal(t, session.ID, sess.ID)
		assert.Len(t, sess.Messages, 1)
	})

	t.Run("unknown id", func(t *testing.T) {
		result, err := srv.handleGetSession(context.Background(), callToolReq("revu_get_review_session", map[string]any{"session_id": "01NOPE"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})

	t.Run("missing id", func(t *testing.T) {
		result, err := srv.handleGetSession(context.Background(), callToolReq("revu_get_review_session", nil))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestMCPServerRegistersTools(t *testing.T) {
	srv, _ := setupTestMCP(t, nil)
	assert.NotNil(t, srv.MCPServer())
}
