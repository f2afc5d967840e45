package mcp

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	essay "github.com/markgewhite/agentic-essay-writer"
	"github.com/markgewhite/agentic-essay-writer/pkg/agents/stub"
	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	eng, err := essay.New(stub.Agents())
	require.NoError(t, err)
	return NewServer(eng, nil)
}

func readRequest(uri string) mcp.ReadResourceRequest {
	var req mcp.ReadResourceRequest
	req.Params.URI = uri
	return req
}

func TestServer_WriteEssay(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	art, err := s.handleWriteEssay(ctx, mcp.CallToolRequest{}, map[string]any{
		"id":     "m1",
		"topic":  "Coral reefs",
		"limits": map[string]any{"max_critique_cycles": float64(2)},
	})
	require.NoError(t, err)
	assert.Equal(t, "m1", art.RunID)
	assert.True(t, art.Complete)
	assert.Equal(t, domain.CompletionApproved, art.Completion)

	runs, err := s.handleListRuns(ctx, mcp.CallToolRequest{}, nil)
	require.NoError(t, err)
	require.Len(t, runs.Runs, 1)
	assert.Equal(t, domain.RunTerminated, runs.Runs[0].Status)

	ledger, err := s.handleGetLedger(ctx, mcp.CallToolRequest{}, map[string]any{"id": "m1", "role": "editor"})
	require.NoError(t, err)
	assert.Equal(t, 4, ledger.Total)
	assert.Len(t, ledger.Entries, 2)

	got, err := s.handleGetEssay(ctx, mcp.CallToolRequest{}, map[string]any{"id": "m1"})
	require.NoError(t, err)
	assert.Equal(t, art.Essay, got.Essay)
}

func TestServer_StartAndStep(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	sum, err := s.handleStartRun(ctx, mcp.CallToolRequest{}, map[string]any{"id": "m2", "topic": "Tides"})
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Steps)
	assert.Equal(t, domain.RoleEditor, sum.Next)

	sum, err = s.handleStepRun(ctx, mcp.CallToolRequest{}, map[string]any{"id": "m2"})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Steps)
	assert.Equal(t, domain.RoleWriter, sum.Next)

	art, err := s.handleGetEssay(ctx, mcp.CallToolRequest{}, map[string]any{"id": "m2"})
	require.NoError(t, err)
	assert.False(t, art.Complete)
}

func TestServer_Errors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	t.Run("empty topic", func(t *testing.T) {
		_, err := s.handleStartRun(ctx, mcp.CallToolRequest{}, map[string]any{"topic": " "})
		var cfgErr *domain.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "topic", cfgErr.Field)
	})

	t.Run("unknown argument", func(t *testing.T) {
		_, err := s.handleStartRun(ctx, mcp.CallToolRequest{}, map[string]any{"topic": "x", "colour": "red"})
		assert.ErrorContains(t, err, "invalid arguments")
	})

	t.Run("missing run", func(t *testing.T) {
		_, err := s.handleStepRun(ctx, mcp.CallToolRequest{}, map[string]any{"id": "nope"})
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("negative since", func(t *testing.T) {
		_, err := s.handleGetLedger(ctx, mcp.CallToolRequest{}, map[string]any{"id": "nope", "since": float64(-1)})
		assert.Error(t, err)
	})
}

func TestServer_Resources(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleWriteEssay(ctx, mcp.CallToolRequest{}, map[string]any{"id": "m3", "topic": "Coral reefs"})
	require.NoError(t, err)

	contents, err := s.readRuns(ctx, readRequest(runsURI))
	require.NoError(t, err)
	require.Len(t, contents, 1)
	assert.Contains(t, contents[0].(mcp.TextResourceContents).Text, `"id":"m3"`)

	contents, err = s.readEssay(ctx, readRequest("essay://runs/m3"))
	require.NoError(t, err)
	text := contents[0].(mcp.TextResourceContents).Text
	assert.Contains(t, text, "# Coral reefs")
	assert.NotContains(t, text, "Draft only")

	_, err = s.readEssay(ctx, readRequest("essay://runs/"))
	assert.Error(t, err)
	_, err = s.readEssay(ctx, readRequest("essay://runs/missing"))
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}
