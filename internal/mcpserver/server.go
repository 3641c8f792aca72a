// Package mcpserver exposes the stream tracking operations as MCP tools
// over stdio. It is a thin protocol adapter: every tool delegates to the
// handler layer and converts tagged failures into error tool results.
package mcpserver

import (
	"context"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zulandar/streamyard/internal/handler"
	"github.com/zulandar/streamyard/internal/scanner"
)

// Server wraps the handler layer as an MCP tool server.
type Server struct {
	server   *gomcp.Server
	handlers *handler.Handlers
}

// New creates the MCP server and registers all tools.
func New(h *handler.Handlers, version string) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{handlers: h}
	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "streamyard", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves MCP over stdio, blocking until the client disconnects or the
// context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

type emptyInput struct{}

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "create_stream",
		Description: "Create a new development stream bound to a git worktree and branch. The stream starts in status 'initializing'.",
	}, s.handleCreateStream)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "update_stream",
		Description: "Update a stream's status, progress, current phase, or blocker. Only the provided fields change; invalid transitions are rejected.",
	}, s.handleUpdateStream)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "add_commit",
		Description: "Record a commit for a stream. Re-adding the same (stream, hash) pair is deduplicated, not an error.",
	}, s.handleAddCommit)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "archive_stream",
		Description: "Archive a stream with an optional completion summary. Archival is terminal and permitted from any non-archived status.",
	}, s.handleArchiveStream)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_stream_stats",
		Description: "Get aggregate stream and commit counts: totals, per-status, and per-category.",
	}, s.handleGetStats)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_version",
		Description: "Get the server version and build information.",
	}, s.handleGetVersion)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "sync_from_files",
		Description: "Import or re-sync stream definitions from the configured streams directory. Idempotent; unparseable files are skipped.",
	}, s.handleSyncFromFiles)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "scan_commits",
		Description: "Scan git worktree history into the store, for one stream or all non-archived streams. Per-stream failures are counted, not fatal.",
	}, s.handleScanCommits)
}

func (s *Server) handleCreateStream(_ context.Context, _ *gomcp.CallToolRequest, input handler.CreateStreamInput) (*gomcp.CallToolResult, handler.StreamPayload, error) {
	out, err := s.handlers.CreateStream(input)
	if err != nil {
		return errorResult(err), handler.StreamPayload{}, nil
	}
	return nil, out, nil
}

func (s *Server) handleUpdateStream(_ context.Context, _ *gomcp.CallToolRequest, input handler.UpdateStreamInput) (*gomcp.CallToolResult, handler.StreamPayload, error) {
	out, err := s.handlers.UpdateStream(input)
	if err != nil {
		return errorResult(err), handler.StreamPayload{}, nil
	}
	return nil, out, nil
}

func (s *Server) handleAddCommit(_ context.Context, _ *gomcp.CallToolRequest, input handler.AddCommitInput) (*gomcp.CallToolResult, handler.AddCommitResult, error) {
	out, err := s.handlers.AddCommit(input)
	if err != nil {
		return errorResult(err), handler.AddCommitResult{}, nil
	}
	return nil, out, nil
}

func (s *Server) handleArchiveStream(_ context.Context, _ *gomcp.CallToolRequest, input handler.ArchiveStreamInput) (*gomcp.CallToolResult, handler.StreamPayload, error) {
	out, err := s.handlers.ArchiveStream(input)
	if err != nil {
		return errorResult(err), handler.StreamPayload{}, nil
	}
	return nil, out, nil
}

func (s *Server) handleGetStats(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, handler.StatsResult, error) {
	out, err := s.handlers.GetStats()
	if err != nil {
		return errorResult(err), handler.StatsResult{}, nil
	}
	return nil, out, nil
}

func (s *Server) handleGetVersion(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, handler.VersionInfo, error) {
	return nil, s.handlers.GetVersion(), nil
}

func (s *Server) handleSyncFromFiles(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, handler.SyncResult, error) {
	out, err := s.handlers.SyncFromFiles()
	if err != nil {
		return errorResult(err), handler.SyncResult{}, nil
	}
	return nil, out, nil
}

func (s *Server) handleScanCommits(_ context.Context, _ *gomcp.CallToolRequest, input handler.ScanCommitsInput) (*gomcp.CallToolResult, scanner.Result, error) {
	out, err := s.handlers.ScanCommits(input)
	if err != nil {
		return errorResult(err), scanner.Result{}, nil
	}
	return nil, out, nil
}

// errorResult converts a tagged failure into an error tool result.
func errorResult(err error) *gomcp.CallToolResult {
	failure := handler.Classify(err)
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{
			Text: fmt.Sprintf("%s: %s", failure.Code, failure.Message),
		}},
		IsError: true,
	}
}
