package mcpserver

import (
	"context"
	"fmt"

	"github.com/Kenkkila/grimoire-site/internal/config"
	"github.com/Kenkkila/grimoire-site/internal/model"
	"github.com/Kenkkila/grimoire-site/internal/service/grimoire"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// Server exposes the graph service as MCP tools
type Server struct {
	mcpServer *mcp.Server
	service   *grimoire.GraphService
	logger    *zap.Logger
}

// NewServer creates a new MCP server instance over service.
func NewServer(cfg config.MCPConfig, service *grimoire.GraphService, logger *zap.Logger) *Server {
	impl := &mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}

	s := &Server{
		mcpServer: mcp.NewServer(impl, nil),
		service:   service,
		logger:    logger,
	}
	s.registerTools()
	return s
}

// ListLabelsArgs defines the input for list_labels tool.
type ListLabelsArgs struct {
	Entities bool `json:"entities,omitempty" jsonschema:"only list supernatural entity labels"`
}

// ListLabelsResult defines the output for list_labels tool.
type ListLabelsResult struct {
	Labels []string `json:"labels" jsonschema:"queryable node labels"`
}

// GetNodeArgs defines the input for get_node tool.
type GetNodeArgs struct {
	UID string `json:"uid" jsonschema:"unique id of the node"`
}

// SearchArgs defines the input for search tool.
type SearchArgs struct {
	Term string `json:"term" jsonschema:"case-insensitive text matched against names and alternate names"`
}

// RelatedArgs defines the input for related tool.
type RelatedArgs struct {
	UID   string `json:"uid" jsonschema:"unique id of the reference node"`
	Label string `json:"label" jsonschema:"label of the nodes to find"`
	Depth int    `json:"depth,omitempty" jsonschema:"exact number of hops, default 2"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of nodes, default 5"`
}

// TimelineArgs defines the input for timeline tool.
type TimelineArgs struct{}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_labels",
		Description: "List the node labels of the grimoire graph, such as grimoire, demon, spell or edition. Every other tool that takes a label only accepts one of these.",
	}, s.handleListLabels)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_node",
		Description: "Get one node by uid together with every relationship it has and the nodes at the other end.",
	}, s.handleGetNode)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "search",
		Description: "Find nodes whose name or alternate names contain the term, ignoring case.",
	}, s.handleSearch)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "related",
		Description: "Find nodes of a label a fixed number of hops away from a node, most strongly connected first.",
	}, s.handleRelated)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "timeline",
		Description: "List every dated node (born, died, crowned, date, year, began or ended).",
	}, s.handleTimeline)
}

func (s *Server) handleListLabels(ctx context.Context, _ *mcp.CallToolRequest, args ListLabelsArgs) (*mcp.CallToolResult, ListLabelsResult, error) {
	if args.Entities {
		return nil, ListLabelsResult{Labels: s.service.GetEntityLabels()}, nil
	}
	return nil, ListLabelsResult{Labels: s.service.GetLabels()}, nil
}

func (s *Server) handleGetNode(ctx context.Context, _ *mcp.CallToolRequest, args GetNodeArgs) (*mcp.CallToolResult, model.ResultSet, error) {
	rs, err := s.service.GetNode(ctx, args.UID)
	if err != nil {
		return nil, model.EmptyResultSet(), fmt.Errorf("get_node failed: %w", err)
	}
	return nil, rs, nil
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, model.ResultSet, error) {
	rs, err := s.service.Search(ctx, args.Term)
	if err != nil {
		return nil, model.EmptyResultSet(), fmt.Errorf("search failed: %w", err)
	}
	return nil, rs, nil
}

func (s *Server) handleRelated(ctx context.Context, _ *mcp.CallToolRequest, args RelatedArgs) (*mcp.CallToolResult, model.ResultSet, error) {
	rs, err := s.service.Related(ctx, args.UID, args.Label, args.Depth, args.Limit)
	if err != nil {
		return nil, model.EmptyResultSet(), fmt.Errorf("related failed: %w", err)
	}
	return nil, rs, nil
}

func (s *Server) handleTimeline(ctx context.Context, _ *mcp.CallToolRequest, _ TimelineArgs) (*mcp.CallToolResult, model.ResultSet, error) {
	rs, err := s.service.Timeline(ctx)
	if err != nil {
		return nil, model.EmptyResultSet(), fmt.Errorf("timeline failed: %w", err)
	}
	return nil, rs, nil
}

// Start serves the tools over stdio until ctx is done or the client disconnects.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting MCP server on stdio")
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
