package mcpserver

import (
	"context"
	"testing"

	"github.com/Kenkkila/grimoire-site/internal/config"
	"github.com/Kenkkila/grimoire-site/internal/service/cypher"
	"github.com/Kenkkila/grimoire-site/internal/service/graphdb"
	gt "github.com/Kenkkila/grimoire-site/internal/service/graphdb/graphdbtest"
	"github.com/Kenkkila/grimoire-site/internal/service/grimoire"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var bael = gt.Node("n2", []string{"parent:entity", "demon"}, map[string]any{"uid": "bael", "identifier": "Bael"})

func newTestServer(t *testing.T, db graphdb.GraphDatabase) *Server {
	t.Helper()
	cfg := config.Default()
	svc := grimoire.NewGraphService(context.Background(), db, cfg, zap.NewNop())
	return NewServer(cfg.MCP, svc, zap.NewNop())
}

func newStub() *gt.Stub {
	return gt.New().
		On("MATCH (n:`parent:entity`)\nUNWIND", gt.Record("label", "demon")).
		On("UNWIND labels(n) AS label", gt.Record("label", "grimoire"), gt.Record("label", "demon")).
		On("CONTAINS $term", gt.Record("n", bael)).
		On("OPTIONAL MATCH p = (n)-[]-()", gt.Record("n", bael, "p", nil)).
		On("MATCH p = (m)-[*", gt.Record("n", bael, "connections", int64(3)))
}

func TestHandleListLabels(t *testing.T) {
	s := newTestServer(t, newStub())

	_, result, err := s.handleListLabels(context.Background(), nil, ListLabelsArgs{})
	require.NoError(t, err)
	assert.Equal(t, []string{"demon", "grimoire"}, result.Labels)

	_, result, err = s.handleListLabels(context.Background(), nil, ListLabelsArgs{Entities: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"demon"}, result.Labels)
}

func TestHandleSearch(t *testing.T) {
	stub := newStub()
	s := newTestServer(t, stub)

	_, rs, err := s.handleSearch(context.Background(), nil, SearchArgs{Term: "bael"})
	require.NoError(t, err)
	require.Len(t, rs.Nodes, 1)

	before := stub.CallCount()
	_, rs, err = s.handleSearch(context.Background(), nil, SearchArgs{Term: " "})
	require.NoError(t, err)
	assert.True(t, rs.IsEmpty())
	assert.Equal(t, before, stub.CallCount())
}

func TestHandleGetNode(t *testing.T) {
	s := newTestServer(t, newStub())

	_, rs, err := s.handleGetNode(context.Background(), nil, GetNodeArgs{UID: "bael"})
	require.NoError(t, err)
	assert.Equal(t, "bael", rs.Nodes[0].UID())
}

func TestHandleRelated(t *testing.T) {
	s := newTestServer(t, newStub())

	_, rs, err := s.handleRelated(context.Background(), nil, RelatedArgs{UID: "goetia", Label: "demon"})
	require.NoError(t, err)
	assert.Len(t, rs.Nodes, 1)

	_, _, err = s.handleRelated(context.Background(), nil, RelatedArgs{UID: "goetia", Label: "angel"})
	assert.ErrorIs(t, err, cypher.ErrInvalidQueryShape)
}

func TestHandleTimeline_StoreDown(t *testing.T) {
	s := newTestServer(t, graphdb.NewUnavailableDatabase("no credentials"))

	_, rs, err := s.handleTimeline(context.Background(), nil, TimelineArgs{})
	assert.ErrorIs(t, err, graphdb.ErrStoreUnavailable)
	assert.True(t, rs.IsEmpty())
}
