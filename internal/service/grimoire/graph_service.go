package grimoire

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kenkkila/grimoire-site/internal/config"
	"github.com/Kenkkila/grimoire-site/internal/model"
	"github.com/Kenkkila/grimoire-site/internal/service/cypher"
	"github.com/Kenkkila/grimoire-site/internal/service/graphdb"
	"github.com/Kenkkila/grimoire-site/internal/service/serializer"
	"github.com/Kenkkila/grimoire-site/internal/util"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// GraphService is the single entry point for graph reads. It is safe for concurrent use:
// label sets never change after construction and the timeline cache guards itself.
type GraphService struct {
	db           graphdb.GraphDatabase
	labels       cypher.LabelSet
	entityLabels cypher.LabelSet
	queryConfig  config.QueryConfig
	uidFilter    *util.UIDFilter
	timeline     timelineCache
	logger       *zap.Logger
}

// NewGraphService discovers the label sets once. A store failure here is logged and
// leaves the sets empty; the service still starts so callers get StoreUnavailable or
// InvalidQueryShape errors instead of a crash.
func NewGraphService(ctx context.Context, db graphdb.GraphDatabase, cfg *config.Config, logger *zap.Logger) *GraphService {
	s := &GraphService{
		db:          db,
		queryConfig: cfg.Query,
		logger:      logger,
	}

	labels, err := s.loadLabels(ctx, "")
	if err != nil {
		logger.Error("Failed to load labels", zap.Error(err))
	}
	s.labels = cypher.NewLabelSet(labels)

	entities, err := s.loadLabels(ctx, cypher.EntityParentLabel)
	if err != nil {
		logger.Error("Failed to load entity labels", zap.Error(err))
	}
	s.entityLabels = cypher.NewLabelSet(entities)

	if cfg.UIDFilter.Enabled {
		s.uidFilter = util.NewUIDFilter(cfg.UIDFilter, logger)
		if err := s.loadUIDFilter(ctx); err != nil {
			logger.Warn("UID filter not loaded, every lookup goes to the store", zap.Error(err))
		}
	}

	logger.Info("Graph service ready",
		zap.Int("labels", s.labels.Len()),
		zap.Int("entity_labels", s.entityLabels.Len()),
		zap.Bool("store_available", db.Available()))

	return s
}

func (s *GraphService) loadLabels(ctx context.Context, parent string) ([]string, error) {
	records, err := s.runRaw(ctx, cypher.DistinctLabels{Parent: parent})
	if err != nil {
		return nil, err
	}
	return stringColumn(records, "label"), nil
}

func (s *GraphService) loadUIDFilter(ctx context.Context) error {
	records, err := s.runRaw(ctx, cypher.AllUIDs{})
	if err != nil {
		return err
	}
	s.uidFilter.Load(stringColumn(records, "uid"))
	return nil
}

func stringColumn(records []*neo4j.Record, key string) []string {
	out := make([]string, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		v, ok := rec.Get(key)
		if !ok {
			continue
		}
		if str, ok := v.(string); ok {
			out = append(out, str)
		}
	}
	return out
}

// runRaw builds a shape against the public label set and executes it without serializing
func (s *GraphService) runRaw(ctx context.Context, shape cypher.Shape) ([]*neo4j.Record, error) {
	q, err := shape.Build(s.labels)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	records, err := s.db.ExecuteRead(ctx, q.Text, q.Params)
	observeQuery(q.Shape, start, len(records) == 0, err)
	if err != nil {
		return nil, storeFailure(ctx, q.Shape, err)
	}
	return records, nil
}

// storeFailure makes sure every execution error matches graphdb.ErrStoreUnavailable,
// except when the caller's own context ended: that comes back as ctx.Err().
func storeFailure(ctx context.Context, shape string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", shape, ctxErr)
	}
	if errors.Is(err, graphdb.ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", shape, err)
	}
	return &graphdb.StoreError{Op: shape, Err: err}
}

// run builds shape against labels, executes it and serializes the records
func (s *GraphService) run(ctx context.Context, shape cypher.Shape, labels cypher.LabelSet) (model.ResultSet, error) {
	q, err := shape.Build(labels)
	if err != nil {
		observeQuery(shape.Name(), time.Time{}, false, err)
		s.logger.Debug("Rejected query", zap.String("shape", shape.Name()), zap.Error(err))
		return model.EmptyResultSet(), err
	}
	return s.execute(ctx, q)
}

func (s *GraphService) execute(ctx context.Context, q cypher.Query) (model.ResultSet, error) {
	if q.Empty() {
		return model.EmptyResultSet(), nil
	}

	start := time.Now()
	records, err := s.db.ExecuteRead(ctx, q.Text, q.Params)
	if err != nil {
		observeQuery(q.Shape, start, false, err)
		return model.EmptyResultSet(), storeFailure(ctx, q.Shape, err)
	}

	rs, dropped := serializer.SerializeCounted(records, q.Fields)
	observeQuery(q.Shape, start, rs.IsEmpty(), nil)
	if dropped > 0 {
		s.logger.Debug("Dropped relationships without endpoints",
			zap.String("shape", q.Shape), zap.Int("dropped", dropped))
	}
	return rs, nil
}

// GetLabels returns the sorted public labels
func (s *GraphService) GetLabels() []string {
	return s.labels.Labels()
}

// GetEntityLabels returns the sorted labels of supernatural entity types
func (s *GraphService) GetEntityLabels() []string {
	return s.entityLabels.Labels()
}

// ValidateLabel is a pure membership check against the public label set
func (s *GraphService) ValidateLabel(label string) bool {
	return s.labels.Contains(label)
}

func (s *GraphService) ValidateEntityLabel(label string) bool {
	return s.entityLabels.Contains(label)
}

// GetAll lists the nodes of label, optionally only those adjacent to a connectionLabel node
func (s *GraphService) GetAll(ctx context.Context, label, connectionLabel string) (model.ResultSet, error) {
	return s.run(ctx, cypher.LabelScoped{Label: label, ConnectionLabel: connectionLabel}, s.labels)
}

// GetNode returns the node with uid and all of its adjacent relationships and neighbors.
// The node itself is first in Nodes. Unknown uids give an empty result.
func (s *GraphService) GetNode(ctx context.Context, uid string) (model.ResultSet, error) {
	if s.uidFilter != nil && uid != "" && !s.uidFilter.MightContain(uid) {
		s.logger.Debug("UID ruled out by filter", zap.String("uid", uid))
		return model.EmptyResultSet(), nil
	}
	return s.run(ctx, cypher.NodeByUID{UID: uid}, s.labels)
}

func (s *GraphService) Random(ctx context.Context) (model.ResultSet, error) {
	return s.run(ctx, cypher.RandomNode{}, s.labels)
}

// Search matches term case-insensitively against identifier and alternate_names.
// A blank term never reaches the store.
func (s *GraphService) Search(ctx context.Context, term string) (model.ResultSet, error) {
	return s.run(ctx, cypher.Search{Term: term}, s.labels)
}

// Related finds label nodes exactly depth hops from uid, most connected first. Zero depth
// or limit take the configured defaults.
func (s *GraphService) Related(ctx context.Context, uid, label string, depth, limit int) (model.ResultSet, error) {
	if depth == 0 {
		depth = s.queryConfig.DefaultDepth
	}
	if limit == 0 {
		limit = s.queryConfig.DefaultLimit
	}
	return s.run(ctx, cypher.Related{UID: uid, Label: label, Depth: depth, Limit: limit}, s.labels)
}

// OthersOfType lists up to five label nodes adjacent to uid, never excludeUID
func (s *GraphService) OthersOfType(ctx context.Context, label, uid, excludeUID string) (model.ResultSet, error) {
	return s.run(ctx, cypher.OthersOfType{Label: label, UID: uid, ExcludeUID: excludeUID}, s.labels)
}

// GetFiltered finds label nodes connected to item1 and, depending on operator, also
// connected or not connected to item2.
func (s *GraphService) GetFiltered(ctx context.Context, label, item1, item2, operator string) (model.ResultSet, error) {
	op, err := cypher.ParseOperator(operator)
	if err != nil {
		observeQuery(cypher.Filtered{}.Name(), time.Time{}, false, err)
		return model.EmptyResultSet(), err
	}
	return s.run(ctx, cypher.Filtered{Label: label, Anchor1: item1, Anchor2: item2, Operator: op}, s.labels)
}

// GetGrimoireEntities groups entities of the given type that appear in several grimoires
func (s *GraphService) GetGrimoireEntities(ctx context.Context, entity string) (model.ResultSet, error) {
	return s.run(ctx, cypher.SharedEntities{Entity: entity}, s.entityLabels)
}

// GetSingleGrimoireEntities groups, by grimoire, entities only that grimoire lists
func (s *GraphService) GetSingleGrimoireEntities(ctx context.Context, entity string) (model.ResultSet, error) {
	return s.run(ctx, cypher.SingleSourceEntities{Entity: entity}, s.entityLabels)
}

func (s *GraphService) GetWithParam(ctx context.Context, property string) (model.ResultSet, error) {
	return s.run(ctx, cypher.WithProperty{Property: property}, s.labels)
}

func (s *GraphService) GetSpellsByOutcome(ctx context.Context) (model.ResultSet, error) {
	return s.run(ctx, cypher.SpellsByOutcome{}, s.labels)
}

// Timeline returns every dated node. The first successful load is kept for the process
// lifetime; the returned result is shared and must not be modified.
func (s *GraphService) Timeline(ctx context.Context) (model.ResultSet, error) {
	// one caller going away must not fail the others waiting on the same load
	loadCtx := context.WithoutCancel(ctx)

	rs, hit, err := s.timeline.getOrLoad(func() (model.ResultSet, error) {
		s.logger.Info("Loading timeline")
		return s.run(loadCtx, cypher.Timeline{}, s.labels)
	})
	if err != nil {
		return model.EmptyResultSet(), err
	}
	if hit {
		timelineCacheTotal.WithLabelValues(cacheHit).Inc()
	} else {
		timelineCacheTotal.WithLabelValues(cacheMiss).Inc()
	}
	return rs, nil
}

func (s *GraphService) GetFrontpageRandom(ctx context.Context) (model.ResultSet, error) {
	return s.run(ctx, cypher.FrontPage{}, s.labels)
}

// Health reports whether the store answers. A degraded client always fails.
func (s *GraphService) Health(ctx context.Context) error {
	if err := s.db.VerifyConnectivity(ctx); err != nil {
		return storeFailure(ctx, "health", err)
	}
	return nil
}
