// Package serializer turns raw driver records into the flat nodes/relationships result
// handed to callers.
package serializer

import (
	"strings"

	"github.com/Kenkkila/grimoire-site/internal/model"
	"github.com/Kenkkila/grimoire-site/internal/service/cypher"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Serialize walks the manifest columns of every record and collects nodes and
// relationships, deduplicated by element id in first-seen order. With an empty manifest
// every value is scanned by position. Relationships whose endpoints never appear in the
// records are left out, so every relationship in the result points at nodes of the result.
func Serialize(records []*neo4j.Record, fields []cypher.Field) model.ResultSet {
	rs, _ := SerializeCounted(records, fields)
	return rs
}

// SerializeCounted is Serialize that also reports how many relationships were left out
// for missing endpoints.
func SerializeCounted(records []*neo4j.Record, fields []cypher.Field) (model.ResultSet, int) {
	c := newCollector()

	for _, rec := range records {
		if rec == nil {
			continue
		}
		if len(fields) == 0 {
			for _, v := range rec.Values {
				c.add(v)
			}
			continue
		}
		for _, f := range fields {
			if f.Kind == cypher.FieldScalar {
				continue
			}
			v, ok := rec.Get(f.Name)
			if !ok {
				continue
			}
			c.add(v)
		}
	}

	rs := c.result()
	return rs, len(c.rels) - len(rs.Relationships)
}

type collector struct {
	nodes     []*model.Node
	nodeIndex map[string]*model.Node
	rels      []neo4j.Relationship
	relSeen   map[string]struct{}
}

func newCollector() *collector {
	return &collector{
		nodeIndex: make(map[string]*model.Node),
		relSeen:   make(map[string]struct{}),
	}
}

func (c *collector) add(v any) {
	switch val := v.(type) {
	case neo4j.Node:
		c.addNode(val)
	case *neo4j.Node:
		if val != nil {
			c.addNode(*val)
		}
	case neo4j.Relationship:
		c.addRel(val)
	case *neo4j.Relationship:
		if val != nil {
			c.addRel(*val)
		}
	case neo4j.Path:
		c.addPath(val)
	case *neo4j.Path:
		if val != nil {
			c.addPath(*val)
		}
	case []any:
		for _, item := range val {
			c.add(item)
		}
	case []neo4j.Node:
		for _, n := range val {
			c.addNode(n)
		}
	case []neo4j.Relationship:
		for _, r := range val {
			c.addRel(r)
		}
	}
	// nil and scalar values carry nothing to serialize
}

func (c *collector) addPath(p neo4j.Path) {
	for _, n := range p.Nodes {
		c.addNode(n)
	}
	for _, r := range p.Relationships {
		c.addRel(r)
	}
}

func (c *collector) addNode(n neo4j.Node) {
	if _, ok := c.nodeIndex[n.ElementId]; ok {
		return
	}
	node := &model.Node{
		ID:         n.ElementId,
		Label:      primaryLabel(n.Labels),
		Labels:     append([]string{}, n.Labels...),
		Properties: copyProps(n.Props),
	}
	c.nodeIndex[n.ElementId] = node
	c.nodes = append(c.nodes, node)
}

func (c *collector) addRel(r neo4j.Relationship) {
	if _, ok := c.relSeen[r.ElementId]; ok {
		return
	}
	c.relSeen[r.ElementId] = struct{}{}
	c.rels = append(c.rels, r)
}

// result resolves endpoints once every value has been seen, so a relationship may appear
// before the path or list that carries its nodes.
func (c *collector) result() model.ResultSet {
	rs := model.EmptyResultSet()
	rs.Nodes = append(rs.Nodes, c.nodes...)

	for _, r := range c.rels {
		start, ok := c.nodeIndex[r.StartElementId]
		if !ok {
			continue
		}
		end, ok := c.nodeIndex[r.EndElementId]
		if !ok {
			continue
		}
		rs.Relationships = append(rs.Relationships, &model.Relationship{
			ID:         r.ElementId,
			Type:       r.Type,
			StartID:    r.StartElementId,
			EndID:      r.EndElementId,
			Start:      start,
			End:        end,
			Properties: copyProps(r.Props),
		})
	}
	return rs
}

// primaryLabel is the first label that is not organizational
func primaryLabel(labels []string) string {
	for _, l := range labels {
		if !strings.Contains(l, cypher.ParentMarker) {
			return l
		}
	}
	if len(labels) > 0 {
		return labels[0]
	}
	return ""
}

func copyProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}
