package grimoire

import (
	"context"
	"fmt"

	"github.com/Kenkkila/grimoire-site/internal/model"
	"github.com/Kenkkila/grimoire-site/internal/util"

	"go.uber.org/zap"
)

// Labels whose relationships never seed an "others" sidebar: a grimoire's listed
// entities would produce one sidebar per demon.
const (
	grimoireLabel = "grimoire"
	demonLabel    = "demon"
)

// Sidebar is one titled list of nodes shown next to an item
type Sidebar struct {
	Title    string        `json:"title"`
	Relation string        `json:"relation,omitempty"`
	Via      *model.Node   `json:"via,omitempty"`
	Nodes    []*model.Node `json:"nodes"`
}

// Item is a node with its neighborhood and the sidebars of similar items
type Item struct {
	Node    *model.Node     `json:"node"`
	Data    model.ResultSet `json:"data"`
	Related []*model.Node   `json:"related"`
	Others  []Sidebar       `json:"others"`
}

// GetItem loads the node with uid plus the "similar" and "other" sidebars. found is
// false when no node has that uid.
func (s *GraphService) GetItem(ctx context.Context, label, uid string) (*Item, bool, error) {
	data, err := s.GetNode(ctx, uid)
	if err != nil {
		return nil, false, err
	}
	if len(data.Nodes) == 0 {
		return nil, false, nil
	}

	item := &Item{
		Node:    data.Nodes[0],
		Data:    data,
		Related: []*model.Node{},
		Others:  []Sidebar{},
	}

	related, err := s.Related(ctx, uid, label, 0, 0)
	if err != nil {
		return nil, true, err
	}
	item.Related = related.Nodes

	item.Others = s.others(ctx, item.Node, data.Relationships)
	return item, true, nil
}

// others fans out one OthersOfType query per distinct qualifying neighbor, at most
// SidebarConcurrency at a time. Sidebar failures are logged and skipped so the item
// itself still renders.
func (s *GraphService) others(ctx context.Context, node *model.Node, rels []*model.Relationship) []Sidebar {
	type via struct {
		rel   *model.Relationship
		other *model.Node
	}

	var vias []via
	seen := make(map[string]bool)
	for _, rel := range rels {
		if rel.Start.Label == rel.End.Label {
			continue
		}
		if rel.End.Label == demonLabel || rel.Start.Label == grimoireLabel {
			continue
		}
		other := rel.Start
		if other.Label == node.Label {
			other = rel.End
		}
		if other.UID() == "" || seen[other.UID()] {
			continue
		}
		seen[other.UID()] = true
		vias = append(vias, via{rel: rel, other: other})
	}

	type outcome struct {
		sidebar Sidebar
		ok      bool
	}

	results := util.DoWorkList(vias, s.queryConfig.SidebarConcurrency, func(v via) outcome {
		rs, err := s.OthersOfType(ctx, node.Label, v.other.UID(), node.UID())
		if err != nil {
			s.logger.Warn("Failed to load others sidebar",
				zap.String("uid", node.UID()), zap.String("via", v.other.UID()), zap.Error(err))
			return outcome{}
		}
		if len(rs.Nodes) == 0 {
			return outcome{}
		}
		return outcome{
			sidebar: Sidebar{
				Title:    fmt.Sprintf("Other %s related to the %s %s", node.Label, v.other.Label, v.other.Identifier()),
				Relation: v.rel.Type,
				Via:      v.other,
				Nodes:    rs.Nodes,
			},
			ok: true,
		}
	})

	sidebars := []Sidebar{}
	for _, r := range results {
		if r.ok {
			sidebars = append(sidebars, r.sidebar)
		}
	}
	return sidebars
}
