package cypher

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	MaxDepth = 6
	MaxLimit = 100

	// OthersLimit caps the others-of-type sidebar
	OthersLimit = 5

	// Front page excerpts must fit a preview card
	MaxExcerptContent    = 500
	MaxExcerptIdentifier = 140

	// ExcerptLabel marks maintenance nodes excluded from search
	ExcerptLabel = "excerpt"
)

// DateProperties are the property names that place a node on the timeline
var DateProperties = []string{"born", "died", "crowned", "date", "year", "began", "ended"}

var propertyNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Shape is the closed set of query shapes the service knows how to run.
// Build validates every interpolated identifier against labels before producing text.
type Shape interface {
	Name() string
	Build(labels LabelSet) (Query, error)
	isShape()
}

// Operator joins the second anchor of a Filtered query
type Operator string

const (
	OperatorNone Operator = ""
	OperatorAnd  Operator = "and"
	OperatorNot  Operator = "not"
)

// ParseOperator accepts "", "and" and "not" in any case
func ParseOperator(s string) (Operator, error) {
	switch Operator(strings.ToLower(strings.TrimSpace(s))) {
	case OperatorNone:
		return OperatorNone, nil
	case OperatorAnd:
		return OperatorAnd, nil
	case OperatorNot:
		return OperatorNot, nil
	}
	return OperatorNone, invalidShape("filtered", "unknown operator %q", s)
}

func requireLabel(shape string, labels LabelSet, label string) (string, error) {
	if !labels.Contains(label) {
		return "", invalidShape(shape, "unknown label %q", label)
	}
	return quoteIdentifier(label), nil
}

func requireRange(shape, name string, v, max int) error {
	if v < 1 || v > max {
		return invalidShape(shape, "%s must be between 1 and %d, got %d", name, max, v)
	}
	return nil
}

func requireValue(shape, name, v string) error {
	if strings.TrimSpace(v) == "" {
		return invalidShape(shape, "%s must not be empty", name)
	}
	return nil
}

var nodeColumn = []Field{{Name: "n", Kind: FieldNode}}

// LabelScoped returns every node of Label, optionally only those adjacent to a ConnectionLabel node
type LabelScoped struct {
	Label           string
	ConnectionLabel string
}

func (LabelScoped) Name() string { return "label_scoped" }
func (LabelScoped) isShape()     {}

func (s LabelScoped) Build(labels LabelSet) (Query, error) {
	label, err := requireLabel(s.Name(), labels, s.Label)
	if err != nil {
		return Query{}, err
	}

	pattern := fmt.Sprintf("(n:%s)", label)
	if s.ConnectionLabel != "" {
		conn, err := requireLabel(s.Name(), labels, s.ConnectionLabel)
		if err != nil {
			return Query{}, err
		}
		pattern += fmt.Sprintf("--(:%s)", conn)
	}

	return Query{
		Shape:  s.Name(),
		Text:   fmt.Sprintf("MATCH %s\nRETURN DISTINCT n", pattern),
		Params: map[string]any{},
		Fields: nodeColumn,
	}, nil
}

// NodeByUID returns the node plus each adjacent relationship as a path, so both
// endpoints arrive with the relationship.
type NodeByUID struct {
	UID string
}

func (NodeByUID) Name() string { return "node_by_uid" }
func (NodeByUID) isShape()     {}

func (s NodeByUID) Build(LabelSet) (Query, error) {
	if err := requireValue(s.Name(), "uid", s.UID); err != nil {
		return Query{}, err
	}
	return Query{
		Shape: s.Name(),
		Text: "MATCH (n) WHERE n.uid = $uid\n" +
			"OPTIONAL MATCH p = (n)-[]-()\n" +
			"RETURN n, p",
		Params: map[string]any{"uid": s.UID},
		Fields: []Field{{Name: "n", Kind: FieldNode}, {Name: "p", Kind: FieldPath}},
	}, nil
}

// RandomNode picks one node uniformly from the whole graph
type RandomNode struct{}

func (RandomNode) Name() string { return "random" }
func (RandomNode) isShape()     {}

func (s RandomNode) Build(LabelSet) (Query, error) {
	return Query{
		Shape:  s.Name(),
		Text:   "MATCH (n)\nRETURN n\nORDER BY rand()\nLIMIT 1",
		Params: map[string]any{},
		Fields: nodeColumn,
	}, nil
}

// Search is a case-insensitive substring match on identifier and alternate_names.
// A blank term builds an empty query.
type Search struct {
	Term string
}

func (Search) Name() string { return "search" }
func (Search) isShape()     {}

func (s Search) Build(LabelSet) (Query, error) {
	term := strings.ToLower(strings.TrimSpace(s.Term))
	if term == "" {
		return Query{Shape: s.Name()}, nil
	}
	return Query{
		Shape: s.Name(),
		Text: "MATCH (n)\n" +
			"WHERE (toLower(n.identifier) CONTAINS $term OR toLower(n.alternate_names) CONTAINS $term)\n" +
			"  AND NOT n:" + quoteIdentifier(ExcerptLabel) + "\n" +
			"RETURN n\n" +
			"ORDER BY n.identifier",
		Params: map[string]any{"term": term},
		Fields: nodeColumn,
	}, nil
}

// Related finds Label nodes exactly Depth hops from the reference node, ranked by the
// number of distinct connecting paths.
type Related struct {
	UID   string
	Label string
	Depth int
	Limit int
}

func (Related) Name() string { return "related" }
func (Related) isShape()     {}

func (s Related) Build(labels LabelSet) (Query, error) {
	if err := requireValue(s.Name(), "uid", s.UID); err != nil {
		return Query{}, err
	}
	label, err := requireLabel(s.Name(), labels, s.Label)
	if err != nil {
		return Query{}, err
	}
	if err := requireRange(s.Name(), "depth", s.Depth, MaxDepth); err != nil {
		return Query{}, err
	}
	if err := requireRange(s.Name(), "limit", s.Limit, MaxLimit); err != nil {
		return Query{}, err
	}

	text := fmt.Sprintf("MATCH p = (m)-[*%d]-(n:%s)\n"+
		"WHERE m.uid = $uid AND n <> m\n"+
		"RETURN n, count(DISTINCT p) AS connections\n"+
		"ORDER BY connections DESC\n"+
		"LIMIT %d", s.Depth, label, s.Limit)

	return Query{
		Shape:  s.Name(),
		Text:   text,
		Params: map[string]any{"uid": s.UID},
		Fields: []Field{{Name: "n", Kind: FieldNode}, {Name: "connections", Kind: FieldScalar}},
	}, nil
}

// OthersOfType lists up to OthersLimit Label nodes adjacent to UID, skipping ExcludeUID
type OthersOfType struct {
	Label      string
	UID        string
	ExcludeUID string
}

func (OthersOfType) Name() string { return "others_of_type" }
func (OthersOfType) isShape()     {}

func (s OthersOfType) Build(labels LabelSet) (Query, error) {
	label, err := requireLabel(s.Name(), labels, s.Label)
	if err != nil {
		return Query{}, err
	}
	if err := requireValue(s.Name(), "uid", s.UID); err != nil {
		return Query{}, err
	}

	text := fmt.Sprintf("MATCH (n:%s)--(m)\n"+
		"WHERE m.uid = $uid AND n.uid <> $exclude\n"+
		"RETURN DISTINCT n\n"+
		"LIMIT %d", label, OthersLimit)

	return Query{
		Shape:  s.Name(),
		Text:   text,
		Params: map[string]any{"uid": s.UID, "exclude": s.ExcludeUID},
		Fields: nodeColumn,
	}, nil
}

// Filtered finds Label nodes connected to Anchor1 and, when Anchor2 is set, either also
// connected to it (OperatorAnd or OperatorNone) or not connected to it (OperatorNot).
type Filtered struct {
	Label    string
	Anchor1  string
	Anchor2  string
	Operator Operator
}

func (Filtered) Name() string { return "filtered" }
func (Filtered) isShape()     {}

func (s Filtered) Build(labels LabelSet) (Query, error) {
	label, err := requireLabel(s.Name(), labels, s.Label)
	if err != nil {
		return Query{}, err
	}
	if err := requireValue(s.Name(), "item1", s.Anchor1); err != nil {
		return Query{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "MATCH (n:%s)--(m)\nWHERE m.uid = $item1", label)
	params := map[string]any{"item1": s.Anchor1}

	if strings.TrimSpace(s.Anchor2) != "" {
		switch s.Operator {
		case OperatorNone, OperatorAnd:
			b.WriteString("\n  AND EXISTS { MATCH (n)--(p) WHERE p.uid = $item2 }")
		case OperatorNot:
			b.WriteString("\n  AND NOT EXISTS { MATCH (n)--(p) WHERE p.uid = $item2 }")
		default:
			return Query{}, invalidShape(s.Name(), "unknown operator %q", string(s.Operator))
		}
		params["item2"] = s.Anchor2
	}
	b.WriteString("\nRETURN DISTINCT n")

	return Query{
		Shape:  s.Name(),
		Text:   b.String(),
		Params: params,
		Fields: nodeColumn,
	}, nil
}

// SharedEntities groups entities listed by more than one grimoire, largest groups first.
// Build expects the entity label set.
type SharedEntities struct {
	Entity string
}

func (SharedEntities) Name() string { return "shared_entities" }
func (SharedEntities) isShape()     {}

func (s SharedEntities) Build(entities LabelSet) (Query, error) {
	entity, err := requireLabel(s.Name(), entities, s.Entity)
	if err != nil {
		return Query{}, err
	}

	text := fmt.Sprintf("MATCH (g:grimoire)-[r:lists]-(m:%s)\n"+
		"WITH m, collect(DISTINCT g) AS grimoires, collect(r) AS rels\n"+
		"WHERE size(grimoires) > 1\n"+
		"RETURN m, grimoires, rels\n"+
		"ORDER BY size(grimoires) DESC", entity)

	return Query{
		Shape:  s.Name(),
		Text:   text,
		Params: map[string]any{},
		Fields: []Field{
			{Name: "m", Kind: FieldNode},
			{Name: "grimoires", Kind: FieldNodeList},
			{Name: "rels", Kind: FieldRelationshipList},
		},
	}, nil
}

// SingleSourceEntities groups, by grimoire, the entities that only one grimoire lists.
// Build expects the entity label set.
type SingleSourceEntities struct {
	Entity string
}

func (SingleSourceEntities) Name() string { return "single_source_entities" }
func (SingleSourceEntities) isShape()     {}

func (s SingleSourceEntities) Build(entities LabelSet) (Query, error) {
	entity, err := requireLabel(s.Name(), entities, s.Entity)
	if err != nil {
		return Query{}, err
	}

	text := fmt.Sprintf("MATCH (:grimoire)-[r:lists]->(m:%s)\n"+
		"WITH m, collect(r) AS listings\n"+
		"WHERE size(listings) = 1\n"+
		"WITH m, listings[0] AS r\n"+
		"WITH startNode(r) AS g, collect(m) AS entities, collect(r) AS rels\n"+
		"RETURN g, entities, rels\n"+
		"ORDER BY g.identifier", entity)

	return Query{
		Shape:  s.Name(),
		Text:   text,
		Params: map[string]any{},
		Fields: []Field{
			{Name: "g", Kind: FieldNode},
			{Name: "entities", Kind: FieldNodeList},
			{Name: "rels", Kind: FieldRelationshipList},
		},
	}, nil
}

// WithProperty returns every node that has Property set
type WithProperty struct {
	Property string
}

func (WithProperty) Name() string { return "with_property" }
func (WithProperty) isShape()     {}

func (s WithProperty) Build(LabelSet) (Query, error) {
	if !propertyNamePattern.MatchString(s.Property) {
		return Query{}, invalidShape(s.Name(), "invalid property name %q", s.Property)
	}
	return Query{
		Shape:  s.Name(),
		Text:   "MATCH (n)\nWHERE n[$property] IS NOT NULL\nRETURN n",
		Params: map[string]any{"property": s.Property},
		Fields: nodeColumn,
	}, nil
}

// Timeline returns every node carrying at least one of DateProperties
type Timeline struct{}

func (Timeline) Name() string { return "timeline" }
func (Timeline) isShape()     {}

func (s Timeline) Build(LabelSet) (Query, error) {
	checks := make([]string, len(DateProperties))
	for i, p := range DateProperties {
		checks[i] = fmt.Sprintf("n.%s IS NOT NULL", p)
	}
	return Query{
		Shape:  s.Name(),
		Text:   "MATCH (n)\nWHERE " + strings.Join(checks, " OR ") + "\nRETURN n",
		Params: map[string]any{},
		Fields: nodeColumn,
	}, nil
}

// FrontPage samples one short excerpt for the landing page
type FrontPage struct{}

func (FrontPage) Name() string { return "front_page" }
func (FrontPage) isShape()     {}

func (s FrontPage) Build(LabelSet) (Query, error) {
	text := fmt.Sprintf("MATCH (n:%s)\n"+
		"WHERE size(n.content) < %d AND size(n.identifier) < %d\n"+
		"RETURN n\n"+
		"ORDER BY rand()\n"+
		"LIMIT 1", quoteIdentifier(ExcerptLabel), MaxExcerptContent, MaxExcerptIdentifier)
	return Query{
		Shape:  s.Name(),
		Text:   text,
		Params: map[string]any{},
		Fields: nodeColumn,
	}, nil
}

// SpellsByOutcome groups spells under the outcome nodes they are attached to
type SpellsByOutcome struct{}

func (SpellsByOutcome) Name() string { return "spells_by_outcome" }
func (SpellsByOutcome) isShape()     {}

func (s SpellsByOutcome) Build(LabelSet) (Query, error) {
	return Query{
		Shape: s.Name(),
		Text: "MATCH (n:outcome)-[r]-(m:spell)\n" +
			"WITH n, collect(DISTINCT m) AS spells, collect(r) AS rels\n" +
			"RETURN n, spells, rels",
		Params: map[string]any{},
		Fields: []Field{
			{Name: "n", Kind: FieldNode},
			{Name: "spells", Kind: FieldNodeList},
			{Name: "rels", Kind: FieldRelationshipList},
		},
	}, nil
}

// DistinctLabels lists every label in the store, or only those of nodes carrying Parent
type DistinctLabels struct {
	Parent string
}

func (DistinctLabels) Name() string { return "distinct_labels" }
func (DistinctLabels) isShape()     {}

// Build ignores the label set: this is the query that discovers it. Parent is a fixed
// constant supplied by the service, never caller input.
func (s DistinctLabels) Build(LabelSet) (Query, error) {
	match := "MATCH (n)"
	if s.Parent != "" {
		match = fmt.Sprintf("MATCH (n:%s)", quoteIdentifier(s.Parent))
	}
	return Query{
		Shape:  s.Name(),
		Text:   match + "\nUNWIND labels(n) AS label\nRETURN DISTINCT label",
		Params: map[string]any{},
		Fields: []Field{{Name: "label", Kind: FieldScalar}},
	}, nil
}

// AllUIDs lists every uid property, used to seed the uid filter
type AllUIDs struct{}

func (AllUIDs) Name() string { return "all_uids" }
func (AllUIDs) isShape()     {}

func (s AllUIDs) Build(LabelSet) (Query, error) {
	return Query{
		Shape:  s.Name(),
		Text:   "MATCH (n)\nWHERE n.uid IS NOT NULL\nRETURN DISTINCT n.uid AS uid",
		Params: map[string]any{},
		Fields: []Field{{Name: "uid", Kind: FieldScalar}},
	}, nil
}
