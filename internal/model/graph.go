package model

// Node is one graph vertex as handed to presentation code
type Node struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// UID returns the human-readable unique id property, or "" when absent
func (n *Node) UID() string {
	return n.stringProperty("uid")
}

// Identifier returns the display name property, or "" when absent
func (n *Node) Identifier() string {
	return n.stringProperty("identifier")
}

func (n *Node) stringProperty(key string) string {
	if n == nil || n.Properties == nil {
		return ""
	}
	s, _ := n.Properties[key].(string)
	return s
}

// Relationship is one directed, typed edge. Start and End point at nodes of the same ResultSet.
type Relationship struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	StartID    string         `json:"start_id"`
	EndID      string         `json:"end_id"`
	Start      *Node          `json:"start"`
	End        *Node          `json:"end"`
	Properties map[string]any `json:"properties"`
}

// ResultSet is the normalized output of any graph query
type ResultSet struct {
	Nodes         []*Node         `json:"nodes"`
	Relationships []*Relationship `json:"relationships"`
}

// EmptyResultSet returns a result with non-nil empty slices so it encodes as [] rather than null
func EmptyResultSet() ResultSet {
	return ResultSet{
		Nodes:         []*Node{},
		Relationships: []*Relationship{},
	}
}

// IsEmpty reports whether nothing matched
func (rs ResultSet) IsEmpty() bool {
	return len(rs.Nodes) == 0 && len(rs.Relationships) == 0
}

// NodeByID finds a node of the result by its identity
func (rs ResultSet) NodeByID(id string) *Node {
	for _, n := range rs.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// NodesWithLabel returns the nodes whose primary label matches
func (rs ResultSet) NodesWithLabel(label string) []*Node {
	var out []*Node
	for _, n := range rs.Nodes {
		if n.Label == label {
			out = append(out, n)
		}
	}
	return out
}
