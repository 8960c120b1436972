package cypher

// FieldKind declares what a returned column holds
type FieldKind int

const (
	FieldScalar FieldKind = iota
	FieldNode
	FieldRelationship
	FieldPath
	FieldNodeList
	FieldRelationshipList
)

func (k FieldKind) String() string {
	switch k {
	case FieldNode:
		return "node"
	case FieldRelationship:
		return "relationship"
	case FieldPath:
		return "path"
	case FieldNodeList:
		return "node_list"
	case FieldRelationshipList:
		return "relationship_list"
	default:
		return "scalar"
	}
}

// Field is one entry of a shape's field manifest
type Field struct {
	Name string
	Kind FieldKind
}

// Query is a built Cypher statement with its bound parameters and field manifest
type Query struct {
	Shape  string
	Text   string
	Params map[string]any
	Fields []Field
}

// Empty reports a query that must not be sent to the store, e.g. a blank search term
func (q Query) Empty() bool {
	return q.Text == ""
}
