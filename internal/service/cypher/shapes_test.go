package cypher

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLabels = NewLabelSet([]string{"grimoire", "demon", "spell", "edition", "excerpt", "parent:entity"})

func TestLabelSet(t *testing.T) {
	set := NewLabelSet([]string{"spell", "demon", "", "parent:entity", "demon", "grimoire"})

	assert.Equal(t, []string{"demon", "grimoire", "spell"}, set.Labels())
	assert.Equal(t, 3, set.Len())

	for _, l := range set.Labels() {
		assert.True(t, set.Contains(l), l)
		assert.NotContains(t, l, ParentMarker)
	}
	for _, l := range []string{"", "parent:entity", "Demon", "angel", "demon "} {
		assert.False(t, set.Contains(l), l)
	}

	labels := set.Labels()
	labels[0] = "mutated"
	assert.False(t, set.Contains("mutated"))
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, "`demon`", quoteIdentifier("demon"))
	assert.Equal(t, "`odd``label`", quoteIdentifier("odd`label"))
}

func TestParseOperator(t *testing.T) {
	tests := []struct {
		in      string
		want    Operator
		wantErr bool
	}{
		{"", OperatorNone, false},
		{"and", OperatorAnd, false},
		{"NOT", OperatorNot, false},
		{" not ", OperatorNot, false},
		{"or", OperatorNone, true},
		{"not; MATCH (x) DETACH DELETE x", OperatorNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOperator(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidQueryShape))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuild_RejectsUnknownLabels(t *testing.T) {
	shapes := []Shape{
		LabelScoped{Label: "angel"},
		LabelScoped{Label: "demon", ConnectionLabel: "angel"},
		LabelScoped{Label: "demon) DETACH DELETE (x"},
		Related{UID: "asmodeus", Label: "angel", Depth: 2, Limit: 5},
		OthersOfType{Label: "parent:entity", UID: "a"},
		Filtered{Label: "angel", Anchor1: "a"},
		SharedEntities{Entity: "angel"},
		SingleSourceEntities{Entity: "angel"},
	}

	for _, s := range shapes {
		t.Run(s.Name(), func(t *testing.T) {
			_, err := s.Build(testLabels)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidQueryShape)
		})
	}
}

func TestLabelScoped(t *testing.T) {
	q, err := LabelScoped{Label: "demon"}.Build(testLabels)
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n:`demon`)\nRETURN DISTINCT n", q.Text)
	assert.Empty(t, q.Params)
	assert.Equal(t, []Field{{Name: "n", Kind: FieldNode}}, q.Fields)

	q, err = LabelScoped{Label: "demon", ConnectionLabel: "grimoire"}.Build(testLabels)
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n:`demon`)--(:`grimoire`)\nRETURN DISTINCT n", q.Text)
}

func TestNodeByUID(t *testing.T) {
	q, err := NodeByUID{UID: "goetia"}.Build(testLabels)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"uid": "goetia"}, q.Params)
	assert.NotContains(t, q.Text, "goetia")
	assert.Contains(t, q.Text, "OPTIONAL MATCH p = (n)-[]-()")
	assert.Equal(t, FieldPath, q.Fields[1].Kind)

	_, err = NodeByUID{UID: "  "}.Build(testLabels)
	assert.ErrorIs(t, err, ErrInvalidQueryShape)
}

func TestSearch(t *testing.T) {
	q, err := Search{Term: "  Demon "}.Build(testLabels)
	require.NoError(t, err)
	assert.False(t, q.Empty())
	assert.Equal(t, "demon", q.Params["term"])
	assert.Contains(t, q.Text, "NOT n:`excerpt`")
	assert.Contains(t, q.Text, "toLower(n.identifier) CONTAINS $term")
	assert.Contains(t, q.Text, "toLower(n.alternate_names) CONTAINS $term")

	q, err = Search{Term: "' OR 1=1 //"}.Build(testLabels)
	require.NoError(t, err)
	assert.NotContains(t, q.Text, "1=1")

	for _, term := range []string{"", "   \t"} {
		q, err = Search{Term: term}.Build(testLabels)
		require.NoError(t, err)
		assert.True(t, q.Empty())
	}
}

func TestRelated(t *testing.T) {
	q, err := Related{UID: "goetia", Label: "spell", Depth: 3, Limit: 7}.Build(testLabels)
	require.NoError(t, err)
	assert.Equal(t, "MATCH p = (m)-[*3]-(n:`spell`)\n"+
		"WHERE m.uid = $uid AND n <> m\n"+
		"RETURN n, count(DISTINCT p) AS connections\n"+
		"ORDER BY connections DESC\n"+
		"LIMIT 7", q.Text)
	assert.Equal(t, map[string]any{"uid": "goetia"}, q.Params)

	bad := []Related{
		{UID: "goetia", Label: "spell", Depth: 0, Limit: 5},
		{UID: "goetia", Label: "spell", Depth: -1, Limit: 5},
		{UID: "goetia", Label: "spell", Depth: MaxDepth + 1, Limit: 5},
		{UID: "goetia", Label: "spell", Depth: 2, Limit: 0},
		{UID: "goetia", Label: "spell", Depth: 2, Limit: MaxLimit + 1},
		{UID: "", Label: "spell", Depth: 2, Limit: 5},
	}
	for _, r := range bad {
		_, err := r.Build(testLabels)
		assert.ErrorIs(t, err, ErrInvalidQueryShape, "%+v", r)
	}
}

func TestOthersOfType(t *testing.T) {
	q, err := OthersOfType{Label: "edition", UID: "peterson", ExcludeUID: "goetia-1"}.Build(testLabels)
	require.NoError(t, err)
	assert.Contains(t, q.Text, "MATCH (n:`edition`)--(m)")
	assert.Contains(t, q.Text, "n.uid <> $exclude")
	assert.True(t, strings.HasSuffix(q.Text, "LIMIT 5"))
	assert.Equal(t, map[string]any{"uid": "peterson", "exclude": "goetia-1"}, q.Params)
}

func TestFiltered(t *testing.T) {
	q, err := Filtered{Label: "demon", Anchor1: "goetia"}.Build(testLabels)
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n:`demon`)--(m)\nWHERE m.uid = $item1\nRETURN DISTINCT n", q.Text)
	assert.Equal(t, map[string]any{"item1": "goetia"}, q.Params)

	q, err = Filtered{Label: "demon", Anchor1: "goetia", Anchor2: "pseudomonarchia", Operator: OperatorAnd}.Build(testLabels)
	require.NoError(t, err)
	assert.Contains(t, q.Text, "AND EXISTS { MATCH (n)--(p) WHERE p.uid = $item2 }")
	assert.NotContains(t, q.Text, "NOT EXISTS")
	assert.Equal(t, "pseudomonarchia", q.Params["item2"])

	q, err = Filtered{Label: "demon", Anchor1: "goetia", Anchor2: "pseudomonarchia"}.Build(testLabels)
	require.NoError(t, err)
	assert.Contains(t, q.Text, "AND EXISTS")

	q, err = Filtered{Label: "demon", Anchor1: "goetia", Anchor2: "pseudomonarchia", Operator: OperatorNot}.Build(testLabels)
	require.NoError(t, err)
	assert.Contains(t, q.Text, "AND NOT EXISTS { MATCH (n)--(p) WHERE p.uid = $item2 }")

	q, err = Filtered{Label: "demon", Anchor1: "goetia", Operator: OperatorNot}.Build(testLabels)
	require.NoError(t, err)
	assert.NotContains(t, q.Text, "$item2")

	_, err = Filtered{Label: "demon", Anchor1: "goetia", Anchor2: "x", Operator: Operator("xor")}.Build(testLabels)
	assert.ErrorIs(t, err, ErrInvalidQueryShape)

	_, err = Filtered{Label: "demon"}.Build(testLabels)
	assert.ErrorIs(t, err, ErrInvalidQueryShape)
}

func TestGroupedShapes(t *testing.T) {
	entities := NewLabelSet([]string{"demon", "angel"})

	q, err := SharedEntities{Entity: "demon"}.Build(entities)
	require.NoError(t, err)
	assert.Contains(t, q.Text, "(g:grimoire)-[r:lists]-(m:`demon`)")
	assert.Contains(t, q.Text, "WHERE size(grimoires) > 1")
	assert.Contains(t, q.Text, "ORDER BY size(grimoires) DESC")
	assert.Equal(t, FieldNodeList, q.Fields[1].Kind)
	assert.Equal(t, FieldRelationshipList, q.Fields[2].Kind)

	q, err = SingleSourceEntities{Entity: "angel"}.Build(entities)
	require.NoError(t, err)
	assert.Contains(t, q.Text, "(:grimoire)-[r:lists]->(m:`angel`)")
	assert.Contains(t, q.Text, "WHERE size(listings) = 1")

	_, err = SharedEntities{Entity: "grimoire"}.Build(entities)
	assert.ErrorIs(t, err, ErrInvalidQueryShape)
}

func TestWithProperty(t *testing.T) {
	q, err := WithProperty{Property: "born"}.Build(testLabels)
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n)\nWHERE n[$property] IS NOT NULL\nRETURN n", q.Text)
	assert.Equal(t, "born", q.Params["property"])

	for _, p := range []string{"", "1born", "born date", "born`", "x) RETURN 1 //"} {
		_, err := WithProperty{Property: p}.Build(testLabels)
		assert.ErrorIs(t, err, ErrInvalidQueryShape, p)
	}
}

func TestFixedShapes(t *testing.T) {
	q, err := Timeline{}.Build(LabelSet{})
	require.NoError(t, err)
	for _, p := range DateProperties {
		assert.Contains(t, q.Text, "n."+p+" IS NOT NULL")
	}
	assert.Equal(t, len(DateProperties)-1, strings.Count(q.Text, " OR "))

	q, err = FrontPage{}.Build(LabelSet{})
	require.NoError(t, err)
	assert.Contains(t, q.Text, "MATCH (n:`excerpt`)")
	assert.Contains(t, q.Text, "size(n.content) < 500 AND size(n.identifier) < 140")

	q, err = RandomNode{}.Build(LabelSet{})
	require.NoError(t, err)
	assert.Contains(t, q.Text, "ORDER BY rand()")

	q, err = SpellsByOutcome{}.Build(LabelSet{})
	require.NoError(t, err)
	assert.Contains(t, q.Text, "(n:outcome)-[r]-(m:spell)")

	q, err = DistinctLabels{Parent: EntityParentLabel}.Build(LabelSet{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(q.Text, "MATCH (n:`parent:entity`)"))
}
