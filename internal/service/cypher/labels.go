package cypher

import (
	"sort"
	"strings"
)

// ParentMarker tags organizational labels such as "parent:entity"
const ParentMarker = "parent"

// EntityParentLabel groups the supernatural entity labels
const EntityParentLabel = "parent:entity"

// LabelSet is an immutable set of queryable labels. It is safe for concurrent reads.
type LabelSet struct {
	ordered []string
	index   map[string]struct{}
}

// NewLabelSet builds a set from raw store labels, dropping blanks, duplicates and any
// label containing ParentMarker.
func NewLabelSet(labels []string) LabelSet {
	index := make(map[string]struct{}, len(labels))
	ordered := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" || strings.Contains(l, ParentMarker) {
			continue
		}
		if _, ok := index[l]; ok {
			continue
		}
		index[l] = struct{}{}
		ordered = append(ordered, l)
	}
	sort.Strings(ordered)
	return LabelSet{ordered: ordered, index: index}
}

// Contains is a pure membership check
func (s LabelSet) Contains(label string) bool {
	_, ok := s.index[label]
	return ok
}

// Labels returns a sorted copy of the members
func (s LabelSet) Labels() []string {
	out := make([]string, len(s.ordered))
	copy(out, s.ordered)
	return out
}

func (s LabelSet) Len() int {
	return len(s.ordered)
}

// quoteIdentifier escapes a label for interpolation into query text
func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
