package controller

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  demon ", "demon"},
		{"parent:entity", "parent:entity"},
		{"solomon's-ring", "solomon's-ring"},
		{"demon`) DETACH DELETE (n", "demon DETACH DELETE n"},
		{"bael;{}$<>", "bael"},
		{"Émile Grillot de Givry", "Émile Grillot de Givry"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitize(tt.in), tt.in)
	}

	long := strings.Repeat("a", maxParamLength+20)
	assert.Len(t, sanitize(long), maxParamLength)
}
