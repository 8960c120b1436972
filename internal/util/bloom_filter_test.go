package util

import (
	"fmt"
	"testing"

	"github.com/Kenkkila/grimoire-site/internal/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestUIDFilter_BeforeLoad(t *testing.T) {
	f := NewUIDFilter(config.UIDFilterConfig{Enabled: true}, zap.NewNop())

	assert.False(t, f.Loaded())
	assert.True(t, f.MightContain("anything"))
}

func TestUIDFilter_Load(t *testing.T) {
	f := NewUIDFilter(config.UIDFilterConfig{Enabled: true, ExpectedItems: 10, FalsePositiveRate: 0.001}, zap.NewNop())

	uids := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		uids = append(uids, fmt.Sprintf("demon-%d", i))
	}
	f.Load(uids)

	assert.True(t, f.Loaded())
	assert.Equal(t, 50, f.Len())
	for _, uid := range uids {
		assert.True(t, f.MightContain(uid), uid)
	}

	misses := 0
	for i := 0; i < 1000; i++ {
		if !f.MightContain(fmt.Sprintf("angel-%d", i)) {
			misses++
		}
	}
	assert.Greater(t, misses, 950)
}
