package util

import (
	"sync"

	"github.com/Kenkkila/grimoire-site/internal/config"

	"github.com/bits-and-blooms/bloom/v3"
	"go.uber.org/zap"
)

// UIDFilter is a bloom filter over every node uid in the graph. It answers "definitely
// absent" without a store round trip; "maybe present" still needs the store.
type UIDFilter struct {
	config config.UIDFilterConfig
	filter *bloom.BloomFilter
	count  int
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewUIDFilter creates an empty filter. Until Load is called every uid tests as present.
func NewUIDFilter(cfg config.UIDFilterConfig, logger *zap.Logger) *UIDFilter {
	// Set defaults
	if cfg.ExpectedItems == 0 {
		cfg.ExpectedItems = 100000
	}
	if cfg.FalsePositiveRate == 0 {
		cfg.FalsePositiveRate = 0.01
	}

	return &UIDFilter{
		config: cfg,
		logger: logger,
	}
}

// Load replaces the filter contents with uids
func (f *UIDFilter) Load(uids []string) {
	expected := f.config.ExpectedItems
	if uint(len(uids)) > expected {
		expected = uint(len(uids))
	}

	filter := bloom.NewWithEstimates(expected, f.config.FalsePositiveRate)
	for _, uid := range uids {
		filter.AddString(uid)
	}

	f.mu.Lock()
	f.filter = filter
	f.count = len(uids)
	f.mu.Unlock()

	f.logger.Info("Loaded uid filter",
		zap.Int("uids", len(uids)),
		zap.Uint("capacity", expected),
		zap.Float64("false_positive_rate", f.config.FalsePositiveRate))
}

// MightContain returns false only if uid is definitely not in the graph
func (f *UIDFilter) MightContain(uid string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.filter == nil {
		return true
	}
	return f.filter.TestString(uid)
}

// Loaded reports whether Load has populated the filter
func (f *UIDFilter) Loaded() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter != nil
}

func (f *UIDFilter) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.count
}
