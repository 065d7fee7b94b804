package tools

import (
	"context"
	"sync"

	"github.com/hivemindhq/hivemind/internal/chat"
)

// SourceCollector accumulates the citations a turn's tool calls
// produce. The agent loop creates one per turn and attaches it to the
// context; every knowledge or web hit lands here for the final sources
// event and the persisted message. Duplicates are kept — overlapping
// tool calls may legitimately cite the same material.
//
// Safe for concurrent use.
type SourceCollector struct {
	mu      sync.Mutex
	sources []chat.Source
}

// NewSourceCollector creates an empty collector.
func NewSourceCollector() *SourceCollector {
	return &SourceCollector{}
}

// Add appends sources in call order.
func (c *SourceCollector) Add(sources ...chat.Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = append(c.sources, sources...)
}

// Sources returns a copy of the accumulated list.
func (c *SourceCollector) Sources() []chat.Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chat.Source(nil), c.sources...)
}

// ContextWithCollector stores the turn's SourceCollector.
func ContextWithCollector(ctx context.Context, c *SourceCollector) context.Context {
	return context.WithValue(ctx, collectorKey{}, c)
}

// CollectorFromContext retrieves the turn's SourceCollector, or nil.
func CollectorFromContext(ctx context.Context) *SourceCollector {
	c, _ := ctx.Value(collectorKey{}).(*SourceCollector)
	return c
}
