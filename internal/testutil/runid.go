package testutil

import (
	"fmt"
	"sync"
)

// FixedRunIDs returns predictable run ids so recorded runs and golden
// files are byte-identical across test runs.
//
// With no ids it counts: "run-0001", "run-0002", ...
type FixedRunIDs struct {
	mu  sync.Mutex
	ids []string
	n   int
}

// NewFixedRunIDs creates a generator returning ids in order, then counting.
func NewFixedRunIDs(ids ...string) *FixedRunIDs {
	return &FixedRunIDs{ids: ids}
}

// Generate returns the next id.
func (g *FixedRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	i := g.n
	g.n++
	if i < len(g.ids) {
		return g.ids[i]
	}
	return fmt.Sprintf("run-%04d", i+1)
}
