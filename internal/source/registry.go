package source

import (
	"fmt"
	"sort"
	"time"

	"StockPulse/internal/domain/models"
)

// Registry is the immutable per-segment catalog of sources, sorted
// ascending by priority at construction. There is no runtime
// mutation; hot-swapping sources is out of scope.
type Registry struct {
	bySegment map[models.MarketSegment][]Descriptor
}

// NewRegistry validates and freezes the descriptor lists. Descriptors
// without an adapter or with duplicate names within a segment are
// construction errors so contract mismatches surface at startup, not
// at request time.
func NewRegistry(entries map[models.MarketSegment][]Descriptor) (*Registry, error) {
	frozen := make(map[models.MarketSegment][]Descriptor, len(entries))
	for segment, list := range entries {
		if !segment.Valid() {
			return nil, fmt.Errorf("registry: unknown segment %q", segment)
		}
		seen := make(map[string]bool, len(list))
		copied := make([]Descriptor, len(list))
		copy(copied, list)
		for i, d := range copied {
			if d.Name == "" {
				return nil, fmt.Errorf("registry: unnamed source in segment %s", segment)
			}
			if d.Adapter == nil {
				return nil, fmt.Errorf("registry: source %s has no adapter", d.Name)
			}
			if seen[d.Name] {
				return nil, fmt.Errorf("registry: duplicate source %s in segment %s", d.Name, segment)
			}
			seen[d.Name] = true
			if d.MinInterval <= 0 {
				copied[i].MinInterval = 500 * time.Millisecond
			}
			if d.Timeout <= 0 {
				copied[i].Timeout = 30 * time.Second
			}
		}
		sort.SliceStable(copied, func(i, j int) bool {
			return copied[i].Priority < copied[j].Priority
		})
		frozen[segment] = copied
	}
	return &Registry{bySegment: frozen}, nil
}

// Sources returns the priority-ordered descriptor list for a segment.
// The returned slice must not be modified.
func (r *Registry) Sources(segment models.MarketSegment) []Descriptor {
	return r.bySegment[segment]
}

// Segments lists the segments with at least one configured source, in
// the canonical segment order.
func (r *Registry) Segments() []models.MarketSegment {
	out := make([]models.MarketSegment, 0, len(r.bySegment))
	for _, s := range models.AllSegments() {
		if len(r.bySegment[s]) > 0 {
			out = append(out, s)
		}
	}
	return out
}
