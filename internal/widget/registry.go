package widget

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Factory builds a fresh Component instance. Registering factories rather
// than instances keeps per-instance state out of package scope, so two
// openings of the same widget never share leftover state.
type Factory func() Component

// Registration pairs a widget's descriptor with its factory.
type Registration struct {
	Descriptor Descriptor
	New        Factory
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Registration{}
)

// Register merges entries into the process-wide table. Registration is
// additive; a later entry with an already-known URI overwrites the earlier
// one. That is a documented hazard, not an error, but it is logged so a
// collision does not pass silently. Expected to run during start-up,
// before any Resolve.
func Register(entries ...Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, e := range entries {
		if e.Descriptor.URI == "" || e.New == nil {
			log.Warn().Str("uri", e.Descriptor.URI).Msg("widget: skipping incomplete registration")
			continue
		}
		if _, exists := registry[e.Descriptor.URI]; exists {
			log.Warn().Str("uri", e.Descriptor.URI).Msg("widget: overwriting existing registration")
		}
		registry[e.Descriptor.URI] = e
	}
}

// Resolve looks up a registration by URI. The second return reports
// presence; callers render an explicit unknown-widget fallback on false.
func Resolve(uri string) (Registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	r, ok := registry[uri]
	return r, ok
}

// All returns every registration sorted by URI for stable listing.
func All() []Registration {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Registration, 0, len(registry))
	for _, r := range registry {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Descriptor.URI < out[j].Descriptor.URI })
	return out
}

// resetRegistry clears the table. Test hook.
func resetRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = map[string]Registration{}
}
