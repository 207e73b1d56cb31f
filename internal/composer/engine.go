package composer

import (
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/registry"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/specimen"
)

// Engine composes against a swappable registry. A call loads the current
// snapshot once and finishes against it, so a concurrent Swap never mixes two
// registries inside one composition.
type Engine struct {
	snap *registry.Snapshot
	opts []Option
}

// NewEngine creates an engine serving reg until the next Swap.
func NewEngine(reg *registry.Registry, opts ...Option) *Engine {
	return &Engine{snap: registry.NewSnapshot(reg), opts: opts}
}

// Compose composes ctx against the current registry.
func (e *Engine) Compose(ctx specimen.Context) (CompositionResult, error) {
	return New(e.snap.Load(), e.opts...).Compose(ctx)
}

// Registry returns the registry currently served.
func (e *Engine) Registry() *registry.Registry {
	return e.snap.Load()
}

// Swap installs reg for subsequent calls and returns the previous registry.
// A nil reg is ignored.
func (e *Engine) Swap(reg *registry.Registry) *registry.Registry {
	return e.snap.Swap(reg)
}
