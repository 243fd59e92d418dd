package strategy

import (
	"errors"
	"fmt"
	"sort"
)

// ErrStrategyNotFound is returned by Create for unknown strategy names.
// Fatal at construction time; there is no fallback strategy.
var ErrStrategyNotFound = errors.New("strategy not found")

// Factory builds a strategy from a parameter bag.
type Factory func(params Params) Strategy

// Registry maps stable strategy names to factories. Independent instances
// can be created for test isolation; the package-level Default registry
// serves the CLIs.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces a factory under a name.
func (r *Registry) Register(name string, factory Factory) {
	r.factories[name] = factory
}

// Create instantiates the named strategy. Unknown parameter keys are the
// strategy's concern, not the registry's.
func (r *Registry) Create(name string, params Params) (Strategy, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrStrategyNotFound, name)
	}
	if params == nil {
		params = Params{}
	}
	return factory(params), nil
}

// List returns the registered names sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default holds the reference strategies.
var Default = NewRegistry()

func init() {
	Default.Register("momentum", func(params Params) Strategy { return NewMomentum(params) })
	Default.Register("mean_reversion", func(params Params) Strategy { return NewMeanReversion(params) })
	Default.Register("breakout", func(params Params) Strategy { return NewBreakout(params) })
}
