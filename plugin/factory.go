package plugin

import (
	"sort"
	"sync"

	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
)

// FactoryFunc builds a Model from manifest hyperparameters.
type FactoryFunc func(hyperparams map[string]any) (Model, error)

// Factories is the registration list manifest units bind to. Only factories
// registered here can be named by a manifest.
type Factories struct {
	mu sync.RWMutex
	m  map[string]FactoryFunc
}

// NewFactories returns an empty registration list.
func NewFactories() *Factories {
	return &Factories{m: make(map[string]FactoryFunc)}
}

// Register adds fn under name. Registering a name twice is an error.
func (f *Factories) Register(name string, fn FactoryFunc) error {
	if name == "" {
		return errors.NewValidationError("factory", "name is empty", name)
	}
	if fn == nil {
		return errors.NewValidationError("factory", "function is nil", name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.m[name]; exists {
		return errors.Newf("factory %q already registered", name)
	}
	f.m[name] = fn
	return nil
}

// MustRegister is Register that panics on error, for init-time wiring.
func (f *Factories) MustRegister(name string, fn FactoryFunc) {
	if err := f.Register(name, fn); err != nil {
		panic(err)
	}
}

// Lookup returns the factory registered under name.
func (f *Factories) Lookup(name string) (FactoryFunc, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	fn, ok := f.m[name]
	return fn, ok
}

// Names returns the registered names in sorted order.
func (f *Factories) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.m))
	for n := range f.m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
