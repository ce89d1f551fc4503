package strategies

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/nzai/vpa/constants"
	"go.uber.org/zap"
)

// Builder collect strategy factories before the registry is frozen
type Builder struct {
	factories map[string]Factory
	built     bool
	mutex     *sync.Mutex
}

// NewBuilder create registry builder
func NewBuilder() *Builder {
	return &Builder{
		factories: map[string]Factory{},
		mutex:     new(sync.Mutex),
	}
}

// Register add factory, a reused name replaces the previous factory
func (b *Builder) Register(name string, factory Factory) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.built {
		zap.L().Error("register strategy after build", zap.String("name", name))
		return constants.ErrRegistryFrozen
	}

	if _, found := b.factories[name]; found {
		zap.L().Warn("strategy registered twice", zap.String("name", name))
	}

	b.factories[name] = factory
	return nil
}

// Build freeze builder into a read only registry
func (b *Builder) Build() *Registry {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.built = true

	factories := make(map[string]Factory, len(b.factories))
	names := make([]string, 0, len(b.factories))
	for name, factory := range b.factories {
		factories[name] = factory
		names = append(names, name)
	}
	sort.Strings(names)

	return &Registry{factories: factories, names: names}
}

// Registry read only strategy name to factory mapping
type Registry struct {
	factories map[string]Factory
	names     []string
}

// List registered strategy names
func (r Registry) List() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Get factory by name, found is false for unknown names
func (r Registry) Get(name string) (Factory, bool) {
	factory, found := r.factories[name]
	return factory, found
}

// Parse create strategies from a comma separated name list
func (r Registry) Parse(arg string) ([]Strategy, error) {
	var strategies []Strategy
	for _, name := range strings.Split(arg, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		factory, found := r.Get(name)
		if !found {
			return nil, fmt.Errorf("invalid strategy: %s", name)
		}

		strategies = append(strategies, factory())
	}

	return strategies, nil
}

var defaultRegistry = register(NewBuilder())

// register every available strategy
func register(b *Builder) *Registry {
	factories := []struct {
		name    string
		factory Factory
	}{
		{PumpName, NewPump},
		{TrailingStopName, NewTrailingStop},
	}

	for _, f := range factories {
		err := b.Register(f.name, f.factory)
		if err != nil {
			zap.L().Panic("register strategy failed", zap.Error(err), zap.String("name", f.name))
		}
	}

	return b.Build()
}

// Default process wide registry
func Default() *Registry {
	return defaultRegistry
}
