package crud

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/conduit-lang/breeze/internal/orm/schema"
)

// Registry holds the models of one manager, addressable by entity or resource name
type Registry struct {
	mu        sync.RWMutex
	models    []*Model
	byName    map[string]*Model
	byEntity  map[*schema.EntityType]*Model
	resources map[string]*Model
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byName:    make(map[string]*Model),
		byEntity:  make(map[*schema.EntityType]*Model),
		resources: make(map[string]*Model),
	}
}

// RegisterAll adds the models of one import together with their resource names.
// Either every model is registered or, on a name clash, none is.
func (r *Registry) RegisterAll(models []*Model, resources map[string]*schema.EntityType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byEntity := make(map[*schema.EntityType]*Model, len(models))
	for _, m := range models {
		if _, exists := r.byName[m.Name()]; exists {
			return fmt.Errorf("model %s is already registered", m.Name())
		}
		byEntity[m.entity] = m
	}

	names := make([]string, 0, len(resources))
	for name := range resources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if existing, exists := r.resources[name]; exists {
			return fmt.Errorf("resource %s is already registered to %s", name, existing.Name())
		}
		if _, ok := byEntity[resources[name]]; !ok {
			return fmt.Errorf("resource %s maps to unknown model %s", name, resources[name].Name)
		}
	}

	for _, m := range models {
		m.registry = r
		r.models = append(r.models, m)
		r.byName[m.Name()] = m
		r.byEntity[m.entity] = m
	}
	for _, name := range names {
		r.resources[name] = byEntity[resources[name]]
	}

	return nil
}

// Get returns a model by entity name, qualified name ("Order:#Northwind") or resource name
func (r *Registry) Get(name string) (*Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if m, ok := r.byName[name]; ok {
		return m, true
	}
	if m, ok := r.resources[name]; ok {
		return m, true
	}
	if i := strings.Index(name, ":#"); i >= 0 {
		m, ok := r.byName[name[:i]]
		return m, ok
	}
	return nil, false
}

// ForEntity returns the model of an entity type
func (r *Registry) ForEntity(e *schema.EntityType) (*Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byEntity[e]
	return m, ok
}

// Models returns all models in registration order
func (r *Registry) Models() []*Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Model, len(r.models))
	copy(out, r.models)
	return out
}

// Resources returns the registered resource names, sorted
func (r *Registry) Resources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.resources))
	for name := range r.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered models
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}
