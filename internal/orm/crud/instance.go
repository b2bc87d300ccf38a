package crud

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/conduit-lang/breeze/internal/orm/record"
	"github.com/conduit-lang/breeze/internal/orm/relationships"
	"github.com/conduit-lang/breeze/internal/orm/schema"
)

// Instance is one entity record, saved or not. It is not safe for concurrent mutation.
type Instance struct {
	model     *Model
	values    record.Record
	changed   map[string]bool
	persisted bool

	mu   sync.Mutex
	lazy map[string]*relationships.LazyRelation
}

func newInstance(m *Model, values record.Record, persisted bool) *Instance {
	return &Instance{
		model:     m,
		values:    values,
		changed:   make(map[string]bool),
		persisted: persisted,
		lazy:      make(map[string]*relationships.LazyRelation),
	}
}

// Model returns the model the instance belongs to
func (i *Instance) Model() *Model {
	return i.model
}

// Get returns the value of a data property, or nil when unset
func (i *Instance) Get(name string) interface{} {
	return i.values[name]
}

// Set assigns a data property after validating it against the property type
func (i *Instance) Set(name string, value interface{}) error {
	prop, ok := i.model.entity.Property(name)
	if !ok {
		return i.model.unknownField(name)
	}
	if i.persisted && prop.IsKey {
		return &ValidationError{
			Model:  i.model.Name(),
			Errors: []FieldError{{Field: name, Message: "key of a saved instance cannot change"}},
		}
	}
	v, msg := coerce(prop, value)
	if msg != "" {
		return &ValidationError{Model: i.model.Name(), Errors: []FieldError{{Field: name, Message: msg}}}
	}
	i.values[name] = v
	i.changed[name] = true
	return nil
}

// Values returns a copy of the data property values
func (i *Instance) Values() record.Record {
	return i.values.Clone()
}

// Changed returns the properties modified since the last save, sorted
func (i *Instance) Changed() []string {
	names := make([]string, 0, len(i.changed))
	for name := range i.changed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsNewRecord reports whether the instance has not been saved yet
func (i *Instance) IsNewRecord() bool {
	return !i.persisted
}

// Key returns the key property values by name
func (i *Instance) Key() map[string]interface{} {
	keys := i.model.entity.KeyProperties()
	out := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		out[k.Name] = i.values[k.Name]
	}
	return out
}

// KeyValue returns the key value of a single-key entity, or the ordered
// values of a composite key
func (i *Instance) KeyValue() interface{} {
	keys := i.model.entity.KeyProperties()
	if len(keys) == 1 {
		return i.values[keys[0].Name]
	}
	out := make([]interface{}, len(keys))
	for n, k := range keys {
		out[n] = i.values[k.Name]
	}
	return out
}

// Related returns a navigation's value, loading it on first access.
// The result is *Instance or nil for scalar navigations and []*Instance for collections.
func (i *Instance) Related(ctx context.Context, name string) (interface{}, error) {
	nav, ok := i.model.entity.Navigation(name)
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", i.model.Name(), name, relationships.ErrUnknownRelationship)
	}
	return i.relation(nav).Get(ctx)
}

// RelatedMany is Related for collection navigations
func (i *Instance) RelatedMany(ctx context.Context, name string) ([]*Instance, error) {
	v, err := i.Related(ctx, name)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]*Instance)
	if !ok {
		return nil, fmt.Errorf("%s.%s is not a collection", i.model.Name(), name)
	}
	return list, nil
}

// RelatedOne is Related for scalar navigations; it returns nil when nothing is linked
func (i *Instance) RelatedOne(ctx context.Context, name string) (*Instance, error) {
	v, err := i.Related(ctx, name)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	one, ok := v.(*Instance)
	if !ok {
		return nil, fmt.Errorf("%s.%s is a collection", i.model.Name(), name)
	}
	return one, nil
}

// IsLoaded reports whether a navigation has been included or loaded
func (i *Instance) IsLoaded(name string) bool {
	i.mu.Lock()
	lr, ok := i.lazy[name]
	i.mu.Unlock()
	return ok && lr.IsLoaded()
}

func (i *Instance) relation(nav *schema.NavigationProperty) *relationships.LazyRelation {
	i.mu.Lock()
	defer i.mu.Unlock()

	if lr, ok := i.lazy[nav.Name]; ok {
		return lr
	}
	lr := relationships.NewLazyRelation(func(ctx context.Context) (interface{}, error) {
		m := i.model
		loaded, err := m.loader.With(m.conn(ctx)).LoadSingle(ctx, m.entity, i.values, nav.Name)
		if err != nil {
			return nil, m.fail(OperationRead, err)
		}
		return m.wrapRelated(nav, loaded)
	})
	i.lazy[nav.Name] = lr
	return lr
}

// instanceFromRecord splits a loaded record into property values and included navigations
func (m *Model) instanceFromRecord(rec record.Record) (*Instance, error) {
	values := make(record.Record, len(m.entity.Properties))
	for _, p := range m.entity.Properties {
		if v, ok := rec[p.Name]; ok {
			values[p.Name] = v
		}
	}
	inst := newInstance(m, values, true)

	for _, nav := range m.entity.Navigations {
		v, ok := rec[nav.Name]
		if !ok {
			continue
		}
		wrapped, err := m.wrapRelated(nav, v)
		if err != nil {
			return nil, err
		}
		inst.relation(nav).Set(wrapped)
	}
	return inst, nil
}

// wrapRelated converts eager-loaded records of a navigation into instances
func (m *Model) wrapRelated(nav *schema.NavigationProperty, v interface{}) (interface{}, error) {
	target, ok := m.related(targetOf(nav))
	if !ok {
		return nil, fmt.Errorf("%s.%s: target model is not registered", m.Name(), nav.Name)
	}

	switch val := v.(type) {
	case nil:
		if nav.Cardinality == schema.Many {
			return []*Instance{}, nil
		}
		return nil, nil
	case record.Record:
		return target.instanceFromRecord(val)
	case []record.Record:
		out := make([]*Instance, len(val))
		for n, rec := range val {
			inst, err := target.instanceFromRecord(rec)
			if err != nil {
				return nil, err
			}
			out[n] = inst
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s.%s: unexpected loaded value %T", m.Name(), nav.Name, v)
	}
}

func (m *Model) unknownField(name string) error {
	if _, ok := m.entity.Navigation(name); ok {
		return fmt.Errorf("%s.%s: %w", m.Name(), name, ErrRelationshipField)
	}
	return fmt.Errorf("%s.%s: %w", m.Name(), name, ErrFieldNotFound)
}
