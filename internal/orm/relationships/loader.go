package relationships

import (
	"context"
	"fmt"

	"github.com/conduit-lang/breeze/internal/async"
	"github.com/conduit-lang/breeze/internal/orm/record"
	"github.com/conduit-lang/breeze/internal/orm/schema"
)

// loaded is the outcome of loading one navigation for a batch of records
type loaded struct {
	nav      *schema.NavigationProperty
	target   *schema.EntityType
	values   []interface{} // one per parent record
	children []record.Record
}

// EagerLoad attaches the named navigations to every record.
// A collection navigation becomes []record.Record (empty when nothing matches),
// a scalar one becomes a record.Record or nil. Nested paths use dots: "orders.details".
func (l *Loader) EagerLoad(
	ctx context.Context,
	entity *schema.EntityType,
	records []record.Record,
	includes []string,
) error {
	return l.eagerLoad(ctx, entity, records, includes, 1)
}

func (l *Loader) eagerLoad(
	ctx context.Context,
	entity *schema.EntityType,
	records []record.Record,
	includes []string,
	depth int,
) error {
	if len(records) == 0 || len(includes) == 0 {
		return nil
	}
	if depth > l.maxDepth {
		return ErrMaxDepthExceeded
	}

	var order []string
	nested := make(map[string][]string)
	for _, include := range includes {
		name, rest := parseInclude(include)
		if _, seen := nested[name]; !seen {
			order = append(order, name)
			nested[name] = nil
		}
		if rest != "" {
			nested[name] = append(nested[name], rest)
		}
	}

	fns := make([]func(context.Context) (*loaded, error), len(order))
	for i, name := range order {
		nav, ok := entity.Navigation(name)
		if !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownRelationship, entity.Name, name)
		}
		fns[i] = func(ctx context.Context) (*loaded, error) {
			res, err := l.loadNavigation(ctx, entity, nav, records)
			if err != nil {
				return nil, fmt.Errorf("failed to load relationship %s: %w", nav.Name, err)
			}
			return res, nil
		}
	}

	// Sibling navigations load concurrently; records are only written afterwards.
	var results []*loaded
	if l.serial {
		for _, fn := range fns {
			res, err := fn(ctx)
			if err != nil {
				return err
			}
			results = append(results, res)
		}
	} else {
		var err error
		if results, err = async.All(ctx, fns...); err != nil {
			return err
		}
	}

	for _, res := range results {
		for i, rec := range records {
			rec[res.nav.Name] = res.values[i]
		}
	}

	for _, res := range results {
		if more := nested[res.nav.Name]; len(more) > 0 {
			if err := l.eagerLoad(ctx, res.target, res.children, more, depth+1); err != nil {
				return err
			}
		}
	}

	return nil
}

// LoadSingle loads one navigation for one record without modifying it
func (l *Loader) LoadSingle(
	ctx context.Context,
	entity *schema.EntityType,
	rec record.Record,
	navigation string,
) (interface{}, error) {
	clone := rec.Clone()
	if err := l.EagerLoad(ctx, entity, []record.Record{clone}, []string{navigation}); err != nil {
		return nil, err
	}
	return clone[navigation], nil
}

func (l *Loader) loadNavigation(
	ctx context.Context,
	entity *schema.EntityType,
	nav *schema.NavigationProperty,
	records []record.Record,
) (*loaded, error) {
	a := nav.Association()
	if a == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnresolvedRelationship, entity.Name, nav.Name)
	}

	switch {
	case a.Kind == schema.ManyToMany:
		return l.loadManyToMany(ctx, entity, nav, records)
	case a.PrincipalNav == nav:
		return l.loadDependents(ctx, nav, records)
	default:
		return l.loadPrincipal(ctx, nav, records)
	}
}

// loadDependents loads the dependent side of a one-to-many or one-to-one
// association: customer.orders or user.profile.
func (l *Loader) loadDependents(
	ctx context.Context,
	nav *schema.NavigationProperty,
	records []record.Record,
) (*loaded, error) {
	a := nav.Association()
	keys := a.Principal.KeyProperties()
	if len(keys) != 1 || len(a.ForeignKeys) != 1 {
		return nil, ErrCompositeKey
	}
	key, fk := keys[0], a.ForeignKeys[0]

	table, ok := l.byEntity[a.Dependent]
	if !ok {
		return nil, fmt.Errorf("no table for %s", a.Dependent.Name)
	}

	children, err := l.selectIn(ctx, table, fk.ColumnName, collectKeys(records, key.Name))
	if err != nil {
		return nil, err
	}

	grouped := make(map[interface{}][]record.Record)
	for _, child := range children {
		k := keyOf(child[fk.Name])
		grouped[k] = append(grouped[k], child)
	}

	res := &loaded{
		nav:      nav,
		target:   a.Dependent,
		values:   make([]interface{}, len(records)),
		children: children,
	}
	for i, rec := range records {
		matches := grouped[keyOf(rec[key.Name])]
		if a.Kind == schema.OneToOne {
			if len(matches) > 0 {
				res.values[i] = matches[0]
			}
			continue
		}
		if matches == nil {
			matches = []record.Record{}
		}
		res.values[i] = matches
	}
	return res, nil
}

// loadPrincipal loads the referenced side of a foreign key: order.customer
func (l *Loader) loadPrincipal(
	ctx context.Context,
	nav *schema.NavigationProperty,
	records []record.Record,
) (*loaded, error) {
	a := nav.Association()
	keys := a.Principal.KeyProperties()
	if len(keys) != 1 || len(a.ForeignKeys) != 1 {
		return nil, ErrCompositeKey
	}
	key, fk := keys[0], a.ForeignKeys[0]

	table, ok := l.byEntity[a.Principal]
	if !ok {
		return nil, fmt.Errorf("no table for %s", a.Principal.Name)
	}

	parents, err := l.selectIn(ctx, table, key.ColumnName, collectKeys(records, fk.Name))
	if err != nil {
		return nil, err
	}

	byKey := make(map[interface{}]record.Record, len(parents))
	for _, p := range parents {
		byKey[keyOf(p[key.Name])] = p
	}

	res := &loaded{
		nav:      nav,
		target:   a.Principal,
		values:   make([]interface{}, len(records)),
		children: parents,
	}
	for i, rec := range records {
		if p, ok := byKey[keyOf(rec[fk.Name])]; ok {
			res.values[i] = p
		}
	}
	return res, nil
}

// loadManyToMany reads the join table first, then the target rows it references
func (l *Loader) loadManyToMany(
	ctx context.Context,
	entity *schema.EntityType,
	nav *schema.NavigationProperty,
	records []record.Record,
) (*loaded, error) {
	a := nav.Association()
	jt := a.JoinTable
	joinDef, ok := l.byJoin[jt]
	if !ok {
		return nil, fmt.Errorf("no join table for %s", a.Name)
	}

	left := nav == a.PrincipalNav
	target := a.Dependent
	if !left {
		target = a.Principal
	}

	selfCols := jt.ColumnsFor(entity, left)
	otherCols := jt.ColumnsFor(target, !left)
	selfKeys := entity.KeyProperties()
	targetKeys := target.KeyProperties()
	if len(selfCols) != 1 || len(otherCols) != 1 || len(selfKeys) != 1 || len(targetKeys) != 1 {
		return nil, ErrCompositeKey
	}
	selfCol, otherCol := selfCols[0].Name, otherCols[0].Name

	links, err := l.selectIn(ctx, joinDef, selfCol, collectKeys(records, selfKeys[0].Name))
	if err != nil {
		return nil, err
	}

	targetDef, ok := l.byEntity[target]
	if !ok {
		return nil, fmt.Errorf("no table for %s", target.Name)
	}
	rows, err := l.selectIn(ctx, targetDef, targetKeys[0].ColumnName, collectKeys(links, otherCol))
	if err != nil {
		return nil, err
	}

	byKey := make(map[interface{}]record.Record, len(rows))
	for _, r := range rows {
		byKey[keyOf(r[targetKeys[0].Name])] = r
	}

	grouped := make(map[interface{}][]record.Record)
	for _, link := range links {
		if r, ok := byKey[keyOf(link[otherCol])]; ok {
			k := keyOf(link[selfCol])
			grouped[k] = append(grouped[k], r)
		}
	}

	res := &loaded{
		nav:      nav,
		target:   target,
		values:   make([]interface{}, len(records)),
		children: rows,
	}
	for i, rec := range records {
		matches := grouped[keyOf(rec[selfKeys[0].Name])]
		if matches == nil {
			matches = []record.Record{}
		}
		res.values[i] = matches
	}
	return res, nil
}
