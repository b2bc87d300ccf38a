package schema

import (
	"fmt"
	"sort"
	"strings"
)

// ResolveAssociations pairs every navigation property with its inverse, decides which side
// owns the foreign key and synthesizes join tables for many-to-many pairs.
// Resolving an already resolved schema is a no-op.
func ResolveAssociations(s *Schema) error {
	if s.resolved {
		return nil
	}
	r := &resolver{
		schema:   s,
		fkOwners: make(map[*DataProperty]*Association),
	}
	for _, a := range s.Associations {
		for _, fk := range a.ForeignKeys {
			r.fkOwners[fk] = a
		}
	}

	for _, e := range s.Entities {
		for _, nav := range e.Navigations {
			if nav.IsResolved() {
				continue
			}
			if err := r.resolve(e, nav); err != nil {
				return err
			}
		}
	}

	r.nameJoinTables()
	s.resolved = true
	return nil
}

// nameJoinTables suffixes every join table of a type pair linked more than once with
// its association name, so names do not depend on declaration order
func (r *resolver) nameJoinTables() {
	owners := make(map[*JoinTable]*Association, len(r.schema.JoinTables))
	for _, a := range r.schema.Associations {
		if a.JoinTable != nil {
			owners[a.JoinTable] = a
		}
	}

	shared := make(map[string]int)
	for _, jt := range r.schema.JoinTables {
		shared[jt.Name]++
	}

	for _, jt := range r.schema.JoinTables {
		a := owners[jt]
		if shared[jt.Name] > 1 {
			jt.Name += upperFirst(firstString(a.Name, a.PrincipalNav.Name))
		}
		jt.TableName = r.schema.Naming(jt.Name)
		if a.Name == "" {
			a.Name = jt.Name
		}
	}

	sort.SliceStable(r.schema.JoinTables, func(i, j int) bool {
		return r.schema.JoinTables[i].Name < r.schema.JoinTables[j].Name
	})
}

type resolver struct {
	schema   *Schema
	fkOwners map[*DataProperty]*Association
}

func (r *resolver) resolve(e *EntityType, nav *NavigationProperty) error {
	target, ok := r.schema.Entity(nav.Target)
	if !ok {
		return &MalformedMetadataError{
			Entity:  e.Name,
			Member:  nav.Name,
			Message: fmt.Sprintf("navigation targets unknown entity type %q", nav.Target),
		}
	}

	inverse, err := r.findInverse(e, nav, target)
	if err != nil {
		return err
	}

	if inverse == nil {
		return r.bindUnidirectional(e, nav, target)
	}

	switch {
	case nav.Cardinality == Many && inverse.Cardinality == Many:
		return r.bindManyToMany(e, nav, target, inverse)
	case nav.Cardinality == One && inverse.Cardinality == Many:
		return r.bindOneToMany(target, inverse, e, nav, firstNonEmpty(nav.ForeignKeyNames, inverse.InverseForeignKeyNames))
	case nav.Cardinality == Many && inverse.Cardinality == One:
		return r.bindOneToMany(e, nav, target, inverse, firstNonEmpty(inverse.ForeignKeyNames, nav.InverseForeignKeyNames))
	default:
		return r.bindOneToOne(e, nav, target, inverse)
	}
}

// findInverse looks up the navigation on target pointing back at e.
// Matching order: shared association name, explicit inverse name, unique back-reference.
func (r *resolver) findInverse(e *EntityType, nav *NavigationProperty, target *EntityType) (*NavigationProperty, error) {
	var candidates []*NavigationProperty
	for _, n := range target.Navigations {
		if n == nav || n.IsResolved() {
			continue
		}
		if t, ok := r.schema.Entity(n.Target); ok && t == e {
			candidates = append(candidates, n)
		}
	}

	if nav.AssociationName != "" {
		var matched []*NavigationProperty
		for _, n := range candidates {
			if n.AssociationName == nav.AssociationName {
				matched = append(matched, n)
			}
		}
		switch len(matched) {
		case 0:
			return nil, nil
		case 1:
			return matched[0], nil
		default:
			return nil, &AmbiguousAssociationError{
				Entity:     e.Name,
				Navigation: nav.Name,
				Message:    fmt.Sprintf("association %q has %d inverse candidates on %s", nav.AssociationName, len(matched), target.Name),
			}
		}
	}

	if nav.Inverse != "" {
		inv, ok := target.Navigation(nav.Inverse)
		if !ok || inv == nav {
			return nil, &AmbiguousAssociationError{
				Entity:     e.Name,
				Navigation: nav.Name,
				Message:    fmt.Sprintf("inverse %q not found on %s", nav.Inverse, target.Name),
			}
		}
		return inv, nil
	}

	// Candidates that name nav as their inverse win outright.
	for _, n := range candidates {
		if n.Inverse == nav.Name {
			return n, nil
		}
	}

	var open []*NavigationProperty
	for _, n := range candidates {
		if n.AssociationName == "" && n.Inverse == "" {
			open = append(open, n)
		}
	}
	if len(open) == 0 {
		return nil, nil
	}

	siblings := 0
	for _, n := range e.Navigations {
		if n.IsResolved() || n.AssociationName != "" || n.Inverse != "" {
			continue
		}
		if t, ok := r.schema.Entity(n.Target); ok && t == target {
			siblings++
		}
	}

	if e == target {
		// A self-reference pairs only when exactly two unannotated navigations exist.
		if siblings == 2 && len(open) == 1 {
			return open[0], nil
		}
		return nil, r.ambiguous(e, nav, target)
	}

	if siblings > 1 || len(open) > 1 {
		return nil, r.ambiguous(e, nav, target)
	}
	return open[0], nil
}

func (r *resolver) ambiguous(e *EntityType, nav *NavigationProperty, target *EntityType) error {
	return &AmbiguousAssociationError{
		Entity:     e.Name,
		Navigation: nav.Name,
		Message:    fmt.Sprintf("several navigations link %s and %s without an association name or inverse", e.Name, target.Name),
	}
}

// bindOneToMany records an association where dependent holds the foreign key
func (r *resolver) bindOneToMany(
	principal *EntityType, principalNav *NavigationProperty,
	dependent *EntityType, dependentNav *NavigationProperty,
	fkNames []string,
) error {
	a := &Association{
		Name:         associationName(principalNav, dependentNav, principal, dependent),
		Kind:         OneToMany,
		Principal:    principal,
		Dependent:    dependent,
		PrincipalNav: principalNav,
		DependentNav: dependentNav,
	}
	fks, err := r.foreignKeys(a, fkNames)
	if err != nil {
		return err
	}
	a.ForeignKeys = fks
	r.register(a)
	return nil
}

func (r *resolver) bindOneToOne(e *EntityType, nav *NavigationProperty, target *EntityType, inverse *NavigationProperty) error {
	switch {
	case len(nav.ForeignKeyNames) > 0:
		return r.bindOneToOneOwned(target, inverse, e, nav, nav.ForeignKeyNames)
	case len(inverse.ForeignKeyNames) > 0:
		return r.bindOneToOneOwned(e, nav, target, inverse, inverse.ForeignKeyNames)
	case len(nav.InverseForeignKeyNames) > 0:
		return r.bindOneToOneOwned(e, nav, target, inverse, nav.InverseForeignKeyNames)
	case len(inverse.InverseForeignKeyNames) > 0:
		return r.bindOneToOneOwned(target, inverse, e, nav, inverse.InverseForeignKeyNames)
	default:
		return &AmbiguousAssociationError{
			Entity:     e.Name,
			Navigation: nav.Name,
			Message:    fmt.Sprintf("one-to-one association with %s declares no foreign key on either side", target.Name),
		}
	}
}

func (r *resolver) bindOneToOneOwned(
	principal *EntityType, principalNav *NavigationProperty,
	dependent *EntityType, dependentNav *NavigationProperty,
	fkNames []string,
) error {
	if err := r.bindOneToMany(principal, principalNav, dependent, dependentNav, fkNames); err != nil {
		return err
	}
	principalNav.association.Kind = OneToOne
	return nil
}

// bindUnidirectional handles a navigation with no inverse on the target type
func (r *resolver) bindUnidirectional(e *EntityType, nav *NavigationProperty, target *EntityType) error {
	var err error
	if nav.Cardinality == Many || (len(nav.ForeignKeyNames) == 0 && len(nav.InverseForeignKeyNames) > 0) {
		err = r.bindOneToMany(e, nav, target, nil, nav.InverseForeignKeyNames)
	} else {
		err = r.bindOneToMany(target, nil, e, nav, nav.ForeignKeyNames)
	}
	if err != nil {
		return err
	}

	a := nav.association
	a.Unidirectional = true
	if nav.Cardinality == One && a.Principal == e {
		a.Kind = OneToOne
	}
	return nil
}

// bindManyToMany synthesizes the join table for a many/many pair
func (r *resolver) bindManyToMany(e *EntityType, nav *NavigationProperty, target *EntityType, inverse *NavigationProperty) error {
	left, leftNav, right, rightNav := e, nav, target, inverse
	if target.Name < e.Name || (target == e && inverse.Name < nav.Name) {
		left, leftNav, right, rightNav = target, inverse, e, nav
	}

	// Names are final only after nameJoinTables has seen every pair.
	name := JoinTableName(left.Name, right.Name)
	jt := &JoinTable{
		Name:  name,
		Left:  left,
		Right: right,
	}

	leftPrefix, rightPrefix := lowerFirst(left.Name), lowerFirst(right.Name)
	if left == right {
		leftPrefix, rightPrefix = leftNav.Name, rightNav.Name
	}
	for _, k := range left.KeyProperties() {
		jt.Columns = append(jt.Columns, r.joinColumn(left, k, leftPrefix, left == right))
	}
	for _, k := range right.KeyProperties() {
		jt.Columns = append(jt.Columns, r.joinColumn(right, k, rightPrefix, left == right))
	}

	a := &Association{
		Name:         firstString(leftNav.AssociationName, rightNav.AssociationName),
		Kind:         ManyToMany,
		Principal:    left,
		Dependent:    right,
		PrincipalNav: leftNav,
		DependentNav: rightNav,
		JoinTable:    jt,
	}
	r.schema.JoinTables = append(r.schema.JoinTables, jt)
	r.register(a)
	return nil
}

func (r *resolver) joinColumn(e *EntityType, key *DataProperty, prefix string, forcePrefix bool) *JoinColumn {
	name := foreignKeyName(prefix, key.Name)
	if forcePrefix {
		name = prefix + upperFirst(key.Name)
	}
	return &JoinColumn{
		Name:      r.schema.Naming(name),
		Type:      key.Type,
		Entity:    e,
		KeyColumn: key.ColumnName,
	}
}

// foreignKeys resolves declared foreign-key names on the dependent, or synthesizes them
func (r *resolver) foreignKeys(a *Association, names []string) ([]*DataProperty, error) {
	keys := a.Principal.KeyProperties()
	at := a.DependentNav
	if at == nil {
		at = a.PrincipalNav
	}
	entity := a.Dependent.Name
	if a.DependentNav == nil {
		entity = a.Principal.Name
	}

	if len(names) > 0 {
		if len(names) != len(keys) {
			return nil, &MalformedMetadataError{
				Entity:  entity,
				Member:  at.Name,
				Message: fmt.Sprintf("%d foreign key properties for %d key properties of %s", len(names), len(keys), a.Principal.Name),
			}
		}
		fks := make([]*DataProperty, len(names))
		for i, name := range names {
			p, ok := a.Dependent.Property(name)
			if !ok {
				return nil, &MalformedMetadataError{
					Entity:  entity,
					Member:  at.Name,
					Message: fmt.Sprintf("foreign key property %q not found on %s", name, a.Dependent.Name),
				}
			}
			fks[i] = p
		}
		return fks, nil
	}

	fks := make([]*DataProperty, len(keys))
	for i, k := range keys {
		fks[i] = r.synthesize(a, k)
	}
	return fks, nil
}

// synthesize finds or creates the foreign-key property for one principal key
func (r *resolver) synthesize(a *Association, key *DataProperty) *DataProperty {
	name := foreignKeyName(lowerFirst(a.Principal.Name), key.Name)
	if p, ok := a.Dependent.Property(name); ok && !p.IsKey && r.fkOwners[p] == nil && p.Type.Base == key.Type.Base {
		return p
	}

	if r.taken(a.Dependent, name) {
		prefix := "parent"
		if a.DependentNav != nil {
			prefix = a.DependentNav.Name
		} else if a.PrincipalNav != nil {
			prefix = a.PrincipalNav.Name
		}
		name = prefix + upperFirst(key.Name)
		for i := 2; r.taken(a.Dependent, name); i++ {
			name = fmt.Sprintf("%s%s%d", prefix, upperFirst(key.Name), i)
		}
	}

	p := &DataProperty{
		Name:        name,
		ColumnName:  r.schema.Naming(name),
		Type:        key.Type,
		Nullable:    true,
		Synthesized: true,
	}
	a.Dependent.Properties = append(a.Dependent.Properties, p)
	return p
}

func (r *resolver) taken(e *EntityType, name string) bool {
	if _, ok := e.Navigation(name); ok {
		return true
	}
	_, ok := e.Property(name)
	return ok
}

func (r *resolver) register(a *Association) {
	if a.PrincipalNav != nil {
		a.PrincipalNav.association = a
	}
	if a.DependentNav != nil {
		a.DependentNav.association = a
	}
	for _, fk := range a.ForeignKeys {
		r.fkOwners[fk] = a
	}
	r.schema.Associations = append(r.schema.Associations, a)
}

// foreignKeyName reuses a key name already prefixed by the entity name (customerID),
// otherwise prefixes it (id -> productId)
func foreignKeyName(prefix, key string) string {
	if strings.HasPrefix(strings.ToLower(key), strings.ToLower(prefix)) {
		return lowerFirst(key)
	}
	return prefix + upperFirst(key)
}

func associationName(principalNav, dependentNav *NavigationProperty, principal, dependent *EntityType) string {
	for _, n := range []*NavigationProperty{principalNav, dependentNav} {
		if n != nil && n.AssociationName != "" {
			return n.AssociationName
		}
	}
	return dependent.Name + "_" + principal.Name
}

func firstNonEmpty(a, b []string) []string {
	if len(a) > 0 {
		return a
	}
	return b
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// AssociationsOf returns the associations touching an entity type, sorted by name
func (s *Schema) AssociationsOf(e *EntityType) []*Association {
	var out []*Association
	for _, a := range s.Associations {
		if a.Principal == e || a.Dependent == e {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
