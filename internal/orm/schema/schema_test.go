package schema

import (
	"errors"
	"strings"
	"testing"
)

func TestNamingConventions(t *testing.T) {
	tests := []struct {
		convention string
		input      string
		want       string
	}{
		{"", "CustomerID", "CustomerID"},
		{"noChange", "CustomerID", "CustomerID"},
		{"camelCase", "CustomerID", "customerID"},
		{"camelCase", "orderDate", "orderDate"},
		{"snake_case", "CustomerID", "customer_id"},
		{"snake_case", "HTTPRequest", "http_request"},
	}

	for _, tt := range tests {
		naming, err := ParseNamingConvention(tt.convention)
		if err != nil {
			t.Fatalf("ParseNamingConvention(%q) error = %v", tt.convention, err)
		}
		if got := naming(tt.input); got != tt.want {
			t.Errorf("%s(%q) = %q, want %q", tt.convention, tt.input, got, tt.want)
		}
	}

	if _, err := ParseNamingConvention("kebab"); err == nil {
		t.Error("expected an error for an unknown convention")
	}
}

func TestTableNameFor(t *testing.T) {
	if got := TableNameFor("Category", "", nil); got != "Categories" {
		t.Errorf("pluralized name = %q, want Categories", got)
	}
	if got := TableNameFor("Person", "", nil); got != "People" {
		t.Errorf("pluralized name = %q, want People", got)
	}
	if got := TableNameFor("Customer", "Clients", CamelCaseNaming); got != "clients" {
		t.Errorf("resource name = %q, want clients", got)
	}
}

func TestJoinTableName(t *testing.T) {
	if JoinTableName("Product", "Category") != JoinTableName("Category", "Product") {
		t.Error("join table name must not depend on argument order")
	}
	if got := JoinTableName("Product", "Category"); got != "CategoryProduct" {
		t.Errorf("JoinTableName = %q", got)
	}
}

func TestParseTypeSpec(t *testing.T) {
	tests := []struct {
		name string
		base DataType
		bits int
		tz   bool
	}{
		{"String", TypeString, 0, false},
		{"Edm.Int16", TypeInteger, 16, false},
		{"Int32", TypeInteger, 32, false},
		{"Int64", TypeInteger, 64, false},
		{"Byte", TypeInteger, 8, false},
		{"Decimal", TypeDecimal, 0, false},
		{"Single", TypeFloat, 32, false},
		{"Double", TypeFloat, 64, false},
		{"DateTime", TypeDateTime, 0, false},
		{"DateTimeOffset", TypeDateTime, 0, true},
		{"Boolean", TypeBoolean, 0, false},
		{"Binary", TypeBinary, 0, false},
		{"Guid", TypeGUID, 0, false},
	}
	for _, tt := range tests {
		spec, err := ParseTypeSpec(tt.name)
		if err != nil {
			t.Fatalf("ParseTypeSpec(%q) error = %v", tt.name, err)
		}
		if spec.Base != tt.base || spec.Bits != tt.bits || spec.WithTimeZone != tt.tz {
			t.Errorf("ParseTypeSpec(%q) = %+v", tt.name, spec)
		}
	}

	if _, err := ParseTypeSpec("Geography"); err == nil {
		t.Error("expected an error for an unknown type")
	}
}

func TestParseKeyGeneration(t *testing.T) {
	for in, want := range map[string]KeyGeneration{
		"":             KeyNone,
		"None":         KeyNone,
		"Identity":     KeyIdentity,
		"KeyGenerator": KeyClientGenerated,
	} {
		got, err := ParseKeyGeneration(in)
		if err != nil || got != want {
			t.Errorf("ParseKeyGeneration(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseKeyGeneration("Sequence"); err == nil {
		t.Error("expected an error for an unknown policy")
	}
}

func TestSchema_EntityLookup(t *testing.T) {
	order := entityOf("Order", []*DataProperty{intKey("id")})
	order.Namespace = "Northwind"
	order.ResourceName = "Orders"

	s := newTestSchema(t, order)
	for _, name := range []string{"Order", "Order:#Northwind"} {
		if _, ok := s.Entity(name); !ok {
			t.Errorf("Entity(%q) not found", name)
		}
	}
	if e, ok := s.EntityByResource("Orders"); !ok || e != order {
		t.Error("resource lookup failed")
	}
	if order.QualifiedName() != "Order:#Northwind" {
		t.Errorf("QualifiedName = %q", order.QualifiedName())
	}

	if err := s.AddEntity(entityOf("Order", nil)); !IsMalformedMetadata(err) {
		t.Errorf("duplicate entity: expected malformed metadata, got %v", err)
	}
	if err := s.MapResource("Invoices", "Invoice"); !IsMalformedMetadata(err) {
		t.Errorf("unknown resource target: expected malformed metadata, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	noKey := entityOf("Note", []*DataProperty{prop("text", TypeString)})
	nullableKey := entityOf("Tag", []*DataProperty{{Name: "id", Type: TypeSpec{Base: TypeInteger}, IsKey: true, Nullable: true}})
	stringIdentity := entityOf("Code", []*DataProperty{{Name: "code", Type: TypeSpec{Base: TypeString}, IsKey: true}})
	stringIdentity.KeyGeneration = KeyIdentity
	duplicate := entityOf("Line", []*DataProperty{intKey("id"), prop("id", TypeString)})
	badFK := entityOf("Item", []*DataProperty{intKey("id")}, one("note", "Note", "noteId"))

	s := newTestSchema(t, noKey, nullableKey, stringIdentity, duplicate, badFK)
	err := Validate(s)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	if !errors.Is(err, ErrMalformedMetadata) {
		t.Errorf("expected malformed metadata, got %v", err)
	}

	msg := err.Error()
	for _, want := range []string{
		"Note: entity type has no key property",
		"Tag.id: key property cannot be nullable",
		"Code.code: identity key must be an integer",
		"Line.id: member is declared more than once",
		`Item.note: foreign key property "noteId" not found on Item`,
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("missing %q in:\n%s", want, msg)
		}
	}
}

func TestDependencyGraph_TopologicalSort(t *testing.T) {
	customer := entityOf("Customer", []*DataProperty{intKey("id")})
	order := entityOf("Order", []*DataProperty{intKey("id")}, one("customer", "Customer"), one("shipper", "Shipper"))
	shipper := entityOf("Shipper", []*DataProperty{intKey("id")})

	s := newTestSchema(t, order, customer, shipper)
	if err := ResolveAssociations(s); err != nil {
		t.Fatalf("ResolveAssociations() error = %v", err)
	}

	g := NewDependencyGraph(s)
	creation := g.TopologicalSort()
	var names []string
	for _, e := range creation.Entities {
		names = append(names, e.Name)
	}
	if got := strings.Join(names, ","); got != "Customer,Shipper,Order" {
		t.Errorf("creation order = %s", got)
	}
	if len(creation.Deferred) != 0 {
		t.Errorf("unexpected deferred constraints: %d", len(creation.Deferred))
	}
	if cycles := g.DetectCycles(); len(cycles) != 0 {
		t.Errorf("unexpected cycles: %v", cycles)
	}
}

func TestDependencyGraph_Cycle(t *testing.T) {
	manager := one("manager", "Employee")
	manager.AssociationName = "Manages"
	department := one("department", "Department")
	department.AssociationName = "Staff"

	dept := entityOf("Department", []*DataProperty{intKey("id")}, manager)
	emp := entityOf("Employee", []*DataProperty{intKey("id")}, department, one("mentor", "Employee"))

	s := newTestSchema(t, dept, emp)
	if err := ResolveAssociations(s); err != nil {
		t.Fatalf("ResolveAssociations() error = %v", err)
	}

	g := NewDependencyGraph(s)
	if cycles := g.DetectCycles(); len(cycles) != 1 {
		t.Fatalf("expected one cycle, got %v", cycles)
	}

	order := g.TopologicalSort()
	if len(order.Entities) != 2 || order.Entities[0] != dept {
		t.Fatalf("unexpected creation order")
	}
	if len(order.Deferred) != 1 || order.Deferred[0].Principal != emp {
		t.Errorf("expected Department -> Employee to be deferred, got %d", len(order.Deferred))
	}
	if !strings.Contains(FormatCycles(g.DetectCycles()), "Department -> Employee -> Department") {
		t.Errorf("FormatCycles = %q", FormatCycles(g.DetectCycles()))
	}
}
