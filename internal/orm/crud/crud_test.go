package crud

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/breeze/internal/orm/codegen"
	"github.com/conduit-lang/breeze/internal/orm/dialect"
	"github.com/conduit-lang/breeze/internal/orm/metadata"
	"github.com/conduit-lang/breeze/internal/orm/relationships"
	"github.com/conduit-lang/breeze/internal/orm/schema"
)

const testMetadata = `{
	"structuralTypes": [
		{
			"shortName": "Customer",
			"namespace": "Shop",
			"defaultResourceName": "Customers",
			"dataProperties": [
				{"name": "customerID", "dataType": "Guid", "isPartOfKey": true},
				{"name": "companyName", "dataType": "String", "maxLength": 10, "isNullable": false},
				{"name": "city", "dataType": "String"}
			],
			"navigationProperties": [
				{"name": "orders", "entityTypeName": "Order:#Shop", "isScalar": false, "associationName": "Customer_Orders"}
			]
		},
		{
			"shortName": "Order",
			"namespace": "Shop",
			"autoGeneratedKeyType": "Identity",
			"dataProperties": [
				{"name": "orderID", "dataType": "Int32", "isPartOfKey": true},
				{"name": "customerID", "dataType": "Guid"},
				{"name": "quantity", "dataType": "Int16"}
			],
			"navigationProperties": [
				{"name": "customer", "entityTypeName": "Customer:#Shop", "isScalar": true, "associationName": "Customer_Orders", "foreignKeyNames": ["customerID"]}
			]
		},
		{
			"shortName": "Tag",
			"namespace": "Shop",
			"autoGeneratedKeyType": "KeyGenerator",
			"dataProperties": [
				{"name": "tagID", "dataType": "Guid", "isPartOfKey": true},
				{"name": "label", "dataType": "String", "isNullable": false},
				{"name": "weight", "dataType": "Decimal", "precision": 5, "scale": 2}
			]
		}
	]
}`

const customerID = "6f1c8ad2-3c1e-4c52-9a55-0c0a0b3f6e11"

// newTestRegistry builds the test models over a postgres-flavored sqlmock
func newTestRegistry(t *testing.T) (*Registry, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return buildRegistry(t, db, dialect.Postgres{}), mock
}

func buildRegistry(t *testing.T, db *sql.DB, d dialect.Dialect) *Registry {
	t.Helper()

	doc, err := metadata.Parse([]byte(testMetadata))
	require.NoError(t, err)
	s, err := metadata.Import(doc, metadata.Options{})
	require.NoError(t, err)
	require.NoError(t, schema.ResolveAssociations(s))
	tables, err := codegen.NewBuilder(d).Build(s)
	require.NoError(t, err)

	loader := relationships.NewLoader(db, d, tables)
	var models []*Model
	for _, table := range tables {
		if table.Entity != nil {
			models = append(models, NewModel(table, db, d, loader, nil, nil))
		}
	}

	r := NewRegistry()
	require.NoError(t, r.RegisterAll(models, s.Resources()))
	return r
}

func mustModel(t *testing.T, r *Registry, name string) *Model {
	t.Helper()
	m, ok := r.Get(name)
	require.True(t, ok, "model %s not registered", name)
	return m
}

func TestRegistry_Lookup(t *testing.T) {
	r, _ := newTestRegistry(t)

	assert.Equal(t, 3, r.Count())
	assert.Equal(t, []string{"Customers"}, r.Resources())

	for _, name := range []string{"Customer", "Customers", "Customer:#Shop"} {
		m, ok := r.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, "Customer", m.Name())
	}

	_, ok := r.Get("Invoice")
	assert.False(t, ok)
}

func TestRegistry_RegisterAllIsAtomic(t *testing.T) {
	r, _ := newTestRegistry(t)
	order := mustModel(t, r, "Order")

	clash := &Model{entity: schema.NewEntityType("Widget"), table: order.table}
	err := r.RegisterAll([]*Model{clash, order}, nil)
	require.Error(t, err)

	_, ok := r.Get("Widget")
	assert.False(t, ok)
	assert.Equal(t, 3, r.Count())
}

func TestBuild_Validation(t *testing.T) {
	r, _ := newTestRegistry(t)
	customers := mustModel(t, r, "Customers")
	orders := mustModel(t, r, "Order")

	tests := []struct {
		name  string
		model *Model
		data  map[string]interface{}
		field string
	}{
		{"unknown attribute", customers, map[string]interface{}{"phone": "555"}, "phone"},
		{"navigation", customers, map[string]interface{}{"orders": []interface{}{}}, "orders"},
		{"too long", customers, map[string]interface{}{"companyName": "Alfreds Futterkiste"}, "companyName"},
		{"wrong type", customers, map[string]interface{}{"city": 12}, "city"},
		{"bad guid", customers, map[string]interface{}{"customerID": "not-a-guid"}, "customerID"},
		{"identity key", orders, map[string]interface{}{"orderID": 3}, "orderID"},
		{"int16 overflow", orders, map[string]interface{}{"quantity": 40000}, "quantity"},
		{"fractional integer", orders, map[string]interface{}{"quantity": 1.5}, "quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.model.Build(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidationFailed)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			require.Len(t, ve.Errors, 1)
			assert.Equal(t, tt.field, ve.Errors[0].Field)
		})
	}
}

func TestBuild_ByteRange(t *testing.T) {
	doc, err := metadata.Parse([]byte(`{"structuralTypes": [{"shortName": "Shelf", "dataProperties": [
		{"name": "shelfID", "dataType": "Int32", "isPartOfKey": true},
		{"name": "level", "dataType": "Byte"}
	]}]}`))
	require.NoError(t, err)
	s, err := metadata.Import(doc, metadata.Options{})
	require.NoError(t, err)
	require.NoError(t, schema.ResolveAssociations(s))
	d := dialect.MySQL{}
	tables, err := codegen.NewBuilder(d).Build(s)
	require.NoError(t, err)
	shelves := NewModel(tables[0], nil, d, relationships.NewLoader(nil, d, tables), nil, nil)

	// TINYINT is signed on MySQL, so the 8-bit range stops at 127
	for _, level := range []int{-128, 0, 127} {
		inst, err := shelves.Build(map[string]interface{}{"shelfID": 1, "level": level})
		require.NoError(t, err, level)
		assert.Equal(t, int64(level), inst.Get("level"))
	}
	for _, level := range []int{-129, 128, 200, 255} {
		_, err := shelves.Build(map[string]interface{}{"shelfID": 1, "level": level})
		require.Error(t, err, level)
		assert.ErrorIs(t, err, ErrValidationFailed)
		assert.Contains(t, err.Error(), "out of range for a 8-bit integer")
	}
}

func TestBuild_CoercesValues(t *testing.T) {
	r, _ := newTestRegistry(t)
	orders := mustModel(t, r, "Order")

	inst, err := orders.Build(map[string]interface{}{
		"customerID": "6F1C8AD2-3C1E-4C52-9A55-0C0A0B3F6E11",
		"quantity":   float64(12),
	})
	require.NoError(t, err)

	assert.True(t, inst.IsNewRecord())
	assert.Equal(t, customerID, inst.Get("customerID"))
	assert.Equal(t, int64(12), inst.Get("quantity"))
	assert.Equal(t, []string{"customerID", "quantity"}, inst.Changed())
	assert.Nil(t, inst.KeyValue())
}

func TestSave_InsertWithoutIdentity(t *testing.T) {
	r, mock := newTestRegistry(t)
	customers := mustModel(t, r, "Customer")

	mock.ExpectExec(`INSERT INTO "Customers" ("customerID", "companyName") VALUES ($1, $2)`).
		WithArgs(customerID, "Alfreds").
		WillReturnResult(sqlmock.NewResult(0, 1))

	inst, err := customers.Create(context.Background(), map[string]interface{}{
		"customerID":  customerID,
		"companyName": "Alfreds",
	})
	require.NoError(t, err)
	assert.False(t, inst.IsNewRecord())
	assert.Empty(t, inst.Changed())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_InsertReturnsIdentity(t *testing.T) {
	r, mock := newTestRegistry(t)
	orders := mustModel(t, r, "Order")

	mock.ExpectQuery(`INSERT INTO "Orders" ("customerID", "quantity") VALUES ($1, $2) RETURNING "orderID"`).
		WithArgs(customerID, int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"orderID"}).AddRow(int64(42)))

	inst, err := orders.Create(context.Background(), map[string]interface{}{
		"customerID": customerID,
		"quantity":   2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), inst.KeyValue())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_InsertDefaultValues(t *testing.T) {
	r, mock := newTestRegistry(t)
	orders := mustModel(t, r, "Order")

	mock.ExpectQuery(`INSERT INTO "Orders" DEFAULT VALUES RETURNING "orderID"`).
		WillReturnRows(sqlmock.NewRows([]string{"orderID"}).AddRow(int64(1)))

	inst, err := orders.Create(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), inst.Get("orderID"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_RequiredPropertyMissing(t *testing.T) {
	r, mock := newTestRegistry(t)
	customers := mustModel(t, r, "Customer")

	_, err := customers.Create(context.Background(), map[string]interface{}{"customerID": customerID})
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "companyName", ve.Errors[0].Field)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_GeneratesClientKey(t *testing.T) {
	r, mock := newTestRegistry(t)
	tags := mustModel(t, r, "Tag")

	mock.ExpectExec(`INSERT INTO "Tags" ("tagID", "label", "weight") VALUES ($1, $2, $3)`).
		WithArgs(sqlmock.AnyArg(), "new", "1.25").
		WillReturnResult(sqlmock.NewResult(0, 1))

	inst, err := tags.Create(context.Background(), map[string]interface{}{"label": "new", "weight": 1.25})
	require.NoError(t, err)

	key, ok := inst.KeyValue().(string)
	require.True(t, ok)
	assert.Len(t, key, 36)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_UpdatesChangedProperties(t *testing.T) {
	r, mock := newTestRegistry(t)
	customers := mustModel(t, r, "Customer")

	mock.ExpectExec(`INSERT INTO "Customers" ("customerID", "companyName") VALUES ($1, $2)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "Customers" SET "city" = $1 WHERE "customerID" = $2`).
		WithArgs("Berlin", customerID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	inst, err := customers.Create(ctx, map[string]interface{}{"customerID": customerID, "companyName": "Alfreds"})
	require.NoError(t, err)

	require.NoError(t, inst.Set("city", "Berlin"))
	require.NoError(t, inst.Save(ctx))

	// unchanged instance issues no statement
	require.NoError(t, inst.Save(ctx))

	err = inst.Set("customerID", "0b8e2c71-8d53-4f0f-9d7b-1f0f3a2b9c10")
	assert.ErrorIs(t, err, ErrValidationFailed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDestroy(t *testing.T) {
	r, mock := newTestRegistry(t)
	customers := mustModel(t, r, "Customer")
	ctx := context.Background()

	inst, err := customers.Build(map[string]interface{}{"customerID": customerID, "companyName": "Alfreds"})
	require.NoError(t, err)
	assert.ErrorIs(t, inst.Destroy(ctx), ErrNotPersisted)

	mock.ExpectExec(`INSERT INTO "Customers" ("customerID", "companyName") VALUES ($1, $2)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "Customers" WHERE "customerID" = $1`).
		WithArgs(customerID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, inst.Save(ctx))
	assert.ErrorIs(t, inst.Destroy(ctx), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_ClassifiesDriverErrors(t *testing.T) {
	r, mock := newTestRegistry(t)
	customers := mustModel(t, r, "Customer")

	connReset := errors.New("connection reset by peer")
	mock.ExpectExec(`INSERT INTO "Customers" ("customerID", "companyName") VALUES ($1, $2)`).
		WillReturnError(connReset)

	_, err := customers.Create(context.Background(), map[string]interface{}{"customerID": customerID, "companyName": "Alfreds"})
	require.Error(t, err)
	assert.True(t, IsPersistenceError(err))
	assert.ErrorIs(t, err, connReset)
	assert.False(t, IsUniqueViolation(err))

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, OperationCreate, pe.Op)
	assert.Equal(t, "Customer", pe.Model)
}
