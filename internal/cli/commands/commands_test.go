package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopMetadata = `{
	"metadataVersion": "1.0.5",
	"namingConvention": "camelCase",
	"structuralTypes": [
		{
			"shortName": "Customer",
			"namespace": "Shop",
			"defaultResourceName": "Customers",
			"dataProperties": [
				{"name": "CustomerID", "dataType": "Guid", "isPartOfKey": true},
				{"name": "CompanyName", "dataType": "String", "maxLength": 40, "isNullable": false}
			],
			"navigationProperties": [
				{"name": "Orders", "entityTypeName": "Order:#Shop", "isScalar": false, "associationName": "Customer_Orders"}
			]
		},
		{
			"shortName": "Order",
			"namespace": "Shop",
			"autoGeneratedKeyType": "Identity",
			"dataProperties": [
				{"name": "OrderID", "dataType": "Int32", "isPartOfKey": true},
				{"name": "CustomerID", "dataType": "Guid"},
				{"name": "Freight", "dataType": "Decimal", "precision": 19, "scale": 4, "defaultValue": 0}
			],
			"navigationProperties": [
				{"name": "Customer", "entityTypeName": "Customer:#Shop", "isScalar": true,
				 "associationName": "Customer_Orders", "foreignKeyNames": ["CustomerID"]}
			]
		}
	],
	"resourceEntityTypeMap": {"Orders": "Order:#Shop"}
}`

// setupProject writes breeze.yaml and the metadata document into a fresh working directory
func setupProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(oldWd) })

	config := `
database:
  dialect: sqlite
  name: ":memory:"
metadata:
  path: shop.json
log:
  level: error
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "breeze.yaml"), []byte(config), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shop.json"), []byte(shopMetadata), 0644))
	return dir
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "breeze", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	for _, name := range []string{"version", "sync", "ddl", "inspect"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}

	for _, flag := range []string{"config", "metadata", "dialect", "no-color"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"
	BuildDate = "2026-01-01"
	GoVersion = "go1.24"

	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Breeze version: 1.0.0-test")
	assert.Contains(t, out, "Git commit: abc123")
	assert.Contains(t, out, "Go version: go1.24")
}

func TestDDLCommand(t *testing.T) {
	setupProject(t)

	out, _, err := run(t, "ddl")
	require.NoError(t, err)

	customers := strings.Index(out, `CREATE TABLE IF NOT EXISTS "customers"`)
	orders := strings.Index(out, `CREATE TABLE IF NOT EXISTS "orders"`)
	require.GreaterOrEqual(t, customers, 0, out)
	require.GreaterOrEqual(t, orders, 0, out)
	assert.Less(t, customers, orders, "referenced table must come first")
	assert.Contains(t, out, `"orderID" INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL`)
	assert.NotContains(t, out, "DROP TABLE")

	t.Run("drop", func(t *testing.T) {
		out, _, err := run(t, "ddl", "--drop")
		require.NoError(t, err)
		assert.Less(t, strings.Index(out, `DROP TABLE IF EXISTS "orders"`), strings.Index(out, `DROP TABLE IF EXISTS "customers"`))
	})

	t.Run("dialect override", func(t *testing.T) {
		out, _, err := run(t, "ddl", "--dialect", "postgres")
		require.NoError(t, err)
		assert.Contains(t, out, "GENERATED BY DEFAULT AS IDENTITY")
	})

	t.Run("output file", func(t *testing.T) {
		out, _, err := run(t, "ddl", "-o", "schema.sql")
		require.NoError(t, err)
		assert.Empty(t, out)

		data, err := os.ReadFile("schema.sql")
		require.NoError(t, err)
		assert.Contains(t, string(data), `"customers"`)
	})
}

func TestDDLCommand_MissingMetadata(t *testing.T) {
	setupProject(t)

	_, _, err := run(t, "ddl", "--metadata", "missing.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.json")
}

func TestInspectCommand(t *testing.T) {
	setupProject(t)

	t.Run("lists models", func(t *testing.T) {
		out, _, err := run(t, "inspect")
		require.NoError(t, err)
		assert.Contains(t, out, "Models (sqlite)")
		assert.Contains(t, out, "Customer")
		assert.Contains(t, out, "orders")
		assert.Contains(t, out, "Identity")
		assert.NotContains(t, out, "Join tables")
	})

	t.Run("shows one model by resource", func(t *testing.T) {
		out, _, err := run(t, "inspect", "Orders")
		require.NoError(t, err)
		assert.Contains(t, out, "Order:#Shop")
		assert.Contains(t, out, "Table:          orders")
		assert.Contains(t, out, "PK (identity)")
		assert.Contains(t, out, "one-to-many")
		assert.Contains(t, out, "Order.customerID")
	})

	t.Run("unknown model", func(t *testing.T) {
		_, stderr, err := run(t, "inspect", "Ordr")
		require.Error(t, err)

		var reported *reportedError
		assert.ErrorAs(t, err, &reported)
		assert.Contains(t, stderr, `No model is registered as "Ordr".`)
		assert.Contains(t, stderr, "Order")
	})
}

func TestSyncCommand(t *testing.T) {
	setupProject(t)

	out, _, err := run(t, "sync", "--drop", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Synchronizing 2 tables (sqlite)")
}

func TestSyncCommand_DeclinedDrop(t *testing.T) {
	setupProject(t)

	asked := ""
	original := confirm
	confirm = func(message string) (bool, error) {
		asked = message
		return false, nil
	}
	t.Cleanup(func() { confirm = original })

	out, stderr, err := run(t, "sync", "--drop")
	require.NoError(t, err)
	assert.NotEmpty(t, asked)
	assert.Contains(t, stderr, "sync --drop will drop 2 tables")
	assert.Contains(t, out, "Aborted.")
	assert.NotContains(t, out, "Synchronizing")
}

func TestSyncCommand_MissingCredentials(t *testing.T) {
	setupProject(t)
	t.Setenv("BREEZE_DATABASE_DIALECT", "postgres")

	_, _, err := run(t, "sync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}
