//go:build integration

package breeze_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/conduit-lang/breeze/pkg/breeze"
)

func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("northwind"),
		postgres.WithUsername("breeze"),
		postgres.WithPassword("breeze"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPostgres_NorthwindRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := startPostgres(t)

	m, err := breeze.New(
		breeze.Config{Host: "unused", User: "breeze", Password: "breeze", DBName: "northwind"},
		breeze.WithDialect("postgres"),
		breeze.WithDB(db),
	)
	require.NoError(t, err)
	require.NoError(t, m.ImportFile(filepath.Join("testdata", "northwind.json")))
	require.NoError(t, m.Sync(ctx, true))
	require.NoError(t, m.Sync(ctx, true))

	customers, err := m.Model("Customers")
	require.NoError(t, err)
	orders, err := m.Model("Orders")
	require.NoError(t, err)

	id := uuid.New().String()
	_, err = customers.Create(ctx, breeze.Record{"customerID": id, "companyName": "Blondel père et fils"})
	require.NoError(t, err)

	var keys []interface{}
	for i := 0; i < 3; i++ {
		o, err := orders.Create(ctx, breeze.Record{"customerID": id, "freight": "3.25"})
		require.NoError(t, err)
		keys = append(keys, o.KeyValue())
	}
	assert.Len(t, keys, 3)
	assert.NotEqual(t, keys[0], keys[1])

	found, err := customers.FindByKey(ctx, id, "orders")
	require.NoError(t, err)
	related, err := found.RelatedMany(ctx, "orders")
	require.NoError(t, err)
	assert.Len(t, related, 3)
	assert.Contains(t, related[0].Get("freight"), "3.25")

	_, err = orders.Create(ctx, breeze.Record{"customerID": uuid.New().String()})
	assert.ErrorIs(t, err, breeze.ErrForeignKeyViolation)
}
