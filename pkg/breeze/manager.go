// Package breeze compiles breeze entity metadata into a relational schema and
// exposes CRUD over the resulting models.
//
// A Manager owns one database handle and the models imported into it. Import
// and Sync must finish before CRUD calls are made on the same manager; after
// that, models are safe for concurrent use.
package breeze

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/conduit-lang/breeze/internal/async"
	"github.com/conduit-lang/breeze/internal/logging"
	"github.com/conduit-lang/breeze/internal/orm/codegen"
	"github.com/conduit-lang/breeze/internal/orm/crud"
	"github.com/conduit-lang/breeze/internal/orm/dialect"
	"github.com/conduit-lang/breeze/internal/orm/metadata"
	"github.com/conduit-lang/breeze/internal/orm/migrate"
	"github.com/conduit-lang/breeze/internal/orm/relationships"
	"github.com/conduit-lang/breeze/internal/orm/schema"
	"github.com/conduit-lang/breeze/internal/orm/transaction"
)

type (
	// Model is a registered entity type with its CRUD operations
	Model = crud.Model
	// Instance is one entity record
	Instance = crud.Instance
	// FindOptions selects and shapes the result of Model.Find
	FindOptions = crud.FindOptions
	// Record is a row keyed by property name
	Record = map[string]interface{}
)

// Config holds the database connection parameters
type Config struct {
	Host     string
	User     string
	Password string
	DBName   string
}

// Manager owns a database handle and the models imported into it
type Manager struct {
	cfg        Config
	dialect    dialect.Dialect
	db         *sql.DB
	ownsDB     bool
	logger     *zap.Logger
	txManager  *transaction.Manager
	registry   *crud.Registry
	importOpts metadata.Options

	mu      sync.RWMutex
	schemas []*schema.Schema
	tables  []*codegen.TableDef
}

// New validates cfg and opens the database handle. No connection is made until first use.
// Every field of cfg is required, except that SQLite only needs DBName.
func New(cfg Config, opts ...Option) (*Manager, error) {
	o := &options{dialect: DefaultDialect}
	for _, opt := range opts {
		opt(o)
	}

	d, err := dialect.Get(o.dialect)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := validateConfig(cfg, d); err != nil {
		return nil, err
	}

	logger := logging.OrNop(o.logger)
	m := &Manager{
		cfg:      cfg,
		dialect:  d,
		db:       o.db,
		logger:   logger,
		registry: crud.NewRegistry(),
		importOpts: metadata.Options{
			NamingConvention: o.naming,
			DisableNaming:    o.disableNaming,
		},
	}

	if m.db == nil {
		dsn, err := d.DSN(dialect.Config(cfg))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		db, err := sql.Open(d.DriverName(), dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s database: %w", d.Name(), err)
		}
		d.Configure(db)
		m.db = db
		m.ownsDB = true
	}

	m.txManager = transaction.NewManager(m.db, logger)
	return m, nil
}

func validateConfig(cfg Config, d dialect.Dialect) error {
	var missing []string
	if d.Name() != "sqlite" {
		if cfg.Host == "" {
			missing = append(missing, "Host")
		}
		if cfg.User == "" {
			missing = append(missing, "User")
		}
		if cfg.Password == "" {
			missing = append(missing, "Password")
		}
	}
	if cfg.DBName == "" {
		missing = append(missing, "DBName")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}

// ImportMetadata parses a JSON metadata document and registers its models
func (m *Manager) ImportMetadata(data []byte) error {
	doc, err := metadata.Parse(data)
	if err != nil {
		return err
	}
	return m.ImportDocument(doc)
}

// ImportFile loads a JSON or YAML metadata document from disk and registers its models
func (m *Manager) ImportFile(path string) error {
	doc, err := metadata.Load(path)
	if err != nil {
		return err
	}
	return m.ImportDocument(doc)
}

// ImportDocument imports, resolves and builds doc, then registers its models.
// Any error aborts the import and nothing is registered.
func (m *Manager) ImportDocument(doc *metadata.Document) error {
	s, err := metadata.Import(doc, m.importOpts)
	if err != nil {
		return err
	}
	if err := schema.ResolveAssociations(s); err != nil {
		return err
	}
	tables, err := codegen.NewBuilder(m.dialect).Build(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range tables {
		for _, existing := range m.tables {
			if strings.EqualFold(existing.Name, t.Name) {
				return &schema.MalformedMetadataError{
					Entity:  entityName(t),
					Message: fmt.Sprintf("table %q is already used by an earlier import", t.Name),
				}
			}
		}
	}

	loader := relationships.NewLoader(m.db, m.dialect, tables)
	var models []*crud.Model
	for _, t := range tables {
		if t.Entity == nil {
			continue
		}
		models = append(models, crud.NewModel(t, m.db, m.dialect, loader, m.txManager, m.logger))
	}
	if err := m.registry.RegisterAll(models, s.Resources()); err != nil {
		return err
	}

	m.schemas = append(m.schemas, s)
	m.tables = append(m.tables, tables...)

	m.logger.Info("metadata imported",
		zap.Int("models", len(models)),
		zap.Int("tables", len(tables)))
	return nil
}

// Sync creates the tables of every imported model. With dropFirst, existing
// tables are dropped first, which also removes all their rows.
func (m *Manager) Sync(ctx context.Context, dropFirst bool) error {
	return m.synchronizer().Sync(ctx, dropFirst)
}

// SyncAsync runs Sync in the background. The returned future cannot cancel the work.
func (m *Manager) SyncAsync(ctx context.Context, dropFirst bool) *async.Future[struct{}] {
	return m.synchronizer().SyncAsync(ctx, dropFirst)
}

// DDL returns the statements Sync would run, in order
func (m *Manager) DDL(dropFirst bool) ([]string, error) {
	steps, err := m.synchronizer().Plan(dropFirst)
	if err != nil {
		return nil, err
	}
	stmts := make([]string, len(steps))
	for i, step := range steps {
		stmts[i] = step.SQL
	}
	return stmts, nil
}

func (m *Manager) synchronizer() *migrate.Synchronizer {
	return migrate.NewSynchronizer(m.db, m.dialect, m.Tables(), m.logger)
}

// Model returns a registered model by entity name, qualified name or resource name
func (m *Manager) Model(name string) (*Model, error) {
	model, ok := m.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	return model, nil
}

// Models returns every registered model in import order
func (m *Manager) Models() []*Model {
	return m.registry.Models()
}

// Resources returns the registered resource names, sorted
func (m *Manager) Resources() []string {
	return m.registry.Resources()
}

// Tables returns the table definitions of all imports in creation order
func (m *Manager) Tables() []*codegen.TableDef {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*codegen.TableDef, len(m.tables))
	copy(out, m.tables)
	return out
}

// Schemas returns the resolved schemas of all imports
func (m *Manager) Schemas() []*schema.Schema {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*schema.Schema, len(m.schemas))
	copy(out, m.schemas)
	return out
}

// Transaction runs fn in a database transaction. CRUD calls made with the
// context passed to fn join it; it commits when fn returns nil.
func (m *Manager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.txManager.WithTransaction(ctx, fn)
}

// Dialect returns the database dialect name
func (m *Manager) Dialect() string {
	return m.dialect.Name()
}

// DB returns the underlying database handle
func (m *Manager) DB() *sql.DB {
	return m.db
}

// Ping verifies that the database is reachable
func (m *Manager) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

// Close closes the database handle opened by New
func (m *Manager) Close() error {
	if !m.ownsDB {
		return nil
	}
	return m.db.Close()
}

func entityName(t *codegen.TableDef) string {
	if t.Entity != nil {
		return t.Entity.Name
	}
	return t.Name
}
