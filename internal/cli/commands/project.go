package commands

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/breeze/internal/cli/config"
	"github.com/conduit-lang/breeze/internal/logging"
	"github.com/conduit-lang/breeze/internal/orm/codegen"
	"github.com/conduit-lang/breeze/internal/orm/dialect"
	"github.com/conduit-lang/breeze/internal/orm/metadata"
	"github.com/conduit-lang/breeze/internal/orm/schema"
	"github.com/conduit-lang/breeze/pkg/breeze"
)

// reportedError marks an error whose message was already printed
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// project is the loaded configuration and the compiled metadata document
type project struct {
	cfg     *config.Config
	logger  *zap.Logger
	dialect dialect.Dialect
	naming  schema.NamingConvention
	schema  *schema.Schema
	tables  []*codegen.TableDef
}

// loadProject reads the configuration, applies flag overrides and compiles the
// metadata document without touching the database
func loadProject(flags *globalFlags) (*project, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.metadataPath != "" {
		cfg.Metadata.Path = flags.metadataPath
	}
	if flags.dialect != "" {
		cfg.Database.Dialect = flags.dialect
	}

	d, err := dialect.Get(cfg.Database.Dialect)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	p := &project{cfg: cfg, logger: logger, dialect: d}
	if cfg.Metadata.NamingConvention != "" {
		if p.naming, err = schema.ParseNamingConvention(cfg.Metadata.NamingConvention); err != nil {
			return nil, err
		}
	}

	doc, err := metadata.Load(cfg.Metadata.Path)
	if err != nil {
		return nil, err
	}
	p.schema, err = metadata.Import(doc, metadata.Options{NamingConvention: p.naming})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Metadata.Path, err)
	}
	if err := schema.ResolveAssociations(p.schema); err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Metadata.Path, err)
	}
	p.tables, err = codegen.NewBuilder(d).Build(p.schema)
	if err != nil {
		return nil, err
	}

	logger.Debug("metadata compiled",
		zap.String("path", cfg.Metadata.Path),
		zap.String("dialect", d.Name()),
		zap.Int("tables", len(p.tables)))
	return p, nil
}

// manager opens a Manager for the configured database and imports the metadata document
func (p *project) manager() (*breeze.Manager, error) {
	opts := []breeze.Option{
		breeze.WithDialect(p.dialect.Name()),
		breeze.WithLogger(p.logger),
	}
	if p.naming != nil {
		opts = append(opts, breeze.WithNamingConvention(p.naming))
	}

	m, err := breeze.New(breeze.Config(p.cfg.Database.Connection()), opts...)
	if err != nil {
		return nil, err
	}
	if err := m.ImportFile(p.cfg.Metadata.Path); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

func (p *project) close() {
	_ = p.logger.Sync()
}
