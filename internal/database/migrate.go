package database

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/HammerMeetNail/guestlist/internal/logging"
)

type Migrator struct {
	m *migrate.Migrate
}

// NewEmbeddedMigrator reads migrations from dir inside fsys, typically the
// files compiled into the binary.
func NewEmbeddedMigrator(dsn string, fsys fs.FS, dir string) (*Migrator, error) {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("opening embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return &Migrator{m: m}, nil
}

// RunMigrations applies every pending migration and logs the schema
// version reached.
func RunMigrations(dsn string, fsys fs.FS, dir string, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.Default
	}
	m, err := NewEmbeddedMigrator(dsn, fsys, dir)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	from, err := m.SchemaVersion()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil {
		return err
	}
	to, err := m.SchemaVersion()
	if err != nil {
		return err
	}

	logger.Info("Migrations completed", map[string]interface{}{
		"from_version": from,
		"to_version":   to,
	})
	return nil
}

func (m *Migrator) Up() error {
	err := m.m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func (m *Migrator) Down() error {
	err := m.m.Down()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rolling back migrations: %w", err)
	}
	return nil
}

func (m *Migrator) Version() (uint, bool, error) {
	return m.m.Version()
}

// SchemaVersion returns the applied version, 0 for an empty database. A
// dirty schema is an error: a previous migration failed halfway.
func (m *Migrator) SchemaVersion() (uint, error) {
	version, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}
