// Package datamgmt exports, imports and deletes the complete persisted state
// of a character sheet.
//
// Export reads every known key and composes one versioned Snapshot. Import
// validates and migrates a Snapshot before writing anything, then writes each
// section independently: a failing section is logged and reported but never
// stops the others. Import is not atomic.
package datamgmt

import (
	"log/slog"
	"time"

	"github.com/pbaille/sheet/internal/migration"
	"github.com/pbaille/sheet/internal/skilltree"
	"github.com/pbaille/sheet/internal/storage"
)

// Service is the data-management entry point. Build one at startup and pass
// it to whatever needs it.
type Service struct {
	adapter    *storage.Adapter
	registry   *skilltree.Registry
	migrator   *migration.Engine
	logger     *slog.Logger
	appVersion string
	now        func() time.Time
	newID      IDGenerator
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the logger used for warnings and per-section failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithApplicationVersion sets the version stamped into exported metadata.
func WithApplicationVersion(v string) Option {
	return func(s *Service) { s.appVersion = v }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithExportIDGenerator replaces DefaultExportID.
func WithExportIDGenerator(gen IDGenerator) Option {
	return func(s *Service) { s.newID = gen }
}

// New wires a Service.
func New(adapter *storage.Adapter, registry *skilltree.Registry, migrator *migration.Engine, opts ...Option) *Service {
	s := &Service{
		adapter:    adapter,
		registry:   registry,
		migrator:   migrator,
		logger:     slog.Default(),
		appVersion: migrator.Current(),
		now:        time.Now,
		newID:      DefaultExportID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrator exposes the migration engine, for version listings.
func (s *Service) Migrator() *migration.Engine {
	return s.migrator
}
