package scratch

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/billy"
	"github.com/jmgilman/go/scratch/metrics"
)

// DefaultOrphanGrace is how long an unrecorded space survives after the first
// sweep that observes it.
const DefaultOrphanGrace = 7 * 24 * time.Hour

// New creates a Manager.
//
// By default the Manager uses the local filesystem, the depot
// <data-dir>/<toolchain>/scratchspaces, and no registry. The depot directory is
// created lazily on first use.
//
// Example:
//
//	m, err := scratch.New(
//	    scratch.WithRegistry(registry.NewDirectory("/opt/pkgs")),
//	    scratch.WithToolchainVersion("go1.25"),
//	)
//
//	// With an in-memory filesystem (for testing)
//	m, err := scratch.New(scratch.WithFilesystem(billy.NewMemory()), scratch.WithDepot("/depot"))
func New(opts ...Option) (*Manager, error) {
	options := &managerOptions{
		grace: DefaultOrphanGrace,
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.grace < 0 {
		return nil, errors.New(errors.CodeInvalidInput, "orphan grace period cannot be negative")
	}
	if options.fs == nil {
		options.fs = billy.NewLocal()
	}
	if options.registry == nil {
		options.registry = nopRegistry{}
	}
	if options.toolchain == "" {
		options.toolchain = defaultToolchainVersion()
	}
	if options.now == nil {
		options.now = time.Now
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.recorder == nil {
		options.recorder = metrics.NoopRecorder{}
	}

	depot := options.depot
	if depot == "" {
		dataDir := options.dataDir
		if dataDir == "" {
			dataDir = defaultDataDir()
		}
		depot = filepath.Join(dataDir, options.toolchain, depotSegment)
	}
	depot, err := filepath.Abs(depot)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "failed to resolve depot path")
	}

	return &Manager{
		fs:        options.fs,
		registry:  options.registry,
		toolchain: options.toolchain,
		baseDepot: depot,
		grace:     options.grace,
		now:       options.now,
		logger:    options.logger,
		recorder:  options.recorder,
	}, nil
}

// ToolchainVersion returns the toolchain version segment of the default depot.
func (m *Manager) ToolchainVersion() string {
	return m.toolchain
}
