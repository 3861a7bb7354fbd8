package scratch

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmgilman/go/scratch/metrics"
)

// Option configures Manager creation.
type Option func(*managerOptions)

type managerOptions struct {
	fs        Filesystem
	registry  Registry
	dataDir   string
	toolchain string
	depot     string
	grace     time.Duration
	now       func() time.Time
	logger    *slog.Logger
	recorder  metrics.Recorder
}

// WithFilesystem sets the filesystem used for all space and record I/O.
// Defaults to the local filesystem.
//
// Example:
//
//	m, err := scratch.New(scratch.WithFilesystem(billy.NewMemory()))
func WithFilesystem(fs Filesystem) Option {
	return func(opts *managerOptions) {
		opts.fs = fs
	}
}

// WithRegistry sets the package collaborator. Without a registry no access is
// tracked and every space is handled by the orphan policy.
func WithRegistry(registry Registry) Option {
	return func(opts *managerOptions) {
		opts.registry = registry
	}
}

// WithDataDir sets the data directory under which per-toolchain depots are
// created. Defaults to $SCRATCH_DATA_DIR, then $XDG_DATA_HOME/scratch, then
// ~/.local/share/scratch.
func WithDataDir(dir string) Option {
	return func(opts *managerOptions) {
		opts.dataDir = dir
	}
}

// WithToolchainVersion sets the toolchain version that segments the depot.
// Defaults to the running Go release (e.g., go1.25).
func WithToolchainVersion(version string) Option {
	return func(opts *managerOptions) {
		opts.toolchain = version
	}
}

// WithDepot fixes the depot directory, bypassing the data directory and
// toolchain segments. Scoped overrides still take precedence.
func WithDepot(dir string) Option {
	return func(opts *managerOptions) {
		opts.depot = dir
	}
}

// WithOrphanGrace sets how long an unrecorded space survives after a sweep
// first observes it. Defaults to DefaultOrphanGrace.
func WithOrphanGrace(grace time.Duration) Option {
	return func(opts *managerOptions) {
		opts.grace = grace
	}
}

// WithClock replaces time.Now. Used for throttling and orphan ageing.
func WithClock(now func() time.Time) Option {
	return func(opts *managerOptions) {
		opts.now = now
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(opts *managerOptions) {
		opts.logger = logger
	}
}

// WithRecorder sets the metrics recorder. Defaults to metrics.NoopRecorder.
func WithRecorder(recorder metrics.Recorder) Option {
	return func(opts *managerOptions) {
		opts.recorder = recorder
	}
}

// GetOption configures a Get call.
type GetOption func(*getOptions)

type getOptions struct {
	trackedBy *uuid.UUID
}

// WithTrackedBy attributes the access to another package. The space's
// lifecycle then follows the consumers of trackedBy rather than those of the
// owner. Passing uuid.Nil attributes the access to the active project or the
// global environment.
//
// Example:
//
//	// Borrow a space namespaced under another package
//	path, _ := m.Get(ctx, otherPkg, "index", scratch.WithTrackedBy(myPkg))
func WithTrackedBy(trackedBy uuid.UUID) GetOption {
	return func(opts *getOptions) {
		opts.trackedBy = &trackedBy
	}
}

// CollectOption configures a Collect call.
type CollectOption func(*collectOptions)

type collectOptions struct {
	olderThan time.Duration
}

// WithOlderThan overrides the orphan grace period for one sweep. Zero deletes
// unrecorded spaces on the first sweep that observes them.
//
// Example:
//
//	m.Collect(ctx, scratch.WithOlderThan(24*time.Hour))
func WithOlderThan(d time.Duration) CollectOption {
	return func(opts *collectOptions) {
		opts.olderThan = d
	}
}
