package scratch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmgilman/go/fs/core"
	"github.com/jmgilman/go/scratch/metrics"
)

// Manager owns the scratch spaces of one depot.
//
// A Manager holds no authority over spaces beyond what is on disk: every
// operation reads the filesystem and the usage records afresh, so several
// processes may share a depot safely.
type Manager struct {
	fs        Filesystem       // Filesystem abstraction for all I/O
	registry  Registry         // Package collaborator for liveness queries
	toolchain string           // Toolchain version segment (e.g., go1.25)
	baseDepot string           // Depot used when no override is active
	grace     time.Duration    // Default orphan grace period
	now       func() time.Time // Clock
	logger    *slog.Logger
	recorder  metrics.Recorder

	mu           sync.Mutex
	overrides    []depotOverride // Active scoped depot overrides, most recent last
	nextOverride uint64

	recordMu sync.Mutex // Serializes usage record read-modify-write in-process
}

// Filesystem is the set of filesystem capabilities the Manager needs.
// billy.NewLocal() and billy.NewMemory() from github.com/jmgilman/go/fs/billy
// both satisfy it.
type Filesystem interface {
	core.ReadFS
	core.WriteFS
	core.ManageFS
	core.WalkFS
}

// Registry is the package collaborator consulted for consumer liveness.
// Implementations live in the registry subpackage.
type Registry interface {
	// CurrentManifest returns the manifest path of the active project, or ""
	// when no project is active.
	CurrentManifest(ctx context.Context) (string, error)

	// InstalledVersions returns the root of every installed version of the
	// owner package. An empty result means the owner is not installed.
	InstalledVersions(ctx context.Context, owner uuid.UUID) ([]string, error)

	// GlobalManifest returns the default global environment manifest for the
	// given toolchain version.
	GlobalManifest(ctx context.Context, toolchain string) (string, error)
}

// CollectResult summarizes a garbage collection sweep.
type CollectResult struct {
	Deleted        []string        // Identifiers (<namespace>/<key>) of removed spaces
	Kept           int             // Spaces left in place (reachable or pending orphans)
	OrphansPending int             // Unrecorded spaces still inside the grace period
	Failures       []DeleteFailure // Deletions that failed
}

// Stats provides statistics about a depot.
type Stats struct {
	Depot        string
	Namespaces   int   // Owner and global namespaces present
	Spaces       int   // Spaces across all namespaces
	Recorded     int   // Spaces with a readable usage record
	Unrecorded   int   // Spaces without a usage record
	TotalSize    int64 // Bytes stored in spaces
	OldestRecord *time.Time
	NewestRecord *time.Time
}
