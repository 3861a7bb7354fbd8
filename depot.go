package scratch

import (
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/scratch/internal/logfields"
)

const (
	// DataDirEnv overrides the default data directory.
	DataDirEnv = "SCRATCH_DATA_DIR"

	depotSegment = "scratchspaces"
)

// Depot returns the current depot root, creating it if needed.
//
// The depot is the innermost active WithOverriddenDepot directory, or the
// Manager's default depot when no override is active.
func (m *Manager) Depot() (string, error) {
	depot := m.currentDepot()
	if err := m.fs.MkdirAll(depot, 0o755); err != nil {
		return "", ioError(err, "failed to create depot", depot)
	}
	return depot, nil
}

// Dir returns a path within the current depot. The path is not created.
//
// Example:
//
//	dir, _ := m.Dir("global") // <depot>/global
func (m *Manager) Dir(elem ...string) (string, error) {
	depot, err := m.Depot()
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{depot}, elem...)...), nil
}

// WithOverriddenDepot runs fn with dir as the depot. No other depot is
// consulted while fn runs: spaces are created, tracked, collected and deleted
// within dir only. The previous depot is restored when fn returns, fails or
// panics. Calls nest.
//
// The override applies to the whole Manager, so concurrent goroutines sharing
// the Manager observe the most recently pushed override that is still active.
// Each call removes only its own entry when it returns, so overlapping calls
// from different goroutines never leave an override behind.
//
// Example:
//
//	err := m.WithOverriddenDepot(t.TempDir(), func() error {
//	    _, err := m.Get(ctx, uuid.Nil, "cache")
//	    return err
//	})
func (m *Manager) WithOverriddenDepot(dir string, fn func() error) error {
	if dir == "" {
		return errors.New(errors.CodeInvalidInput, "override depot cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return errors.Wrap(err, errors.CodeInvalidInput, "failed to resolve override depot")
	}

	m.mu.Lock()
	m.nextOverride++
	id := m.nextOverride
	m.overrides = append(m.overrides, depotOverride{id: id, dir: abs})
	m.mu.Unlock()

	// Remove this call's own entry; overlapping calls from other goroutines
	// may have pushed or popped around it.
	defer func() {
		m.mu.Lock()
		m.overrides = slices.DeleteFunc(m.overrides, func(o depotOverride) bool { return o.id == id })
		m.mu.Unlock()
	}()

	m.logger.Debug("Overriding scratch depot", logfields.Depot(abs))
	return fn()
}

// depotOverride is one active WithOverriddenDepot call.
type depotOverride struct {
	id  uint64
	dir string
}

func (m *Manager) currentDepot() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.overrides); n > 0 {
		return m.overrides[n-1].dir
	}
	return m.baseDepot
}

// defaultDataDir picks the data directory from the environment.
func defaultDataDir() string {
	if dir := os.Getenv(DataDirEnv); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "scratch")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "scratch")
	}
	return filepath.Join(os.TempDir(), "scratch")
}

// defaultToolchainVersion reduces runtime.Version() to its major.minor
// release (go1.25.3 -> go1.25). Development builds map to "devel".
func defaultToolchainVersion() string {
	return toolchainRelease(runtime.Version())
}

func toolchainRelease(version string) string {
	if !strings.HasPrefix(version, "go") {
		return "devel"
	}
	parts := strings.SplitN(version, ".", 3)
	if len(parts) < 2 {
		return parts[0]
	}
	minor := parts[1]
	// Strip pre-release suffixes such as rc1 or beta2.
	if i := strings.IndexFunc(minor, func(r rune) bool { return r < '0' || r > '9' }); i >= 0 {
		minor = minor[:i]
	}
	return parts[0] + "." + minor
}
