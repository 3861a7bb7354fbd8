package scratch

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jmgilman/go/fs/billy"
	"github.com/jmgilman/go/fs/core"
	"github.com/jmgilman/go/scratch/metrics"
	"github.com/jmgilman/go/scratch/registry"
	"github.com/stretchr/testify/require"
)

const testDepot = "/depot"

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingRecorder records every metric call.
type countingRecorder struct {
	mu       sync.Mutex
	writes   int
	skips    map[metrics.SkipReason]int
	deleted  map[metrics.DeleteKind]int
	failures int
	pending  int
	collects int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		skips:   make(map[metrics.SkipReason]int),
		deleted: make(map[metrics.DeleteKind]int),
	}
}

func (r *countingRecorder) IncRecordWrite() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
}

func (r *countingRecorder) IncRecordSkip(reason metrics.SkipReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skips[reason]++
}

func (r *countingRecorder) IncSpaceDeleted(kind metrics.DeleteKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted[kind]++
}

func (r *countingRecorder) IncDeleteFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
}

func (r *countingRecorder) SetOrphansPending(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = n
}

func (r *countingRecorder) ObserveCollectDuration(time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collects++
}

func (r *countingRecorder) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func (r *countingRecorder) Deleted(kind metrics.DeleteKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleted[kind]
}

func (r *countingRecorder) Collects() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collects
}

// failingFS fails RemoveAll for the paths in fail, ReadDir for the paths in
// failReadDir, and Create for every path when failCreate is set.
type failingFS struct {
	Filesystem
	fail        map[string]bool
	failReadDir map[string]bool
	failCreate  bool
}

func (f *failingFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if f.failReadDir[name] {
		return nil, fmt.Errorf("open %s: permission denied", name)
	}
	return f.Filesystem.ReadDir(name)
}

func (f *failingFS) Create(name string) (core.File, error) {
	if f.failCreate {
		return nil, fmt.Errorf("create %s: read-only filesystem", name)
	}
	return f.Filesystem.Create(name)
}

func (f *failingFS) RemoveAll(path string) error {
	if f.fail[path] {
		return fmt.Errorf("remove %s: permission denied", path)
	}
	return f.Filesystem.RemoveAll(path)
}

// testEnv bundles a Manager with its collaborators.
type testEnv struct {
	m        *Manager
	fs       Filesystem
	registry *registry.Static
	clock    *fakeClock
	recorder *countingRecorder
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	return newTestEnvWithFS(t, billy.NewMemory(), opts...)
}

func newTestEnvWithFS(t *testing.T, fsys Filesystem, opts ...Option) *testEnv {
	t.Helper()

	env := &testEnv{
		fs:       fsys,
		registry: registry.NewStatic(),
		clock:    newFakeClock(),
		recorder: newCountingRecorder(),
	}

	base := []Option{
		WithFilesystem(fsys),
		WithRegistry(env.registry),
		WithDepot(testDepot),
		WithToolchainVersion("go1.25"),
		WithClock(env.clock.Now),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRecorder(env.recorder),
	}

	m, err := New(append(base, opts...)...)
	require.NoError(t, err)
	env.m = m
	return env
}

// writeManifest creates a consumer manifest on the test filesystem.
func (e *testEnv) writeManifest(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, e.fs.WriteFile(path, []byte("{}"), 0o644))
}

// readRecord loads the usage record of a space, failing the test if absent.
func (e *testEnv) readRecord(t *testing.T, ns, key string) *usageRecord {
	t.Helper()
	data, err := e.fs.ReadFile(recordPath(testDepot, ns, key))
	require.NoError(t, err)

	var record usageRecord
	require.NoError(t, json.Unmarshal(data, &record))
	return &record
}

func (e *testEnv) exists(t *testing.T, path string) bool {
	t.Helper()
	ok, err := e.fs.Exists(path)
	require.NoError(t, err)
	return ok
}
