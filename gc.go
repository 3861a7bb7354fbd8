package scratch

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmgilman/go/scratch/internal/logfields"
	"github.com/jmgilman/go/scratch/metrics"
)

// verdict is the collector's decision for one space.
type verdict int

const (
	verdictReachable     verdict = iota // At least one recorded consumer is live
	verdictUnreachable                  // Recorded, but no consumer is live
	verdictOrphanPending                // Unrecorded, inside the grace period
	verdictOrphanExpired                // Unrecorded, grace period elapsed
	verdictUnknown                      // Record could not be read; kept
)

func (v verdict) deletable() bool {
	return v == verdictUnreachable || v == verdictOrphanExpired
}

// Collect removes spaces that no live consumer references.
//
// A consumer in a usage record is live when its manifest still exists and the
// package it was tracked by still has at least one installed version. A
// consumer recorded without a tracking package depends on its manifest alone,
// except inside the namespace of an uninstalled owner, where the owner's
// liveness governs it.
//
// The sweep runs in two phases:
//
//  1. Namespace sweep: an owner namespace whose owner has no installed
//     versions is removed as a whole, unless one of its spaces has a live
//     consumer tracked by another installed package, or is a pending orphan.
//  2. Space sweep: every remaining space is kept if at least one consumer in
//     its usage record is live. Recorded spaces without a live consumer are
//     removed. Unrecorded spaces enter the orphanage and are removed once the
//     grace period has elapsed since the first sweep that saw them.
//
// A failed deletion never stops the sweep: the returned error has code
// CodePartialGC and the result lists every failure. Cancelling ctx stops the
// sweep between spaces; the result then covers the work done and the error is
// ctx.Err().
//
// Examples:
//
//	// Default orphan grace period
//	result, err := m.Collect(ctx)
//
//	// Reap unrecorded spaces older than a day
//	result, err := m.Collect(ctx, scratch.WithOlderThan(24*time.Hour))
func (m *Manager) Collect(ctx context.Context, opts ...CollectOption) (*CollectResult, error) {
	options := &collectOptions{olderThan: m.grace}
	for _, opt := range opts {
		opt(options)
	}

	started := time.Now()
	defer func() {
		m.recorder.ObserveCollectDuration(time.Since(started))
	}()

	depot, err := m.Depot()
	if err != nil {
		return nil, err
	}
	namespaces, err := m.listNamespaces(depot)
	if err != nil {
		return nil, err
	}

	s := &sweep{
		m:         m,
		ctx:       ctx,
		depot:     depot,
		now:       m.now(),
		olderThan: options.olderThan,
		ledger:    m.loadOrphanage(depot),
		seen:      make(map[string]bool),
		installed: make(map[uuid.UUID]bool),
		manifests: make(map[string]bool),
		result:    &CollectResult{},
	}

	for _, ns := range namespaces {
		if s.interrupted() {
			break
		}
		s.namespace(ns)
	}

	// Pruning after a partial sweep would drop namespaces never visited.
	if ctx.Err() == nil {
		s.ledger.prune(s.seen)
	}
	if err := m.saveOrphanage(depot, s.ledger); err != nil {
		m.logger.Warn("Failed to save orphanage", logfields.Depot(depot), logfields.Error(err))
	}

	m.recorder.SetOrphansPending(s.result.OrphansPending)
	m.logger.Info("Scratch space collection finished",
		logfields.Depot(depot),
		slog.Int("deleted", len(s.result.Deleted)),
		slog.Int("kept", s.result.Kept),
		slog.Int("orphans_pending", s.result.OrphansPending),
		slog.Int("failures", len(s.result.Failures)),
		logfields.Duration(time.Since(started)),
	)

	if err := ctx.Err(); err != nil {
		return s.result, err
	}
	return s.result, partialGCError(s.result.Failures)
}

// ClearAll removes every space in the current depot, along with all usage
// records, without checking reachability. A failed removal does not stop the
// others; the error then has code CodePartialGC.
func (m *Manager) ClearAll(ctx context.Context) (*CollectResult, error) {
	depot, err := m.Depot()
	if err != nil {
		return nil, err
	}
	entries, err := m.fs.ReadDir(depot)
	if err != nil {
		return nil, ioError(err, "failed to list depot", depot)
	}

	result := &CollectResult{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		name := entry.Name()
		path := filepath.Join(depot, name)

		var keys []string
		if _, ok := parseNamespace(name); ok && entry.IsDir() {
			keys, _ = m.listKeys(depot, name)
		}

		if err := m.fs.RemoveAll(path); err != nil {
			m.recorder.IncDeleteFailure()
			result.Failures = append(result.Failures, DeleteFailure{Space: name, Path: path, Err: err})
			m.logger.Warn("Failed to remove depot entry", logfields.Path(path), logfields.Error(err))
			continue
		}

		for _, key := range keys {
			result.Deleted = append(result.Deleted, spaceID(name, key))
			m.recorder.IncSpaceDeleted(metrics.DeleteReset)
		}
	}

	m.logger.Info("Cleared scratch depot", logfields.Depot(depot), logfields.Count(len(result.Deleted)))
	return result, partialGCError(result.Failures)
}

// DefaultGCInterval is used by StartGC when the given interval is not positive.
const DefaultGCInterval = time.Hour

// StartGC starts a background collector that runs Collect at the given
// interval with the given options. A non-positive interval falls back to
// DefaultGCInterval.
//
// Returns a function to stop the collector. It is safe to call multiple times
// and blocks until the collector goroutine has stopped.
//
// Example:
//
//	stop := m.StartGC(time.Hour, scratch.WithOlderThan(7*24*time.Hour))
//	defer stop()
func (m *Manager) StartGC(interval time.Duration, opts ...CollectOption) (stop func()) {
	if interval <= 0 {
		m.logger.Warn("Invalid scratch collection interval, using default",
			slog.Duration("interval", interval), slog.Duration("default", DefaultGCInterval))
		interval = DefaultGCInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.Collect(ctx, opts...); err != nil && ctx.Err() == nil {
					m.logger.Warn("Background scratch collection failed", logfields.Error(err))
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}
}

// sweep holds the state of one Collect call.
type sweep struct {
	m         *Manager
	ctx       context.Context
	depot     string
	now       time.Time
	olderThan time.Duration
	ledger    *orphanage
	seen      map[string]bool
	installed map[uuid.UUID]bool // Cached package installation state
	manifests map[string]bool    // Cached manifest existence
	result    *CollectResult
}

func (s *sweep) interrupted() bool {
	return s.ctx.Err() != nil
}

func (s *sweep) namespace(ns string) {
	keys, err := s.m.listKeys(s.depot, ns)
	if err != nil {
		s.fail(ns, filepath.Join(s.depot, ns), err)
		return
	}

	owner, _ := parseNamespace(ns)
	ownerGone := owner != uuid.Nil && !s.ownerInstalled(owner)

	verdicts := make([]verdict, len(keys))
	for i, key := range keys {
		verdicts[i] = s.classify(ns, key, ownerGone)
	}

	if ownerGone && allDeletable(verdicts) {
		err := s.m.removeNamespace(s.depot, ns)
		if err == nil {
			for _, key := range keys {
				s.deleted(ns, key, metrics.DeleteNamespace)
			}
			s.m.logger.Info("Removed scratch namespace of uninstalled owner",
				logfields.Owner(ns), logfields.Count(len(keys)))
			return
		}
		s.m.logger.Warn("Failed to remove scratch namespace, falling back to per-space sweep",
			logfields.Owner(ns), logfields.Error(err))
	}

	for i, key := range keys {
		if s.interrupted() {
			return
		}

		switch v := verdicts[i]; {
		case v.deletable():
			kind := metrics.DeleteUnreachable
			if v == verdictOrphanExpired {
				kind = metrics.DeleteOrphan
			}
			if err := s.m.removeSpace(s.depot, ns, key); err != nil {
				s.fail(spaceID(ns, key), spacePath(s.depot, ns, key), err)
				continue
			}
			s.deleted(ns, key, kind)
		case v == verdictOrphanPending:
			s.result.Kept++
			s.result.OrphansPending++
		default:
			s.result.Kept++
		}
	}
}

// classify decides the fate of one space and updates the orphanage. ownerGone
// reports that the namespace owner has no installed versions.
func (s *sweep) classify(ns, key string, ownerGone bool) verdict {
	id := spaceID(ns, key)
	s.seen[id] = true

	record, err := s.m.loadRecord(recordPath(s.depot, ns, key))
	if err != nil {
		s.m.logger.Warn("Keeping scratch space with unreadable usage record",
			logfields.Space(id), logfields.Error(err))
		return verdictUnknown
	}

	if record == nil || len(record.Consumers) == 0 {
		first := s.ledger.observe(id, s.now)
		if s.now.Sub(first) >= s.olderThan {
			return verdictOrphanExpired
		}
		return verdictOrphanPending
	}

	s.ledger.forget(id)
	for _, c := range record.Consumers {
		if s.consumerLive(c, ownerGone) {
			return verdictReachable
		}
	}
	return verdictUnreachable
}

// consumerLive reports whether a recorded consumer still holds the space.
func (s *sweep) consumerLive(c consumer, ownerGone bool) bool {
	if !s.manifestExists(c.Manifest) {
		return false
	}
	if c.TrackedBy == "" {
		return !ownerGone
	}
	tracker, err := uuid.Parse(c.TrackedBy)
	if err != nil {
		s.m.logger.Warn("Ignoring unparsable tracking package in usage record",
			logfields.TrackedBy(c.TrackedBy), logfields.Error(err))
		return !ownerGone
	}
	return s.ownerInstalled(tracker)
}

// manifestExists reports whether a consumer manifest is still on disk.
// Errors count as existing so that an unreadable path never causes deletion.
func (s *sweep) manifestExists(path string) bool {
	if exists, ok := s.manifests[path]; ok {
		return exists
	}
	exists, err := s.m.fs.Exists(path)
	if err != nil {
		s.m.logger.Warn("Failed to check consumer manifest, assuming it exists",
			logfields.Manifest(path), logfields.Error(err))
		exists = true
	}
	s.manifests[path] = exists
	return exists
}

// ownerInstalled reports whether a package has any installed versions.
// Registry errors count as installed.
func (s *sweep) ownerInstalled(owner uuid.UUID) bool {
	if installed, ok := s.installed[owner]; ok {
		return installed
	}
	versions, err := s.m.registry.InstalledVersions(s.ctx, owner)
	installed := err != nil || len(versions) > 0
	if err != nil {
		s.m.logger.Warn("Failed to query installed versions, assuming installed",
			logfields.Owner(owner.String()), logfields.Error(err))
	}
	s.installed[owner] = installed
	return installed
}

func (s *sweep) deleted(ns, key string, kind metrics.DeleteKind) {
	id := spaceID(ns, key)
	s.ledger.forget(id)
	s.result.Deleted = append(s.result.Deleted, id)
	s.m.recorder.IncSpaceDeleted(kind)
	s.m.logger.Info("Collected scratch space", logfields.Space(id), logfields.Reason(string(kind)))
}

func (s *sweep) fail(id, path string, err error) {
	s.result.Failures = append(s.result.Failures, DeleteFailure{Space: id, Path: path, Err: err})
	s.m.recorder.IncDeleteFailure()
	s.m.logger.Warn("Failed to collect scratch space", logfields.Space(id), logfields.Error(err))
}

func allDeletable(verdicts []verdict) bool {
	for _, v := range verdicts {
		if !v.deletable() {
			return false
		}
	}
	return true
}
