package scratch

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/scratch/internal/logfields"
	"github.com/jmgilman/go/scratch/metrics"
)

// TrackAccess records that the current consumer uses the space at spacePath.
//
// The consumer is the manifest of the active project, or the global manifest
// of the toolchain when no project is active. A non-nil trackedBy must have at
// least one installed version; otherwise the access is not tracked and a
// CodeUnresolvedOwner error is returned, leaving the space to the orphan
// policy.
//
// To bound write amplification, the record is only rewritten when the
// consumer is new or the record was last written on an earlier calendar day.
// Writes are atomic. Get calls TrackAccess and only logs its errors.
func (m *Manager) TrackAccess(ctx context.Context, spacePath string, trackedBy uuid.UUID) error {
	depot, err := m.Depot()
	if err != nil {
		m.recorder.IncRecordSkip(metrics.SkipFailed)
		return err
	}
	ns, key, err := splitSpacePath(depot, spacePath)
	if err != nil {
		return err
	}

	manifest, err := m.resolveConsumer(ctx, trackedBy)
	if err != nil {
		return err
	}

	m.recordMu.Lock()
	defer m.recordMu.Unlock()

	path := recordPath(depot, ns, key)
	record, err := m.loadRecord(path)
	if err != nil {
		m.recorder.IncRecordSkip(metrics.SkipFailed)
		return err
	}

	now := m.now()
	changed := false
	if record == nil {
		record = &usageRecord{Version: recordVersion, Space: spaceID(ns, key)}
		changed = true
	}
	if record.addConsumer(manifest, trackedBy) {
		changed = true
	}

	if !changed && sameDay(now, record.LastWritten) {
		m.recorder.IncRecordSkip(metrics.SkipThrottled)
		return nil
	}

	record.LastWritten = now
	if err := m.saveRecord(path, record); err != nil {
		m.recorder.IncRecordSkip(metrics.SkipFailed)
		return err
	}

	m.recorder.IncRecordWrite()
	m.logger.Debug("Recorded scratch space access",
		logfields.Space(record.Space), logfields.Manifest(manifest))
	return nil
}

// resolveConsumer determines the manifest an access is attributed to.
func (m *Manager) resolveConsumer(ctx context.Context, trackedBy uuid.UUID) (string, error) {
	if trackedBy != uuid.Nil {
		versions, err := m.registry.InstalledVersions(ctx, trackedBy)
		if err != nil {
			m.recorder.IncRecordSkip(metrics.SkipUnresolved)
			return "", errors.WithContext(
				errors.Wrap(err, CodeUnresolvedOwner, "failed to query installed versions"),
				"tracked_by", trackedBy.String(),
			)
		}
		if len(versions) == 0 {
			m.recorder.IncRecordSkip(metrics.SkipUnresolved)
			return "", errors.WithContext(
				errors.New(CodeUnresolvedOwner, "tracking owner has no installed versions"),
				"tracked_by", trackedBy.String(),
			)
		}
	}

	manifest, err := m.registry.CurrentManifest(ctx)
	if err != nil {
		m.recorder.IncRecordSkip(metrics.SkipNoManifest)
		return "", errors.Wrap(err, CodeUnresolvedOwner, "failed to query current project")
	}
	if manifest == "" {
		manifest, err = m.registry.GlobalManifest(ctx, m.toolchain)
		if err != nil {
			m.recorder.IncRecordSkip(metrics.SkipNoManifest)
			return "", errors.Wrap(err, CodeUnresolvedOwner, "failed to query global manifest")
		}
	}
	if manifest == "" {
		m.recorder.IncRecordSkip(metrics.SkipNoManifest)
		return "", errors.New(CodeUnresolvedOwner, "no consumer manifest available")
	}

	if abs, err := filepath.Abs(manifest); err == nil {
		manifest = abs
	}
	return manifest, nil
}

// nopRegistry is used when no Registry is configured. It resolves no
// consumer, so nothing is tracked.
type nopRegistry struct{}

func (nopRegistry) CurrentManifest(context.Context) (string, error) { return "", nil }

func (nopRegistry) InstalledVersions(context.Context, uuid.UUID) ([]string, error) { return nil, nil }

func (nopRegistry) GlobalManifest(context.Context, string) (string, error) { return "", nil }
