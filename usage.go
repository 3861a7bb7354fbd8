package scratch

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmgilman/go/scratch/internal/logfields"
)

const (
	recordVersion = "1"

	// usageDir holds usage records inside the depot. It cannot collide with a
	// namespace (neither "global" nor a UUID) and spaces cannot reach it.
	usageDir  = ".usage"
	recordExt = ".json"
)

// usageRecord lists the consumers that have accessed one space.
type usageRecord struct {
	Version     string     `json:"version"`
	Space       string     `json:"space"`
	Consumers   []consumer `json:"consumers"`
	LastWritten time.Time  `json:"last_written"`
}

// consumer is one manifest that accessed a space, and the package the access
// was attributed to (empty for untracked-by accesses).
type consumer struct {
	Manifest  string `json:"manifest"`
	TrackedBy string `json:"tracked_by,omitempty"`
}

// recordPath returns <depot>/.usage/<ns>/<key>.json.
func recordPath(depot, ns, key string) string {
	return filepath.Join(depot, usageDir, ns, key+recordExt)
}

// addConsumer adds a consumer if it is not already listed.
// Returns true if the record changed.
func (r *usageRecord) addConsumer(manifest string, trackedBy uuid.UUID) bool {
	c := consumer{Manifest: manifest}
	if trackedBy != uuid.Nil {
		c.TrackedBy = trackedBy.String()
	}
	for _, existing := range r.Consumers {
		if existing == c {
			return false
		}
	}
	r.Consumers = append(r.Consumers, c)
	return true
}

// loadRecord reads a usage record. A missing, unparsable or unsupported
// record yields (nil, nil): it is treated as no record at all. Only read
// failures other than absence are returned.
func (m *Manager) loadRecord(path string) (*usageRecord, error) {
	data, err := m.fs.ReadFile(path)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, ioError(err, "failed to read usage record", path)
	}

	var record usageRecord
	if err := json.Unmarshal(data, &record); err != nil {
		m.logger.Warn("Ignoring unparsable usage record", logfields.Path(path), logfields.Error(err))
		return nil, nil
	}
	if record.Version != recordVersion {
		m.logger.Warn("Ignoring usage record with unsupported version",
			logfields.Path(path), slog.String("version", record.Version))
		return nil, nil
	}
	return &record, nil
}

// saveRecord writes a usage record atomically.
func (m *Manager) saveRecord(path string, record *usageRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal usage record: %w", err)
	}
	return m.writeFileAtomic(path, data)
}

// writeFileAtomic writes data to a uniquely named temporary file beside path
// and renames it over path, so readers never observe a partial file.
func (m *Manager) writeFileAtomic(path string, data []byte) error {
	if err := m.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ioError(err, "failed to create record directory", filepath.Dir(path))
	}

	// Unique per writer so concurrent processes never share a temp file
	tmpPath := fmt.Sprintf("%s.%s.tmp", path, uuid.NewString())
	tmpFile, err := m.fs.Create(tmpPath)
	if err != nil {
		return ioError(err, "failed to create temporary file", tmpPath)
	}

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		_ = m.fs.Remove(tmpPath)
		return ioError(err, "failed to write temporary file", tmpPath)
	}

	if err := tmpFile.Close(); err != nil {
		_ = m.fs.Remove(tmpPath)
		return ioError(err, "failed to close temporary file", tmpPath)
	}

	// Rename to final path (atomic on POSIX systems)
	if err := m.fs.Rename(tmpPath, path); err != nil {
		_ = m.fs.Remove(tmpPath)
		return ioError(err, "failed to rename temporary file", path)
	}

	return nil
}

// sameDay reports whether t falls on the same calendar day as now, in now's
// location.
func sameDay(now, t time.Time) bool {
	t = t.In(now.Location())
	ny, nm, nd := now.Date()
	ty, tm, td := t.Date()
	return ny == ty && nm == tm && nd == td
}

func isNotExist(err error) bool {
	return stderrors.Is(err, fs.ErrNotExist)
}
