package scratch

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jmgilman/go/scratch/internal/logfields"
)

const (
	orphanageVersion = "1"
	orphanageFile    = "orphaned.json"
)

// orphanage remembers when each unrecorded space was first observed by a
// sweep. A space leaves the orphanage when it gains a record or is deleted.
type orphanage struct {
	Version string               `json:"version"`
	Orphans map[string]time.Time `json:"orphans"`
}

func orphanagePath(depot string) string {
	return filepath.Join(depot, usageDir, orphanageFile)
}

// loadOrphanage reads the ledger. Anything unreadable starts an empty ledger;
// the only cost is that pending orphans restart their grace period.
func (m *Manager) loadOrphanage(depot string) *orphanage {
	empty := &orphanage{Version: orphanageVersion, Orphans: make(map[string]time.Time)}

	path := orphanagePath(depot)
	data, err := m.fs.ReadFile(path)
	if err != nil {
		if !isNotExist(err) {
			m.logger.Warn("Failed to read orphanage, starting fresh", logfields.Path(path), logfields.Error(err))
		}
		return empty
	}

	var ledger orphanage
	if err := json.Unmarshal(data, &ledger); err != nil || ledger.Version != orphanageVersion {
		m.logger.Warn("Ignoring invalid orphanage", logfields.Path(path))
		return empty
	}
	if ledger.Orphans == nil {
		ledger.Orphans = make(map[string]time.Time)
	}
	return &ledger
}

// saveOrphanage writes the ledger atomically.
func (m *Manager) saveOrphanage(depot string, ledger *orphanage) error {
	data, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal orphanage: %w", err)
	}
	return m.writeFileAtomic(orphanagePath(depot), data)
}

// observe returns when id was first seen unrecorded, marking it now if it is
// new to the ledger.
func (o *orphanage) observe(id string, now time.Time) time.Time {
	if first, ok := o.Orphans[id]; ok {
		return first
	}
	o.Orphans[id] = now
	return now
}

func (o *orphanage) forget(id string) {
	delete(o.Orphans, id)
}

// prune drops entries for spaces that were not seen during a full sweep.
func (o *orphanage) prune(seen map[string]bool) {
	for id := range o.Orphans {
		if !seen[id] {
			delete(o.Orphans, id)
		}
	}
}
