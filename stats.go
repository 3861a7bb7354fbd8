package scratch

import (
	"context"
	"io/fs"
	"time"
)

// Stats returns statistics about the current depot.
//
// Example:
//
//	stats, err := m.Stats(ctx)
//	fmt.Printf("%d spaces using %d bytes\n", stats.Spaces, stats.TotalSize)
func (m *Manager) Stats(ctx context.Context) (*Stats, error) {
	depot, err := m.Depot()
	if err != nil {
		return nil, err
	}
	namespaces, err := m.listNamespaces(depot)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Depot: depot, Namespaces: len(namespaces)}
	for _, ns := range namespaces {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		keys, err := m.listKeys(depot, ns)
		if err != nil {
			return nil, err
		}

		for _, key := range keys {
			stats.Spaces++

			size, err := m.spaceSize(spacePath(depot, ns, key))
			if err != nil {
				return nil, err
			}
			stats.TotalSize += size

			record, err := m.loadRecord(recordPath(depot, ns, key))
			if err != nil {
				return nil, err
			}
			if record == nil {
				stats.Unrecorded++
				continue
			}
			stats.Recorded++
			observeRecord(stats, record.LastWritten)
		}
	}

	return stats, nil
}

// spaceSize sums the size of every regular file under path.
func (m *Manager) spaceSize(path string) (int64, error) {
	var size int64
	err := m.fs.Walk(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		size += info.Size()
		return nil
	})
	if err != nil {
		return 0, ioError(err, "failed to measure scratch space", path)
	}
	return size, nil
}

func observeRecord(stats *Stats, written time.Time) {
	if stats.OldestRecord == nil || written.Before(*stats.OldestRecord) {
		t := written
		stats.OldestRecord = &t
	}
	if stats.NewestRecord == nil || written.After(*stats.NewestRecord) {
		t := written
		stats.NewestRecord = &t
	}
}
