package scratch

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/scratch/internal/logfields"
	"github.com/jmgilman/go/scratch/metrics"
)

// globalNamespace holds spaces that belong to no package.
const globalNamespace = "global"

// Get returns the path of the space identified by (owner, key), creating the
// directory if it does not exist. uuid.Nil selects the global namespace of the
// current toolchain.
//
// Every call, not only the first, records the access so that the collector
// knows which projects still use the space. Recording failures are logged and
// never returned; only an invalid key or a failure to create the directory is.
//
// Example:
//
//	// Package-owned space
//	path, err := m.Get(ctx, pkgID, "downloads")
//
//	// Global space
//	path, err := m.Get(ctx, uuid.Nil, "compiled")
func (m *Manager) Get(ctx context.Context, owner uuid.UUID, key string, opts ...GetOption) (string, error) {
	options := &getOptions{}
	for _, opt := range opts {
		opt(options)
	}
	trackedBy := owner
	if options.trackedBy != nil {
		trackedBy = *options.trackedBy
	}

	path, err := m.Path(owner, key)
	if err != nil {
		return "", err
	}

	if err := m.fs.MkdirAll(path, 0o755); err != nil {
		return "", ioError(err, "failed to create scratch space", path)
	}

	if err := m.TrackAccess(ctx, path, trackedBy); err != nil {
		if errors.GetCode(err) == CodeUnresolvedOwner {
			m.logger.Debug("Scratch space access not tracked",
				logfields.Path(path), logfields.TrackedBy(namespaceName(trackedBy)), logfields.Error(err))
		} else {
			m.logger.Warn("Failed to track scratch space access",
				logfields.Path(path), logfields.TrackedBy(namespaceName(trackedBy)), logfields.Error(err))
		}
	}

	return path, nil
}

// Path returns the path of the space identified by (owner, key) without
// creating or tracking it. The result is deterministic: equal inputs always
// map to the same path within the current depot.
func (m *Manager) Path(owner uuid.UUID, key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	depot, err := m.Depot()
	if err != nil {
		return "", err
	}
	return filepath.Join(depot, namespaceName(owner), key), nil
}

// Delete removes the space identified by (owner, key) and its usage record,
// regardless of reachability. Deleting a space that does not exist is not an
// error.
func (m *Manager) Delete(_ context.Context, owner uuid.UUID, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	depot, err := m.Depot()
	if err != nil {
		return err
	}

	ns := namespaceName(owner)
	if err := m.removeSpace(depot, ns, key); err != nil {
		return err
	}

	m.recorder.IncSpaceDeleted(metrics.DeleteExplicit)
	m.logger.Info("Deleted scratch space", logfields.Space(spaceID(ns, key)))
	return nil
}

// Clear removes every space in the namespace of owner, along with their usage
// records. uuid.Nil clears the global namespace.
func (m *Manager) Clear(ctx context.Context, owner uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	depot, err := m.Depot()
	if err != nil {
		return err
	}

	ns := namespaceName(owner)
	keys, err := m.listKeys(depot, ns)
	if err != nil {
		return err
	}
	if err := m.removeNamespace(depot, ns); err != nil {
		return err
	}

	for range keys {
		m.recorder.IncSpaceDeleted(metrics.DeleteExplicit)
	}
	m.logger.Info("Cleared scratch namespace", logfields.Owner(ns), logfields.Count(len(keys)))
	return nil
}

// ValidateKey reports whether key can name a space. Keys must be non-empty
// and must not contain path separators, NUL bytes or "..".
func ValidateKey(key string) error {
	switch {
	case key == "":
		return invalidKeyError(key, "key cannot be empty")
	case key == ".":
		return invalidKeyError(key, "key cannot be \".\"")
	case strings.Contains(key, ".."):
		return invalidKeyError(key, "key cannot contain \"..\"")
	case strings.ContainsAny(key, `/\`) || strings.ContainsRune(key, filepath.Separator):
		return invalidKeyError(key, "key cannot contain path separators")
	case strings.ContainsRune(key, 0):
		return invalidKeyError(key, "key cannot contain NUL bytes")
	}
	return nil
}

// namespaceName maps an owner to its directory name under the depot.
func namespaceName(owner uuid.UUID) string {
	if owner == uuid.Nil {
		return globalNamespace
	}
	return owner.String()
}

// parseNamespace is the inverse of namespaceName. ok is false for directory
// names that are not namespaces.
func parseNamespace(name string) (owner uuid.UUID, ok bool) {
	if name == globalNamespace {
		return uuid.Nil, true
	}
	id, err := uuid.Parse(name)
	if err != nil || id == uuid.Nil || id.String() != name {
		return uuid.Nil, false
	}
	return id, true
}

// spaceID is the depot-relative identifier of a space.
func spaceID(ns, key string) string {
	return ns + "/" + key
}

// spacePath returns <depot>/<ns>/<key>.
func spacePath(depot, ns, key string) string {
	return filepath.Join(depot, ns, key)
}

// splitSpacePath recovers (namespace, key) from a path inside depot.
func splitSpacePath(depot, path string) (ns, key string, err error) {
	rel, err := filepath.Rel(depot, filepath.Clean(path))
	if err != nil {
		return "", "", errors.WithContext(
			errors.Wrap(err, errors.CodeInvalidInput, "path is not inside the depot"),
			"path", path,
		)
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 {
		return "", "", errors.WithContext(
			errors.New(errors.CodeInvalidInput, "path is not a scratch space of the depot"),
			"path", path,
		)
	}
	if _, ok := parseNamespace(parts[0]); !ok {
		return "", "", errors.WithContext(
			errors.New(errors.CodeInvalidInput, "path is not in a scratch namespace"),
			"path", path,
		)
	}
	if err := ValidateKey(parts[1]); err != nil {
		return "", "", err
	}
	return parts[0], parts[1], nil
}

// listNamespaces returns the namespace directories in depot. Entries that are
// not namespaces, including the usage directory, are skipped.
func (m *Manager) listNamespaces(depot string) ([]string, error) {
	entries, err := m.fs.ReadDir(depot)
	if err != nil {
		return nil, ioError(err, "failed to list depot", depot)
	}

	var namespaces []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, ok := parseNamespace(entry.Name()); ok {
			namespaces = append(namespaces, entry.Name())
		}
	}
	return namespaces, nil
}

// listKeys returns the keys of the spaces in a namespace.
func (m *Manager) listKeys(depot, ns string) ([]string, error) {
	dir := filepath.Join(depot, ns)
	entries, err := m.fs.ReadDir(dir)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, ioError(err, "failed to list namespace", dir)
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() && ValidateKey(entry.Name()) == nil {
			keys = append(keys, entry.Name())
		}
	}
	return keys, nil
}

// removeSpace removes a space directory and its usage record.
func (m *Manager) removeSpace(depot, ns, key string) error {
	path := spacePath(depot, ns, key)
	if err := m.fs.RemoveAll(path); err != nil {
		return ioError(err, "failed to remove scratch space", path)
	}
	record := recordPath(depot, ns, key)
	if err := m.fs.RemoveAll(record); err != nil {
		return ioError(err, "failed to remove usage record", record)
	}
	return nil
}

// removeNamespace removes a namespace directory and its usage records.
func (m *Manager) removeNamespace(depot, ns string) error {
	dir := filepath.Join(depot, ns)
	if err := m.fs.RemoveAll(dir); err != nil {
		return ioError(err, "failed to remove scratch namespace", dir)
	}
	records := filepath.Join(depot, usageDir, ns)
	if err := m.fs.RemoveAll(records); err != nil {
		return ioError(err, "failed to remove namespace usage records", records)
	}
	return nil
}
