// Package scratch manages namespaced scratch spaces: persistent, mutable
// directories that packages use for downloads, caches and generated data.
//
// # Overview
//
// A scratch space is identified by an owner and a key. The owner is a package
// UUID, or uuid.Nil for the global namespace. Spaces live in a depot that is
// segmented by toolchain version, and every access is recorded against the
// manifest of the project that made it. A collector later removes spaces that
// no existing manifest references.
//
// # Architecture
//
// The depot is laid out as:
//
//	<data-dir>/<toolchain>/scratchspaces/
//	├── .usage/                              # Usage records
//	│   ├── orphaned.json                    # First sighting of unrecorded spaces
//	│   ├── global/
//	│   │   └── compiled.json
//	│   └── 6f1c.../
//	│       └── downloads.json
//	├── global/                              # Global namespace
//	│   └── compiled/
//	└── 6f1c.../                             # Namespace of one package
//	    └── downloads/
//
// # Usage
//
// Create a manager and get a space:
//
//	m, err := scratch.New(scratch.WithRegistry(registry.NewDirectory("/opt/pkgs")))
//	if err != nil {
//	    return err
//	}
//
//	path, err := m.Get(ctx, pkgID, "downloads")
//
// Start background garbage collection:
//
//	stop := m.StartGC(time.Hour)
//	defer stop()
//
// Isolate a test from the real depot:
//
//	err := m.WithOverriddenDepot(t.TempDir(), func() error {
//	    _, err := m.Get(ctx, uuid.Nil, "cache")
//	    return err
//	})
//
// # Keys
//
// A key is a single path segment. Empty keys, "." and anything containing
// "..", a path separator or a NUL byte are rejected with CodeInvalidKey. The
// same (owner, key) pair always maps to the same directory within a depot,
// and different owners never share a directory even when their keys match.
//
// # Collection
//
// A space is reachable while at least one consumer in its usage record is
// live: its manifest exists on disk and the package it is tracked by (the
// owner, unless WithTrackedBy said otherwise) is still installed. Spaces that were recorded but are no longer reachable are removed
// on the next sweep. Spaces that were never recorded are tracked in the
// orphanage and removed once DefaultOrphanGrace (or WithOlderThan) has passed
// since a sweep first saw them.
package scratch
