package registry

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	platformerrors "github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/billy"
	"github.com/jmgilman/go/fs/core"
)

const (
	// ManifestFile is the manifest filename inside projects and environments.
	ManifestFile = "manifest.json"

	// ProjectEnv names the environment variable consulted for the active
	// project when none is configured explicitly.
	ProjectEnv = "SCRATCH_PROJECT"
)

// Directory is a registry backed by a package root laid out as:
//
//	<root>/
//	├── packages/
//	│   └── <owner-uuid>/
//	│       ├── <version-a>/     # one installed version
//	│       └── <version-b>/
//	└── environments/
//	    └── <toolchain>/
//	        └── manifest.json    # global manifest for the toolchain
type Directory struct {
	root    string
	fs      core.ReadFS
	project string
	getenv  func(string) string
}

// DirectoryOption configures a Directory registry.
type DirectoryOption func(*Directory)

// WithDirectoryFilesystem sets the filesystem the registry reads from.
// Defaults to the local filesystem.
func WithDirectoryFilesystem(fsys core.ReadFS) DirectoryOption {
	return func(d *Directory) {
		d.fs = fsys
	}
}

// WithProject fixes the active project manifest. A directory path is resolved
// to the ManifestFile inside it.
func WithProject(path string) DirectoryOption {
	return func(d *Directory) {
		d.project = path
	}
}

// WithGetenv replaces the environment lookup used for ProjectEnv.
func WithGetenv(getenv func(string) string) DirectoryOption {
	return func(d *Directory) {
		d.getenv = getenv
	}
}

// NewDirectory creates a registry rooted at root.
func NewDirectory(root string, opts ...DirectoryOption) *Directory {
	d := &Directory{
		root:   root,
		fs:     billy.NewLocal(),
		getenv: os.Getenv,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CurrentManifest returns the configured project, or the project named by
// ProjectEnv. Returns "" when neither is set.
func (d *Directory) CurrentManifest(_ context.Context) (string, error) {
	project := d.project
	if project == "" {
		project = d.getenv(ProjectEnv)
	}
	if project == "" {
		return "", nil
	}

	info, err := d.fs.Stat(project)
	if err == nil && info.IsDir() {
		return filepath.Join(project, ManifestFile), nil
	}
	return project, nil
}

// InstalledVersions lists the version directories under packages/<owner>.
// A missing owner directory means nothing is installed.
func (d *Directory) InstalledVersions(_ context.Context, owner uuid.UUID) ([]string, error) {
	dir := filepath.Join(d.root, "packages", owner.String())
	entries, err := d.fs.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, platformerrors.WithContext(
			platformerrors.Wrap(err, platformerrors.CodeInternal, "failed to list installed versions"),
			"owner", owner.String(),
		)
	}

	var versions []string
	for _, entry := range entries {
		if entry.IsDir() {
			versions = append(versions, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(versions)
	return versions, nil
}

// GlobalManifest returns environments/<toolchain>/manifest.json. The file is
// not required to exist.
func (d *Directory) GlobalManifest(_ context.Context, toolchain string) (string, error) {
	if toolchain == "" {
		return "", platformerrors.New(platformerrors.CodeInvalidInput, "toolchain version is required")
	}
	return filepath.Join(d.root, "environments", toolchain, ManifestFile), nil
}
