package registry

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Static is an in-memory registry. It is safe for concurrent use and may be
// mutated while a Manager is using it.
type Static struct {
	mu        sync.RWMutex
	project   string
	globals   map[string]string
	fallback  string
	installed map[uuid.UUID][]string
}

// NewStatic creates an empty registry: no active project, no global manifest
// and nothing installed.
func NewStatic() *Static {
	return &Static{
		globals:   make(map[string]string),
		installed: make(map[uuid.UUID][]string),
	}
}

// SetProject sets the manifest path of the active project. An empty path
// means no project is active.
func (s *Static) SetProject(manifest string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project = manifest
}

// SetGlobalManifest sets the default global manifest for a toolchain version.
// An empty toolchain sets the manifest returned for any version without its
// own entry.
func (s *Static) SetGlobalManifest(toolchain, manifest string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if toolchain == "" {
		s.fallback = manifest
		return
	}
	s.globals[toolchain] = manifest
}

// Install records installed version roots for owner. Roots already present
// are not duplicated.
func (s *Static) Install(owner uuid.UUID, roots ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.installed[owner]
	for _, root := range roots {
		if !slices.Contains(current, root) {
			current = append(current, root)
		}
	}
	s.installed[owner] = current
}

// Uninstall removes every installed version of owner.
func (s *Static) Uninstall(owner uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.installed, owner)
}

// CurrentManifest returns the active project manifest, or "" if none is set.
func (s *Static) CurrentManifest(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.project, nil
}

// InstalledVersions returns a copy of the installed version roots of owner.
func (s *Static) InstalledVersions(_ context.Context, owner uuid.UUID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.installed[owner]), nil
}

// GlobalManifest returns the global manifest for toolchain, falling back to
// the version-independent entry.
func (s *Static) GlobalManifest(_ context.Context, toolchain string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if manifest, ok := s.globals[toolchain]; ok {
		return manifest, nil
	}
	return s.fallback, nil
}
