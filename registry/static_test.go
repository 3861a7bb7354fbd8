package registry

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	t.Run("empty registry", func(t *testing.T) {
		s := NewStatic()

		manifest, err := s.CurrentManifest(ctx)
		require.NoError(t, err)
		assert.Empty(t, manifest)

		versions, err := s.InstalledVersions(ctx, owner)
		require.NoError(t, err)
		assert.Empty(t, versions)

		global, err := s.GlobalManifest(ctx, "go1.25")
		require.NoError(t, err)
		assert.Empty(t, global)
	})

	t.Run("install is additive and deduplicated", func(t *testing.T) {
		s := NewStatic()
		s.Install(owner, "/pkgs/a/v1")
		s.Install(owner, "/pkgs/a/v1", "/pkgs/a/v2")

		versions, err := s.InstalledVersions(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, []string{"/pkgs/a/v1", "/pkgs/a/v2"}, versions)

		s.Uninstall(owner)
		versions, err = s.InstalledVersions(ctx, owner)
		require.NoError(t, err)
		assert.Empty(t, versions)
	})

	t.Run("returned versions are a copy", func(t *testing.T) {
		s := NewStatic()
		s.Install(owner, "/pkgs/a/v1")

		versions, _ := s.InstalledVersions(ctx, owner)
		versions[0] = "mutated"

		again, _ := s.InstalledVersions(ctx, owner)
		assert.Equal(t, "/pkgs/a/v1", again[0])
	})

	t.Run("global manifest falls back to unversioned entry", func(t *testing.T) {
		s := NewStatic()
		s.SetGlobalManifest("", "/env/default/manifest.json")
		s.SetGlobalManifest("go1.25", "/env/go1.25/manifest.json")

		got, err := s.GlobalManifest(ctx, "go1.25")
		require.NoError(t, err)
		assert.Equal(t, "/env/go1.25/manifest.json", got)

		got, err = s.GlobalManifest(ctx, "go1.24")
		require.NoError(t, err)
		assert.Equal(t, "/env/default/manifest.json", got)
	})

	t.Run("project can be cleared", func(t *testing.T) {
		s := NewStatic()
		s.SetProject("/work/app/manifest.json")
		got, _ := s.CurrentManifest(ctx)
		assert.Equal(t, "/work/app/manifest.json", got)

		s.SetProject("")
		got, _ = s.CurrentManifest(ctx)
		assert.Empty(t, got)
	})
}
