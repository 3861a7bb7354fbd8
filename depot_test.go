package scratch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/billy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("depot is segmented by toolchain", func(t *testing.T) {
		m, err := New(
			WithFilesystem(billy.NewMemory()),
			WithDataDir("/data"),
			WithToolchainVersion("go1.24"),
		)
		require.NoError(t, err)

		depot, err := m.Depot()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/data", "go1.24", "scratchspaces"), depot)
		assert.Equal(t, "go1.24", m.ToolchainVersion())
	})

	t.Run("data directory from environment", func(t *testing.T) {
		t.Setenv(DataDirEnv, "/env-data")

		m, err := New(WithFilesystem(billy.NewMemory()), WithToolchainVersion("go1.25"))
		require.NoError(t, err)

		depot, err := m.Depot()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/env-data", "go1.25", "scratchspaces"), depot)
	})

	t.Run("explicit depot wins", func(t *testing.T) {
		m, err := New(WithFilesystem(billy.NewMemory()), WithDataDir("/data"), WithDepot("/fixed"))
		require.NoError(t, err)

		depot, err := m.Depot()
		require.NoError(t, err)
		assert.Equal(t, "/fixed", depot)
	})

	t.Run("default toolchain is the running release", func(t *testing.T) {
		m, err := New(WithFilesystem(billy.NewMemory()), WithDepot("/d"))
		require.NoError(t, err)
		assert.NotEmpty(t, m.ToolchainVersion())
	})

	t.Run("rejects negative grace", func(t *testing.T) {
		_, err := New(WithOrphanGrace(-1))
		require.Error(t, err)
		assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	})
}

func TestToolchainRelease(t *testing.T) {
	tests := []struct {
		version string
		want    string
	}{
		{"go1.25.3", "go1.25"},
		{"go1.25", "go1.25"},
		{"go1.26rc1", "go1.26"},
		{"go1.24beta2", "go1.24"},
		{"go1", "go1"},
		{"devel go1.26-abcdef", "devel"},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			assert.Equal(t, tt.want, toolchainRelease(tt.version))
		})
	}
}

func TestDir(t *testing.T) {
	env := newTestEnv(t)

	dir, err := env.m.Dir("global", "cache")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(testDepot, "global", "cache"), dir)
	assert.False(t, env.exists(t, dir))

	root, err := env.m.Dir()
	require.NoError(t, err)
	assert.Equal(t, testDepot, root)
}

func TestWithOverriddenDepot(t *testing.T) {
	ctx := context.Background()

	t.Run("redirects and restores", func(t *testing.T) {
		env := newTestEnv(t)

		var inside string
		err := env.m.WithOverriddenDepot("/override", func() error {
			var err error
			inside, err = env.m.Get(ctx, uuid.Nil, "cache")
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/override", "global", "cache"), inside)

		depot, err := env.m.Depot()
		require.NoError(t, err)
		assert.Equal(t, testDepot, depot)
		assert.False(t, env.exists(t, filepath.Join(testDepot, "global", "cache")))
	})

	t.Run("restores after error", func(t *testing.T) {
		env := newTestEnv(t)
		boom := fmt.Errorf("boom")

		err := env.m.WithOverriddenDepot("/override", func() error {
			return boom
		})
		assert.ErrorIs(t, err, boom)

		depot, err := env.m.Depot()
		require.NoError(t, err)
		assert.Equal(t, testDepot, depot)
	})

	t.Run("restores after panic", func(t *testing.T) {
		env := newTestEnv(t)

		assert.Panics(t, func() {
			_ = env.m.WithOverriddenDepot("/override", func() error {
				panic("boom")
			})
		})

		depot, err := env.m.Depot()
		require.NoError(t, err)
		assert.Equal(t, testDepot, depot)
	})

	t.Run("nests", func(t *testing.T) {
		env := newTestEnv(t)

		err := env.m.WithOverriddenDepot("/outer", func() error {
			err := env.m.WithOverriddenDepot("/inner", func() error {
				depot, err := env.m.Depot()
				require.NoError(t, err)
				assert.Equal(t, "/inner", depot)
				return nil
			})
			require.NoError(t, err)

			depot, err := env.m.Depot()
			require.NoError(t, err)
			assert.Equal(t, "/outer", depot)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("overlapping calls from different goroutines", func(t *testing.T) {
		env := newTestEnv(t)

		firstEntered := make(chan struct{})
		secondEntered := make(chan struct{})
		firstExited := make(chan struct{})
		var secondDepot string

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			defer close(firstExited)
			_ = env.m.WithOverriddenDepot("/x", func() error {
				close(firstEntered)
				<-secondEntered
				return nil
			})
		}()
		go func() {
			defer wg.Done()
			<-firstEntered
			_ = env.m.WithOverriddenDepot("/y", func() error {
				close(secondEntered)
				<-firstExited
				secondDepot = env.m.currentDepot()
				return nil
			})
		}()
		wg.Wait()

		assert.Equal(t, "/y", secondDepot)
		assert.Equal(t, testDepot, env.m.currentDepot())
		assert.Empty(t, env.m.overrides)
	})

	t.Run("collection stays inside the override", func(t *testing.T) {
		env := newTestEnv(t)

		outside, err := env.m.Get(ctx, uuid.Nil, "keep")
		require.NoError(t, err)

		err = env.m.WithOverriddenDepot("/override", func() error {
			if _, err := env.m.Get(ctx, uuid.Nil, "tmp"); err != nil {
				return err
			}
			_, err := env.m.Collect(ctx, WithOlderThan(0))
			return err
		})
		require.NoError(t, err)

		assert.True(t, env.exists(t, outside))
		assert.False(t, env.exists(t, filepath.Join("/override", "global", "tmp")))
	})

	t.Run("rejects empty directory", func(t *testing.T) {
		env := newTestEnv(t)

		called := false
		err := env.m.WithOverriddenDepot("", func() error {
			called = true
			return nil
		})
		require.Error(t, err)
		assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
		assert.False(t, called)
	})
}
