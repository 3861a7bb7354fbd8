package scratch

import (
	"context"
	"testing"
	"time"

	"github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/billy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("valid config", func(t *testing.T) {
		src := `
data_dir:          "/var/lib/scratch"
toolchain_version: "go1.25"
orphan_grace:      "72h"
`
		cfg, err := ParseConfig(ctx, []byte(src), "scratch.cue")
		require.NoError(t, err)
		assert.Equal(t, "/var/lib/scratch", cfg.DataDir)
		assert.Equal(t, "go1.25", cfg.ToolchainVersion)
		assert.Equal(t, Duration(72*time.Hour), cfg.OrphanGrace)
		assert.Empty(t, cfg.Depot)
	})

	t.Run("empty config", func(t *testing.T) {
		cfg, err := ParseConfig(ctx, []byte(""), "scratch.cue")
		require.NoError(t, err)
		assert.Equal(t, &Config{}, cfg)
	})

	tests := []struct {
		name string
		src  string
		code errors.ErrorCode
	}{
		{"unknown field", `colour: "blue"`, errors.CodeCUEValidationFailed},
		{"wrong type", `data_dir: 42`, errors.CodeCUEValidationFailed},
		{"empty data dir", `data_dir: ""`, errors.CodeCUEValidationFailed},
		{"bad toolchain", `toolchain_version: "go 1.25"`, errors.CodeCUEValidationFailed},
		{"bad duration", `orphan_grace: "a week"`, errors.CodeCUEDecodeFailed},
		{"negative duration", `orphan_grace: "-1h"`, errors.CodeInvalidConfig},
		{"syntax error", `data_dir: {`, errors.CodeCUEBuildFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig(ctx, []byte(tt.src), "scratch.cue")
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestLoadConfig(t *testing.T) {
	ctx := context.Background()
	mfs := billy.NewMemory()
	require.NoError(t, mfs.WriteFile("/etc/scratch.cue", []byte(`depot: "/srv/depot"`), 0o644))

	t.Run("reads file", func(t *testing.T) {
		cfg, err := LoadConfig(ctx, mfs, "/etc/scratch.cue")
		require.NoError(t, err)
		assert.Equal(t, "/srv/depot", cfg.Depot)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(ctx, mfs, "/etc/missing.cue")
		require.Error(t, err)
		assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
	})
}

func TestConfig_Options(t *testing.T) {
	cfg, err := ParseConfig(context.Background(), []byte(`
depot:             "/srv/depot"
toolchain_version: "go1.24"
orphan_grace:      "1h"
`), "scratch.cue")
	require.NoError(t, err)

	opts := cfg.Options()
	assert.Len(t, opts, 3)

	env := newTestEnv(t, opts...)
	depot, err := env.m.Depot()
	require.NoError(t, err)
	assert.Equal(t, "/srv/depot", depot)
	assert.Equal(t, "go1.24", env.m.ToolchainVersion())
	assert.Equal(t, time.Hour, env.m.grace)

	assert.Empty(t, (&Config{}).Options())
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90m")))
	assert.Equal(t, Duration(90*time.Minute), d)

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1h30m0s", string(text))

	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
