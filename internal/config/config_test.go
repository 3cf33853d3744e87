package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shadowctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
script: demo.yaml
output: out.html
log:
  level: debug
watch:
  debounce: 250ms
tracing:
  stdout: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo.yaml", cfg.Script)
	assert.Equal(t, "dom", cfg.Driver)
	assert.Equal(t, "out.html", cfg.Output)
	assert.True(t, cfg.Pretty)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
	assert.True(t, cfg.Tracing.Stdout)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Driver = "gtk"
	cfg.Log.Level = "loud"
	cfg.Log.Format = "xml"
	cfg.Watch.Debounce = -time.Second

	err := cfg.Validate()
	require.Error(t, err)
	for _, msg := range []string{`"gtk"`, `"loud"`, `"xml"`, "-1s"} {
		assert.Contains(t, err.Error(), msg)
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: [nope"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := Log{Level: "warn", Format: "json"}.Logger(&buf)
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestWatchDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.yaml")
	other := filepath.Join(dir, "other.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	calls := make(chan fsnotify.Event, 10)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 50*time.Millisecond, nil, func(ev fsnotify.Event) { calls <- ev })
	}()

	// Let the watcher start.
	time.Sleep(100 * time.Millisecond)
	for i := range 3 {
		require.NoError(t, os.WriteFile(path, []byte{byte('b' + i)}, 0o644))
	}
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))

	select {
	case ev := <-calls:
		assert.Equal(t, path, filepath.Clean(ev.Name))
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
	select {
	case ev := <-calls:
		t.Fatalf("unexpected second call for %s", ev)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	assert.NoError(t, <-done)
}
