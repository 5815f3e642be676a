package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lshigami/Quokkas/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMirror(t *testing.T) Mirror {
	t.Helper()
	m, err := NewMirror(&config.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	return m
}

func TestMirrorRoundTrip(t *testing.T) {
	m := newTestMirror(t)

	_, _, ok := m.Load()
	assert.False(t, ok, "a fresh mirror holds nothing")

	doc := []byte(`[{"id":"s1","name":"Math","lectures":[]}]`)
	require.NoError(t, m.Store(doc, "sha-9"))

	got, sha, ok := m.Load()
	require.True(t, ok)
	assert.JSONEq(t, string(doc), string(got))
	assert.Equal(t, "sha-9", sha)
}

func TestMirrorClear(t *testing.T) {
	m := newTestMirror(t)
	require.NoError(t, m.Store([]byte("[]"), "sha-1"))

	require.NoError(t, m.Clear())
	_, _, ok := m.Load()
	assert.False(t, ok)

	// Clearing an already-empty mirror is fine.
	require.NoError(t, m.Clear())
}

func TestMirrorCorruptFileIsTreatedAsEmpty(t *testing.T) {
	dir := t.TempDir()
	m, err := NewMirror(&config.Config{DataDir: dir})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "mirror.json"), []byte("not json"), 0o644))

	_, _, ok := m.Load()
	assert.False(t, ok, "junk on disk must not poison startup")
}
