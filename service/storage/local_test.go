package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/khaledhikmat/vs-liveness/model"
	"github.com/khaledhikmat/vs-liveness/service/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) (IService, string) {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "artifacts")
	settings := config.Snapshot(config.NewHardCoded())
	settings.ArtifactsFolder = dir
	return NewLocal(settings), dir
}

func TestPersistWritesArtifact(t *testing.T) {
	t.Parallel()

	svc, dir := newTestStorage(t)
	path, err := svc.Persist(model.ResultArtifact{Filename: "LivenessResults.xlsx", Bytes: []byte("sheet")})
	require.NoError(t, err)
	assert.Equal(t, "LivenessResults.xlsx", filepath.Base(path))

	data, err := os.ReadFile(filepath.Join(dir, "LivenessResults.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, []byte("sheet"), data)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPersistKeepsArtifactInsideFolder(t *testing.T) {
	t.Parallel()

	svc, dir := newTestStorage(t)
	path, err := svc.Persist(model.ResultArtifact{Filename: "../escape.xlsx", Bytes: []byte("x")})
	require.NoError(t, err)

	absDir, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, absDir, filepath.Dir(path))
}

func TestPersistRejectsEmptyName(t *testing.T) {
	t.Parallel()

	svc, _ := newTestStorage(t)
	_, err := svc.Persist(model.ResultArtifact{Filename: "  "})
	assert.Error(t, err)
}
