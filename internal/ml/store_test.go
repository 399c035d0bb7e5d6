package ml

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	X, y := syntheticData(200, 11)
	model, err := NewTrainer(true, nil).Train(X, y, testFeatureNames())
	require.NoError(t, err)

	dir := t.TempDir()
	path, err := SaveModel(model, dir)
	require.NoError(t, err)
	assert.FileExists(t, path)

	loaded, err := LoadModel(path)
	require.NoError(t, err)

	probe := []float64{8.0, 2.0, 0.7}
	want, err := model.PredictProba(probe)
	require.NoError(t, err)
	got, err := loaded.PredictProba(probe)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveModelNil(t *testing.T) {
	_, err := SaveModel(nil, t.TempDir())
	assert.Error(t, err)
}

func TestFindLatestModel(t *testing.T) {
	dir := t.TempDir()

	latest, err := FindLatestModel(dir)
	require.NoError(t, err)
	assert.Empty(t, latest)

	older := filepath.Join(dir, "model_a.gob")
	newer := filepath.Join(dir, "model_b.gob")
	require.NoError(t, os.WriteFile(older, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte("x"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	latest, err = FindLatestModel(dir)
	require.NoError(t, err)
	assert.Equal(t, newer, latest)
}

func TestFindLatestModelMissingDir(t *testing.T) {
	latest, err := FindLatestModel(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, latest)
}
