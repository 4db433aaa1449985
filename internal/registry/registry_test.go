package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jkachika/galileo/internal/model"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()
	log := logrus.NewEntry(logrus.New())
	return New(dir, filepath.Join(dir, "filesystems.json"), log), dir
}

func weatherDescriptor() model.FilesystemDescriptor {
	return model.FilesystemDescriptor{Name: "weather", SpatialPrecision: 4, NodesPerGroup: 1}
}

func TestCreateIsIdempotent(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.NoError(t, r.Create(weatherDescriptor()))
	require.NoError(t, r.Create(weatherDescriptor()))

	names := r.Names()
	assert.Equal(t, []string{"weather"}, names)
}

func TestCreateRejectsInvalidDescriptor(t *testing.T) {
	r, _ := newTestRegistry(t)
	err := r.Create(model.FilesystemDescriptor{SpatialPrecision: 4, NodesPerGroup: 1})
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrValidation))
}

func TestDeleteRemovesDirectoryAndEntry(t *testing.T) {
	r, dir := newTestRegistry(t)
	require.NoError(t, r.Create(weatherDescriptor()))

	fsDir := filepath.Join(dir, "weather")
	_, err := os.Stat(fsDir)
	require.NoError(t, err)

	require.NoError(t, r.Delete("weather"))
	_, _, ok := r.Get("weather")
	assert.False(t, ok)

	_, err = os.Stat(fsDir)
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteUnknownFilesystemReturnsNotFound(t *testing.T) {
	r, _ := newTestRegistry(t)
	err := r.Delete("missing")
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrNotFound))
}

func TestSnapshotSurvivesReload(t *testing.T) {
	dir := t.TempDir()
	log := logrus.NewEntry(logrus.New())
	snapshotPath := filepath.Join(dir, "filesystems.json")

	r1 := New(dir, snapshotPath, log)
	require.NoError(t, r1.Create(weatherDescriptor()))

	r2 := New(dir, snapshotPath, log)
	require.NoError(t, r2.Load())

	desc, _, ok := r2.Get("weather")
	require.True(t, ok)
	assert.Equal(t, "weather", desc.Name)
	assert.Equal(t, 4, desc.SpatialPrecision)
}

func TestCreateThenDeleteThenReloadReflectsDeletion(t *testing.T) {
	dir := t.TempDir()
	log := logrus.NewEntry(logrus.New())
	snapshotPath := filepath.Join(dir, "filesystems.json")

	r1 := New(dir, snapshotPath, log)
	require.NoError(t, r1.Create(weatherDescriptor()))
	require.NoError(t, r1.Delete("weather"))

	r2 := New(dir, snapshotPath, log)
	require.NoError(t, r2.Load())

	_, _, ok := r2.Get("weather")
	assert.False(t, ok)
}
