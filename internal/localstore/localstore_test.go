package localstore

import (
	"testing"
	"time"

	"github.com/jkachika/galileo/internal/geohash"
	"github.com/jkachika/galileo/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func descriptor() model.FilesystemDescriptor {
	return model.FilesystemDescriptor{Name: "weather", SpatialPrecision: 5, NodesPerGroup: 1}
}

func block(lat, lon float64, ts time.Time) *model.Block {
	return &model.Block{
		Filesystem: "weather",
		Metadata: model.Metadata{
			HasTimestamp: true,
			Timestamp:    ts,
			Spatial:      model.PointPredicate(model.Coordinate{Lat: lat, Lon: lon}),
		},
	}
}

func TestStoreThenScanFindsBlockByPrefix(t *testing.T) {
	fs := New(descriptor())
	b := block(40.7, -74.0, time.Now())
	id, err := fs.Store(b)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	hash := geohash.Encode(40.7, -74.0, 5)
	results := fs.Scan([]string{hash[:3]}, nil, nil)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].ID)
}

func TestScanRespectsTimeRange(t *testing.T) {
	fs := New(descriptor())
	early := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := fs.Store(block(40.7, -74.0, early))
	require.NoError(t, err)
	_, err = fs.Store(block(40.7, -74.0, late))
	require.NoError(t, err)

	hash := geohash.Encode(40.7, -74.0, 5)
	lo := early.Add(-time.Hour).UnixMilli()
	hi := early.Add(time.Hour).UnixMilli()
	results := fs.Scan([]string{hash[:3]}, &lo, &hi)
	assert.Len(t, results, 1)
}

func TestScanFindsNothingForUnrelatedPrefix(t *testing.T) {
	fs := New(descriptor())
	_, err := fs.Store(block(40.7, -74.0, time.Now()))
	require.NoError(t, err)

	results := fs.Scan([]string{"zzzzz"}, nil, nil)
	assert.Empty(t, results)
}

func TestStoreRejectsMetadataWithoutSpatialPredicate(t *testing.T) {
	fs := New(descriptor())
	_, err := fs.Store(&model.Block{Metadata: model.Metadata{}})
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrFilesystem))
}
