package hashfn

import (
	"testing"
	"time"

	"github.com/jkachika/galileo/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pointMetadata(lat, lon float64) model.Metadata {
	return model.Metadata{Spatial: model.PointPredicate(model.Coordinate{Lat: lat, Lon: lon})}
}

func TestGeohashHashIsDeterministic(t *testing.T) {
	m := pointMetadata(37.7749, -122.4194)
	a, err := GeohashHash(m, 6, 8)
	require.NoError(t, err)
	b, err := GeohashHash(m, 6, 8)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.GreaterOrEqual(t, a, 0)
	assert.Less(t, a, 8)
}

func TestGeohashHashRequiresSpatialPredicate(t *testing.T) {
	_, err := GeohashHash(model.Metadata{}, 6, 8)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrHash))
}

func TestGeohashHashRejectsNonPositiveGroupCount(t *testing.T) {
	m := pointMetadata(0, 0)
	_, err := GeohashHash(m, 6, 0)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrHash))
}

func TestTemporalHashBucketsWithinGranularity(t *testing.T) {
	base := time.Date(2026, 3, 5, 10, 15, 0, 0, time.UTC)
	sameHour := base.Add(20 * time.Minute)

	m1 := model.Metadata{HasTimestamp: true, Timestamp: base}
	m2 := model.Metadata{HasTimestamp: true, Timestamp: sameHour}

	h1, err := TemporalHash(m1, model.TemporalHour, 4)
	require.NoError(t, err)
	h2, err := TemporalHash(m2, model.TemporalHour, 4)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestTemporalHashBucketsWithinCalendarMonth(t *testing.T) {
	start := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 6, 30, 23, 59, 59, 0, time.UTC)

	m1 := model.Metadata{HasTimestamp: true, Timestamp: start}
	m2 := model.Metadata{HasTimestamp: true, Timestamp: end}

	h1, err := TemporalHash(m1, model.TemporalMonth, 4)
	require.NoError(t, err)
	h2, err := TemporalHash(m2, model.TemporalMonth, 4)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	nextMonth := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	assert.NotEqual(t, truncate(start, model.TemporalMonth), truncate(nextMonth, model.TemporalMonth))
}

func TestTemporalHashBucketsWithinCalendarYear(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC)

	m1 := model.Metadata{HasTimestamp: true, Timestamp: start}
	m2 := model.Metadata{HasTimestamp: true, Timestamp: end}

	h1, err := TemporalHash(m1, model.TemporalYear, 4)
	require.NoError(t, err)
	h2, err := TemporalHash(m2, model.TemporalYear, 4)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	assert.Equal(t, truncate(start, model.TemporalYear), truncate(end, model.TemporalYear))
}

func TestTemporalHashRequiresTimestamp(t *testing.T) {
	_, err := TemporalHash(model.Metadata{}, model.TemporalDay, 4)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrHash))
}

func TestTemporalHashRejectsNonPositiveNodeCount(t *testing.T) {
	m := model.Metadata{HasTimestamp: true, Timestamp: time.Now()}
	_, err := TemporalHash(m, model.TemporalDay, 0)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrHash))
}
