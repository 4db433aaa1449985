// Package hashfn implements the two routing hash functions spec.md §4.B
// builds the partitioner from: GeohashHash maps a record's spatial
// predicate to a group index, TemporalHash maps its timestamp to a node
// index within that group.
package hashfn

import (
	"time"

	"github.com/jkachika/galileo/internal/geohash"
	"github.com/jkachika/galileo/internal/model"
)

// GeohashHash encodes the metadata's representative coordinate at
// spatialPrecision, packs it with HashToLong, and reduces modulo
// groupCount. It returns HashError if the metadata carries no spatial
// predicate or groupCount is non-positive (spec.md §4.B).
func GeohashHash(m model.Metadata, spatialPrecision, groupCount int) (int, error) {
	if groupCount <= 0 {
		return 0, model.NewHashError("group count must be positive")
	}
	if m.Spatial == nil {
		return 0, model.NewHashError("metadata has no spatial predicate")
	}
	c, ok := m.Spatial.AnyCoordinate()
	if !ok {
		return 0, model.NewHashError("spatial predicate carries no coordinate")
	}
	hash := geohash.Encode(c.Lat, c.Lon, spatialPrecision)
	v, err := geohash.HashToLong(hash)
	if err != nil {
		return 0, err
	}
	return int(v % uint64(groupCount)), nil
}

// TemporalHash truncates the metadata's timestamp to temporalType's
// granularity and reduces the truncated epoch value modulo nodeCount.
// It returns HashError if the metadata carries no timestamp or
// nodeCount is non-positive (spec.md §4.B).
func TemporalHash(m model.Metadata, temporalType model.TemporalType, nodeCount int) (int, error) {
	if nodeCount <= 0 {
		return 0, model.NewHashError("node count must be positive")
	}
	if !m.HasTimestamp {
		return 0, model.NewHashError("metadata has no timestamp")
	}
	truncated := truncate(m.Timestamp, temporalType)
	return int(uint64(truncated) % uint64(nodeCount)), nil
}

// truncate floors t to temporalType's bucket. HOUR and DAY return the
// number of whole hours/days since the Unix epoch; MONTH and YEAR
// return the bucket start as a Unix timestamp. MONTH and YEAR truncate to the
// calendar month/year start (day set to 1, month set to January for
// YEAR) rather than dividing epoch seconds by a fixed-size constant,
// since 30/365-day divisors drift across calendar month/year
// boundaries and would split a single month's or year's records
// across two bucket values.
func truncate(t time.Time, temporalType model.TemporalType) int64 {
	t = t.UTC()
	switch temporalType {
	case model.TemporalHour:
		return t.Unix() / 3600
	case model.TemporalDay:
		return t.Unix() / 86400
	case model.TemporalMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).Unix()
	case model.TemporalYear:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC).Unix()
	default:
		return t.Unix()
	}
}
