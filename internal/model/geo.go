package model

import "math"

// Coordinate is a (lat,lon) pair in degrees. Out-of-range values are
// normalized (wrapped modulo the full circle) by Normalize, per spec.md §3.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Normalize wraps lat into [-90,90] and lon into [-180,180] by repeatedly
// folding across the full extent, matching spec.md §4.A's encode
// preamble ("repeatedly adding/subtracting the full extent").
func (c Coordinate) Normalize() Coordinate {
	lat, lon := c.Lat, c.Lon

	for lat > 90 {
		lat -= 180
	}
	for lat < -90 {
		lat += 180
	}
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return Coordinate{Lat: lat, Lon: lon}
}

// SpatialRange is an axis-aligned rectangle in degrees: the bounds a
// geohash denotes, or a bounding box supplied by a client.
type SpatialRange struct {
	LatLo, LatHi float64
	LonLo, LonHi float64
}

func (r SpatialRange) Center() Coordinate {
	return Coordinate{Lat: (r.LatLo + r.LatHi) / 2, Lon: (r.LonLo + r.LonHi) / 2}
}

func (r SpatialRange) Contains(c Coordinate) bool {
	return c.Lat >= r.LatLo && c.Lat <= r.LatHi && c.Lon >= r.LonLo && c.Lon <= r.LonHi
}

func (r SpatialRange) Intersects(o SpatialRange) bool {
	return !(r.LatHi < o.LatLo || r.LatLo > o.LatHi || r.LonHi < o.LonLo || r.LonLo > o.LonHi)
}

// Polygon is an ordered list of vertices; the last vertex implicitly
// closes back to the first.
type Polygon struct {
	Vertices []Coordinate
}

// BoundingBox returns the axis-aligned box enclosing the polygon.
func (p Polygon) BoundingBox() SpatialRange {
	if len(p.Vertices) == 0 {
		return SpatialRange{}
	}
	r := SpatialRange{
		LatLo: math.Inf(1), LatHi: math.Inf(-1),
		LonLo: math.Inf(1), LonHi: math.Inf(-1),
	}
	for _, v := range p.Vertices {
		r.LatLo = math.Min(r.LatLo, v.Lat)
		r.LatHi = math.Max(r.LatHi, v.Lat)
		r.LonLo = math.Min(r.LonLo, v.Lon)
		r.LonHi = math.Max(r.LonHi, v.Lon)
	}
	return r
}

// TemporalType is the truncation granularity a filesystem declares for
// bucketing record timestamps (spec.md §3).
type TemporalType int

const (
	TemporalHour TemporalType = iota
	TemporalDay
	TemporalMonth
	TemporalYear
)

func (t TemporalType) String() string {
	switch t {
	case TemporalHour:
		return "HOUR"
	case TemporalDay:
		return "DAY"
	case TemporalMonth:
		return "MONTH"
	case TemporalYear:
		return "YEAR"
	default:
		return "UNKNOWN"
	}
}

func ParseTemporalType(s string) (TemporalType, error) {
	switch s {
	case "HOUR":
		return TemporalHour, nil
	case "DAY":
		return TemporalDay, nil
	case "MONTH":
		return TemporalMonth, nil
	case "YEAR":
		return TemporalYear, nil
	default:
		return 0, NewValidationError("unknown temporal type " + s)
	}
}

func (t TemporalType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *TemporalType) UnmarshalJSON(b []byte) error {
	v, err := ParseTemporalType(trimQuotes(string(b)))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
