package model

import "time"

// SpatialPredicate is either a point, a box, or a polygon — whichever a
// piece of metadata (or a query) supplies, per spec.md §4.D's
// "If S is a polygon rather than a point" branch.
type SpatialPredicate struct {
	Point   *Coordinate
	Box     *SpatialRange
	Polygon *Polygon
}

func PointPredicate(c Coordinate) *SpatialPredicate   { return &SpatialPredicate{Point: &c} }
func PolygonPredicate(p Polygon) *SpatialPredicate     { return &SpatialPredicate{Polygon: &p} }
func BoxPredicate(r SpatialRange) *SpatialPredicate    { return &SpatialPredicate{Box: &r} }

// AnyCoordinate returns a representative coordinate for hashing: the
// point itself, a box's center, or a polygon's first vertex.
func (s *SpatialPredicate) AnyCoordinate() (Coordinate, bool) {
	if s == nil {
		return Coordinate{}, false
	}
	if s.Point != nil {
		return *s.Point, true
	}
	if s.Box != nil {
		return s.Box.Center(), true
	}
	if s.Polygon != nil && len(s.Polygon.Vertices) > 0 {
		return s.Polygon.Vertices[0], true
	}
	return Coordinate{}, false
}

// Metadata is the routable part of a record: timestamp, spatial
// predicate and named features (spec.md §3). Either Spatial or Timestamp
// may be absent — the partitioner (§4.D) handles every combination.
type Metadata struct {
	HasTimestamp bool
	Timestamp    time.Time
	Spatial      *SpatialPredicate
	Features     []Feature
}

// Block is one unit of ingestion: metadata plus an opaque payload. The
// payload's on-disk layout is an external concern (spec.md §1).
type Block struct {
	Filesystem string
	Metadata   Metadata
	Payload    []byte
}

// SpatialHint names which feature carries latitude/longitude when a
// filesystem's records store coordinates as ordinary features rather
// than a dedicated spatial column (spec.md §6).
type SpatialHint struct {
	LatName string `json:"latName"`
	LonName string `json:"lonName"`
}

// FilesystemDescriptor is the persisted configuration of one named
// logical filesystem (spec.md §3, §6).
type FilesystemDescriptor struct {
	Name             string               `json:"name"`
	SpatialPrecision int                  `json:"spatialPrecision"`
	TemporalType     TemporalType         `json:"temporalType"`
	NodesPerGroup    int                  `json:"nodesPerGroup"`
	FeatureSchema    []FeatureSchemaEntry `json:"featureSchema"`
	SpatialHint      SpatialHint          `json:"spatialHint"`
}

// Validate checks the descriptor fields the registry requires before
// it can be installed (spec.md §4.E, §7 ValidationError).
func (d FilesystemDescriptor) Validate() error {
	if d.Name == "" {
		return NewValidationError("filesystem name is required")
	}
	if d.SpatialPrecision < 1 || d.SpatialPrecision > 12 {
		return NewValidationError("spatialPrecision must be within [1,12]")
	}
	if d.NodesPerGroup < 1 {
		return NewValidationError("nodesPerGroup must be positive")
	}
	return nil
}
