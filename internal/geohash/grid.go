package geohash

import "github.com/jkachika/galileo/internal/model"

// gridWidth is the side length of the projected integer grid used for
// floating-point-free polygon/rectangle intersection tests (spec.md
// §4.A: "W = 2^30").
const gridWidth = 1 << 30

// projectedCell is a geohash cell's bounds mapped onto the integer grid:
// x grows east, y grows south, matching the projection
// x=(lon+180)*W/360, y=(90-lat)*W/180.
type projectedCell struct {
	xLo, xHi int64
	yLo, yHi int64
}

func projectX(lon float64) int64 {
	return int64((lon + 180) * gridWidth / 360)
}

func projectY(lat float64) int64 {
	return int64((90 - lat) * gridWidth / 180)
}

func projectCell(r model.SpatialRange) projectedCell {
	return projectedCell{
		xLo: projectX(r.LonLo), xHi: projectX(r.LonHi),
		yLo: projectY(r.LatHi), yHi: projectY(r.LatLo),
	}
}

func (a projectedCell) intersects(b projectedCell) bool {
	return a.xLo <= b.xHi && a.xHi >= b.xLo && a.yLo <= b.yHi && a.yHi >= b.yLo
}

// projectPoint places (lat,lon) on the grid, used to test point-in-box
// membership without floating-point epsilon concerns.
func projectPoint(c model.Coordinate) (x, y int64) {
	return projectX(c.Lon), projectY(c.Lat)
}

func (a projectedCell) containsPoint(x, y int64) bool {
	return x >= a.xLo && x <= a.xHi && y >= a.yLo && y <= a.yHi
}

// point is a polygon vertex projected onto the integer grid, the form
// the cover algorithms' intersection tests operate on (spec.md §4.A).
type point struct {
	x, y int64
}

func projectVertices(verts []model.Coordinate) []point {
	pts := make([]point, len(verts))
	for i, v := range verts {
		pts[i].x, pts[i].y = projectPoint(v)
	}
	return pts
}

func minI(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func maxI(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
