package geohash

import (
	"github.com/jkachika/galileo/internal/model"
)

// FloodFillCover returns the set of geohashes at precision that
// intersect polygon, found by breadth-first expansion from a seed cell
// rather than scanning the whole bounding box. Grounded on the
// teacher's geohashCoverSet in gateway/helper.go: seed at the cell of
// the polygon's first vertex (which always intersects the polygon),
// track visited cells, and enqueue each of the 8 neighbors
// whenever the current cell intersects the query shape. A bounding-box
// short-circuit skips the intersects() polygon test when the cell's own
// projected box already misses the polygon's bbox entirely.
func FloodFillCover(polygon model.Polygon, precision int) []string {
	if len(polygon.Vertices) == 0 {
		return nil
	}
	bbox := polygon.BoundingBox()
	projBBox := projectCell(bbox)

	first := polygon.Vertices[0]
	seed := Encode(first.Lat, first.Lon, precision)

	visited := map[string]bool{}
	var inSet []string

	queue := []string{seed}
	visited[seed] = true

	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]

		cell := Decode(h)
		projCell := projectCell(cell)
		if !projCell.intersects(projBBox) {
			continue
		}
		if !polygonIntersectsCell(polygon, cell) {
			continue
		}

		inSet = append(inSet, h)

		for _, n := range Neighbors(h) {
			if !visited[n] {
				visited[n] = true
				queue = append(queue, n)
			}
		}
	}
	return inSet
}

// polygonIntersectsCell tests whether polygon's edges cross cell, or
// cell's center lies inside polygon, or any polygon vertex lies inside
// cell — sufficient for the coarse containment the cover algorithms
// need (spec.md §4.A does not require exact sub-cell clipping). Every
// test runs on the projected integer grid rather than raw lat/lon
// floats, so two nodes covering the same polygon always agree on cell
// membership bit-for-bit (spec.md §4.A).
func polygonIntersectsCell(polygon model.Polygon, cell model.SpatialRange) bool {
	projCell := projectCell(cell)
	verts := projectVertices(polygon.Vertices)

	cx, cy := projectPoint(cell.Center())
	if pointInPolygonGrid(cx, cy, verts) {
		return true
	}
	for _, v := range verts {
		if projCell.containsPoint(v.x, v.y) {
			return true
		}
	}
	n := len(verts)
	for i := 0; i < n; i++ {
		a, b := verts[i], verts[(i+1)%n]
		if segmentIntersectsBox(a, b, projCell) {
			return true
		}
	}
	return false
}

// pointInPolygonGrid is the standard even-odd ray-casting test, run
// entirely in projected-grid integer arithmetic: the x-intercept
// comparison is done by cross-multiplication instead of division so no
// float ever enters the decision (spec.md §4.A).
func pointInPolygonGrid(px, py int64, verts []point) bool {
	n := len(verts)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := verts[i], verts[j]
		if (vi.y > py) != (vj.y > py) {
			dy := vi.y - vj.y
			lhs := (px - vj.x) * dy
			rhs := (py - vj.y) * (vi.x - vj.x)
			crossesToTheLeft := lhs < rhs
			if dy < 0 {
				crossesToTheLeft = lhs > rhs
			}
			if crossesToTheLeft {
				inside = !inside
			}
		}
	}
	return inside
}

func segmentIntersectsBox(a, b point, box projectedCell) bool {
	segBox := projectedCell{
		xLo: minI(a.x, b.x), xHi: maxI(a.x, b.x),
		yLo: minI(a.y, b.y), yHi: maxI(a.y, b.y),
	}
	return segBox.intersects(box)
}

// PrefixCover returns a set of geohashes, of length at most precision,
// found by recursively splitting a cell by appending a single bit (0
// then 1) rather than a whole character at a time: a child is visited
// only if the polygon intersects it, and recursion stops early — at the
// next character boundary — either when the polygon fully contains the
// child or when precision is reached, whichever comes first. Because
// a fully-contained cell is emitted without descending further, the
// result can (and for sparse polygons, will) contain hashes shorter
// than precision, which is what lets it avoid the near-quadratic
// intersects() calls flood-fill spends over a large polygon's interior
// (spec.md §9 design notes).
func PrefixCover(polygon model.Polygon, precision int) []string {
	if precision < 1 {
		precision = 1
	}
	if precision > MaxPrecision {
		precision = MaxPrecision
	}
	bbox := polygon.BoundingBox()
	projBBox := projectCell(bbox)
	maxBits := precision * 5

	var result []string
	var recurse func(bitDepth int, lonLo, lonHi, latLo, latHi float64, charAcc string, curVal, bitsInChar int)
	recurse = func(bitDepth int, lonLo, lonHi, latLo, latHi float64, charAcc string, curVal, bitsInChar int) {
		rect := model.SpatialRange{LatLo: latLo, LatHi: latHi, LonLo: lonLo, LonHi: lonHi}
		if !projectCell(rect).intersects(projBBox) {
			return
		}
		if !polygonIntersectsCell(polygon, rect) {
			return
		}

		atCharBoundary := bitsInChar == 0
		if atCharBoundary && bitDepth > 0 {
			if bitDepth >= maxBits || polygonContainsCell(polygon, rect) {
				result = append(result, charAcc)
				return
			}
		}

		even := bitDepth%2 == 0
		for _, bit := range [2]int{0, 1} {
			nLonLo, nLonHi, nLatLo, nLatHi := lonLo, lonHi, latLo, latHi
			if even {
				mid := (lonLo + lonHi) / 2
				if bit == 1 {
					nLonLo = mid
				} else {
					nLonHi = mid
				}
			} else {
				mid := (latLo + latHi) / 2
				if bit == 1 {
					nLatLo = mid
				} else {
					nLatHi = mid
				}
			}
			nVal := (curVal << 1) | bit
			nBitsInChar := bitsInChar + 1
			nCharAcc := charAcc
			if nBitsInChar == 5 {
				nCharAcc = charAcc + string(Alphabet[nVal])
				nVal, nBitsInChar = 0, 0
			}
			recurse(bitDepth+1, nLonLo, nLonHi, nLatLo, nLatHi, nCharAcc, nVal, nBitsInChar)
		}
	}
	recurse(0, -180, 180, -90, 90, "", 0, 0)
	return result
}

// polygonContainsCell approximates full containment: every vertex of
// the rectangle lies inside the polygon and no polygon edge crosses it,
// which is sufficient given the cover algorithms only need a
// conservative "safe to stop splitting" signal rather than exact
// sub-cell clipping. Runs on the projected integer grid, like
// polygonIntersectsCell (spec.md §4.A).
func polygonContainsCell(polygon model.Polygon, cell model.SpatialRange) bool {
	projCell := projectCell(cell)
	corners := []point{
		{x: projCell.xLo, y: projCell.yLo},
		{x: projCell.xHi, y: projCell.yLo},
		{x: projCell.xHi, y: projCell.yHi},
		{x: projCell.xLo, y: projCell.yHi},
	}
	verts := projectVertices(polygon.Vertices)
	for _, c := range corners {
		if !pointInPolygonGrid(c.x, c.y, verts) {
			return false
		}
	}
	n := len(verts)
	for i := 0; i < n; i++ {
		a, b := verts[i], verts[(i+1)%n]
		if segmentIntersectsBox(a, b, projCell) {
			return false
		}
	}
	return true
}
