// Package partition maps metadata to one node (writes) or many nodes
// (queries) by composing the hash functions in internal/hashfn with a
// loaded internal/topology, implementing the five routing branches of
// spec.md §4.D.
package partition

import (
	"github.com/jkachika/galileo/internal/geohash"
	"github.com/jkachika/galileo/internal/hashfn"
	"github.com/jkachika/galileo/internal/model"
	"github.com/jkachika/galileo/internal/topology"
)

// Partitioner routes metadata against a fixed topology and a
// filesystem's declared spatial precision / temporal type. The declared
// nodes-per-group is stored but not used for routing: the node index
// within a group is taken modulo that group's actual node count.
type Partitioner struct {
	network          *topology.NetworkInfo
	spatialPrecision int
	temporalType     model.TemporalType
	nodesPerGroup    int
}

func New(network *topology.NetworkInfo, spatialPrecision int, temporalType model.TemporalType, nodesPerGroup int) *Partitioner {
	return &Partitioner{
		network:          network,
		spatialPrecision: spatialPrecision,
		temporalType:     temporalType,
		nodesPerGroup:    nodesPerGroup,
	}
}

// LocateData returns the single deterministic destination for a write
// (spec.md §4.D). Both spatial and temporal components of metadata are
// required; callers needing the partial-metadata query behavior should
// use FindDestinations instead.
func (p *Partitioner) LocateData(m model.Metadata) (topology.Node, error) {
	groups := p.network.AllGroups()
	if len(groups) == 0 {
		return topology.Node{}, model.NewPartitionError("topology has zero groups")
	}

	groupIdx, err := hashfn.GeohashHash(m, p.spatialPrecision, len(groups))
	if err != nil {
		return topology.Node{}, err
	}
	group := groups[groupIdx]
	if len(group.Nodes) == 0 {
		return topology.Node{}, model.NewPartitionError("group " + group.Name + " has zero nodes")
	}

	nodeIdx, err := hashfn.TemporalHash(m, p.temporalType, len(group.Nodes))
	if err != nil {
		return topology.Node{}, err
	}
	return group.Nodes[nodeIdx], nil
}

// FindDestinations returns every node whose records could possibly
// match partialMetadata, following spec.md §4.D's branch table on
// which of spatial/temporal are present and whether spatial is a
// polygon.
func (p *Partitioner) FindDestinations(m model.Metadata) ([]topology.Node, error) {
	groups := p.network.AllGroups()
	if len(groups) == 0 {
		return nil, model.NewPartitionError("topology has zero groups")
	}
	for _, g := range groups {
		if len(g.Nodes) == 0 {
			return nil, model.NewPartitionError("group " + g.Name + " has zero nodes")
		}
	}

	hasSpatial := m.Spatial != nil
	hasTemporal := m.HasTimestamp

	switch {
	case hasSpatial && m.Spatial.Polygon != nil:
		return p.destinationsForPolygon(groups, *m.Spatial.Polygon, m, hasTemporal)
	case hasSpatial && hasTemporal:
		node, err := p.LocateData(m)
		if err != nil {
			return nil, err
		}
		return []topology.Node{node}, nil
	case hasSpatial:
		groupIdx, err := hashfn.GeohashHash(m, p.spatialPrecision, len(groups))
		if err != nil {
			return nil, err
		}
		return append([]topology.Node(nil), groups[groupIdx].Nodes...), nil
	case hasTemporal:
		var dest []topology.Node
		for _, g := range groups {
			nodeIdx, err := hashfn.TemporalHash(m, p.temporalType, len(g.Nodes))
			if err != nil {
				return nil, err
			}
			dest = append(dest, g.Nodes[nodeIdx])
		}
		return dest, nil
	default:
		return p.network.AllNodes(), nil
	}
}

// destinationsForPolygon covers the polygon at the declared spatial
// precision, maps each cover cell to its group by hashToLong, and
// unions the resulting groups' nodes (or, if a timestamp is also
// present, each group's single temporally-hashed node).
func (p *Partitioner) destinationsForPolygon(groups []topology.Group, polygon model.Polygon, m model.Metadata, hasTemporal bool) ([]topology.Node, error) {
	cover := geohash.FloodFillCover(polygon, p.spatialPrecision)
	if len(cover) == 0 {
		return nil, nil
	}

	groupIdxSeen := map[int]bool{}
	for _, h := range cover {
		v, err := geohash.HashToLong(h)
		if err != nil {
			return nil, err
		}
		groupIdxSeen[int(v%uint64(len(groups)))] = true
	}

	var dest []topology.Node
	seenNodes := map[topology.Node]bool{}
	for idx := range groupIdxSeen {
		g := groups[idx]
		if hasTemporal {
			nodeIdx, err := hashfn.TemporalHash(m, p.temporalType, len(g.Nodes))
			if err != nil {
				return nil, err
			}
			n := g.Nodes[nodeIdx]
			if !seenNodes[n] {
				seenNodes[n] = true
				dest = append(dest, n)
			}
			continue
		}
		for _, n := range g.Nodes {
			if !seenNodes[n] {
				seenNodes[n] = true
				dest = append(dest, n)
			}
		}
	}
	return dest, nil
}
