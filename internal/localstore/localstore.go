// Package localstore is the default in-memory implementation of the
// "local filesystem" collaborator spec.md §1 leaves external: it gives
// every node something to hand a StorageEvent's block to and something
// for a QueryEvent to scan, indexed by geohash prefix. Its trie shape
// is grounded on the teacher's worker-node/ping.go TrieNode, adapted to
// hold stored blocks at each node instead of a hit count.
package localstore

import (
	"strconv"
	"sync"

	"github.com/jkachika/galileo/internal/geohash"
	"github.com/jkachika/galileo/internal/model"
)

// ScanResult is one matched block plus the identifier it was stored
// under, the shape a dry-run or interactive query needs.
type ScanResult struct {
	ID    string
	Block *model.Block
}

// trieNode indexes stored blocks by geohash prefix: every node on the
// path from the root accumulates the blocks filed under it, so a query
// at a shorter prefix still finds deeper matches without re-walking.
type trieNode struct {
	children map[byte]*trieNode
	entries  []ScanResult
}

func (t *trieNode) insert(hash string, e ScanResult) {
	current := t
	current.entries = append(current.entries, e)
	for i := 0; i < len(hash); i++ {
		if current.children == nil {
			current.children = make(map[byte]*trieNode)
		}
		c := hash[i]
		child, ok := current.children[c]
		if !ok {
			child = &trieNode{}
			current.children[c] = child
		}
		child.entries = append(child.entries, e)
		current = child
	}
}

// collectAt walks to the node at prefix and returns everything filed
// there (which already includes everything filed at any longer
// prefix), or nil if no block has ever been filed under prefix.
func (t *trieNode) collectAt(prefix string) []ScanResult {
	current := t
	for i := 0; i < len(prefix); i++ {
		if current.children == nil {
			return nil
		}
		child, ok := current.children[prefix[i]]
		if !ok {
			return nil
		}
		current = child
	}
	return current.entries
}

// LocalFilesystem stores blocks for one named filesystem and answers
// dry-run and full scans over a spatial/temporal predicate. It keeps
// everything in memory and is the handle type the registry installs
// for every filesystem.
type LocalFilesystem struct {
	descriptor model.FilesystemDescriptor
	mu         sync.RWMutex
	root       *trieNode
	nextID     int
}

func New(descriptor model.FilesystemDescriptor) *LocalFilesystem {
	return &LocalFilesystem{
		descriptor: descriptor,
		root:       &trieNode{},
	}
}

// Store files b under the geohash of its representative coordinate at
// the filesystem's declared spatial precision, and returns the
// identifier future dry-run queries will report for it.
func (l *LocalFilesystem) Store(b *model.Block) (string, error) {
	if b.Metadata.Spatial == nil {
		return "", model.NewFilesystemError("block has no spatial predicate", nil)
	}
	c, ok := b.Metadata.Spatial.AnyCoordinate()
	if !ok {
		return "", model.NewFilesystemError("spatial predicate carries no coordinate", nil)
	}
	hash := geohash.Encode(c.Lat, c.Lon, l.descriptor.SpatialPrecision)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	id := hash + "#" + strconv.Itoa(l.nextID)
	l.root.insert(hash, ScanResult{ID: id, Block: b})
	return id, nil
}

// Scan returns every block whose stored geohash prefix matches
// cover (a set of geohash prefixes produced by the caller's own
// covering of the query predicate) and whose timestamp, if timeLo or
// timeHi is non-nil, falls within those bounds (epoch milliseconds,
// inclusive).
func (l *LocalFilesystem) Scan(cover []string, timeLo, timeHi *int64) []ScanResult {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seen := map[string]bool{}
	var results []ScanResult
	for _, prefix := range cover {
		for _, e := range l.root.collectAt(prefix) {
			if seen[e.ID] {
				continue
			}
			if !withinRange(e.Block, timeLo, timeHi) {
				continue
			}
			seen[e.ID] = true
			results = append(results, e)
		}
	}
	return results
}

func withinRange(b *model.Block, lo, hi *int64) bool {
	if lo == nil && hi == nil {
		return true
	}
	if !b.Metadata.HasTimestamp {
		return false
	}
	ms := b.Metadata.Timestamp.UnixMilli()
	if lo != nil && ms < *lo {
		return false
	}
	if hi != nil && ms > *hi {
		return false
	}
	return true
}

// Close releases the handle. The in-memory store has nothing to flush;
// Registry.Delete calls it before removing the filesystem's directory.
func (l *LocalFilesystem) Close() {}
