package node

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/jkachika/galileo/internal/coordinator"
	"github.com/jkachika/galileo/internal/geohash"
	"github.com/jkachika/galileo/internal/localstore"
	"github.com/jkachika/galileo/internal/model"
	"github.com/jkachika/galileo/internal/reactor"
	"github.com/jkachika/galileo/internal/topology"
)

// Event kinds dispatched on the reactor, one per spec.md §4.H request
// kind plus its event/response counterparts.
const (
	kindStorageRequest   reactor.EventKind = "StorageRequest"
	kindStorageEvent     reactor.EventKind = "StorageEvent"
	kindQueryRequest     reactor.EventKind = "QueryRequest"
	kindQueryEvent       reactor.EventKind = "QueryEvent"
	kindQueryResponse    reactor.EventKind = "QueryResponse"
	kindMetadataRequest  reactor.EventKind = "MetadataRequest"
	kindMetadataEvent    reactor.EventKind = "MetadataEvent"
	kindMetadataResponse reactor.EventKind = "MetadataResponse"
	kindFilesystemReq    reactor.EventKind = "FilesystemRequest"
	kindFilesystemEvent  reactor.EventKind = "FilesystemEvent"
)

func (n *StorageNode) registerHandlers() {
	n.reactor.Register(kindStorageRequest, n.handleStorageRequest)
	n.reactor.Register(kindStorageEvent, n.handleStorageEvent)
	n.reactor.Register(kindQueryRequest, n.handleQueryRequest)
	n.reactor.Register(kindQueryEvent, n.handleQueryEvent)
	n.reactor.Register(kindQueryResponse, n.handleQueryResponse)
	n.reactor.Register(kindMetadataRequest, n.handleMetadataRequest)
	n.reactor.Register(kindMetadataEvent, n.handleMetadataEvent)
	n.reactor.Register(kindMetadataResponse, n.handleMetadataResponse)
	n.reactor.Register(kindFilesystemReq, n.handleFilesystemRequest)
	n.reactor.Register(kindFilesystemEvent, n.handleFilesystemEvent)
}

// --- StorageRequest / StorageEvent ---------------------------------

// handleStorageRequest looks up the filesystem, computes the single
// destination via the partitioner, and forwards a StorageEvent to it.
// No local storage occurs here even if the destination is this node —
// that happens in handleStorageEvent, uniformly for local and remote
// destinations (spec.md §4.H).
func (n *StorageNode) handleStorageRequest(ev reactor.Event) {
	msg := ev.Payload.(*storageRequestMsg)
	req := msg.Req

	partitioner, _, err := n.partitionerFor(req.Filesystem)
	if err != nil {
		msg.Reply <- err
		return
	}
	dest, err := partitioner.LocateData(req.Metadata)
	if err != nil {
		msg.Reply <- err
		return
	}

	block := model.StorageEvent{Block: model.Block{
		Filesystem: req.Filesystem,
		Metadata:   req.Metadata,
		Payload:    req.Payload,
	}}

	go func() {
		var err error
		if n.isSelf(dest) {
			reply := make(chan error, 1)
			n.reactor.Enqueue(reactor.Event{Kind: kindStorageEvent, Payload: &storageEventMsg{Event: block, Reply: reply}})
			err = <-reply
		} else {
			err = n.postPeer(dest, "/peer/storage", block, nil)
		}
		msg.Reply <- err
	}()
}

// handleStorageEvent hands the block to the local filesystem (external
// collaborator, stood in here by internal/localstore).
func (n *StorageNode) handleStorageEvent(ev reactor.Event) {
	msg := ev.Payload.(*storageEventMsg)
	_, handle, ok := n.registry.Get(msg.Event.Block.Filesystem)
	if !ok {
		msg.Reply <- model.NewNotFoundError("unknown filesystem " + msg.Event.Block.Filesystem)
		return
	}
	_, err := handle.Store(&msg.Event.Block)
	msg.Reply <- err
}

// --- QueryRequest / QueryEvent / QueryResponse ----------------------

func (n *StorageNode) handleQueryRequest(ev reactor.Event) {
	msg := ev.Payload.(*queryRequestMsg)
	pred := msg.Req.Predicate

	partitioner, _, err := n.partitionerFor(pred.Filesystem)
	if err != nil {
		msg.Reply <- model.QueryResponse{Payload: err.Error()}
		return
	}

	dest, err := partitioner.FindDestinations(predicateToMetadata(pred))
	if err != nil {
		msg.Reply <- model.QueryResponse{Payload: err.Error()}
		return
	}

	queryID := n.nextQueryID()
	merge := coordinator.HostKeyedMerge
	var initial interface{} = map[string]interface{}{}
	if pred.Interactive {
		merge = coordinator.AppendListMerge
		initial = []string{}
	}

	n.metrics.coordinatorsActive.Inc()
	coord := coordinator.New(merge, initial, func(result interface{}, missing []string) {
		n.metrics.coordinatorsActive.Dec()
		n.coords.Unregister(queryID)
		msg.Reply <- model.QueryResponse{QueryID: queryID, Payload: queryResult{Result: result, Missing: missing}}
	})
	n.coords.Register(queryID, coord)
	coord.Dispatch(dest, n.cfg.QueryTimeout)

	qe := model.QueryEvent{QueryID: queryID, Predicate: pred}
	for _, d := range dest {
		n.dispatchQueryEvent(d, qe)
	}
}

// queryResult is the shape returned to the client once a coordinator
// completes: the merged accumulator plus the peers that timed out.
type queryResult struct {
	Result  interface{} `json:"result"`
	Missing []string    `json:"missing"`
}

func (n *StorageNode) dispatchQueryEvent(dest topology.Node, qe model.QueryEvent) {
	go func() {
		var resp model.QueryResponse
		var err error
		if n.isSelf(dest) {
			reply := make(chan model.QueryResponse, 1)
			n.reactor.Enqueue(reactor.Event{Kind: kindQueryEvent, Payload: &queryEventMsg{Event: qe, Reply: reply}})
			resp = <-reply
		} else {
			err = n.postPeer(dest, "/peer/query", qe, &resp)
		}
		if err != nil {
			n.log.WithError(err).WithField("peer", dest.String()).Warn("query fan-out to peer failed")
			return
		}
		n.reactor.Enqueue(reactor.Event{
			Kind:    kindQueryResponse,
			Payload: &queryResponseMsg{Response: resp, FromHost: dest.String()},
		})
	}()
}

// handleQueryEvent asks the local filesystem for matching blocks and
// replies with their identifiers (dryRun, and also interactive, which
// returns the identifiers inline without block contents) or, for a
// non-interactive query, a summary of the spooled result file
// (spec.md §4.H).
func (n *StorageNode) handleQueryEvent(ev reactor.Event) {
	msg := ev.Payload.(*queryEventMsg)
	pred := msg.Event.Predicate

	desc, handle, ok := n.registry.Get(pred.Filesystem)
	if !ok {
		msg.Reply <- model.QueryResponse{QueryID: msg.Event.QueryID, Payload: "unknown filesystem " + pred.Filesystem}
		return
	}

	cover := coverForPredicate(pred, desc.SpatialPrecision)

	if !n.admission.Allow() {
		n.metrics.admissionRejected.Inc()
		msg.Reply <- model.QueryResponse{QueryID: msg.Event.QueryID, Payload: "rejected: admission limit exceeded"}
		return
	}

	results := handle.Scan(cover, pred.TimeLoMillis, pred.TimeHiMillis)

	if pred.DryRun {
		ids := make([]string, 0, len(results))
		for _, r := range results {
			ids = append(ids, r.ID)
		}
		msg.Reply <- model.QueryResponse{QueryID: msg.Event.QueryID, Payload: ids}
		return
	}

	if pred.Interactive {
		rows := make([]string, 0, len(results))
		for _, r := range results {
			rows = append(rows, r.ID)
		}
		msg.Reply <- model.QueryResponse{QueryID: msg.Event.QueryID, Payload: rows}
		return
	}

	summary, err := n.spoolResults(msg.Event.QueryID, results)
	if err != nil {
		msg.Reply <- model.QueryResponse{QueryID: msg.Event.QueryID, Payload: err.Error()}
		return
	}
	msg.Reply <- model.QueryResponse{QueryID: msg.Event.QueryID, Payload: summary}
}

// spoolSummary is what a non-interactive QueryEvent reply carries: the
// on-disk location of the full result set plus enough stats for the
// client to decide whether, and how, to fetch it (spec.md §4.H).
type spoolSummary struct {
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	Matched int    `json:"matched"`
}

// spoolRow is one line of a spooled result file: the stored identifier
// plus the matched block's metadata and payload.
type spoolRow struct {
	ID       string         `json:"id"`
	Metadata model.Metadata `json:"metadata"`
	Payload  []byte         `json:"payload"`
}

// spoolResults writes the full scan result set to a JSON file under the
// node's configured spool directory and returns its path, size, and
// match count, the non-interactive query result shape spec.md §4.H
// requires instead of returning rows inline.
func (n *StorageNode) spoolResults(queryID string, results []localstore.ScanResult) (spoolSummary, error) {
	rows := make([]spoolRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, spoolRow{ID: r.ID, Metadata: r.Block.Metadata, Payload: r.Block.Payload})
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return spoolSummary{}, model.NewSerializationError("marshaling spool rows", err)
	}
	if err := os.MkdirAll(n.cfg.SpoolDir, 0o755); err != nil {
		return spoolSummary{}, model.NewFilesystemError("creating spool directory", err)
	}
	path := filepath.Join(n.cfg.SpoolDir, queryID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return spoolSummary{}, model.NewFilesystemError("writing spool file", err)
	}
	return spoolSummary{Path: path, Size: int64(len(data)), Matched: len(results)}, nil
}

// handleQueryResponse routes a peer's reply to the coordinator
// identified by queryId; unknown ids are logged and dropped
// (spec.md §4.H).
func (n *StorageNode) handleQueryResponse(ev reactor.Event) {
	msg := ev.Payload.(*queryResponseMsg)
	coord, ok := n.coords.Lookup(msg.Response.QueryID)
	if !ok {
		n.log.WithField("queryId", msg.Response.QueryID).Warn("query response for unknown coordinator")
		return
	}
	coord.Reply(msg.FromHost, msg.Response.Payload)
}

// coverForPredicate returns the geohash prefixes a local scan should
// check: the whole world's root prefix ("") when no polygon is given,
// the polygon's flood-fill cover when its bounding box fits within one
// cell's span at spatialPrecision, and its variable-length prefix
// cover otherwise.
func coverForPredicate(pred model.QueryPredicate, spatialPrecision int) []string {
	if pred.Polygon == nil {
		return []string{""}
	}
	bbox := pred.Polygon.BoundingBox()
	center := bbox.Center()
	cell := geohash.Decode(geohash.Encode(center.Lat, center.Lon, spatialPrecision))
	if bbox.LatHi-bbox.LatLo > cell.LatHi-cell.LatLo || bbox.LonHi-bbox.LonLo > cell.LonHi-cell.LonLo {
		return geohash.PrefixCover(*pred.Polygon, spatialPrecision)
	}
	return geohash.FloodFillCover(*pred.Polygon, spatialPrecision)
}

// predicateToMetadata adapts a QueryPredicate into the Metadata shape
// the partitioner's FindDestinations expects.
func predicateToMetadata(pred model.QueryPredicate) model.Metadata {
	m := model.Metadata{}
	if pred.Polygon != nil {
		m.Spatial = model.PolygonPredicate(*pred.Polygon)
	}
	if pred.TimeLoMillis != nil {
		m.HasTimestamp = true
		m.Timestamp = time.UnixMilli(*pred.TimeLoMillis)
	}
	return m
}

// --- MetadataRequest / MetadataEvent / MetadataResponse -------------

func (n *StorageNode) handleMetadataRequest(ev reactor.Event) {
	msg := ev.Payload.(*metadataRequestMsg)
	requestID := n.nextQueryID()

	n.metrics.coordinatorsActive.Inc()
	coord := coordinator.New(coordinator.HostKeyedMerge, map[string]interface{}{}, func(result interface{}, missing []string) {
		n.metrics.coordinatorsActive.Dec()
		n.coords.Unregister(requestID)
		msg.Reply <- model.MetadataResponse{RequestID: requestID, Kind: msg.Req.Kind, Result: queryResult{Result: result, Missing: missing}}
	})
	n.coords.Register(requestID, coord)

	dest := n.network.AllNodes()
	coord.Dispatch(dest, n.cfg.QueryTimeout)

	me := model.MetadataEvent{RequestID: requestID, Kind: msg.Req.Kind, Filesystem: msg.Req.Filesystem}
	for _, d := range dest {
		n.dispatchMetadataEvent(d, me)
	}
}

func (n *StorageNode) dispatchMetadataEvent(dest topology.Node, me model.MetadataEvent) {
	go func() {
		var resp model.MetadataResponse
		var err error
		if n.isSelf(dest) {
			reply := make(chan model.MetadataResponse, 1)
			n.reactor.Enqueue(reactor.Event{Kind: kindMetadataEvent, Payload: &metadataEventMsg{Event: me, Reply: reply}})
			resp = <-reply
		} else {
			err = n.postPeer(dest, "/peer/metadata", me, &resp)
		}
		if err != nil {
			n.log.WithError(err).WithField("peer", dest.String()).Warn("metadata fan-out to peer failed")
			return
		}
		n.reactor.Enqueue(reactor.Event{
			Kind:    kindMetadataResponse,
			Payload: &metadataResponseMsg{Response: resp, FromHost: dest.String()},
		})
	}()
}

func (n *StorageNode) handleMetadataEvent(ev reactor.Event) {
	msg := ev.Payload.(*metadataEventMsg)
	switch msg.Event.Kind {
	case model.MetadataKindFilesystem:
		_, _, ok := n.registry.Get(msg.Event.Filesystem)
		msg.Reply <- model.MetadataResponse{RequestID: msg.Event.RequestID, Kind: msg.Event.Kind, Result: ok}
	case model.MetadataKindFeatures:
		desc, _, ok := n.registry.Get(msg.Event.Filesystem)
		if !ok {
			msg.Reply <- model.MetadataResponse{RequestID: msg.Event.RequestID, Kind: msg.Event.Kind, Error: "unknown filesystem"}
			return
		}
		msg.Reply <- model.MetadataResponse{RequestID: msg.Event.RequestID, Kind: msg.Event.Kind, Result: desc.FeatureSchema}
	default:
		msg.Reply <- model.MetadataResponse{RequestID: msg.Event.RequestID, Kind: msg.Event.Kind, Result: n.registry.Names()}
	}
}

func (n *StorageNode) handleMetadataResponse(ev reactor.Event) {
	msg := ev.Payload.(*metadataResponseMsg)
	coord, ok := n.coords.Lookup(msg.Response.RequestID)
	if !ok {
		n.log.WithField("requestId", msg.Response.RequestID).Warn("metadata response for unknown coordinator")
		return
	}
	coord.Reply(msg.FromHost, msg.Response.Result)
}

// --- FilesystemRequest / FilesystemEvent ----------------------------

// handleFilesystemRequest applies the mutation locally, then
// broadcasts a FilesystemEvent to every other node on a best-effort
// basis — the client gets its reply as soon as the local apply
// succeeds, consistent with spec.md §4.H not requiring synchronous
// cluster-wide confirmation.
func (n *StorageNode) handleFilesystemRequest(ev reactor.Event) {
	msg := ev.Payload.(*filesystemRequestMsg)
	fe := model.FilesystemEvent{Name: msg.Req.Name, Action: msg.Req.Action, Descriptor: msg.Req.Descriptor}

	if err := n.applyFilesystemEvent(fe); err != nil {
		msg.Reply <- err
		return
	}
	msg.Reply <- nil

	for _, dest := range n.network.AllNodes() {
		if n.isSelf(dest) {
			continue
		}
		go func(dest topology.Node) {
			if err := n.postPeer(dest, "/peer/filesystem", fe, nil); err != nil {
				n.log.WithError(err).WithField("peer", dest.String()).Warn("filesystem broadcast to peer failed")
			}
		}(dest)
	}
}

func (n *StorageNode) handleFilesystemEvent(ev reactor.Event) {
	msg := ev.Payload.(*filesystemEventMsg)
	msg.Reply <- n.applyFilesystemEvent(msg.Event)
}

func (n *StorageNode) applyFilesystemEvent(fe model.FilesystemEvent) error {
	switch fe.Action {
	case model.FilesystemActionCreate:
		err := n.registry.Create(fe.Descriptor)
		n.metrics.filesystemsTotal.Set(float64(len(n.registry.Names())))
		return err
	case model.FilesystemActionDelete:
		err := n.registry.Delete(fe.Name)
		n.metrics.filesystemsTotal.Set(float64(len(n.registry.Names())))
		return err
	default:
		return model.NewValidationError("unknown filesystem action " + string(fe.Action))
	}
}
