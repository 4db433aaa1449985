// Package node is the storage-node orchestrator of spec.md §4.H: it
// binds the geohash/partition/registry/reactor/coordinator packages
// together, handles the ten request/event/response kinds, and exposes
// both the client-facing and peer-facing HTTP surface. Grounded on the
// teacher's worker-node/main.go + gateway/router.go wiring, adapted
// from a gateway/worker split into the single combined orchestrator
// every node in this design runs (see SPEC_FULL.md §0).
package node

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/jkachika/galileo/internal/config"
	"github.com/jkachika/galileo/internal/coordinator"
	"github.com/jkachika/galileo/internal/model"
	"github.com/jkachika/galileo/internal/partition"
	"github.com/jkachika/galileo/internal/reactor"
	"github.com/jkachika/galileo/internal/registry"
	"github.com/jkachika/galileo/internal/topology"
)

// StorageNode owns every per-node collaborator spec.md §4.H lists:
// reactor, pool, registry, and the requestId -> coordinator table.
type StorageNode struct {
	cfg      config.Config
	self     topology.Node
	network  *topology.NetworkInfo
	registry *registry.Registry

	reactor *reactor.Reactor
	pool    *reactor.ConnectionPool
	coords  *coordinator.Table

	admission *rate.Limiter

	log     *logrus.Entry
	metrics *metrics

	status *statusWriter

	queryIDSeq uint64
}

// New wires every collaborator but does not yet bind the HTTP listener
// or start the reactor loop; call Start for that.
func New(cfg config.Config, network *topology.NetworkInfo, log *logrus.Entry) (*StorageNode, error) {
	if !network.ContainsHost(cfg.Hostname) {
		return nil, model.NewValidationError("hostname " + cfg.Hostname + " is not present in the topology")
	}

	reg := registry.New(cfg.DataDir, cfg.SnapshotPath, log)
	if err := reg.Load(); err != nil {
		return nil, err
	}

	n := &StorageNode{
		cfg:       cfg,
		self:      topology.Node{Hostname: cfg.Hostname, Port: cfg.HTTPPort},
		network:   network,
		registry:  reg,
		reactor:   reactor.New(cfg.ReactorQueue, log),
		pool:      reactor.NewConnectionPool(cfg.ConnPoolTimeout),
		coords:    coordinator.NewTable(),
		admission: rate.NewLimiter(rate.Limit(cfg.AdmissionRatePerSecond), cfg.AdmissionBurst),
		log:       log,
		metrics:   newMetrics(),
	}
	n.registerHandlers()
	return n, nil
}

// Start launches the reactor loop and the node-status writer. The HTTP
// listener is bound separately by cmd/storagenode, which owns process
// lifetime and signal handling; call MarkOnline once it is accepting
// connections.
func (n *StorageNode) Start() {
	n.status = newStatusWriter(n.cfg.StatusPath, n.log)
	n.status.set(StatusStarting)
	n.status.set(StatusLoadingTopology)
	n.status.set(StatusRestoringFilesystems)
	n.status.set(StatusBinding)
	go n.reactor.Run()
}

// MarkOnline records that the HTTP listener is up and the node is
// ready to serve, the last coarse state in spec.md §6's sequence.
func (n *StorageNode) MarkOnline() {
	if n.status != nil {
		n.status.set(StatusOnline)
	}
}

// Shutdown stops the reactor loop and snapshots the registry, per
// spec.md §7's graceful-shutdown policy. Events still queued on the
// reactor when it stops are not processed.
func (n *StorageNode) Shutdown() {
	if n.status != nil {
		n.status.set(StatusShuttingDown)
	}
	n.reactor.Stop()
	n.registry.SnapshotNow()
}

// partitionerFor builds a Partitioner for a registered filesystem's
// declared precision/temporal-type/nodes-per-group.
func (n *StorageNode) partitionerFor(fsName string) (*partition.Partitioner, model.FilesystemDescriptor, error) {
	desc, _, ok := n.registry.Get(fsName)
	if !ok {
		return nil, model.FilesystemDescriptor{}, model.NewNotFoundError("unknown filesystem " + fsName)
	}
	return partition.New(n.network, desc.SpatialPrecision, desc.TemporalType, desc.NodesPerGroup), desc, nil
}

// nextQueryID returns a monotonically-unique string, per spec.md
// §4.H's "queryId = monotonically-unique string": a per-process atomic
// counter gives monotonicity, a uuid suffix keeps it globally unique
// across node restarts and other nodes' counters.
func (n *StorageNode) nextQueryID() string {
	seq := atomic.AddUint64(&n.queryIDSeq, 1)
	return n.self.String() + "-" + uuid.NewString() + "-" + strconv.FormatUint(seq, 10)
}
