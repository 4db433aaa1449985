package node

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Status is one of the coarse states spec.md §6 requires the node
// status file to hold.
type Status string

const (
	StatusStarting             Status = "Starting"
	StatusBinding              Status = "Binding"
	StatusLoadingTopology      Status = "LoadingTopology"
	StatusRestoringFilesystems Status = "RestoringFilesystems"
	StatusOnline               Status = "Online"
	StatusShuttingDown         Status = "ShuttingDown"
)

// statusWriter rewrites a single-line status file in full every time
// the node's coarse state changes (spec.md §6). Grounded on the
// teacher's heartbeat-ticker idiom (worker-node/heartbeat.go) in shape
// — a small piece of state continuously reflected to an external
// observer — though here the write is triggered by a state
// transition rather than a fixed interval, since the file only needs
// to reflect the current value, not prove liveness.
type statusWriter struct {
	mu   sync.Mutex
	path string
	log  *logrus.Entry
}

func newStatusWriter(path string, log *logrus.Entry) *statusWriter {
	return &statusWriter{path: path, log: log}
}

func (s *statusWriter) set(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(s.path, []byte(string(status)+"\n"), 0o644); err != nil {
		s.log.WithError(err).Warn("failed to write node status file")
	}
}

// fail rewrites the status file with a one-line error, per spec.md §6's
// "or a one-line error" variant.
func (s *statusWriter) fail(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(s.path, []byte("error: "+message+"\n"), 0o644); err != nil {
		s.log.WithError(err).Warn("failed to write node status file")
	}
}
