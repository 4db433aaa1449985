package node

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/jkachika/galileo/internal/model"
	"github.com/jkachika/galileo/internal/topology"
)

// postPeer marshals payload, sends it through the connection pool to
// dest's path, and decodes the peer's JSON response into result (if
// non-nil). This is the retargeted equivalent of the teacher's
// GetConn-then-invoke pattern (gateway/ring.go), adapted from a cached
// gRPC stub call to a cached *http.Client POST (see DESIGN.md for why
// gRPC itself was not carried forward).
func (n *StorageNode) postPeer(dest topology.Node, path string, payload, result interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return model.NewSerializationError("encoding request to peer "+dest.String(), err)
	}

	resp, err := n.pool.Send(dest.String(), func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, "http://"+dest.String()+path, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		n.metrics.peerRequestsTotal.WithLabelValues(dest.String(), "failure").Inc()
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		n.metrics.peerRequestsTotal.WithLabelValues(dest.String(), "failure").Inc()
		return model.NewIOError("peer "+dest.String()+" returned "+resp.Status, nil)
	}
	n.metrics.peerRequestsTotal.WithLabelValues(dest.String(), "success").Inc()

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return model.NewSerializationError("decoding response from peer "+dest.String(), err)
	}
	return nil
}

// isSelf reports whether dest names this node, so callers can skip the
// HTTP round trip and invoke the local handler directly.
func (n *StorageNode) isSelf(dest topology.Node) bool {
	return dest.Hostname == n.self.Hostname && dest.Port == n.self.Port
}
