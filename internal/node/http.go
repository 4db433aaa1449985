package node

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jkachika/galileo/internal/model"
	"github.com/jkachika/galileo/internal/reactor"
)

// Router builds the chi mux exposing both the client-facing REST API
// and the peer-facing endpoints other nodes' postPeer calls target.
// Grounded on the teacher's gateway/router.go chi wiring.
func (n *StorageNode) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(n.httpMetrics)

	r.Route("/api", func(api chi.Router) {
		api.Post("/filesystems", n.handleCreateFilesystem)
		api.Delete("/filesystems/{name}", n.handleDeleteFilesystem)
		api.Get("/filesystems", n.handleMetadataOverview)
		api.Get("/filesystems/{name}", n.handleMetadataFilesystem)
		api.Get("/filesystems/{name}/features", n.handleMetadataFeatures)
		api.Post("/storage", n.handleClientStorage)
		api.Post("/query", n.handleClientQuery)
		api.Get("/query/stream", n.handleQueryStream)
	})

	r.Route("/peer", func(peer chi.Router) {
		peer.Post("/storage", n.handlePeerStorage)
		peer.Post("/query", n.handlePeerQuery)
		peer.Post("/metadata", n.handlePeerMetadata)
		peer.Post("/filesystem", n.handlePeerFilesystem)
	})

	r.Get("/healthz", n.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(n.metrics.registry, promhttp.HandlerOpts{}))

	return r
}

// httpMetrics records galileo_http_requests_total / ..._duration_seconds
// for every client-facing request, grounded on the teacher's
// gateway/metrics.go middleware.
func (n *StorageNode) httpMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(rw, r)
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		n.metrics.httpRequestsTotal.WithLabelValues(route, http.StatusText(rw.Status())).Inc()
		n.metrics.httpLatency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (n *StorageNode) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// --- client-facing handlers -----------------------------------------

func (n *StorageNode) handleClientStorage(w http.ResponseWriter, r *http.Request) {
	var req model.StorageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.NewSerializationError("decoding storage request", err))
		return
	}

	reply := make(chan error, 1)
	n.reactor.Enqueue(reactor.Event{Kind: kindStorageRequest, Payload: &storageRequestMsg{Req: req, Reply: reply}})
	if err := <-reply; err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// handleClientQuery rejects an open-ended time range (a lower bound
// with no upper bound, or vice versa) unless the node was started with
// AllowTimeWildcards — the decision recorded for spec.md §9's time
// wildcard open question.
func (n *StorageNode) handleClientQuery(w http.ResponseWriter, r *http.Request) {
	var req model.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.NewSerializationError("decoding query request", err))
		return
	}
	pred := req.Predicate
	openEnded := (pred.TimeLoMillis == nil) != (pred.TimeHiMillis == nil)
	if openEnded && !n.cfg.AllowTimeWildcards {
		writeError(w, model.NewValidationError("open-ended time ranges are disabled"))
		return
	}

	reply := make(chan model.QueryResponse, 1)
	n.reactor.Enqueue(reactor.Event{Kind: kindQueryRequest, Payload: &queryRequestMsg{Req: req, Reply: reply}})
	resp := <-reply
	writeJSON(w, http.StatusOK, resp)
}

// handleQueryStream upgrades to a websocket and returns the query's
// merged result as one JSON frame once the coordinator completes, the
// interactive response form spec.md §4.G describes.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (n *StorageNode) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		n.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	var req model.QueryRequest
	if err := conn.ReadJSON(&req); err != nil {
		return
	}
	req.Predicate.Interactive = true

	reply := make(chan model.QueryResponse, 1)
	n.reactor.Enqueue(reactor.Event{Kind: kindQueryRequest, Payload: &queryRequestMsg{Req: req, Reply: reply}})
	resp := <-reply
	_ = conn.WriteJSON(resp)
}

func (n *StorageNode) handleCreateFilesystem(w http.ResponseWriter, r *http.Request) {
	var desc model.FilesystemDescriptor
	if err := json.NewDecoder(r.Body).Decode(&desc); err != nil {
		writeError(w, model.NewSerializationError("decoding filesystem descriptor", err))
		return
	}
	reply := make(chan error, 1)
	n.reactor.Enqueue(reactor.Event{Kind: kindFilesystemReq, Payload: &filesystemRequestMsg{
		Req:   model.FilesystemRequest{Name: desc.Name, Action: model.FilesystemActionCreate, Descriptor: desc},
		Reply: reply,
	}})
	if err := <-reply; err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (n *StorageNode) handleDeleteFilesystem(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	reply := make(chan error, 1)
	n.reactor.Enqueue(reactor.Event{Kind: kindFilesystemReq, Payload: &filesystemRequestMsg{
		Req:   model.FilesystemRequest{Name: name, Action: model.FilesystemActionDelete},
		Reply: reply,
	}})
	if err := <-reply; err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (n *StorageNode) handleMetadataOverview(w http.ResponseWriter, r *http.Request) {
	n.clientMetadata(w, model.MetadataKindOverview, "")
}

func (n *StorageNode) handleMetadataFilesystem(w http.ResponseWriter, r *http.Request) {
	n.clientMetadata(w, model.MetadataKindFilesystem, chi.URLParam(r, "name"))
}

func (n *StorageNode) handleMetadataFeatures(w http.ResponseWriter, r *http.Request) {
	n.clientMetadata(w, model.MetadataKindFeatures, chi.URLParam(r, "name"))
}

func (n *StorageNode) clientMetadata(w http.ResponseWriter, kind model.MetadataKind, filesystem string) {
	reply := make(chan model.MetadataResponse, 1)
	n.reactor.Enqueue(reactor.Event{Kind: kindMetadataRequest, Payload: &metadataRequestMsg{
		Req:   model.MetadataRequest{Kind: kind, Filesystem: filesystem},
		Reply: reply,
	}})
	resp := <-reply
	writeJSON(w, http.StatusOK, resp)
}

// --- peer-facing handlers --------------------------------------------

func (n *StorageNode) handlePeerStorage(w http.ResponseWriter, r *http.Request) {
	var event model.StorageEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, model.NewSerializationError("decoding storage event", err))
		return
	}
	reply := make(chan error, 1)
	n.reactor.Enqueue(reactor.Event{Kind: kindStorageEvent, Payload: &storageEventMsg{Event: event, Reply: reply}})
	if err := <-reply; err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (n *StorageNode) handlePeerQuery(w http.ResponseWriter, r *http.Request) {
	var event model.QueryEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, model.NewSerializationError("decoding query event", err))
		return
	}
	reply := make(chan model.QueryResponse, 1)
	n.reactor.Enqueue(reactor.Event{Kind: kindQueryEvent, Payload: &queryEventMsg{Event: event, Reply: reply}})
	resp := <-reply
	writeJSON(w, http.StatusOK, resp)
}

func (n *StorageNode) handlePeerMetadata(w http.ResponseWriter, r *http.Request) {
	var event model.MetadataEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, model.NewSerializationError("decoding metadata event", err))
		return
	}
	reply := make(chan model.MetadataResponse, 1)
	n.reactor.Enqueue(reactor.Event{Kind: kindMetadataEvent, Payload: &metadataEventMsg{Event: event, Reply: reply}})
	resp := <-reply
	writeJSON(w, http.StatusOK, resp)
}

func (n *StorageNode) handlePeerFilesystem(w http.ResponseWriter, r *http.Request) {
	var event model.FilesystemEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, model.NewSerializationError("decoding filesystem event", err))
		return
	}
	reply := make(chan error, 1)
	n.reactor.Enqueue(reactor.Event{Kind: kindFilesystemEvent, Payload: &filesystemEventMsg{Event: event, Reply: reply}})
	if err := <-reply; err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- shared helpers ----------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case model.IsKind(err, model.ErrValidation):
		status = http.StatusBadRequest
	case model.IsKind(err, model.ErrNotFound):
		status = http.StatusNotFound
	case model.IsKind(err, model.ErrTimeout):
		status = http.StatusGatewayTimeout
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
