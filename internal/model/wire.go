package model

// The types below are the exact request/event/response kinds spec.md
// §6 enumerates for the wire. Framing (how they are serialized onto a
// connection) is explicitly out of scope (spec.md §1); these are the Go
// values the orchestrator accepts and emits regardless of framing.

type StorageRequest struct {
	Filesystem string
	Metadata   Metadata
	Payload    []byte
}

type StorageEvent struct {
	Block Block
}

// QueryPredicate is the client's combined spatial/temporal/feature
// filter. Feature-level evaluation (the within-block search index) is
// an external collaborator per spec.md §1 — FeaturePredicate here is carried
// through to that collaborator, not evaluated by the core.
type QueryPredicate struct {
	Filesystem        string
	Polygon           *Polygon
	TimeLoMillis      *int64
	TimeHiMillis      *int64
	FeaturePredicate  map[string]FeatureValue
	MetadataPredicate map[string]string
	Interactive       bool
	DryRun            bool
}

type QueryRequest struct {
	Predicate QueryPredicate
}

type QueryEvent struct {
	QueryID   string
	Predicate QueryPredicate
}

type QueryResponse struct {
	QueryID string
	Payload interface{}
}

// MetadataKind names the three overview shapes a MetadataRequest may
// ask for (spec.md §4.H).
type MetadataKind string

const (
	MetadataKindFilesystem MetadataKind = "filesystem"
	MetadataKindFeatures   MetadataKind = "features"
	MetadataKindOverview   MetadataKind = "overview"
)

type MetadataRequest struct {
	Kind       MetadataKind
	Filesystem string
}

type MetadataEvent struct {
	RequestID string
	Kind      MetadataKind
	Filesystem string
}

type MetadataResponse struct {
	RequestID string
	Kind      MetadataKind
	Result    interface{}
	Error     string
}

// FilesystemAction names the two admin mutations a FilesystemRequest
// may carry (spec.md §4.H).
type FilesystemAction string

const (
	FilesystemActionCreate FilesystemAction = "CREATE"
	FilesystemActionDelete FilesystemAction = "DELETE"
)

type FilesystemRequest struct {
	Name       string
	Action     FilesystemAction
	Descriptor FilesystemDescriptor
}

type FilesystemEvent struct {
	Name       string
	Action     FilesystemAction
	Descriptor FilesystemDescriptor
}
