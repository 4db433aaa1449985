package node

import "github.com/jkachika/galileo/internal/model"

// The message wrappers below carry a reply channel alongside the wire
// payload so a handler running on the reactor loop can hand its result
// back to whichever goroutine is waiting for it (an HTTP handler for
// client-originated requests, a coordinator for peer-originated ones),
// without the reactor itself blocking on that handoff.

type storageRequestMsg struct {
	Req   model.StorageRequest
	Reply chan error
}

type storageEventMsg struct {
	Event model.StorageEvent
	Reply chan error
}

type queryRequestMsg struct {
	Req   model.QueryRequest
	Reply chan model.QueryResponse
}

type queryEventMsg struct {
	Event model.QueryEvent
	Reply chan model.QueryResponse
}

type queryResponseMsg struct {
	Response model.QueryResponse
	FromHost string
}

type metadataRequestMsg struct {
	Req   model.MetadataRequest
	Reply chan model.MetadataResponse
}

type metadataEventMsg struct {
	Event model.MetadataEvent
	Reply chan model.MetadataResponse
}

type metadataResponseMsg struct {
	Response model.MetadataResponse
	FromHost string
}

type filesystemRequestMsg struct {
	Req   model.FilesystemRequest
	Reply chan error
}

type filesystemEventMsg struct {
	Event model.FilesystemEvent
	Reply chan error
}
