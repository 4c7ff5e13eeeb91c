package inference

import (
	"time"

	"predictd/pkg/types"
)

// LoadedModel is the in-memory handle for a model that passed validation at
// load time. The metadata is a copy taken when the load committed; the
// handle is immutable after construction, so concurrent predictions may
// share it without locking.
type LoadedModel struct {
	Metadata types.ModelMetadata
	Runtime  ModelRuntime
	LoadedAt time.Time
}

// Schema returns the input schema declared at load time (nil when none).
func (m *LoadedModel) Schema() *types.InputSchema { return m.Metadata.InputSchema }

// entry is the loader's cache slot for one model identifier.
type entry struct {
	model      *LoadedModel
	lastAccess time.Time
	// pins counts in-flight borrowers of the handle. An entry is only
	// closed when condemned and pins reaches zero.
	pins      int
	condemned bool
	// Admission primitives, per model.
	queueCh chan struct{} // buffered: queue slots
	execCh  chan struct{} // buffered: concurrent executions
}

// loadCall tracks one in-flight load so concurrent loads of the same
// identifier collapse to a single underlying open.
type loadCall struct {
	done chan struct{}
	err  error
}
