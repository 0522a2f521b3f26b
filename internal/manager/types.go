package manager

import (
	"github.com/jian-li1/reddit-llm/internal/chat"
	"github.com/jian-li1/reddit-llm/internal/model"
	"github.com/jian-li1/reddit-llm/internal/stream"
)

// State represents the lifecycle state of the manager.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
	StateClosed  State = "closed"
)

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	State State
	Model string
	Err   string
}

// OpenFunc opens a runtime of the given kind.
type OpenFunc func(kind string, opts model.LoadOptions) (model.Runtime, error)

// Config describes the runtime to open and the chat service to build on it.
type Config struct {
	// Runtime kind passed to Open ("llama" or "server").
	Runtime string
	Load    model.LoadOptions
	// Directory scanned by ListModels.
	ModelsDir string
	Worker    stream.WorkerConfig
	Chat      chat.Config
	// Open defaults to model.Open.
	Open OpenFunc
}
