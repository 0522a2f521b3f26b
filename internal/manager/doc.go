// Package manager owns the process-wide model runtime and the chat service
// built on it. It opens the runtime once, reports readiness, lists the models
// available on disk, and closes the runtime at shutdown.
//
// External packages should treat this package as the orchestration layer and
// use public methods only (New, Load, Reply, Info, ListModels, Ready, Close).
package manager
