// Package model owns the process-wide handle to the external model runtime.
// It is structured into small files by concern:
//
//   - runtime.go: Runtime interface, generation Params, Result and LoadOptions.
//   - open.go: Open selects and initialises a runtime from LoadOptions.
//   - errors.go: error types and helpers (IsDependencyUnavailable, IsModelNotFound).
//   - slot.go: single in-flight admission for runtimes that cannot run
//     concurrent generations.
//   - server.go: OpenAI-compatible completion server over HTTP (llama.cpp
//     server, vLLM) with SSE streaming.
//
// Build tags:
//
//   - In-process llama: uses go-llama.cpp. Enabled with `-tags=llama`.
//     Files: llama.go, llama_cgo.go (linker rpath hints).
//     A no-CGO stub exists when the tag is not set: llama_stub.go.
//
// A Runtime is opened once at process start, shared read-mostly by every
// request and closed at shutdown.
package model
