//go:build !llama

package model

// This file provides a no-CGO stub for the in-process llama runtime. It is
// compiled when the 'llama' build tag is NOT set, keeping default builds and
// CI CGO-free. The real runtime lives in llama.go.

// llamaBuilt indicates this binary was compiled with real llama support.
const llamaBuilt = false

func openLlama(opts LoadOptions) (Runtime, error) {
	// Fail fast: llama runtime not available in this build.
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}
