package model

import (
	"fmt"
	"strings"
)

// Open initialises the runtime named by kind ("llama" or "server").
func Open(kind string, opts LoadOptions) (Runtime, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "llama":
		if strings.TrimSpace(opts.Model.Path) == "" {
			return nil, ErrModelNotFound(opts.Model.ID)
		}
		rt, err := openLlama(opts)
		if err != nil {
			return nil, err
		}
		// go-llama.cpp keeps one token callback per model.
		return Serialize(rt), nil
	case "server":
		return NewServer(opts)
	default:
		return nil, fmt.Errorf("unknown runtime %q", kind)
	}
}

// LlamaBuilt reports whether the in-process llama runtime was compiled in.
func LlamaBuilt() bool { return llamaBuilt }
