package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/jian-li1/reddit-llm/pkg/types"
)

var quantPattern = regexp.MustCompile(`(?i)(?:^|[.\-_])((?:I?Q[1-8](?:_[0-9A-Z]+)*)|BF16|F16|F32)$`)

// LoadDir scans a directory for *.gguf files and builds a registry from filenames.
// ID is the full filename (including extension); Path is the absolute file path.
func LoadDir(dir string) ([]types.Model, error) {
	base, err := expandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		models = append(models, modelFromFile(filepath.Join(abs, name)))
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// Resolve maps a configured model identifier to a model on disk. The id may be
// a path to a file, a file name inside dir, or a file name without the .gguf
// extension. Ids that match nothing on disk are returned verbatim with an empty
// Path so remote runtimes can pass them through as model names.
func Resolve(dir, id string) (types.Model, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return types.Model{}, false
	}
	if p, err := expandHome(id); err == nil && strings.ContainsRune(id, os.PathSeparator) {
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				p = abs
			}
			return modelFromFile(p), true
		}
	}
	if dir != "" {
		if models, err := LoadDir(dir); err == nil {
			for _, m := range models {
				if m.ID == id || m.Name == id {
					return m, true
				}
			}
		}
	}
	return types.Model{ID: id, Name: id}, false
}

func modelFromFile(p string) types.Model {
	id := filepath.Base(p)
	name := strings.TrimSuffix(id, filepath.Ext(id))
	m := types.Model{ID: id, Name: name, Path: p}
	if sm := quantPattern.FindStringSubmatch(name); sm != nil {
		m.Quant = strings.ToUpper(sm[1])
	}
	return m
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/models/llm
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
