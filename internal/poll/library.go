package poll

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"pollbot/pkg/logx"

	yaml "go.yaml.in/yaml/v3"
)

// Library holds the ordered poll definitions read from the polls file.
// The list is immutable per load; Reload swaps it atomically.
type Library struct {
	path string
	log  logx.Logger

	mu   sync.RWMutex
	defs []Definition
}

type fileSchema struct {
	Polls []Definition `json:"polls"`
}

// Open reads and strictly decodes the polls file.
func Open(path string, log logx.Logger) (*Library, error) {
	l := &Library{path: path, log: log}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload re-reads the polls file. On decode failure the previous
// definitions stay in place.
func (l *Library) Reload() error {
	defs, err := parseFile(l.path)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.defs = defs
	l.mu.Unlock()
	l.log.Debug("poll library loaded", logx.String("path", l.path), logx.Int("polls", len(defs)))
	return nil
}

// Definitions returns a copy of the current list.
func (l *Library) Definitions() []Definition {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Definition, len(l.defs))
	copy(out, l.defs)
	return out
}

// Select returns the definition at index. A negative index selects the
// first entry (the CLI's "no argument" case).
func (l *Library) Select(index int) (Definition, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.defs) == 0 {
		return Definition{}, fmt.Errorf("poll library %s is empty", l.path)
	}
	if index < 0 {
		index = 0
	}
	if index >= len(l.defs) {
		return Definition{}, fmt.Errorf("poll index %d out of range (library has %d)", index, len(l.defs))
	}
	return l.defs[index], nil
}

// parseFile decodes the YAML polls file through a strict JSON decoder so
// unknown keys (typos, removed fields) are rejected at load time.
func parseFile(path string) ([]Definition, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read polls file: %w", err)
	}
	jb, err := coerceToJSONBytes(b)
	if err != nil {
		return nil, fmt.Errorf("polls file %s: %w", path, err)
	}

	var f fileSchema
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("polls file %s: %w", path, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("polls file %s: trailing data", path)
	}
	return f.Polls, nil
}

// coerceToJSONBytes converts the YAML document to JSON bytes so the strict
// JSON decoder (DisallowUnknownFields) can be reused.
func coerceToJSONBytes(data []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}
	v = normalizeYAML(v)
	j, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("yaml->json marshal: %w", err)
	}
	return j, nil
}

// normalizeYAML ensures all map keys are strings so the result can be
// JSON-marshaled.
func normalizeYAML(in any) any {
	switch x := in.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[k] = normalizeYAML(v)
		}
		return m
	case []any:
		for i := range x {
			x[i] = normalizeYAML(x[i])
		}
		return x
	default:
		return in
	}
}
