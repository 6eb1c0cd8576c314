package etl

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ── Source ──────────────────────────────────────────────────
// A Source loads a tabular file into memory.
// Implementations live in etl/sources/, one file per source type.

// SourceConfig configures a single read.
type SourceConfig struct {
	Path      string
	Delimiter rune // zero means the source type's default
}

// SourceSpec describes a source type and the file extensions it claims.
type SourceSpec struct {
	Type       string   `json:"type"`
	Label      string   `json:"label"`
	Extensions []string `json:"extensions"` // lower-case, with leading dot
}

// Source is the interface every tabular source must implement.
type Source interface {
	// Spec returns metadata about this source type.
	Spec() SourceSpec

	// Discover returns the header row without materialising the rows.
	Discover(ctx context.Context, cfg SourceConfig) ([]string, error)

	// Read loads the whole table.
	Read(ctx context.Context, cfg SourceConfig) (*Table, error)
}

// ── Source Registry ────────────────────────────────────────
// Compile-time registration via init() in each source file.

// DefaultSourceType is used for files whose extension no source claims.
const DefaultSourceType = "csv_file"

var (
	registryMu sync.RWMutex
	registry   = map[string]Source{}
)

// RegisterSource registers a source by its spec type.
// Called from init() in each source implementation file.
func RegisterSource(s Source) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[s.Spec().Type] = s
}

// GetSource returns a registered source by type, or an error if not found.
func GetSource(typ string) (Source, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[typ]
	if !ok {
		return nil, fmt.Errorf("unknown source type: %q", typ)
	}
	return s, nil
}

// SourceFor picks the source whose spec claims the extension of path,
// falling back to DefaultSourceType.
func SourceFor(path string) (Source, error) {
	ext := strings.ToLower(filepath.Ext(path))
	registryMu.RLock()
	for _, s := range registry {
		for _, e := range s.Spec().Extensions {
			if e == ext {
				registryMu.RUnlock()
				return s, nil
			}
		}
	}
	registryMu.RUnlock()
	return GetSource(DefaultSourceType)
}

// ListSources returns the specs of all registered sources, sorted by type.
func ListSources() []SourceSpec {
	registryMu.RLock()
	defer registryMu.RUnlock()
	specs := make([]SourceSpec, 0, len(registry))
	for _, s := range registry {
		specs = append(specs, s.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Type < specs[j].Type })
	return specs
}
