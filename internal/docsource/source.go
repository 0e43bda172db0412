// Package docsource lists and opens the raw documents of the corpus.
package docsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/xxxsen/docqa/internal/config"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

var supportedExts = map[string]bool{
	".pdf": true,
	".txt": true,
}

// ListResult is the scan outcome. FirstRun is set when the source did not
// exist yet and was created empty.
type ListResult struct {
	Files    []string
	FirstRun bool
}

type Source interface {
	Type() string
	Location() string
	List(ctx context.Context) (*ListResult, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

type Factory func(args interface{}) (Source, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(cfg config.SourceConfig) (Source, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, fmt.Errorf("%w: ingest.source.type is required", appErr.ErrConfiguration)
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("%w: unsupported document source: %s", appErr.ErrConfiguration, cfg.Type)
	}
	return factory(cfg.Data)
}

// Supported reports whether name has an ingestible extension.
func Supported(name string) bool {
	return supportedExts[strings.ToLower(path.Ext(name))]
}

func filterAndSort(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if Supported(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("%w: source config is required", appErr.ErrConfiguration)
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode source config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: decode source config: %v", appErr.ErrConfiguration, err)
	}
	return nil
}

func validName(name string) bool {
	return name != "" && !strings.Contains(name, "/") && !strings.Contains(name, "\\") && name != "." && name != ".."
}
