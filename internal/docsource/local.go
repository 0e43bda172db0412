package docsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

type localConfig struct {
	Dir string `json:"dir"`
}

type localSource struct {
	dir string
}

func init() {
	Register("local", createLocalSource)
}

func createLocalSource(args interface{}) (Source, error) {
	cfg := &localConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("%w: local source dir is required", appErr.ErrConfiguration)
	}
	return NewLocal(cfg.Dir), nil
}

func NewLocal(dir string) Source {
	return &localSource{dir: dir}
}

func (s *localSource) Type() string {
	return "local"
}

func (s *localSource) Location() string {
	return s.dir
}

func (s *localSource) List(ctx context.Context) (*ListResult, error) {
	_ = ctx
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return nil, fmt.Errorf("create documents dir: %w", err)
		}
		return &ListResult{FirstRun: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read documents dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return &ListResult{Files: filterAndSort(names)}, nil
}

func (s *localSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	_ = ctx
	if !validName(name) {
		return nil, fmt.Errorf("invalid document name: %q", name)
	}
	return os.Open(filepath.Join(s.dir, name))
}
