// Package loader turns raw files into documents made of text pages.
package loader

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/xxxsen/docqa/internal/model"
)

type Loader interface {
	Load(ctx context.Context, name string, r io.Reader) (*model.Document, error)
}

type Registry struct {
	loaders map[string]Loader
}

func NewRegistry() *Registry {
	return &Registry{loaders: make(map[string]Loader)}
}

// Default returns a registry handling .txt and .pdf files.
func Default() *Registry {
	r := NewRegistry()
	r.Register(".txt", NewTextLoader())
	r.Register(".pdf", NewPDFLoader())
	return r
}

func (r *Registry) Register(ext string, l Loader) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || l == nil {
		return
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	r.loaders[ext] = l
}

func (r *Registry) Load(ctx context.Context, name string, rd io.Reader) (*model.Document, error) {
	ext := strings.ToLower(path.Ext(name))
	l, ok := r.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("no loader for %q", ext)
	}
	return l.Load(ctx, name, rd)
}
