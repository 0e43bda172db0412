package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/xxxsen/docqa/internal/model"
)

var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH (install poppler-utils)")

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

type pdfLoader struct {
	runner   CommandRunner
	lookPath func(string) (string, error)
}

type PDFOption func(*pdfLoader)

func WithRunner(r CommandRunner) PDFOption {
	return func(l *pdfLoader) {
		if r != nil {
			l.runner = r
		}
	}
}

func withLookPath(fn func(string) (string, error)) PDFOption {
	return func(l *pdfLoader) {
		l.lookPath = fn
	}
}

// NewPDFLoader extracts text with pdftotext. Each form feed in its output
// starts a new page.
func NewPDFLoader(opts ...PDFOption) Loader {
	l := &pdfLoader{runner: execRunner{}, lookPath: exec.LookPath}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *pdfLoader) Load(ctx context.Context, name string, r io.Reader) (*model.Document, error) {
	bin, err := l.lookPath("pdftotext")
	if err != nil {
		return nil, ErrPDFToolNotFound
	}
	tmp, err := os.CreateTemp("", "docqa-*.pdf")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("buffer %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	out, err := l.runner.Run(ctx, bin, "-enc", "UTF-8", "-layout", tmp.Name(), "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed for %s: %w", name, err)
	}
	return &model.Document{
		Source: name,
		Type:   model.DocumentTypePDF,
		Pages:  splitPages(string(out)),
	}, nil
}

func splitPages(out string) []string {
	out = strings.ToValidUTF8(out, "\uFFFD")
	pages := strings.Split(out, "\f")
	// pdftotext terminates the last page with a form feed too
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}
