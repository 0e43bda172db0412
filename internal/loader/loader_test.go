package loader

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docqa/internal/model"
)

type mockRunner struct {
	output []byte
	err    error
	args   []string
}

func (m *mockRunner) Run(_ context.Context, _ string, args ...string) ([]byte, error) {
	m.args = args
	return m.output, m.err
}

func foundTool(string) (string, error) { return "/usr/bin/pdftotext", nil }

func TestTextLoaderStripsBOM(t *testing.T) {
	doc, err := Default().Load(context.Background(), "Notes.TXT", strings.NewReader("\ufeffสวัสดี\nworld"))
	require.NoError(t, err)
	assert.Equal(t, "Notes.TXT", doc.Source)
	assert.Equal(t, model.DocumentTypeText, doc.Type)
	assert.Equal(t, []string{"สวัสดี\nworld"}, doc.Pages)
}

func TestRegistryUnknownExtension(t *testing.T) {
	_, err := Default().Load(context.Background(), "a.docx", strings.NewReader(""))
	require.Error(t, err)
}

func TestPDFLoaderSplitsPages(t *testing.T) {
	runner := &mockRunner{output: []byte("page one\fpage two\f")}
	l := NewPDFLoader(WithRunner(runner), withLookPath(foundTool))

	doc, err := l.Load(context.Background(), "menu.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, model.DocumentTypePDF, doc.Type)
	assert.Equal(t, []string{"page one", "page two"}, doc.Pages)
	require.Len(t, runner.args, 5)
	assert.Equal(t, "-", runner.args[4])
}

func TestPDFLoaderRunnerError(t *testing.T) {
	l := NewPDFLoader(WithRunner(&mockRunner{err: errors.New("pdftotext crashed")}), withLookPath(foundTool))
	_, err := l.Load(context.Background(), "broken.pdf", strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
}

func TestPDFLoaderMissingTool(t *testing.T) {
	l := NewPDFLoader(withLookPath(func(string) (string, error) { return "", errors.New("not found") }))
	_, err := l.Load(context.Background(), "a.pdf", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrPDFToolNotFound)
}
