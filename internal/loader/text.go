package loader

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xxxsen/docqa/internal/model"
)

const utf8BOM = "\ufeff"

type textLoader struct{}

func NewTextLoader() Loader {
	return textLoader{}
}

func (textLoader) Load(ctx context.Context, name string, r io.Reader) (*model.Document, error) {
	_ = ctx
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	content := strings.TrimPrefix(string(data), utf8BOM)
	content = strings.ToValidUTF8(content, "\uFFFD")
	return &model.Document{
		Source: name,
		Type:   model.DocumentTypeText,
		Pages:  []string{content},
	}, nil
}
