package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "just text", want: "just text"},
		{name: "emphasis", in: "**Hello** _world_", want: "Hello world"},
		{name: "heading", in: "# Title\n\nBody text.", want: "Title\n\nBody text."},
		{name: "bullets", in: "- one\n- two", want: "• one\n• two"},
		{name: "ordered", in: "1. first\n2. second", want: "1. first\n2. second"},
		{name: "ordered start", in: "3. third\n4. fourth", want: "3. third\n4. fourth"},
		{name: "link", in: "See [our site](https://example.com).", want: "See our site (https://example.com)."},
		{name: "inline code", in: "Run `make`.", want: "Run make."},
		{name: "fenced code", in: "```\nline 1\nline 2\n```", want: "line 1\nline 2"},
		{name: "soft break", in: "first line\nsecond line", want: "first line\nsecond line"},
		{name: "thai", in: "**สินค้า** มีสามประเภท", want: "สินค้า มีสามประเภท"},
		{name: "collapses blank lines", in: "a\n\n\n\n\nb", want: "a\n\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, RenderPlainText(tt.in))
		})
	}
}
