package service

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var extraBlankLines = regexp.MustCompile(`\n{3,}`)

// RenderPlainText flattens model markdown into text that reads well in a
// chat client which shows messages verbatim.
func RenderPlainText(markdown string) string {
	src := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				sb.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					sb.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				sb.Write(node.Value)
			}
		case *ast.AutoLink:
			if entering {
				sb.Write(node.URL(src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.Link:
			if !entering && len(node.Destination) > 0 {
				sb.WriteString(" (")
				sb.Write(node.Destination)
				sb.WriteString(")")
			}
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					sb.Write(seg.Value(src))
				}
				sb.WriteString(blockEnd(n))
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			if entering {
				sb.WriteString(strings.Repeat("  ", listDepth(n)-1))
				sb.WriteString(bullet(node))
			} else if !strings.HasSuffix(sb.String(), "\n") {
				sb.WriteByte('\n')
			}
		case *ast.List:
			if !entering && listDepth(n) == 0 {
				sb.WriteByte('\n')
			}
		case *ast.Paragraph, *ast.Heading, *ast.TextBlock:
			if !entering {
				sb.WriteString(blockEnd(n))
			}
		case *ast.ThematicBreak:
			if entering {
				sb.WriteString("\n")
			}
		}
		return ast.WalkContinue, nil
	})
	out := extraBlankLines.ReplaceAllString(sb.String(), "\n\n")
	return strings.TrimSpace(out)
}

// blockEnd separates top level blocks by a blank line and list content by a
// single newline.
func blockEnd(n ast.Node) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Kind() == ast.KindListItem {
			return "\n"
		}
	}
	return "\n\n"
}

// listDepth counts the lists enclosing n, including n itself when it is a list.
func listDepth(n ast.Node) int {
	depth := 0
	for p := n; p != nil; p = p.Parent() {
		if p.Kind() == ast.KindList {
			depth++
		}
	}
	if n.Kind() == ast.KindList {
		depth--
	}
	return depth
}

func bullet(item *ast.ListItem) string {
	list, ok := item.Parent().(*ast.List)
	if !ok || !list.IsOrdered() {
		return "• "
	}
	idx := list.Start
	for s := item.PreviousSibling(); s != nil; s = s.PreviousSibling() {
		idx++
	}
	return strconv.Itoa(idx) + ". "
}
