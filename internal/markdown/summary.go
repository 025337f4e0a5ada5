package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Summary is a short description of a markdown body for listings.
type Summary struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Words       int    `json:"words"`
}

// Summarize reads the first H1 and the first paragraph of body.
func Summarize(body string) Summary {
	src := []byte(body)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var s Summary
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			if s.Title == "" && node.Level == 1 {
				s.Title = inlineText(node, src)
			}
		case *ast.Paragraph:
			if s.Description == "" {
				s.Description = inlineText(node, src)
			}
		}
	}
	s.Words = countWords(doc, src)
	return s
}

// inlineText flattens the inline children of a block into plain text.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	writeInline(&buf, n, src)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func writeInline(buf *bytes.Buffer, n ast.Node, src []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		default:
			writeInline(buf, c, src)
		}
	}
}

// countWords counts words in prose, skipping code blocks.
func countWords(doc ast.Node, src []byte) int {
	words := 0
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			words += len(strings.Fields(string(t.Value(src))))
		}
		return ast.WalkContinue, nil
	})
	return words
}
