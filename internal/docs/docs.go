// Package docs renders and summarizes the markdown documents scaffolded for a feature.
package docs

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MaxExcerpt bounds Summary.Excerpt, in runes.
const MaxExcerpt = 160

// Summary is the headline content of a document.
type Summary struct {
	Title   string `json:"title,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`
}

// Empty reports whether the document had neither a heading nor a paragraph.
func (s Summary) Empty() bool {
	return s.Title == "" && s.Excerpt == ""
}

// TitleFor turns a template file name into a document title:
// "tech-spec.md" becomes "Tech Spec".
func TitleFor(template string) string {
	base := strings.TrimSuffix(filepath.Base(template), filepath.Ext(template))
	words := strings.FieldsFunc(base, func(r rune) bool {
		return r == '-' || r == '_' || r == ' ' || r == '.'
	})
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	if len(words) == 0 {
		return "Document"
	}
	return strings.Join(words, " ")
}

// Seed returns the initial contents of a feature document.
func Seed(template, slug, description string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s: %s\n\n", TitleFor(template), slug)
	if d := strings.TrimSpace(description); d != "" {
		b.WriteString(d)
		b.WriteString("\n")
	}
	return []byte(b.String())
}

// Summarize extracts the first heading and the first paragraph of src.
func Summarize(src []byte) Summary {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var s Summary
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			if s.Title == "" {
				s.Title = inlineText(node, src)
			}
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			if s.Excerpt == "" {
				s.Excerpt = truncate(inlineText(node, src), MaxExcerpt)
			}
			return ast.WalkSkipChildren, nil
		}
		if s.Title != "" && s.Excerpt != "" {
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return s
}

// RenderHTML converts markdown to HTML.
func RenderHTML(src []byte) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert(src, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// inlineText concatenates the text leaves under n, joining soft line breaks with spaces.
func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max-3])) + "..."
}
