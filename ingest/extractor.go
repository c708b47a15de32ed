package ingest

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Extractor converts raw file content to plain text.
type Extractor interface {
	Extract(content []byte) (string, error)
}

// Page is one page of extracted text. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// PageExtractor is an optional capability for formats with page structure.
// When an Extractor also implements PageExtractor, the ingestor extracts
// page-by-page and every stored chunk carries its page number, which is what
// makes page-level citations possible downstream.
type PageExtractor interface {
	ExtractPages(content []byte) ([]Page, error)
}

// ContentType identifies the format of content for extraction.
type ContentType string

const (
	TypePlainText ContentType = "text/plain"
	TypeHTML      ContentType = "text/html"
	TypeMarkdown  ContentType = "text/markdown"
	TypePDF       ContentType = "application/pdf"
)

// ContentTypeFromExtension maps a file extension (without dot) to a content type.
func ContentTypeFromExtension(ext string) ContentType {
	switch strings.ToLower(ext) {
	case "md", "markdown":
		return TypeMarkdown
	case "html", "htm":
		return TypeHTML
	case "pdf":
		return TypePDF
	default:
		return TypePlainText
	}
}

// --- Built-in extractors ---

// PlainTextExtractor returns content as-is.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extract(content []byte) (string, error) {
	return string(content), nil
}

// HTMLExtractor pulls the readable article text out of an HTML document.
// HTML has no page structure, so chunks from HTML never carry page metadata
// and citations degrade to "no page information".
type HTMLExtractor struct{}

func (HTMLExtractor) Extract(content []byte) (string, error) {
	u, _ := url.Parse("file:///document.html")
	article, err := readability.FromReader(bytes.NewReader(content), u)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	return strings.TrimSpace(article.TextContent), nil
}

// MarkdownExtractor strips markdown formatting, keeping only the text content.
type MarkdownExtractor struct{}

func (MarkdownExtractor) Extract(content []byte) (string, error) {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(content))

	var b strings.Builder
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			// Paragraph-level breaks between blocks.
			switch n.Kind() {
			case ast.KindParagraph, ast.KindHeading, ast.KindListItem, ast.KindBlockquote:
				b.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(content))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.CodeBlock:
			writeLines(&b, v.Lines(), content)
		case *ast.FencedCodeBlock:
			writeLines(&b, v.Lines(), content)
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("markdown walk: %w", err)
	}
	return collapseBlankLines(b.String()), nil
}

func writeLines(b *strings.Builder, lines *text.Segments, source []byte) {
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
}

// collapseBlankLines trims lines and squeezes runs of blank lines down to one.
func collapseBlankLines(s string) string {
	var out strings.Builder
	blank := 0
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			blank++
			continue
		}
		if out.Len() > 0 {
			out.WriteByte('\n')
			if blank > 0 {
				out.WriteByte('\n')
			}
		}
		out.WriteString(line)
		blank = 0
	}
	return strings.TrimSpace(out.String())
}
