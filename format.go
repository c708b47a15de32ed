package folio

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/yuin/goldmark"
)

// SourcePageRange is one page range in a SourceRecord. Link and FilePath are
// empty when no usable file path was available.
type SourcePageRange struct {
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
	PageText  string `json:"page_text"`
	Link      string `json:"link,omitempty"`
	FilePath  string `json:"file_path,omitempty"`
}

// SourceRecord is the canonical machine-readable citation shape.
type SourceRecord struct {
	Filename             string            `json:"filename"`
	TotalPagesReferenced int               `json:"total_pages_referenced"`
	PageRanges           []SourcePageRange `json:"page_ranges"`
	HasLinks             bool              `json:"has_links"`
}

const separatorWidth = 80

const noPageInfo = "No page information available"

// Terminal styles for the Styled shape.
var (
	sepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	pageStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	linkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Underline(true)
	tipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// FormatterOption configures a Formatter.
type FormatterOption func(*Formatter)

// WithTips controls the usage tip line appended to Styled output.
// Default is on.
func WithTips(show bool) FormatterOption {
	return func(f *Formatter) { f.showTips = show }
}

// Formatter renders retrieved chunks as source citations in several shapes:
// plain text, styled terminal output, a structured record, markdown, and
// HTML. All shapes render from the single citation pass in ResolveCitations;
// the Formatter itself holds only presentation options, so one instance can
// be shared across queries.
type Formatter struct {
	showTips bool
	md       goldmark.Markdown
}

// NewFormatter creates a Formatter.
func NewFormatter(opts ...FormatterOption) *Formatter {
	f := &Formatter{
		showTips: true,
		md:       goldmark.New(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Record builds the canonical machine-readable citation record.
// Unlike the textual shapes, it is produced even when no pages were found.
func (f *Formatter) Record(chunks []Chunk) SourceRecord {
	cs := ResolveCitations(chunks)

	rec := SourceRecord{
		Filename:             cs.Filename,
		TotalPagesReferenced: len(PagesOf(chunks)),
		HasLinks:             cs.FilePath != "",
	}

	for _, r := range cs.Ranges {
		spr := SourcePageRange{
			StartPage: r.Start,
			EndPage:   r.End,
			PageText:  FormatPageRange(r.Start, r.End),
		}
		if cs.FilePath != "" {
			if link, err := PageLink(cs.FilePath, r.Start); err == nil {
				spr.Link = link
				spr.FilePath = cs.FilePath
			}
		}
		rec.PageRanges = append(rec.PageRanges, spr)
	}

	return rec
}

// Plain renders sources as unstyled text suitable for logs.
func (f *Formatter) Plain(chunks []Chunk) string {
	cs := ResolveCitations(chunks)
	if len(cs.Ranges) == 0 {
		return "\n📄 " + noPageInfo
	}

	sep := strings.Repeat("=", separatorWidth)

	var b strings.Builder
	b.WriteString("\n" + sep + "\n")
	fmt.Fprintf(&b, "📄 SOURCES: %s\n", cs.Filename)
	b.WriteString(sep + "\n\n")

	for _, r := range cs.Ranges {
		pageText := FormatPageRange(r.Start, r.End)
		if link, ok := f.rangeLink(cs, r); ok {
			fmt.Fprintf(&b, "  🔗 %s\n     %s\n\n", pageText, link)
		} else {
			fmt.Fprintf(&b, "  📄 %s\n\n", pageText)
		}
	}

	b.WriteString(sep + "\n")
	return b.String()
}

// Styled renders sources for terminal display with colors and an optional
// usage tip. The structure matches Plain exactly; only styling differs.
func (f *Formatter) Styled(chunks []Chunk) string {
	cs := ResolveCitations(chunks)
	if len(cs.Ranges) == 0 {
		return "\n" + pageStyle.Render("📄 "+noPageInfo)
	}

	sep := sepStyle.Render(strings.Repeat("=", separatorWidth))

	var b strings.Builder
	b.WriteString("\n" + sep + "\n")
	b.WriteString(headerStyle.Render("📄 SOURCES: "+cs.Filename) + "\n")
	b.WriteString(sep + "\n\n")

	for _, r := range cs.Ranges {
		pageText := FormatPageRange(r.Start, r.End)
		if link, ok := f.rangeLink(cs, r); ok {
			b.WriteString("  " + pageStyle.Render("🔗 "+pageText) + "\n")
			b.WriteString("     " + linkStyle.Render(link) + "\n\n")
		} else {
			b.WriteString("  " + pageStyle.Render("📄 "+pageText) + "\n\n")
		}
	}

	b.WriteString(sep + "\n")

	if f.showTips {
		b.WriteString(tipStyle.Render("💡 Tip: Ctrl+Click the links to open the PDF at the exact page") + "\n")
	}
	return b.String()
}

// Markdown renders sources as a markdown fragment: a heading plus one list
// item per range, linked when a file path is available.
func (f *Formatter) Markdown(chunks []Chunk) string {
	cs := ResolveCitations(chunks)
	if len(cs.Ranges) == 0 {
		return "_" + noPageInfo + "._\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "### Sources: %s\n\n", cs.Filename)

	for _, r := range cs.Ranges {
		pageText := FormatPageRange(r.Start, r.End)
		if link, ok := f.rangeLink(cs, r); ok {
			fmt.Fprintf(&b, "- [%s](%s)\n", pageText, link)
		} else {
			fmt.Fprintf(&b, "- %s\n", pageText)
		}
	}

	return b.String()
}

// HTML renders sources as a minimal HTML fragment: the Markdown shape passed
// through goldmark. Items become hyperlinks when a file path is available.
func (f *Formatter) HTML(chunks []Chunk) string {
	var out bytes.Buffer
	if err := f.md.Convert([]byte(f.Markdown(chunks)), &out); err != nil {
		// Conversion of generated markdown cannot realistically fail;
		// fall back to the plain shape rather than dropping sources.
		return "<pre>" + f.Plain(chunks) + "</pre>"
	}
	return out.String()
}

// rangeLink builds the link for one range, anchored at the range start.
// A missing or malformed path means "no link available", never an error.
func (f *Formatter) rangeLink(cs CitationSet, r PageRange) (string, bool) {
	if cs.FilePath == "" {
		return "", false
	}
	link, err := PageLink(cs.FilePath, r.Start)
	if err != nil {
		return "", false
	}
	return link, true
}
