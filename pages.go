package folio

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Page metadata resolution. These are free functions rather than methods:
// they hold no state and operate only on chunk metadata.

// DefaultFilename is used when no chunk carries a filename.
const DefaultFilename = "unknown.pdf"

// PageOf extracts the page number from a chunk. It reads Meta.Page, falling
// back to Meta.StartPage, and reports false when neither is a positive value.
// Missing metadata is never an error.
func PageOf(c Chunk) (int, bool) {
	if c.Meta.Page > 0 {
		return c.Meta.Page, true
	}
	if c.Meta.StartPage > 0 {
		return c.Meta.StartPage, true
	}
	return 0, false
}

// PagesOf collects the unique page numbers present across chunks,
// sorted ascending. Empty input yields nil.
func PagesOf(chunks []Chunk) []int {
	seen := make(map[int]bool)
	var pages []int
	for _, c := range chunks {
		if p, ok := PageOf(c); ok && !seen[p] {
			seen[p] = true
			pages = append(pages, p)
		}
	}
	sort.Ints(pages)
	return pages
}

// MergeConsecutive collapses an ascending list of unique page numbers into
// inclusive ranges. Runs of consecutive pages become one range:
//
//	[1, 2, 3, 7, 8] -> [(1,3), (7,8)]
//	[5, 10, 15]     -> [(5,5), (10,10), (15,15)]
func MergeConsecutive(pages []int) []PageRange {
	if len(pages) == 0 {
		return nil
	}

	var ranges []PageRange
	start, end := pages[0], pages[0]

	for _, p := range pages[1:] {
		if p == end+1 {
			end = p
			continue
		}
		ranges = append(ranges, PageRange{Start: start, End: end})
		start, end = p, p
	}
	ranges = append(ranges, PageRange{Start: start, End: end})

	return ranges
}

// FormatPageRange renders a range for display: "Page 25" or "Pages 45-47".
func FormatPageRange(start, end int) string {
	if start == end {
		return fmt.Sprintf("Page %d", start)
	}
	return fmt.Sprintf("Pages %d-%d", start, end)
}

// PageLink builds a file:// URI that opens a PDF viewer at the given page:
//
//	Windows: file:///C:/path/to/file.pdf#page=25
//	POSIX:   file:///path/to/file.pdf#page=25
//
// Separators are normalized to forward slashes and a drive-letter prefix
// keeps its triple-slash form, so both path styles produce valid URIs
// regardless of the platform the code runs on. Relative paths are resolved
// against the working directory. An empty path returns an error; callers
// treat that as "no link available".
func PageLink(filePath string, page int) (string, error) {
	p := strings.TrimSpace(filePath)
	if p == "" {
		return "", fmt.Errorf("page link: empty file path")
	}

	p = strings.ReplaceAll(p, `\`, "/")

	switch {
	case hasDrivePrefix(p):
		// Already absolute in Windows terms.
	case strings.HasPrefix(p, "/"):
		// Already absolute in POSIX terms.
	default:
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("page link: %w", err)
		}
		p = strings.ReplaceAll(abs, `\`, "/")
	}

	if hasDrivePrefix(p) {
		return fmt.Sprintf("file:///%s#page=%d", p, page), nil
	}
	return fmt.Sprintf("file://%s#page=%d", p, page), nil
}

// hasDrivePrefix reports whether p starts with a Windows drive letter ("C:").
func hasDrivePrefix(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// FilePathOf returns the first non-empty file path found scanning chunks in
// order. All chunks of one retrieval are assumed to come from the same
// document; when they do not, the first match silently wins.
func FilePathOf(chunks []Chunk) (string, bool) {
	for _, c := range chunks {
		if c.Meta.FilePath != "" {
			return c.Meta.FilePath, true
		}
	}
	return "", false
}

// FilenameOf returns the first non-empty filename found scanning chunks in
// order, or DefaultFilename.
func FilenameOf(chunks []Chunk) string {
	for _, c := range chunks {
		if c.Meta.Filename != "" {
			return c.Meta.Filename
		}
	}
	return DefaultFilename
}

// HasCitationMeta reports whether a chunk carries the full citation metadata
// set: page, filename, and file path.
func HasCitationMeta(c Chunk) bool {
	_, hasPage := PageOf(c)
	return hasPage && c.Meta.Filename != "" && c.Meta.FilePath != ""
}

// MetaSummary is an overview of the citation metadata in a chunk batch.
// FirstPage and LastPage are 0 when no chunk carries a page number.
type MetaSummary struct {
	TotalChunks int    `json:"total_chunks"`
	ValidMeta   int    `json:"valid_metadata_count"`
	UniquePages int    `json:"unique_pages"`
	FirstPage   int    `json:"first_page,omitempty"`
	LastPage    int    `json:"last_page,omitempty"`
	Filename    string `json:"filename"`
	FilePath    string `json:"file_path,omitempty"`
}

// SummarizeMeta computes summary statistics over the chunks' metadata.
func SummarizeMeta(chunks []Chunk) MetaSummary {
	pages := PagesOf(chunks)

	s := MetaSummary{
		TotalChunks: len(chunks),
		UniquePages: len(pages),
		Filename:    FilenameOf(chunks),
	}
	if path, ok := FilePathOf(chunks); ok {
		s.FilePath = path
	}
	if len(pages) > 0 {
		s.FirstPage = pages[0]
		s.LastPage = pages[len(pages)-1]
	}
	for _, c := range chunks {
		if HasCitationMeta(c) {
			s.ValidMeta++
		}
	}
	return s
}
