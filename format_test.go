package folio

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
)

func sampleChunks() []Chunk {
	return []Chunk{
		chunkWithPage("c1", 1, "report.pdf", "/docs/report.pdf"),
		chunkWithPage("c2", 2, "report.pdf", "/docs/report.pdf"),
		chunkWithPage("c3", 3, "report.pdf", "/docs/report.pdf"),
		chunkWithPage("c4", 7, "report.pdf", "/docs/report.pdf"),
		chunkWithPage("c5", 8, "report.pdf", "/docs/report.pdf"),
	}
}

func TestResolveCitations(t *testing.T) {
	cs := ResolveCitations(sampleChunks())

	if cs.Filename != "report.pdf" {
		t.Errorf("Filename = %q", cs.Filename)
	}
	if cs.FilePath != "/docs/report.pdf" {
		t.Errorf("FilePath = %q", cs.FilePath)
	}
	want := []PageRange{{1, 3}, {7, 8}}
	if len(cs.Ranges) != len(want) {
		t.Fatalf("Ranges = %v, want %v", cs.Ranges, want)
	}
	for i, r := range cs.Ranges {
		if r != want[i] {
			t.Errorf("Ranges[%d] = %v, want %v", i, r, want[i])
		}
	}
}

func TestFormatterRecord(t *testing.T) {
	f := NewFormatter()
	rec := f.Record(sampleChunks())

	if rec.Filename != "report.pdf" {
		t.Errorf("Filename = %q", rec.Filename)
	}
	if rec.TotalPagesReferenced != 5 {
		t.Errorf("TotalPagesReferenced = %d", rec.TotalPagesReferenced)
	}
	if !rec.HasLinks {
		t.Error("HasLinks should be true when a file path is present")
	}
	if len(rec.PageRanges) != 2 {
		t.Fatalf("PageRanges = %v", rec.PageRanges)
	}

	first := rec.PageRanges[0]
	if first.StartPage != 1 || first.EndPage != 3 {
		t.Errorf("first range = %d-%d", first.StartPage, first.EndPage)
	}
	if first.PageText != "Pages 1-3" {
		t.Errorf("PageText = %q", first.PageText)
	}
	if first.Link != "file:///docs/report.pdf#page=1" {
		t.Errorf("Link = %q", first.Link)
	}

	second := rec.PageRanges[1]
	if second.PageText != "Pages 7-8" || second.Link != "file:///docs/report.pdf#page=7" {
		t.Errorf("second range = %+v", second)
	}
}

func TestFormatterRecordNoPath(t *testing.T) {
	chunks := []Chunk{
		{ID: "c1", Meta: ChunkMeta{Page: 4}},
	}
	rec := NewFormatter().Record(chunks)

	if rec.HasLinks {
		t.Error("HasLinks should be false without a file path")
	}
	if rec.Filename != DefaultFilename {
		t.Errorf("Filename = %q", rec.Filename)
	}
	if len(rec.PageRanges) != 1 {
		t.Fatalf("PageRanges = %v", rec.PageRanges)
	}
	if rec.PageRanges[0].Link != "" {
		t.Errorf("Link = %q, want empty", rec.PageRanges[0].Link)
	}
}

func TestFormatterRecordEmpty(t *testing.T) {
	rec := NewFormatter().Record(nil)
	if rec.TotalPagesReferenced != 0 || len(rec.PageRanges) != 0 {
		t.Errorf("empty record = %+v", rec)
	}
	if rec.Filename != DefaultFilename {
		t.Errorf("Filename = %q", rec.Filename)
	}
}

func TestFormatterPlain(t *testing.T) {
	out := NewFormatter().Plain(sampleChunks())

	if !strings.Contains(out, "SOURCES: report.pdf") {
		t.Errorf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "Pages 1-3") || !strings.Contains(out, "Pages 7-8") {
		t.Errorf("missing ranges:\n%s", out)
	}
	if !strings.Contains(out, "file:///docs/report.pdf#page=1") {
		t.Errorf("missing link:\n%s", out)
	}
	if !strings.Contains(out, strings.Repeat("=", separatorWidth)) {
		t.Errorf("missing separator:\n%s", out)
	}
}

func TestFormatterPlainNoPages(t *testing.T) {
	out := NewFormatter().Plain([]Chunk{{ID: "c1", Content: "text"}})
	if !strings.Contains(out, noPageInfo) {
		t.Errorf("want sentinel, got:\n%s", out)
	}
	if strings.Contains(out, "SOURCES") {
		t.Errorf("no header expected without pages:\n%s", out)
	}
}

func TestFormatterStyled(t *testing.T) {
	f := NewFormatter()
	out := f.Styled(sampleChunks())

	if !strings.Contains(out, "report.pdf") {
		t.Errorf("missing filename:\n%s", out)
	}
	if !strings.Contains(out, "Pages 1-3") {
		t.Errorf("missing range:\n%s", out)
	}
	if !strings.Contains(out, "Tip:") {
		t.Errorf("missing tip:\n%s", out)
	}

	noTips := NewFormatter(WithTips(false)).Styled(sampleChunks())
	if strings.Contains(noTips, "Tip:") {
		t.Errorf("tip should be suppressed:\n%s", noTips)
	}
}

func TestFormatterStyledNoPages(t *testing.T) {
	out := NewFormatter().Styled(nil)
	if !strings.Contains(out, noPageInfo) {
		t.Errorf("want sentinel, got:\n%s", out)
	}
}

func TestFormatterMarkdown(t *testing.T) {
	out := NewFormatter().Markdown(sampleChunks())

	if !strings.Contains(out, "### Sources: report.pdf") {
		t.Errorf("missing heading:\n%s", out)
	}
	if !strings.Contains(out, "- [Pages 1-3](file:///docs/report.pdf#page=1)") {
		t.Errorf("missing linked item:\n%s", out)
	}

	// Without a path the items degrade to plain list entries.
	noPath := NewFormatter().Markdown([]Chunk{{Meta: ChunkMeta{Page: 4, Filename: "x.pdf"}}})
	if !strings.Contains(noPath, "- Page 4\n") || strings.Contains(noPath, "](") {
		t.Errorf("unlinked item expected:\n%s", noPath)
	}

	empty := NewFormatter().Markdown(nil)
	if !strings.Contains(empty, noPageInfo) {
		t.Errorf("want sentinel, got:\n%s", empty)
	}
}

func TestFormatterHTML(t *testing.T) {
	out := NewFormatter().HTML(sampleChunks())

	if !strings.Contains(out, "<h3") || !strings.Contains(out, "report.pdf") {
		t.Errorf("missing heading:\n%s", out)
	}
	if !strings.Contains(out, `<a href="file:///docs/report.pdf#page=1">Pages 1-3</a>`) {
		t.Errorf("missing anchor:\n%s", out)
	}

	empty := NewFormatter().HTML(nil)
	if !strings.Contains(empty, noPageInfo) {
		t.Errorf("want sentinel, got:\n%s", empty)
	}
}

// The page ranges printed by Plain must be exactly the ranges reported by
// Record. A drift between the textual and structured shapes is a bug.
func TestFormatterShapesAgree(t *testing.T) {
	f := NewFormatter()
	chunks := []Chunk{
		chunkWithPage("c1", 5, "a.pdf", "/a.pdf"),
		chunkWithPage("c2", 10, "a.pdf", "/a.pdf"),
		chunkWithPage("c3", 11, "a.pdf", "/a.pdf"),
		chunkWithPage("c4", 15, "a.pdf", "/a.pdf"),
	}

	rec := f.Record(chunks)
	plain := f.Plain(chunks)

	re := regexp.MustCompile(`Pages? (\d+)(?:-(\d+))?`)
	var printed []PageRange
	for _, m := range re.FindAllStringSubmatch(plain, -1) {
		start, _ := strconv.Atoi(m[1])
		end := start
		if m[2] != "" {
			end, _ = strconv.Atoi(m[2])
		}
		printed = append(printed, PageRange{Start: start, End: end})
	}

	if len(printed) != len(rec.PageRanges) {
		t.Fatalf("plain printed %v, record has %v", printed, rec.PageRanges)
	}
	for i, r := range rec.PageRanges {
		if printed[i].Start != r.StartPage || printed[i].End != r.EndPage {
			t.Errorf("range %d: plain %v vs record %d-%d", i, printed[i], r.StartPage, r.EndPage)
		}
	}
}
