package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Chunker splits text into pieces suitable for embedding.
type Chunker interface {
	Chunk(text string) []string
}

// ChunkerOption configures a chunker.
type ChunkerOption func(*chunkerConfig)

type chunkerConfig struct {
	maxTokens     int
	overlapTokens int
}

func defaultChunkerConfig() chunkerConfig {
	return chunkerConfig{maxTokens: 512, overlapTokens: 50}
}

// WithMaxTokens sets the maximum tokens per chunk (approximated as tokens*4 chars).
func WithMaxTokens(n int) ChunkerOption {
	return func(c *chunkerConfig) { c.maxTokens = n }
}

// WithOverlapTokens sets the overlap carried between consecutive chunks.
func WithOverlapTokens(n int) ChunkerOption {
	return func(c *chunkerConfig) { c.overlapTokens = n }
}

// RecursiveChunker splits text along progressively finer boundaries:
// paragraphs, then sentences, then words. Sentence detection skips common
// abbreviations (Dr., e.g., etc.) and decimal numbers.
type RecursiveChunker struct {
	maxChars     int
	overlapChars int
}

// NewRecursiveChunker creates a RecursiveChunker.
func NewRecursiveChunker(opts ...ChunkerOption) *RecursiveChunker {
	cfg := defaultChunkerConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &RecursiveChunker{
		maxChars:     cfg.maxTokens * 4,
		overlapChars: cfg.overlapTokens * 4,
	}
}

var _ Chunker = (*RecursiveChunker)(nil)

// Chunk splits text into overlapping chunks no longer than the configured size.
func (rc *RecursiveChunker) Chunk(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= rc.maxChars {
		return []string{text}
	}

	var segments []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if len(p) <= rc.maxChars {
			segments = append(segments, p)
			continue
		}
		segments = append(segments, splitSentences(p, rc.maxChars)...)
	}

	return mergeWithOverlap(segments, rc.maxChars, rc.overlapChars)
}

// splitSentences breaks a paragraph at sentence boundaries, falling back to
// word boundaries for sentences that still exceed the limit.
func splitSentences(text string, maxChars int) []string {
	var segments []string
	start := 0
	for _, b := range sentenceBoundaries(text) {
		seg := strings.TrimSpace(text[start:b])
		if seg == "" {
			start = b
			continue
		}
		if len(seg) <= maxChars {
			segments = append(segments, seg)
		} else {
			segments = append(segments, splitWords(seg, maxChars)...)
		}
		start = b
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		if len(rest) <= maxChars {
			segments = append(segments, rest)
		} else {
			segments = append(segments, splitWords(rest, maxChars)...)
		}
	}
	return segments
}

// Words that end with '.' without ending a sentence.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true,
	"sr": true, "jr": true, "vs": true, "etc": true, "inc": true,
	"e.g": true, "i.e": true, "fig": true, "no": true, "vol": true,
}

// sentenceBoundaries returns byte offsets just past each sentence end.
func sentenceBoundaries(text string) []int {
	var out []int
	for i, r := range text {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if r == '.' && (isDecimalDot(text, i) || isAbbreviation(text, i)) {
			continue
		}
		next := i + utf8.RuneLen(r)
		if next >= len(text) {
			out = append(out, len(text))
			continue
		}
		if text[next] == ' ' || text[next] == '\n' {
			out = append(out, next+1)
		}
	}
	return out
}

func isDecimalDot(text string, i int) bool {
	if i == 0 || i+1 >= len(text) {
		return false
	}
	return text[i-1] >= '0' && text[i-1] <= '9' && text[i+1] >= '0' && text[i+1] <= '9'
}

func isAbbreviation(text string, dot int) bool {
	start := dot
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !unicode.IsLetter(r) && r != '.' {
			break
		}
		start -= size
	}
	return abbreviations[strings.ToLower(text[start:dot])]
}

// splitWords is the last-resort splitter for text with no usable boundaries.
func splitWords(text string, maxChars int) []string {
	words := strings.Fields(text)
	var segments []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			segments = append(segments, cur.String())
			cur.Reset()
		}
	}

	for _, w := range words {
		if len(w) > maxChars {
			flush()
			for i := 0; i < len(w); i += maxChars {
				end := min(i+maxChars, len(w))
				segments = append(segments, w[i:end])
			}
			continue
		}
		if cur.Len() > 0 && cur.Len()+1+len(w) > maxChars {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	flush()
	return segments
}

// mergeWithOverlap packs segments into chunks up to maxChars, carrying a
// suffix of each chunk into the next for context continuity.
func mergeWithOverlap(segments []string, maxChars, overlapChars int) []string {
	var chunks []string
	var cur strings.Builder

	for _, seg := range segments {
		needed := len(seg)
		if cur.Len() > 0 {
			needed += cur.Len() + 1
		}
		if needed > maxChars && cur.Len() > 0 {
			chunk := cur.String()
			chunks = append(chunks, chunk)
			cur.Reset()
			if ov := overlapSuffix(chunk, overlapChars); ov != "" && len(ov)+1+len(seg) <= maxChars {
				cur.WriteString(ov)
			}
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
		}
		cur.WriteString(seg)
	}
	if strings.TrimSpace(cur.String()) != "" {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// overlapSuffix returns the trailing n characters of text, trimmed to a word
// boundary.
func overlapSuffix(text string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(text) <= n {
		return text
	}
	suffix := text[len(text)-n:]
	if i := strings.IndexByte(suffix, ' '); i >= 0 {
		suffix = suffix[i+1:]
	}
	return strings.TrimSpace(suffix)
}
