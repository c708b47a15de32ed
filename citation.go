package folio

// ResolveCitations derives the citation set for a batch of retrieved chunks:
// unique pages merged into contiguous ranges, plus the document's filename
// and path. Every output shape in the Formatter renders from this one pass,
// which is what keeps the shapes consistent with each other.
func ResolveCitations(chunks []Chunk) CitationSet {
	cs := CitationSet{
		Filename: FilenameOf(chunks),
		Ranges:   MergeConsecutive(PagesOf(chunks)),
	}
	if path, ok := FilePathOf(chunks); ok {
		cs.FilePath = path
	}
	return cs
}
