package domain

// Citation points an answer back at one retrieved chunk's origin. Citations
// are produced one per retrieved chunk, in retrieval order, without
// deduplication: traceability is prioritised over terseness.
type Citation struct {
	// Origin is the kind of content cited.
	Origin OriginType

	// Locator is the file path, or the issue/PR number as a string.
	Locator string

	// Number is the issue or pull request number. Zero for files.
	Number int

	// URL is the external browser URL. Set for issues and pull requests;
	// files have no URL.
	URL string
}

// Answer is the result of one query: generated text plus the citations for
// every chunk that was fed to the model.
type Answer struct {
	// Text is the generated answer.
	Text string

	// Citations mirror the retrieved chunks 1:1, in the same order.
	Citations []Citation
}

// CitationFor derives the citation for a chunk from its origin metadata.
func CitationFor(c Chunk) Citation {
	return Citation{
		Origin:  c.Origin,
		Locator: c.Locator,
		Number:  c.Number,
		URL:     c.URL,
	}
}
