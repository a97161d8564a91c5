package retrieval

import "context"

// Document is one passage returned by the vector store: a Blue Book
// listing or an evaluation-guideline section. Immutable once retrieved.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// Common metadata keys.
const (
	MetaListingNumber   = "listing_number"
	MetaBodySystem      = "body_system"
	MetaSectionNumber   = "section_number"
	MetaDocType         = "doc_type"
	MetaSubsectionTopic = "subsection_topic"
	MetaSourceURL       = "source_url"
)

const (
	DocTypeListing      = "listing"
	DocTypeSectionIntro = "section_intro"
)

// ScoredDocument carries the best distance and best 0-indexed rank a
// document achieved across all sub-queries of one retrieval run.
type ScoredDocument struct {
	Document
	Distance float64
	BestRank int
}

// Store is the nearest-neighbor search service. Query returns up to topK
// documents ordered by ascending cosine distance; the returned slice order
// defines each hit's rank within that single query.
type Store interface {
	Query(ctx context.Context, text string, topK int) ([]ScoredDocument, error)
	Count(ctx context.Context) (int, error)
}
