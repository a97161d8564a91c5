package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bluebook-agent/backend/internal/metrics"
	"github.com/bluebook-agent/backend/internal/retrieval"
	"github.com/bluebook-agent/backend/internal/storage/models"
	"github.com/bluebook-agent/backend/internal/storage/sqlite"
	"github.com/bluebook-agent/backend/internal/vector/milvus"
	"github.com/bluebook-agent/backend/pkg/logger"
)

// ListingRecord mirrors one entry of the scraped listings JSON file.
type ListingRecord struct {
	ListingNumber   string `json:"listing_number"`
	Title           string `json:"title"`
	BodySystem      string `json:"body_system"`
	SectionNumber   string `json:"section_number"`
	FullText        string `json:"full_text"`
	CriteriaSummary string `json:"criteria_summary"`
	SourceURL       string `json:"source_url"`
	Subsection      string `json:"subsection,omitempty"`
	SubsectionTopic string `json:"subsection_topic,omitempty"`
}

// SectionRecord mirrors one entry of the scraped sections JSON file.
type SectionRecord struct {
	SectionNumber   string `json:"section_number"`
	Title           string `json:"title"`
	BodySystem      string `json:"body_system"`
	IntroText       string `json:"intro_text"`
	SubsectionTopic string `json:"subsection_topic,omitempty"`
	SourceURL       string `json:"source_url,omitempty"`
}

// Processor rebuilds the vector index and reference tables from the
// scraped Blue Book JSON files.
type Processor struct {
	vectorStore *milvus.Store
	refStore    *sqlite.Client
}

func NewProcessor(vectorStore *milvus.Store, refStore *sqlite.Client) *Processor {
	return &Processor{
		vectorStore: vectorStore,
		refStore:    refStore,
	}
}

// Rebuild drops and recreates the collection, then indexes every
// listing and section intro. Re-running it is safe.
func (p *Processor) Rebuild(ctx context.Context, listingsPath, sectionsPath string) error {
	listings, err := loadListings(listingsPath)
	if err != nil {
		return err
	}
	sections, err := loadSections(sectionsPath)
	if err != nil {
		return err
	}

	logger.Info("Blue Book data loaded",
		zap.Int("listings", len(listings)),
		zap.Int("sections", len(sections)),
	)

	if err := p.refStore.InitSchema(); err != nil {
		return err
	}

	if err := p.vectorStore.DropCollection(ctx); err != nil {
		return err
	}
	if err := p.vectorStore.EnsureCollection(ctx); err != nil {
		return err
	}

	docs := make([]milvus.IndexDocument, 0, len(listings)+len(sections))
	now := time.Now()

	for _, l := range listings {
		if err := p.refStore.UpsertListing(&models.Listing{
			ID:              uuid.New().String(),
			ListingNumber:   l.ListingNumber,
			Title:           l.Title,
			BodySystem:      l.BodySystem,
			FullText:        l.FullText,
			CriteriaSummary: l.CriteriaSummary,
			SourceURL:       l.SourceURL,
			CreatedAt:       now,
			UpdatedAt:       now,
		}); err != nil {
			return err
		}

		docs = append(docs, milvus.IndexDocument{
			ID:              fmt.Sprintf("listing_%s", l.ListingNumber),
			Text:            composeListingText(l),
			ListingNumber:   l.ListingNumber,
			BodySystem:      l.BodySystem,
			SectionNumber:   l.SectionNumber,
			DocType:         retrieval.DocTypeListing,
			SubsectionTopic: l.SubsectionTopic,
			SourceURL:       l.SourceURL,
		})
	}

	for _, s := range sections {
		if strings.TrimSpace(s.IntroText) == "" {
			continue
		}

		if err := p.refStore.UpsertSectionIntro(&models.SectionIntro{
			ID:              fmt.Sprintf("section_%s", s.SectionNumber),
			SectionNumber:   s.SectionNumber,
			Title:           s.Title,
			BodySystem:      s.BodySystem,
			SubsectionTopic: s.SubsectionTopic,
			FullText:        s.IntroText,
			SourceURL:       s.SourceURL,
			CreatedAt:       now,
			UpdatedAt:       now,
		}); err != nil {
			return err
		}

		docs = append(docs, milvus.IndexDocument{
			ID:              fmt.Sprintf("section_%s", s.SectionNumber),
			Text:            s.IntroText,
			BodySystem:      s.BodySystem,
			SectionNumber:   s.SectionNumber,
			DocType:         retrieval.DocTypeSectionIntro,
			SubsectionTopic: s.SubsectionTopic,
			SourceURL:       s.SourceURL,
		})
	}

	// Batched so one oversized embedding request cannot fail the build.
	batchSize := 50
	for i := 0; i < len(docs); i += batchSize {
		end := i + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		if err := p.vectorStore.Insert(ctx, docs[i:end]); err != nil {
			return err
		}
		logger.Info("Indexed batch", zap.Int("done", end), zap.Int("total", len(docs)))
	}

	metrics.DocumentsIndexed.Add(float64(len(docs)))

	count, err := p.vectorStore.Count(ctx)
	if err != nil {
		return err
	}

	logger.Info("Index rebuilt", zap.Int("documents", count))
	return nil
}

// composeListingText joins title, full text and criteria summary so
// the embedding sees the whole listing, not just its body.
func composeListingText(l ListingRecord) string {
	return fmt.Sprintf("%s\n\n%s\n\nSummary: %s", l.Title, l.FullText, l.CriteriaSummary)
}

func loadListings(path string) ([]ListingRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read listings file %s: %w", path, err)
	}

	var listings []ListingRecord
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("failed to parse listings file: %w", err)
	}
	return listings, nil
}

func loadSections(path string) ([]SectionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sections file %s: %w", path, err)
	}

	var sections []SectionRecord
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("failed to parse sections file: %w", err)
	}
	return sections, nil
}
