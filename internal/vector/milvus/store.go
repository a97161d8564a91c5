package milvus

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/bluebook-agent/backend/internal/retrieval"
	"github.com/bluebook-agent/backend/pkg/logger"
	"github.com/bluebook-agent/backend/pkg/utils"
)

// Embedder turns query and document text into vectors.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingCache is an optional cache in front of the embedder; query
// texts repeat often (the canonical condition sub-queries especially).
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error
}

// IndexDocument is one passage to be written into the collection.
type IndexDocument struct {
	ID              string
	Text            string
	ListingNumber   string
	BodySystem      string
	SectionNumber   string
	DocType         string
	SubsectionTopic string
	SourceURL       string
}

// Store implements retrieval.Store on top of a Milvus collection with
// cosine metric.
type Store struct {
	client         client.Client
	collectionName string
	vectorDim      int
	embedder       Embedder
	cache          EmbeddingCache
}

func NewStore(ctx context.Context, endpoint, apiKey, collectionName string, vectorDim int, embedder Embedder, cache EmbeddingCache) (*Store, error) {
	cfg := client.Config{Address: endpoint}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}

	c, err := client.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Store{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
		embedder:       embedder,
		cache:          cache,
	}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// EnsureCollection creates, indexes and loads the collection if absent.
func (s *Store) EnsureCollection(ctx context.Context) error {
	has, err := s.client.HasCollection(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if has {
		logger.Info("Collection already exists", zap.String("collection", s.collectionName))
		return nil
	}

	schema := &entity.Schema{
		CollectionName: s.collectionName,
		Description:    "Blue Book listing and section-intro embeddings",
		Fields: []*entity.Field{
			{
				Name:       "doc_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       "embedding",
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": fmt.Sprintf("%d", s.vectorDim)},
			},
			{
				Name:       "text",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "65535"},
			},
			{
				Name:       "listing_number",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "16"},
			},
			{
				Name:       "body_system",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       "section_number",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "16"},
			},
			{
				Name:       "doc_type",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "32"},
			},
			{
				Name:       "subsection_topic",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "32"},
			},
			{
				Name:       "source_url",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "512"},
			},
		},
	}

	if err := s.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.COSINE, 1024)
	if err != nil {
		return fmt.Errorf("failed to build index definition: %w", err)
	}
	if err := s.client.CreateIndex(ctx, s.collectionName, "embedding", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := s.client.LoadCollection(ctx, s.collectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", s.collectionName))

	return nil
}

// DropCollection removes the collection for a clean index rebuild.
func (s *Store) DropCollection(ctx context.Context) error {
	has, err := s.client.HasCollection(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !has {
		return nil
	}
	if err := s.client.DropCollection(ctx, s.collectionName); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	logger.Info("Collection dropped", zap.String("collection", s.collectionName))
	return nil
}

// Insert embeds and writes documents into the collection.
func (s *Store) Insert(ctx context.Context, docs []IndexDocument) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}

	embeddings, err := s.embedder.GenerateBatchEmbeddings(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed documents: %w", err)
	}
	if len(embeddings) != len(docs) {
		return fmt.Errorf("embedding count mismatch: got %d, expected %d", len(embeddings), len(docs))
	}

	ids := make([]string, len(docs))
	listingNumbers := make([]string, len(docs))
	bodySystems := make([]string, len(docs))
	sectionNumbers := make([]string, len(docs))
	docTypes := make([]string, len(docs))
	subsectionTopics := make([]string, len(docs))
	sourceURLs := make([]string, len(docs))

	for i, doc := range docs {
		ids[i] = doc.ID
		listingNumbers[i] = doc.ListingNumber
		bodySystems[i] = doc.BodySystem
		sectionNumbers[i] = doc.SectionNumber
		docTypes[i] = doc.DocType
		subsectionTopics[i] = doc.SubsectionTopic
		sourceURLs[i] = doc.SourceURL
	}

	_, err = s.client.Insert(
		ctx,
		s.collectionName,
		"",
		entity.NewColumnVarChar("doc_id", ids),
		entity.NewColumnFloatVector("embedding", s.vectorDim, embeddings),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnVarChar("listing_number", listingNumbers),
		entity.NewColumnVarChar("body_system", bodySystems),
		entity.NewColumnVarChar("section_number", sectionNumbers),
		entity.NewColumnVarChar("doc_type", docTypes),
		entity.NewColumnVarChar("subsection_topic", subsectionTopics),
		entity.NewColumnVarChar("source_url", sourceURLs),
	)
	if err != nil {
		return fmt.Errorf("failed to insert documents: %w", err)
	}

	if err := s.client.Flush(ctx, s.collectionName, false); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	logger.Info("Documents inserted into vector store", zap.Int("count", len(docs)))

	return nil
}

// Query embeds the text and returns the topK nearest documents ordered
// by ascending cosine distance.
func (s *Store) Query(ctx context.Context, text string, topK int) ([]retrieval.ScoredDocument, error) {
	embedding, err := s.embedQuery(ctx, text)
	if err != nil {
		return nil, err
	}

	sp, err := entity.NewIndexIvfFlatSearchParam(16)
	if err != nil {
		return nil, fmt.Errorf("failed to build search params: %w", err)
	}

	searchResults, err := s.client.Search(
		ctx,
		s.collectionName,
		[]string{},
		"",
		[]string{"doc_id", "text", "listing_number", "body_system", "section_number", "doc_type", "subsection_topic", "source_url"},
		[]entity.Vector{entity.FloatVector(embedding)},
		"embedding",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var results []retrieval.ScoredDocument
	for _, sr := range searchResults {
		for i := 0; i < sr.ResultCount; i++ {
			doc := retrieval.Document{Metadata: make(map[string]string, 6)}

			if v, err := sr.Fields.GetColumn("doc_id").GetAsString(i); err == nil {
				doc.ID = v
			}
			if v, err := sr.Fields.GetColumn("text").GetAsString(i); err == nil {
				doc.Text = v
			}
			for _, key := range []string{
				retrieval.MetaListingNumber,
				retrieval.MetaBodySystem,
				retrieval.MetaSectionNumber,
				retrieval.MetaDocType,
				retrieval.MetaSubsectionTopic,
				retrieval.MetaSourceURL,
			} {
				if v, err := sr.Fields.GetColumn(key).GetAsString(i); err == nil && v != "" {
					doc.Metadata[key] = v
				}
			}

			// Milvus COSINE scores are similarities (higher = closer);
			// convert to cosine distance so lower is always better.
			results = append(results, retrieval.ScoredDocument{
				Document: doc,
				Distance: 1 - float64(sr.Scores[i]),
				BestRank: i,
			})
		}
	}

	return results, nil
}

// Count returns the number of indexed documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	stats, err := s.client.GetCollectionStatistics(ctx, s.collectionName)
	if err != nil {
		return 0, fmt.Errorf("failed to get collection statistics: %w", err)
	}

	var count int
	if _, err := fmt.Sscanf(stats["row_count"], "%d", &count); err != nil {
		return 0, fmt.Errorf("failed to parse row count: %w", err)
	}
	return count, nil
}

func (s *Store) embedQuery(ctx context.Context, text string) ([]float32, error) {
	if s.cache == nil {
		return s.embedder.GenerateEmbedding(ctx, text)
	}

	textHash := utils.HashString(text)
	if cached, ok, err := s.cache.GetEmbedding(ctx, textHash); err == nil && ok {
		return cached, nil
	}

	embedding, err := s.embedder.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetEmbedding(ctx, textHash, embedding, 24*time.Hour); err != nil {
		logger.Warn("Failed to cache embedding", zap.Error(err))
	}

	return embedding, nil
}
