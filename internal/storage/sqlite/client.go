package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/bluebook-agent/backend/internal/storage/models"
	"github.com/bluebook-agent/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS listings (
		id TEXT PRIMARY KEY,
		listing_number TEXT UNIQUE NOT NULL,
		title TEXT NOT NULL,
		body_system TEXT NOT NULL,
		full_text TEXT NOT NULL,
		criteria_summary TEXT,
		source_url TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_listings_number ON listings(listing_number);
	CREATE INDEX IF NOT EXISTS idx_listings_system ON listings(body_system);

	CREATE TABLE IF NOT EXISTS section_intros (
		id TEXT PRIMARY KEY,
		section_number TEXT NOT NULL,
		title TEXT NOT NULL,
		body_system TEXT NOT NULL,
		subsection_topic TEXT,
		full_text TEXT NOT NULL,
		source_url TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sections_number ON section_intros(section_number);
	CREATE INDEX IF NOT EXISTS idx_sections_topic ON section_intros(subsection_topic);

	CREATE TABLE IF NOT EXISTS analysis_history (
		id TEXT PRIMARY KEY,
		medical_findings TEXT NOT NULL,
		analysis TEXT,
		status TEXT NOT NULL,
		warning_count INTEGER DEFAULT 0,
		document_count INTEGER DEFAULT 0,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_analysis_status ON analysis_history(status);
	CREATE INDEX IF NOT EXISTS idx_analysis_created ON analysis_history(created_at);

	CREATE TABLE IF NOT EXISTS analysis_sources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		analysis_id TEXT NOT NULL,
		listing_number TEXT NOT NULL,
		source_url TEXT,
		FOREIGN KEY (analysis_id) REFERENCES analysis_history(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_sources_analysis ON analysis_sources(analysis_id);

	CREATE TABLE IF NOT EXISTS analysis_warnings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		analysis_id TEXT NOT NULL,
		warning TEXT NOT NULL,
		FOREIGN KEY (analysis_id) REFERENCES analysis_history(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_warnings_analysis ON analysis_warnings(analysis_id);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) UpsertListing(listing *models.Listing) error {
	query := `
		INSERT INTO listings (id, listing_number, title, body_system, full_text, criteria_summary, source_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(listing_number) DO UPDATE SET
			title = excluded.title,
			body_system = excluded.body_system,
			full_text = excluded.full_text,
			criteria_summary = excluded.criteria_summary,
			source_url = excluded.source_url,
			updated_at = excluded.updated_at
	`

	_, err := c.db.Exec(
		query,
		listing.ID,
		listing.ListingNumber,
		listing.Title,
		listing.BodySystem,
		listing.FullText,
		listing.CriteriaSummary,
		listing.SourceURL,
		listing.CreatedAt.Unix(),
		listing.UpdatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert listing: %w", err)
	}

	logger.Debug("Listing upserted", zap.String("listing_number", listing.ListingNumber))
	return nil
}

func (c *Client) GetListing(listingNumber string) (*models.Listing, error) {
	query := `SELECT id, listing_number, title, body_system, full_text, criteria_summary, source_url, created_at, updated_at FROM listings WHERE listing_number = ?`

	var listing models.Listing
	var createdAt, updatedAt int64

	err := c.db.QueryRow(query, listingNumber).Scan(
		&listing.ID,
		&listing.ListingNumber,
		&listing.Title,
		&listing.BodySystem,
		&listing.FullText,
		&listing.CriteriaSummary,
		&listing.SourceURL,
		&createdAt,
		&updatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}

	listing.CreatedAt = time.Unix(createdAt, 0)
	listing.UpdatedAt = time.Unix(updatedAt, 0)

	return &listing, nil
}

func (c *Client) ListListings() ([]models.Listing, error) {
	query := `SELECT id, listing_number, title, body_system, full_text, criteria_summary, source_url FROM listings ORDER BY listing_number`

	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		var l models.Listing
		err := rows.Scan(&l.ID, &l.ListingNumber, &l.Title, &l.BodySystem, &l.FullText, &l.CriteriaSummary, &l.SourceURL)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		listings = append(listings, l)
	}

	return listings, rows.Err()
}

func (c *Client) UpsertSectionIntro(intro *models.SectionIntro) error {
	query := `
		INSERT INTO section_intros (id, section_number, title, body_system, subsection_topic, full_text, source_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			full_text = excluded.full_text,
			source_url = excluded.source_url,
			updated_at = excluded.updated_at
	`

	_, err := c.db.Exec(
		query,
		intro.ID,
		intro.SectionNumber,
		intro.Title,
		intro.BodySystem,
		intro.SubsectionTopic,
		intro.FullText,
		intro.SourceURL,
		intro.CreatedAt.Unix(),
		intro.UpdatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert section intro: %w", err)
	}

	return nil
}

func (c *Client) InsertAnalysisRecord(record *models.AnalysisRecord) error {
	query := `
		INSERT INTO analysis_history (id, medical_findings, analysis, status, warning_count, document_count, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		record.ID,
		record.MedicalFindings,
		record.Analysis,
		record.Status,
		record.WarningCount,
		record.DocumentCount,
		record.LatencyMS,
		record.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert analysis record: %w", err)
	}

	logger.Info("Analysis recorded",
		zap.String("analysis_id", record.ID),
		zap.String("status", record.Status),
		zap.Int("warnings", record.WarningCount),
	)

	return nil
}

func (c *Client) InsertAnalysisSource(source *models.AnalysisSource) error {
	query := `INSERT INTO analysis_sources (analysis_id, listing_number, source_url) VALUES (?, ?, ?)`

	_, err := c.db.Exec(query, source.AnalysisID, source.ListingNumber, source.SourceURL)
	if err != nil {
		return fmt.Errorf("failed to insert analysis source: %w", err)
	}

	return nil
}

func (c *Client) InsertAnalysisWarning(warning *models.AnalysisWarning) error {
	query := `INSERT INTO analysis_warnings (analysis_id, warning) VALUES (?, ?)`

	_, err := c.db.Exec(query, warning.AnalysisID, warning.Warning)
	if err != nil {
		return fmt.Errorf("failed to insert analysis warning: %w", err)
	}

	return nil
}

func (c *Client) GetAnalysisHistory(limit int) ([]models.AnalysisRecord, error) {
	query := `
		SELECT id, medical_findings, analysis, status, warning_count, document_count, latency_ms, created_at
		FROM analysis_history
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis history: %w", err)
	}
	defer rows.Close()

	var records []models.AnalysisRecord
	for rows.Next() {
		var r models.AnalysisRecord
		var createdAt int64

		err := rows.Scan(&r.ID, &r.MedicalFindings, &r.Analysis, &r.Status, &r.WarningCount, &r.DocumentCount, &r.LatencyMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, rows.Err()
}
