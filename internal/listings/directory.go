package listings

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/bluebook-agent/backend/internal/storage/models"
	"github.com/bluebook-agent/backend/internal/storage/sqlite"
	"github.com/bluebook-agent/backend/pkg/logger"
)

// Directory is a read-only, lazily loaded view of all Blue Book
// listings, keyed by listing number. The listing set changes only on
// index rebuilds, so one load per process is enough.
type Directory struct {
	store *sqlite.Client

	once    sync.Once
	loadErr error
	byNum   map[string]models.Listing
	ordered []models.Listing
}

func NewDirectory(store *sqlite.Client) *Directory {
	return &Directory{store: store}
}

func (d *Directory) load() {
	listings, err := d.store.ListListings()
	if err != nil {
		d.loadErr = fmt.Errorf("failed to load listing directory: %w", err)
		return
	}

	d.byNum = make(map[string]models.Listing, len(listings))
	for _, l := range listings {
		d.byNum[l.ListingNumber] = l
	}
	d.ordered = listings

	logger.Info("Listing directory loaded", zap.Int("count", len(listings)))
}

// Get returns the listing for a number like "2.02", or false if the
// number is unknown.
func (d *Directory) Get(listingNumber string) (models.Listing, bool, error) {
	d.once.Do(d.load)
	if d.loadErr != nil {
		return models.Listing{}, false, d.loadErr
	}

	l, ok := d.byNum[listingNumber]
	return l, ok, nil
}

// All returns every listing ordered by listing number.
func (d *Directory) All() ([]models.Listing, error) {
	d.once.Do(d.load)
	if d.loadErr != nil {
		return nil, d.loadErr
	}
	return d.ordered, nil
}
