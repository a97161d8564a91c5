package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/bluebook-agent/backend/internal/listings"
	"github.com/bluebook-agent/backend/pkg/logger"
)

type ListingsHandler struct {
	directory *listings.Directory
}

func NewListingsHandler(directory *listings.Directory) *ListingsHandler {
	return &ListingsHandler{directory: directory}
}

// HandleList returns the full listing directory without the bulky
// full-text bodies.
func (h *ListingsHandler) HandleList(c *fiber.Ctx) error {
	all, err := h.directory.All()
	if err != nil {
		logger.Error("Failed to load listings", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load listings",
		})
	}

	type summary struct {
		ListingNumber string `json:"listing_number"`
		Title         string `json:"title"`
		BodySystem    string `json:"body_system"`
		SourceURL     string `json:"source_url"`
	}

	out := make([]summary, 0, len(all))
	for _, l := range all {
		out = append(out, summary{
			ListingNumber: l.ListingNumber,
			Title:         l.Title,
			BodySystem:    l.BodySystem,
			SourceURL:     l.SourceURL,
		})
	}

	return c.JSON(fiber.Map{
		"count":    len(out),
		"listings": out,
	})
}

func (h *ListingsHandler) HandleGet(c *fiber.Ctx) error {
	number := c.Params("number")

	listing, ok, err := h.directory.Get(number)
	if err != nil {
		logger.Error("Failed to load listing", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load listing",
		})
	}
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Listing not found",
		})
	}

	return c.JSON(fiber.Map{
		"listing_number":   listing.ListingNumber,
		"title":            listing.Title,
		"body_system":      listing.BodySystem,
		"full_text":        listing.FullText,
		"criteria_summary": listing.CriteriaSummary,
		"source_url":       listing.SourceURL,
	})
}
