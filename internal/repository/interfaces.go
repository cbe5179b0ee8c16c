package repository

import (
	"mineralclassifier/internal/models"
)

// LoadEventRepository defines the interface for model load history.
type LoadEventRepository interface {
	// Create operations
	Insert(ev *models.LoadEvent) error

	// Read operations
	Recent(limit int) ([]models.LoadEvent, error)
	Stats() (*models.LoadEventStats, error)

	// Delete operations
	DeleteAll() error
}
