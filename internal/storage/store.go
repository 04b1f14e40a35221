package storage

import (
	"github.com/siraa-ai/siraa-backend/internal/models"
)

// Store defines the read interface over the property catalog.
type Store interface {
	GetAllProperties() ([]*models.Property, error)
	GetPropertyByName(name string) (*models.Property, error)
	GetPropertiesByCountry(country string) ([]*models.Property, error)
	ListPropertyNames() ([]string, error)
	CountProperties() (int64, error)
}
