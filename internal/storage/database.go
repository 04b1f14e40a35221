package storage

import (
	"strings"

	"gorm.io/gorm"

	"github.com/siraa-ai/siraa-backend/internal/models"
)

// DatabaseStore reads the property catalog from PostgreSQL via GORM.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a database-backed catalog.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func (d *DatabaseStore) GetAllProperties() ([]*models.Property, error) {
	var properties []*models.Property
	if err := d.db.Order("id").Find(&properties).Error; err != nil {
		return nil, err
	}
	return properties, nil
}

func (d *DatabaseStore) GetPropertyByName(name string) (*models.Property, error) {
	var property models.Property
	err := d.db.Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).First(&property).Error
	if err != nil {
		return nil, err
	}
	return &property, nil
}

func (d *DatabaseStore) GetPropertiesByCountry(country string) ([]*models.Property, error) {
	var properties []*models.Property
	err := d.db.Where("LOWER(country) = ?", strings.ToLower(country)).Order("id").Find(&properties).Error
	if err != nil {
		return nil, err
	}
	return properties, nil
}

func (d *DatabaseStore) ListPropertyNames() ([]string, error) {
	var names []string
	if err := d.db.Model(&models.Property{}).Order("id").Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func (d *DatabaseStore) CountProperties() (int64, error) {
	var count int64
	if err := d.db.Model(&models.Property{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
