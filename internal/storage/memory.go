package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/siraa-ai/siraa-backend/internal/models"
)

// MemoryStore holds the property catalog in memory. Used for tests and for
// running without a database (USE_MEMORY_STORE=true).
type MemoryStore struct {
	properties map[string]*models.Property // keyed by lowercased name

	mu      sync.RWMutex
	counter uint
}

// NewMemoryStore creates a new in-memory catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		properties: make(map[string]*models.Property),
	}
}

// Seed inserts properties into the catalog, assigning IDs where missing.
func (m *MemoryStore) Seed(properties ...*models.Property) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range properties {
		if p.ID == 0 {
			m.counter++
			p.ID = m.counter
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now()
		}
		p.UpdatedAt = time.Now()
		m.properties[strings.ToLower(p.Name)] = p
	}
}

func (m *MemoryStore) GetAllProperties() ([]*models.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	properties := make([]*models.Property, 0, len(m.properties))
	for _, p := range m.properties {
		properties = append(properties, p)
	}
	sort.Slice(properties, func(i, j int) bool { return properties[i].ID < properties[j].ID })
	return properties, nil
}

func (m *MemoryStore) GetPropertyByName(name string) (*models.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, exists := m.properties[strings.ToLower(strings.TrimSpace(name))]
	if !exists {
		return nil, fmt.Errorf("property not found")
	}
	return p, nil
}

func (m *MemoryStore) GetPropertiesByCountry(country string) ([]*models.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var properties []*models.Property
	for _, p := range m.properties {
		if strings.EqualFold(p.Country, country) {
			properties = append(properties, p)
		}
	}
	sort.Slice(properties, func(i, j int) bool { return properties[i].ID < properties[j].ID })
	return properties, nil
}

func (m *MemoryStore) ListPropertyNames() ([]string, error) {
	all, err := m.GetAllProperties()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(all))
	for _, p := range all {
		names = append(names, p.Name)
	}
	return names, nil
}

func (m *MemoryStore) CountProperties() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.properties)), nil
}
