package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siraa-ai/siraa-backend/internal/models"
)

func seedCatalog() *MemoryStore {
	store := NewMemoryStore()
	store.Seed(
		&models.Property{Name: "Skyscape Avenue", Country: "United Arab Emirates"},
		&models.Property{Name: "Batumi Vista", Country: "Georgia"},
		&models.Property{Name: "Palm Grove Residences", Country: "Georgia"},
	)
	return store
}

func TestMemoryStore_GetAllProperties(t *testing.T) {
	store := seedCatalog()

	all, err := store.GetAllProperties()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Skyscape Avenue", all[0].Name, "results ordered by ID")
	assert.NotZero(t, all[0].ID, "seeding assigns IDs")
}

func TestMemoryStore_GetPropertyByName(t *testing.T) {
	store := seedCatalog()

	p, err := store.GetPropertyByName("  skyscape avenue ")
	require.NoError(t, err)
	assert.Equal(t, "Skyscape Avenue", p.Name)

	_, err = store.GetPropertyByName("Atlantis Towers")
	assert.Error(t, err)
}

func TestMemoryStore_GetPropertiesByCountry(t *testing.T) {
	store := seedCatalog()

	georgian, err := store.GetPropertiesByCountry("georgia")
	require.NoError(t, err)
	assert.Len(t, georgian, 2)

	none, err := store.GetPropertiesByCountry("Spain")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStore_ListPropertyNames(t *testing.T) {
	store := seedCatalog()

	names, err := store.ListPropertyNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"Skyscape Avenue", "Batumi Vista", "Palm Grove Residences"}, names)
}

func TestMemoryStore_SeedUpsertsByName(t *testing.T) {
	store := seedCatalog()
	store.Seed(&models.Property{Name: "Batumi Vista", Country: "Georgia", Price: "USD 99,000"})

	count, err := store.CountProperties()
	require.NoError(t, err)
	assert.EqualValues(t, 3, count, "reseeding an existing name must not duplicate")

	p, err := store.GetPropertyByName("Batumi Vista")
	require.NoError(t, err)
	assert.Equal(t, "USD 99,000", p.Price)
}
