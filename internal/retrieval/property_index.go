package retrieval

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/siraa-ai/siraa-backend/internal/models"
	"github.com/siraa-ai/siraa-backend/internal/storage"
)

const propertyCollection = "properties"

// Match is a single semantic search hit against the property index.
type Match struct {
	Property   *models.Property
	Similarity float32
}

// PropertyIndex is the semantic index over the property catalog. Documents
// are built from catalog records; the catalog itself stays the source of
// truth for metadata and media links.
type PropertyIndex struct {
	db    *chromem.DB
	store storage.Store
	embed chromem.EmbeddingFunc

	mu  sync.RWMutex
	col *chromem.Collection
}

// NewPropertyIndex creates the index and its underlying collection.
func NewPropertyIndex(db *chromem.DB, store storage.Store, embed chromem.EmbeddingFunc) (*PropertyIndex, error) {
	col, err := db.GetOrCreateCollection(propertyCollection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("create property collection: %w", err)
	}
	return &PropertyIndex{db: db, store: store, embed: embed, col: col}, nil
}

// Build populates the index from the catalog. A non-empty collection is left
// untouched unless force is set.
func (ix *PropertyIndex) Build(ctx context.Context, force bool) error {
	ix.mu.RLock()
	count := ix.col.Count()
	ix.mu.RUnlock()

	if count > 0 && !force {
		return nil
	}
	return ix.Rebuild(ctx)
}

// Rebuild drops the collection and reindexes every catalog record.
func (ix *PropertyIndex) Rebuild(ctx context.Context) error {
	properties, err := ix.store.GetAllProperties()
	if err != nil {
		return fmt.Errorf("load properties: %w", err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.db.DeleteCollection(propertyCollection); err != nil {
		return fmt.Errorf("reset property collection: %w", err)
	}
	col, err := ix.db.GetOrCreateCollection(propertyCollection, nil, ix.embed)
	if err != nil {
		return fmt.Errorf("recreate property collection: %w", err)
	}
	ix.col = col

	if len(properties) == 0 {
		log.Println("⚠️  Property catalog is empty - nothing to index")
		return nil
	}

	docs := make([]chromem.Document, 0, len(properties))
	for _, p := range properties {
		docs = append(docs, chromem.Document{
			ID:      strconv.FormatUint(uint64(p.ID), 10),
			Content: p.SummaryText(),
			Metadata: map[string]string{
				"property_name": p.Name,
				"location":      p.Location,
				"country":       p.Country,
			},
		})
	}

	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("index properties: %w", err)
	}

	log.Printf("✅ Indexed %d properties", len(docs))
	return nil
}

// Count returns the number of indexed properties.
func (ix *PropertyIndex) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.col.Count()
}

// Search runs a semantic query and resolves hits back to catalog records.
func (ix *PropertyIndex) Search(ctx context.Context, query string, limit int) ([]Match, error) {
	ix.mu.RLock()
	col := ix.col
	ix.mu.RUnlock()

	// chromem rejects nResults larger than the collection size
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := col.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query property index: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, result := range results {
		name := result.Metadata["property_name"]
		property, err := ix.store.GetPropertyByName(name)
		if err != nil {
			// Stale index entry; skip rather than fail the search
			log.Printf("⚠️  Indexed property %q missing from catalog", name)
			continue
		}
		matches = append(matches, Match{Property: property, Similarity: result.Similarity})
	}
	return matches, nil
}
