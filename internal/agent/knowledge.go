package agent

import (
	"context"
	"errors"
	"strings"

	"github.com/siraa-ai/siraa-backend/internal/models"
	"github.com/siraa-ai/siraa-backend/internal/retrieval"
	"github.com/siraa-ai/siraa-backend/internal/storage"
)

// Sentinel errors for media lookups. Tool handlers map these to friendly
// fallback text instead of surfacing them to the caller.
var (
	ErrPropertyNotFound = errors.New("property not found")
	ErrMediaUnavailable = errors.New("media unavailable")
)

// Knowledge is the capability surface the agent's tools run against. The
// production implementation is backed by the vector indexes and the property
// catalog; tests substitute fakes so the orchestration can run without any
// hosted model or index.
type Knowledge interface {
	// SearchProperties runs a semantic query over the catalog.
	SearchProperties(ctx context.Context, query string, limit int) ([]*models.Property, error)
	// PropertiesByCountry filters the catalog by country, bypassing the index.
	PropertiesByCountry(ctx context.Context, country string, limit int) ([]*models.Property, error)
	// LookupFAQ returns the best-matching FAQ passages for the query.
	LookupFAQ(ctx context.Context, query string, limit int) ([]string, error)
	// LookupMedia resolves a property's media URL for the given kind.
	LookupMedia(ctx context.Context, propertyName, kind string) (string, error)
	// PropertyNames lists every known property name.
	PropertyNames(ctx context.Context) ([]string, error)
}

type retrievalKnowledge struct {
	properties *retrieval.PropertyIndex
	faqs       *retrieval.FAQIndex
	store      storage.Store
}

// NewKnowledge builds the production Knowledge over the two indexes and the
// catalog store.
func NewKnowledge(properties *retrieval.PropertyIndex, faqs *retrieval.FAQIndex, store storage.Store) Knowledge {
	return &retrievalKnowledge{properties: properties, faqs: faqs, store: store}
}

func (k *retrievalKnowledge) SearchProperties(ctx context.Context, query string, limit int) ([]*models.Property, error) {
	matches, err := k.properties.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	properties := make([]*models.Property, 0, len(matches))
	for _, m := range matches {
		properties = append(properties, m.Property)
	}
	return properties, nil
}

func (k *retrievalKnowledge) PropertiesByCountry(ctx context.Context, country string, limit int) ([]*models.Property, error) {
	properties, err := k.store.GetPropertiesByCountry(country)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(properties) > limit {
		properties = properties[:limit]
	}
	return properties, nil
}

func (k *retrievalKnowledge) LookupFAQ(ctx context.Context, query string, limit int) ([]string, error) {
	chunks, err := k.faqs.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	passages := make([]string, 0, len(chunks))
	for _, c := range chunks {
		passages = append(passages, c.Content)
	}
	return passages, nil
}

func (k *retrievalKnowledge) LookupMedia(ctx context.Context, propertyName, kind string) (string, error) {
	property, err := k.store.GetPropertyByName(propertyName)
	if err != nil {
		// Fall back to fuzzy matching against the known names
		names, namesErr := k.store.ListPropertyNames()
		if namesErr != nil {
			return "", namesErr
		}
		match := bestPropertyMatch(propertyName, names)
		if match == "" {
			return "", ErrPropertyNotFound
		}
		property, err = k.store.GetPropertyByName(match)
		if err != nil {
			return "", ErrPropertyNotFound
		}
	}

	url, ok := property.MediaURL(kind)
	if !ok {
		return "", ErrMediaUnavailable
	}
	return url, nil
}

func (k *retrievalKnowledge) PropertyNames(ctx context.Context) ([]string, error) {
	return k.store.ListPropertyNames()
}

// bestPropertyMatch finds the closest known property name: exact match
// first, then substring containment, then any word overlap.
func bestPropertyMatch(name string, available []string) string {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return ""
	}

	for _, candidate := range available {
		if strings.ToLower(candidate) == needle {
			return candidate
		}
	}

	for _, candidate := range available {
		lower := strings.ToLower(candidate)
		if strings.Contains(lower, needle) || strings.Contains(needle, lower) {
			return candidate
		}
	}

	needleWords := map[string]bool{}
	for _, w := range strings.Fields(needle) {
		needleWords[w] = true
	}
	for _, candidate := range available {
		for _, w := range strings.Fields(strings.ToLower(candidate)) {
			if needleWords[w] {
				return candidate
			}
		}
	}

	return ""
}
