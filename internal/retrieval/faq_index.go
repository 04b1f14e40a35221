package retrieval

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"

	chromem "github.com/philippgille/chromem-go"
)

const faqCollection = "faqs"

// FAQChunk is a single retrieved FAQ passage.
type FAQChunk struct {
	ID         string
	Content    string
	Similarity float32
}

// FAQIndex is the similarity index over the FAQ corpus. Source documents are
// plain text files; chunks are paragraphs separated by blank lines.
type FAQIndex struct {
	col   *chromem.Collection
	paths []string
}

// NewFAQIndex creates the index over the given FAQ document paths.
func NewFAQIndex(db *chromem.DB, paths []string, embed chromem.EmbeddingFunc) (*FAQIndex, error) {
	col, err := db.GetOrCreateCollection(faqCollection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("create faq collection: %w", err)
	}
	return &FAQIndex{col: col, paths: paths}, nil
}

// Build loads, chunks and indexes the FAQ documents. Only builds if the
// collection is empty.
func (ix *FAQIndex) Build(ctx context.Context) error {
	if ix.col.Count() > 0 {
		return nil
	}

	combined, err := ix.loadDocuments()
	if err != nil {
		return err
	}

	chunks := ChunkParagraphs(combined)
	if len(chunks) == 0 {
		log.Println("⚠️  FAQ corpus is empty - nothing to index")
		return nil
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for i, chunk := range chunks {
		docs = append(docs, chromem.Document{
			ID:      fmt.Sprintf("faq_chunk_%d", i),
			Content: chunk,
			Metadata: map[string]string{
				"source":   "Combined FAQ Documents",
				"chunk_id": fmt.Sprintf("%d", i),
			},
		})
	}

	if err := ix.col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("index faq chunks: %w", err)
	}

	log.Printf("✅ Indexed %d FAQ chunks", len(docs))
	return nil
}

// AddChunks indexes pre-chunked passages directly. Used by tests and by
// callers that already hold the corpus in memory.
func (ix *FAQIndex) AddChunks(ctx context.Context, chunks []string) error {
	docs := make([]chromem.Document, 0, len(chunks))
	start := ix.col.Count()
	for i, chunk := range chunks {
		docs = append(docs, chromem.Document{
			ID:      fmt.Sprintf("faq_chunk_%d", start+i),
			Content: chunk,
		})
	}
	return ix.col.AddDocuments(ctx, docs, runtime.NumCPU())
}

// Count returns the number of indexed chunks.
func (ix *FAQIndex) Count() int {
	return ix.col.Count()
}

// Search returns the best-matching FAQ chunks for the query.
func (ix *FAQIndex) Search(ctx context.Context, query string, limit int) ([]FAQChunk, error) {
	count := ix.col.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := ix.col.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query faq index: %w", err)
	}

	chunks := make([]FAQChunk, 0, len(results))
	for _, result := range results {
		chunks = append(chunks, FAQChunk{
			ID:         result.ID,
			Content:    result.Content,
			Similarity: result.Similarity,
		})
	}
	return chunks, nil
}

// loadDocuments reads and combines all FAQ source files, separated by a
// blank line so file boundaries become chunk boundaries.
func (ix *FAQIndex) loadDocuments() (string, error) {
	var parts []string
	for _, path := range ix.paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read faq document %s: %w", path, err)
		}
		parts = append(parts, string(data))
	}
	return strings.Join(parts, "\n\n"), nil
}

// ChunkParagraphs splits text into paragraph chunks on blank lines.
func ChunkParagraphs(text string) []string {
	var chunks []string
	for _, chunk := range strings.Split(text, "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}
