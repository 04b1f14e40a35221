package retrieval

import (
	"context"
	"hash/fnv"
	"math"
	"os"
	"strings"

	chromem "github.com/philippgille/chromem-go"
)

// NewEmbeddingFunc selects the embedding backend for the vector indexes.
// With OPENAI_API_KEY set it uses OpenAI's text-embedding-3-small through
// chromem; otherwise it falls back to a deterministic local embedding so the
// service and tests run without any network dependency.
func NewEmbeddingFunc() chromem.EmbeddingFunc {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		return chromem.NewEmbeddingFuncOpenAI(apiKey, chromem.EmbeddingModelOpenAI3Small)
	}
	return LocalEmbeddingFunc(256)
}

// LocalEmbeddingFunc returns a hashed bag-of-words embedding of the given
// dimension. It is not a semantic model; it only guarantees that texts
// sharing vocabulary land near each other, which is enough for exact-ish
// lookups in development and tests.
func LocalEmbeddingFunc(dim int) chromem.EmbeddingFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		vec := make([]float32, dim)
		for _, token := range strings.Fields(strings.ToLower(text)) {
			token = strings.Trim(token, ".,!?:;()\"'")
			if token == "" {
				continue
			}
			h := fnv.New32a()
			h.Write([]byte(token))
			vec[h.Sum32()%uint32(dim)]++
		}

		// chromem expects normalized vectors; an all-zero vector would make
		// the cosine distance undefined.
		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if norm == 0 {
			vec[0] = 1
			return vec, nil
		}
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
		return vec, nil
	}
}
