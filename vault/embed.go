package vault

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/philippgille/chromem-go"
)

// localEmbedDim is the dimensionality of the hash-based embedder.
const localEmbedDim = 128

// NewLocalEmbedding returns a deterministic embedding function that needs
// no network access. Each token is hashed into a fixed-size bag-of-words
// vector which is then L2-normalized. It is far weaker than a real
// embedding model but gives stable, meaningful overlap scores for notes
// that share vocabulary, which is enough for offline use and tests.
func NewLocalEmbedding() chromem.EmbeddingFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		vec := make([]float32, localEmbedDim)

		for _, token := range tokenize(strings.ToLower(text)) {
			h := fnv.New32a()
			h.Write([]byte(token))
			idx := int(h.Sum32() % localEmbedDim)
			vec[idx]++
		}

		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if norm == 0 {
			// chromem rejects zero vectors; give empty text a fixed direction.
			vec[0] = 1
			return vec, nil
		}

		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
		return vec, nil
	}
}
