package memory

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder turns text into a fixed-size vector. The corpus and every query
// must go through the same embedder, otherwise similarity scores are
// meaningless.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	// Dimensions returns the vector size produced by Embed.
	Dimensions() int
}

// defaultDimensions is the vector size of the hashing embedder.
const defaultDimensions = 256

// HashingEmbedder is a deterministic local embedder using signed feature
// hashing over lowercased tokens. It needs no model or network access, which
// keeps retrieval available when every external collaborator is down, and
// makes similarity scores reproducible in tests.
type HashingEmbedder struct {
	dims int
}

// NewHashingEmbedder creates a hashing embedder. Non-positive dims falls back
// to the default.
func NewHashingEmbedder(dims int) *HashingEmbedder {
	if dims <= 0 {
		dims = defaultDimensions
	}
	return &HashingEmbedder{dims: dims}
}

// Dimensions returns the vector size.
func (e *HashingEmbedder) Dimensions() int {
	return e.dims
}

// Embed hashes each token into one of dims buckets with a hash-derived sign,
// then L2-normalizes. Identical text always produces an identical vector.
func (e *HashingEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, e.dims)

	for _, token := range tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum64()

		idx := int(sum % uint64(e.dims))
		sign := 1.0
		if (sum>>63)&1 == 1 {
			sign = -1.0
		}
		vec[idx] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// tokenize splits text into lowercased alphanumeric tokens. Punctuation and
// separators are delimiters, so "10.0.0.5" contributes its octets and
// "Data Exfiltration" contributes both words.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// cosineSimilarity computes the cosine of the angle between two vectors of
// equal length. Either vector being all-zero yields 0.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
