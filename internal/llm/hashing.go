package llm

import (
	"context"
	"hash/fnv"
	"strings"
)

// HashingEmbedder maps text to a fixed-size vector with the hashing trick.
// It needs no provider and is used when no embedding API key is configured.
type HashingEmbedder struct {
	size int
}

// NewHashingEmbedder creates a HashingEmbedder producing vectors of size dims.
func NewHashingEmbedder(size int) *HashingEmbedder {
	if size <= 0 {
		size = 512
	}
	return &HashingEmbedder{size: size}
}

// Embed lowercases text, splits on whitespace and sets one slot per word.
func (e *HashingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.size)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[int(h.Sum32()%uint32(e.size))] = 1
	}
	return vec, nil
}
