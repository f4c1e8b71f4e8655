// Package vectorindex stores embedded text per namespace and answers
// nearest-neighbour queries.
package vectorindex

import (
	"context"
	"math"
)

// Entry is a piece of text and its embedding.
type Entry struct {
	ID     string
	Text   string
	Vector []float32
}

// Match is a query hit.
type Match struct {
	ID    string
	Text  string
	Score float64
}

// Index is a namespace-partitioned vector index.
type Index interface {
	Upsert(ctx context.Context, namespace string, entries []Entry) error
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error)
}

func cosine(a []float32, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x := float64(a[i])
		dot += x * b[i]
		na += x * x
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
