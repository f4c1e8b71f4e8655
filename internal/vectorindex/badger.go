package vectorindex

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const keyPrefix = "vec:"

var _ Index = (*BadgerIndex)(nil)

type record struct {
	ID     string    `bson:"id"`
	Text   string    `bson:"text"`
	Vector []float64 `bson:"vector"`
}

// BadgerIndex keeps vectors under "vec:<hex(namespace)>:<id>" and scans the
// namespace prefix on query. The namespace is hex encoded so that no
// namespace prefix can be a prefix of another.
type BadgerIndex struct {
	db *badger.DB
}

// Open opens a BadgerIndex at path, or in memory when path is empty.
func Open(path string) (*BadgerIndex, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}
	return &BadgerIndex{db: db}, nil
}

// NewBadgerIndex wraps an already open database.
func NewBadgerIndex(db *badger.DB) *BadgerIndex {
	return &BadgerIndex{db: db}
}

// Close closes the underlying database.
func (b *BadgerIndex) Close() error {
	return b.db.Close()
}

func namespacePrefix(namespace string) []byte {
	return []byte(keyPrefix + hex.EncodeToString([]byte(namespace)) + ":")
}

func (b *BadgerIndex) Upsert(ctx context.Context, namespace string, entries []Entry) error {
	if namespace == "" {
		return errors.New("namespace is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		for _, e := range entries {
			if e.ID == "" || len(e.Vector) == 0 {
				continue
			}
			vec := make([]float64, len(e.Vector))
			for i, v := range e.Vector {
				vec[i] = float64(v)
			}
			data, err := bson.Marshal(record{ID: e.ID, Text: e.Text, Vector: vec})
			if err != nil {
				return fmt.Errorf("marshal failed: %w", err)
			}
			key := append(namespacePrefix(namespace), e.ID...)
			if err := txn.Set(key, data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BadgerIndex) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error) {
	if topK <= 0 || len(vector) == 0 {
		return nil, nil
	}
	prefix := namespacePrefix(namespace)

	var matches []Match
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(v []byte) error {
				var rec record
				if err := bson.Unmarshal(v, &rec); err != nil {
					return fmt.Errorf("failed to unmarshal vector: %w", err)
				}
				matches = append(matches, Match{ID: rec.ID, Text: rec.Text, Score: cosine(vector, rec.Vector)})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error during vector scan: %w", err)
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}
