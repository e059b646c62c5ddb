package vectorindex

import (
	"context"
)

// Record kinds stored in the index. Chunk records carry passage text,
// field records carry one extracted field value.
const (
	KindChunk = "chunk"
	KindField = "field"
)

// Record is a single embedded vector plus its metadata payload.
type Record struct {
	ID        string
	Embedding []float32
	Metadata  map[string]interface{}
}

// Filter selects records by equality on the indexed metadata columns.
// Zero-valued fields are ignored.
type Filter struct {
	UserID    string
	DocID     string
	Filename  string
	Kind      string
	FieldType string
}

// Query is a similarity search request. A nil or all-zero Vector turns
// the query into a plain listing by filter, with every score zero.
type Query struct {
	Vector   []float32
	TopK     int
	Filter   Filter
	MinScore float64
}

// Match is one search hit.
type Match struct {
	ID       string                 `json:"id"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Stats summarizes index contents.
type Stats struct {
	TotalVectors int            `json:"total_vectors"`
	Dimension    int            `json:"dimension"`
	ByKind       map[string]int `json:"by_kind"`
}

// VectorIndex is the storage backend for embedded records.
type VectorIndex interface {
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, q Query) ([]Match, error)
	DeleteIDs(ctx context.Context, ids []string) error
	DeleteByFilter(ctx context.Context, f Filter) (int, error)
	Stats(ctx context.Context) (*Stats, error)
}

func metaString(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
