package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"
)

// Memory is an in-process VectorIndex used in tests and local runs
// without Postgres.
type Memory struct {
	mu        sync.RWMutex
	records   map[string]Record
	dimension int
}

func NewMemory(dimension int) *Memory {
	return &Memory{
		records:   make(map[string]Record),
		dimension: dimension,
	}
}

func (m *Memory) Upsert(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.records[r.ID] = r
	}
	return nil
}

func (m *Memory) Search(_ context.Context, q Query) ([]Match, error) {
	if q.TopK <= 0 {
		q.TopK = 10
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	listing := len(q.Vector) == 0 || isZeroVector(q.Vector)

	var matches []Match
	for _, r := range m.records {
		if !matchesFilter(r, q.Filter) {
			continue
		}
		score := 0.0
		if !listing {
			score = cosineSimilarity(q.Vector, r.Embedding)
			if q.MinScore > 0 && score < q.MinScore {
				continue
			}
		}
		matches = append(matches, Match{ID: r.ID, Score: score, Metadata: r.Metadata})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > q.TopK {
		matches = matches[:q.TopK]
	}
	return matches, nil
}

func (m *Memory) DeleteIDs(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.records, id)
	}
	return nil
}

func (m *Memory) DeleteByFilter(_ context.Context, f Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, r := range m.records {
		if matchesFilter(r, f) {
			delete(m.records, id)
			removed++
		}
	}
	return removed, nil
}

func (m *Memory) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Stats{Dimension: m.dimension, ByKind: make(map[string]int)}
	for _, r := range m.records {
		stats.ByKind[recordKind(r.Metadata)]++
		stats.TotalVectors++
	}
	return stats, nil
}

func matchesFilter(r Record, f Filter) bool {
	if f.UserID != "" && metaString(r.Metadata, "user_id") != f.UserID {
		return false
	}
	if f.DocID != "" && metaString(r.Metadata, "doc_id") != f.DocID {
		return false
	}
	if f.Filename != "" && metaString(r.Metadata, "filename") != f.Filename {
		return false
	}
	if f.Kind != "" && recordKind(r.Metadata) != f.Kind {
		return false
	}
	if f.FieldType != "" && metaString(r.Metadata, "field_type") != f.FieldType {
		return false
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
