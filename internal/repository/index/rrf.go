package index

import (
	"sort"

	"github.com/contextforge/contextforge/internal/db"
)

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// fuseRRF merges KNN and BM25 hits via Reciprocal Rank Fusion.
// score(d) = sum of 1/(k + rank_i(d)) for each ranking where d appears.
// When a chunk appears in both lists, the KNN entry's fields are kept (they
// carry the stored vector).
func fuseRRF(knn, bm25 []db.SearchEntry, topK int) []db.SearchEntry {
	type scored struct {
		entry db.SearchEntry
		score float64
	}

	merged := make(map[string]*scored)
	order := make([]string, 0, len(knn)+len(bm25))

	for rank, e := range knn {
		s := 1.0 / float64(rrfK+rank+1)
		merged[e.Key] = &scored{entry: e, score: s}
		order = append(order, e.Key)
	}

	for rank, e := range bm25 {
		s := 1.0 / float64(rrfK+rank+1)
		if existing, ok := merged[e.Key]; ok {
			existing.score += s
			continue
		}
		merged[e.Key] = &scored{entry: e, score: s}
		order = append(order, e.Key)
	}

	results := make([]db.SearchEntry, 0, len(merged))
	for _, key := range order {
		s := merged[key]
		entry := s.entry
		entry.Score = s.score
		results = append(results, entry)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}
