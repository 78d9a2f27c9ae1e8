package chunker

import "math"

// Cosine returns the cosine similarity between two vectors. Vectors of
// different lengths or zero magnitude yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
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

// UpdateCentroid folds a new embedding into the running mean of n vectors,
// returning a fresh slice: centroid' = (centroid*n + emb) / (n+1).
func UpdateCentroid(centroid, emb []float32, n int) []float32 {
	out := make([]float32, len(centroid))
	for i := range centroid {
		out[i] = (centroid[i]*float32(n) + emb[i]) / float32(n+1)
	}
	return out
}
