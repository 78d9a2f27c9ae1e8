package db

import (
	"encoding/binary"
	"math"
)

// KNNQuery is the input for vector similarity search. Filter is a pre-built
// FT.SEARCH pre-filter expression, empty for none.
type KNNQuery struct {
	IndexName    string
	Filter       string
	Vector       []float32
	K            int
	ReturnFields []string
}

// TextQuery is the input for BM25 text search.
type TextQuery struct {
	IndexName    string
	Query        string
	Filter       string
	TopK         int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// VectorToBytes encodes a float32 vector as the little-endian binary blob
// FT.SEARCH and hash storage expect.
func VectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// BytesToVector decodes a little-endian binary blob back into a float32
// vector. Trailing bytes that do not fill a float are ignored.
func BytesToVector(data string) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		bits := binary.LittleEndian.Uint32([]byte(data[i*4 : i*4+4]))
		out[i] = math.Float32frombits(bits)
	}
	return out
}
