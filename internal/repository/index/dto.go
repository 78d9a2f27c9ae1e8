package index

import (
	"encoding/json"
	"strconv"

	"github.com/contextforge/contextforge/internal/db"
	"github.com/contextforge/contextforge/internal/domain"
)

// Hash field names of one indexed chunk record.
const (
	fieldDocID      = "doc_id"
	fieldSource     = "source"
	fieldPage       = "page"
	fieldChapter    = "chapter"
	fieldSection    = "section"
	fieldChunkID    = "global_chunk_id"
	fieldPages      = "pages"
	fieldSections   = "sections"
	fieldConfidence = "confidence"
	fieldText       = "text"
	fieldVector     = "vector"
)

var returnFields = []string{
	fieldDocID, fieldSource, fieldPage, fieldChapter, fieldSection,
	fieldChunkID, fieldPages, fieldSections, fieldConfidence,
	fieldText, fieldVector,
}

// chunkToFields flattens a chunk plus its embedding into hash fields.
// Multi-valued sets are stored as JSON arrays.
func chunkToFields(chunk domain.Chunk, vector []float32) map[string]string {
	m := chunk.Metadata

	pages, _ := json.Marshal(m.Pages)
	sections, _ := json.Marshal(m.Sections)

	return map[string]string{
		fieldDocID:      m.DocID,
		fieldSource:     m.Source,
		fieldPage:       strconv.Itoa(m.Page),
		fieldChapter:    strconv.Itoa(m.Chapter),
		fieldSection:    m.Section,
		fieldChunkID:    strconv.Itoa(m.GlobalChunkID),
		fieldPages:      string(pages),
		fieldSections:   string(sections),
		fieldConfidence: strconv.FormatFloat(m.Confidence, 'f', -1, 64),
		fieldText:       chunk.Text,
		fieldVector:     db.VectorToBytes(vector),
	}
}

// fieldsToCandidate rebuilds a scored candidate from a search hit.
func fieldsToCandidate(fields map[string]string, score float64) domain.ScoredCandidate {
	meta := domain.ChunkMetadata{
		DocID:   fields[fieldDocID],
		Source:  fields[fieldSource],
		Section: fields[fieldSection],
	}
	meta.Page, _ = strconv.Atoi(fields[fieldPage])
	meta.Chapter, _ = strconv.Atoi(fields[fieldChapter])
	meta.GlobalChunkID, _ = strconv.Atoi(fields[fieldChunkID])
	meta.Confidence, _ = strconv.ParseFloat(fields[fieldConfidence], 64)

	json.Unmarshal([]byte(fields[fieldPages]), &meta.Pages)
	json.Unmarshal([]byte(fields[fieldSections]), &meta.Sections)

	return domain.ScoredCandidate{
		Score:    score,
		Text:     fields[fieldText],
		Metadata: meta,
	}
}
