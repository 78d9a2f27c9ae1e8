package db

import "testing"

func TestVectorBytesRoundTrip(t *testing.T) {
	in := []float32{0.1, -2.5, 0, 42.125}

	out := BytesToVector(VectorToBytes(in))

	if len(out) != len(in) {
		t.Fatalf("length = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("out[%d] = %f, want %f", i, out[i], in[i])
		}
	}
}

func TestIndexDefinitionValidate(t *testing.T) {
	valid := IndexDefinition{
		Name: "chunks_idx",
		Fields: []IndexField{
			{Name: "doc_id", Type: IndexFieldTag},
			{Name: "vector", Type: IndexFieldVector, VectorDim: 4},
		},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		def  IndexDefinition
	}{
		{"empty name", IndexDefinition{Fields: []IndexField{{Name: "f", Type: IndexFieldText}}}},
		{"bad identifier", IndexDefinition{Name: "a b", Fields: []IndexField{{Name: "f", Type: IndexFieldText}}}},
		{"no fields", IndexDefinition{Name: "idx"}},
		{"duplicate field", IndexDefinition{Name: "idx", Fields: []IndexField{
			{Name: "f", Type: IndexFieldText},
			{Name: "f", Type: IndexFieldTag},
		}}},
		{"vector without dim", IndexDefinition{Name: "idx", Fields: []IndexField{
			{Name: "v", Type: IndexFieldVector},
		}}},
	}

	for _, tt := range tests {
		if err := tt.def.Validate(); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}
