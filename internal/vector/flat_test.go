package vector

import (
	"reflect"
	"testing"
)

func buildTestIndex(t *testing.T) *FlatIndex {
	t.Helper()
	idx, err := NewFlatIndex(3)
	if err != nil {
		t.Fatalf("NewFlatIndex() error = %v", err)
	}
	err = idx.Add(
		[]float32{1, 0, 0},
		[]float32{0, 1, 0},
		[]float32{0, 0, 1},
		[]float32{1, 1, 0},
	)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	return idx
}

func TestFlatIndexSearch(t *testing.T) {
	idx := buildTestIndex(t)

	positions, distances, err := idx.Search([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if !reflect.DeepEqual(positions, []int{0, 3}) {
		t.Errorf("positions = %v, want [0 3]", positions)
	}
	if distances[0] != 0 {
		t.Errorf("nearest distance = %v, want 0", distances[0])
	}
	if distances[1] != 1 {
		t.Errorf("second distance = %v, want 1", distances[1])
	}
}

func TestFlatIndexSearchDeterministic(t *testing.T) {
	idx := buildTestIndex(t)
	query := []float32{0.5, 0.5, 0.5}

	pos1, dist1, err := idx.Search(query, 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	pos2, dist2, err := idx.Search(query, 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if !reflect.DeepEqual(pos1, pos2) {
		t.Errorf("positions differ between identical searches: %v vs %v", pos1, pos2)
	}
	if !reflect.DeepEqual(dist1, dist2) {
		t.Errorf("distances differ between identical searches: %v vs %v", dist1, dist2)
	}
}

func TestFlatIndexSearchTieBreak(t *testing.T) {
	idx, err := NewFlatIndex(2)
	if err != nil {
		t.Fatalf("NewFlatIndex() error = %v", err)
	}
	// Equidistant vectors must rank by insertion position
	if err := idx.Add([]float32{1, 0}, []float32{0, 1}, []float32{-1, 0}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	positions, _, err := idx.Search([]float32{0, 0}, 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if !reflect.DeepEqual(positions, []int{0, 1, 2}) {
		t.Errorf("tie-break positions = %v, want [0 1 2]", positions)
	}
}

func TestFlatIndexSearchKClamped(t *testing.T) {
	idx := buildTestIndex(t)

	positions, _, err := idx.Search([]float32{1, 0, 0}, 100)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(positions) != idx.Len() {
		t.Errorf("result count = %d, want %d", len(positions), idx.Len())
	}
}

func TestFlatIndexSearchDimensionMismatch(t *testing.T) {
	idx := buildTestIndex(t)
	if _, _, err := idx.Search([]float32{1, 0}, 1); err == nil {
		t.Error("Expected error for query dimension mismatch")
	}
}

func TestFlatIndexAddDimensionMismatch(t *testing.T) {
	idx, err := NewFlatIndex(3)
	if err != nil {
		t.Fatalf("NewFlatIndex() error = %v", err)
	}
	if err := idx.Add([]float32{1, 2}); err == nil {
		t.Error("Expected error for vector dimension mismatch")
	}
}

func TestFlatIndexSerializeRoundTrip(t *testing.T) {
	idx := buildTestIndex(t)

	blob, err := idx.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	restored, err := DeserializeFlatIndex(blob)
	if err != nil {
		t.Fatalf("DeserializeFlatIndex() error = %v", err)
	}
	if restored.Dimension() != idx.Dimension() {
		t.Errorf("dimension = %d, want %d", restored.Dimension(), idx.Dimension())
	}
	if restored.Len() != idx.Len() {
		t.Errorf("length = %d, want %d", restored.Len(), idx.Len())
	}

	query := []float32{0.9, 0.1, 0}
	pos1, dist1, err := idx.Search(query, 4)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	pos2, dist2, err := restored.Search(query, 4)
	if err != nil {
		t.Fatalf("Search() on restored index error = %v", err)
	}
	if !reflect.DeepEqual(pos1, pos2) || !reflect.DeepEqual(dist1, dist2) {
		t.Errorf("restored index search differs: %v/%v vs %v/%v", pos1, dist1, pos2, dist2)
	}
}

func TestDeserializeFlatIndexInvalid(t *testing.T) {
	tests := []struct {
		name string
		blob []byte
	}{
		{name: "empty", blob: nil},
		{name: "too short", blob: []byte{1, 2, 3}},
		{name: "bad magic", blob: make([]byte, 12)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DeserializeFlatIndex(tt.blob); err == nil {
				t.Error("Expected error for invalid blob")
			}
		})
	}
}

func TestFlatIndexEmptySearch(t *testing.T) {
	idx, err := NewFlatIndex(2)
	if err != nil {
		t.Fatalf("NewFlatIndex() error = %v", err)
	}
	positions, distances, err := idx.Search([]float32{1, 1}, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if positions != nil || distances != nil {
		t.Errorf("expected nil results for empty index, got %v/%v", positions, distances)
	}
}
