package vector

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// flatMagic identifies serialized flat index blobs.
const flatMagic uint32 = 0x464C5431 // "FLT1"

// FlatIndex is an exhaustive exact-distance similarity index over float32
// vectors using squared Euclidean (L2) distance. Result positions are the
// insertion positions of the vectors; the caller keeps the mapping from
// positions to record ids.
type FlatIndex struct {
	dim     int
	vectors [][]float32
}

// NewFlatIndex creates an empty flat index for vectors of the given dimension
func NewFlatIndex(dim int) (*FlatIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension: %d", dim)
	}
	return &FlatIndex{dim: dim}, nil
}

// Dimension returns the vector dimension of the index
func (idx *FlatIndex) Dimension() int {
	return idx.dim
}

// Len returns the number of vectors in the index
func (idx *FlatIndex) Len() int {
	return len(idx.vectors)
}

// Add appends vectors to the index in order
func (idx *FlatIndex) Add(vecs ...[]float32) error {
	for i, vec := range vecs {
		if len(vec) != idx.dim {
			return fmt.Errorf("vector %d has dimension %d, index expects %d", i, len(vec), idx.dim)
		}
	}
	idx.vectors = append(idx.vectors, vecs...)
	return nil
}

// Search returns the positions and squared L2 distances of the k nearest
// vectors to query, ordered by ascending distance. Ties break by insertion
// position, so identical queries against an unchanged index return identical
// ordered results.
func (idx *FlatIndex) Search(query []float32, k int) ([]int, []float32, error) {
	if len(query) != idx.dim {
		return nil, nil, fmt.Errorf("query has dimension %d, index expects %d", len(query), idx.dim)
	}
	if k <= 0 || len(idx.vectors) == 0 {
		return nil, nil, nil
	}
	if k > len(idx.vectors) {
		k = len(idx.vectors)
	}

	type hit struct {
		pos  int
		dist float32
	}
	hits := make([]hit, len(idx.vectors))
	for i, vec := range idx.vectors {
		hits[i] = hit{pos: i, dist: SquaredL2(query, vec)}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].pos < hits[j].pos
	})

	positions := make([]int, k)
	distances := make([]float32, k)
	for i := 0; i < k; i++ {
		positions[i] = hits[i].pos
		distances[i] = hits[i].dist
	}
	return positions, distances, nil
}

// Serialize converts the index to an opaque binary blob.
// Layout: magic(4) | dim(4) | count(4) | count*dim little-endian float32.
func (idx *FlatIndex) Serialize() ([]byte, error) {
	blob := make([]byte, 12+len(idx.vectors)*idx.dim*4)
	binary.LittleEndian.PutUint32(blob[0:], flatMagic)
	binary.LittleEndian.PutUint32(blob[4:], uint32(idx.dim))
	binary.LittleEndian.PutUint32(blob[8:], uint32(len(idx.vectors)))

	off := 12
	for _, vec := range idx.vectors {
		for _, v := range vec {
			binary.LittleEndian.PutUint32(blob[off:], math.Float32bits(v))
			off += 4
		}
	}
	return blob, nil
}

// DeserializeFlatIndex reconstructs a flat index from a serialized blob
func DeserializeFlatIndex(blob []byte) (*FlatIndex, error) {
	if len(blob) < 12 {
		return nil, fmt.Errorf("index blob too short: %d bytes", len(blob))
	}
	if magic := binary.LittleEndian.Uint32(blob[0:]); magic != flatMagic {
		return nil, fmt.Errorf("unrecognized index blob magic: %#x", magic)
	}

	dim := int(binary.LittleEndian.Uint32(blob[4:]))
	count := int(binary.LittleEndian.Uint32(blob[8:]))
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension in index blob: %d", dim)
	}
	if expected := 12 + count*dim*4; len(blob) != expected {
		return nil, fmt.Errorf("index blob length mismatch: got %d, expected %d", len(blob), expected)
	}

	idx := &FlatIndex{dim: dim, vectors: make([][]float32, count)}
	off := 12
	for i := 0; i < count; i++ {
		vec := make([]float32, dim)
		for j := 0; j < dim; j++ {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(blob[off:]))
			off += 4
		}
		idx.vectors[i] = vec
	}
	return idx, nil
}
