// Package rank implements deterministic embedding similarity ranking over
// the catalog embedding matrix.
package rank

import (
	"math"

	apperrors "github.com/modulescout/modulescout/internal/errors"
)

// Matrix is a dense row-major embedding matrix. Row i holds the embedding
// for the module at catalog index i. Immutable after construction.
type Matrix struct {
	data  []float32
	rows  int
	dim   int
	norms []float32 // Precomputed L2 norms, one per row
}

// NewMatrix builds a Matrix from row-major data with the given dimension.
// Returns an error when the data length is not a multiple of dim.
func NewMatrix(data []float32, dim int) (*Matrix, error) {
	if dim <= 0 {
		return nil, apperrors.NewCatalogIntegrityError("embeddings", "dimension must be positive, got %d", dim)
	}
	if len(data)%dim != 0 {
		return nil, apperrors.NewCatalogIntegrityError("embeddings",
			"data length %d is not a multiple of dimension %d", len(data), dim)
	}

	rows := len(data) / dim
	norms := make([]float32, rows)
	for i := 0; i < rows; i++ {
		row := data[i*dim : (i+1)*dim]
		var sum float64
		for _, v := range row {
			sum += float64(v) * float64(v)
		}
		norms[i] = float32(math.Sqrt(sum))
	}

	return &Matrix{
		data:  data,
		rows:  rows,
		dim:   dim,
		norms: norms,
	}, nil
}

// Rows returns the number of embedding rows.
func (m *Matrix) Rows() int {
	if m == nil {
		return 0
	}
	return m.rows
}

// Dim returns the embedding dimensionality.
func (m *Matrix) Dim() int {
	if m == nil {
		return 0
	}
	return m.dim
}

// Row returns the embedding vector at the given catalog index.
// The returned slice aliases the matrix storage and must not be modified.
func (m *Matrix) Row(i int) []float32 {
	return m.data[i*m.dim : (i+1)*m.dim]
}
