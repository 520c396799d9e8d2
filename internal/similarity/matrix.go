package similarity

import "math"

// Matrix is a dense row-major users x jobs table. Rows and columns are
// positions in the collections the matrix was built from, not entity ids.
type Matrix struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// NewMatrix allocates a zero matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

func (m *Matrix) At(row, col int) float64 {
	return m.Data[row*m.Cols+col]
}

func (m *Matrix) Set(row, col int, v float64) {
	m.Data[row*m.Cols+col] = v
}

// Row returns a view of a single row.
func (m *Matrix) Row(row int) []float64 {
	return m.Data[row*m.Cols : (row+1)*m.Cols]
}

// NonFinite counts NaN and infinite entries.
func (m *Matrix) NonFinite() int {
	count := 0
	for _, v := range m.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			count++
		}
	}
	return count
}

// Equal reports whether both matrices have the same shape and bit-identical entries.
func (m *Matrix) Equal(other *Matrix) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.Rows != other.Rows || m.Cols != other.Cols || len(m.Data) != len(other.Data) {
		return false
	}
	for i := range m.Data {
		if math.Float64bits(m.Data[i]) != math.Float64bits(other.Data[i]) {
			return false
		}
	}
	return true
}
