package utils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a row-major dense matrix backed by gonum. A zero-sized Matrix is
// legal and reports Dims() == (0, 0).
type Matrix struct {
	M        *mat.Dense
	readOnly bool
	name     string
}

func NewMatrix(nr, nc int, dataO ...[]float64) (R Matrix) {
	var m *mat.Dense
	if nr == 0 || nc == 0 {
		return Matrix{M: &mat.Dense{}, name: "empty"}
	}
	if len(dataO) != 0 {
		if len(dataO[0]) != nr*nc {
			err := fmt.Errorf("mismatch in allocation: NewMatrix nr,nc = %v,%v, len(data[0]) = %v", nr, nc, len(dataO[0]))
			panic(err)
		}
		m = mat.NewDense(nr, nc, dataO[0])
	} else {
		m = mat.NewDense(nr, nc, make([]float64, nr*nc))
	}
	R = Matrix{
		M:    m,
		name: "unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// NewMatrixFromRows copies a ragged-free slice of rows into a Matrix.
func NewMatrixFromRows(rows [][]float64) (R Matrix, err error) {
	if len(rows) == 0 {
		return NewMatrix(0, 0), nil
	}
	nc := len(rows[0])
	data := make([]float64, 0, len(rows)*nc)
	for i, row := range rows {
		if len(row) != nc {
			err = fmt.Errorf("row %d has %d columns, expected %d", i, len(row), nc)
			return
		}
		data = append(data, row...)
	}
	R = NewMatrix(len(rows), nc, data)
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m Matrix) Dims() (r, c int) {
	if m.M == nil || m.M.IsEmpty() {
		return 0, 0
	}
	return m.M.Dims()
}
func (m Matrix) At(i, j int) float64       { return m.M.At(i, j) }
func (m Matrix) T() mat.Matrix             { return m.M.T() }
func (m Matrix) RawMatrix() blas64.General { return m.M.RawMatrix() }
func (m Matrix) IsEmpty() bool             { nr, _ := m.Dims(); return nr == 0 }
func (m Matrix) Name() string              { return m.name }

// Chainable methods (extended)
func (m *Matrix) SetReadOnly(name ...string) Matrix {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
	return *m
}

func (m *Matrix) SetWritable() Matrix {
	m.readOnly = false
	return *m
}

func (m Matrix) IsReadOnly() bool { return m.readOnly }

func (m Matrix) Copy() (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
	)
	if nr == 0 {
		return NewMatrix(0, 0)
	}
	dataR := make([]float64, nr*nc)
	for i := 0; i < nr; i++ {
		copy(dataR[i*nc:(i+1)*nc], m.M.RawRowView(i))
	}
	R = NewMatrix(nr, nc, dataR)
	return
}

func (m Matrix) Transpose() (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(nc, nr)
	if nr == 0 {
		return
	}
	R.M.Copy(m.M.T())
	return
}

func (m Matrix) Mul(A Matrix) (R Matrix) { // Does not change receiver
	var (
		nrM, ncM = m.Dims()
		nrA, ncA = A.Dims()
	)
	if ncM != nrA {
		panic(fmt.Errorf("dimension mismatch in Mul: [%d,%d] x [%d,%d]", nrM, ncM, nrA, ncA))
	}
	R = NewMatrix(nrM, ncA)
	if R.IsEmpty() {
		return
	}
	R.M.Mul(m.M, A.M)
	return
}

// MulT returns m * A^T without forming the transpose.
func (m Matrix) MulT(A Matrix) (R Matrix) { // Does not change receiver
	var (
		nrM, ncM = m.Dims()
		nrA, ncA = A.Dims()
	)
	if ncM != ncA {
		panic(fmt.Errorf("dimension mismatch in MulT: [%d,%d] x [%d,%d]^T", nrM, ncM, nrA, ncA))
	}
	R = NewMatrix(nrM, nrA)
	if R.IsEmpty() {
		return
	}
	R.M.Mul(m.M, A.M.T())
	return
}

func (m Matrix) SliceRows(I Index) (R Matrix) { // Does not change receiver
	// I should contain a list of row indices into M
	var (
		nr, nc   = m.Dims()
		maxIndex = nr - 1
	)
	R = NewMatrix(len(I), nc)
	for iNewRow, i := range I {
		if i > maxIndex || i < 0 {
			panic(fmt.Errorf("unable to subset rows from matrix: index = %d, max_bounds = %d", i, maxIndex))
		}
		R.M.SetRow(iNewRow, m.M.RawRowView(i))
	}
	return
}

func (m Matrix) SliceCols(I Index) (R Matrix) { // Does not change receiver
	// I should contain a list of column indices into M
	var (
		nr, nc   = m.Dims()
		maxIndex = nc - 1
	)
	R = NewMatrix(nr, len(I))
	for jNewCol, j := range I {
		if j > maxIndex || j < 0 {
			panic(fmt.Errorf("unable to subset columns from matrix: index = %d, max_bounds = %d", j, maxIndex))
		}
		for i := 0; i < nr; i++ {
			R.M.Set(i, jNewCol, m.M.At(i, j))
		}
	}
	return
}

func (m Matrix) Row(i int) []float64 { // Does not change receiver
	var (
		_, nc = m.Dims()
		row   = make([]float64, nc)
	)
	copy(row, m.M.RawRowView(i))
	return row
}

func (m Matrix) Col(j int) []float64 { // Does not change receiver
	var (
		nr, _ = m.Dims()
		col   = make([]float64, nr)
	)
	for i := range col {
		col[i] = m.M.At(i, j)
	}
	return col
}

func (m Matrix) Set(i, j int, val float64) Matrix { // Changes receiver
	m.checkWritable()
	m.M.Set(i, j, val)
	return m
}

func (m Matrix) SetRow(i int, data []float64) Matrix { // Changes receiver
	m.checkWritable()
	m.M.SetRow(i, data)
	return m
}

func (m Matrix) Subtract(a Matrix) Matrix { // Changes receiver
	m.checkWritable()
	if m.IsEmpty() {
		return m
	}
	m.M.Sub(m.M, a.M)
	return m
}

func (m Matrix) Apply(f func(float64) float64) Matrix { // Changes receiver
	var (
		nr, nc = m.Dims()
	)
	m.checkWritable()
	for i := 0; i < nr; i++ {
		row := m.M.RawRowView(i)
		for j := 0; j < nc; j++ {
			row[j] = f(row[j])
		}
	}
	return m
}

// ColumnRange returns the minimum and maximum of column j.
func (m Matrix) ColumnRange(j int) (min, max float64) {
	var (
		nr, _ = m.Dims()
	)
	min, max = math.Inf(1), math.Inf(-1)
	for i := 0; i < nr; i++ {
		val := m.M.At(i, j)
		if val < min {
			min = val
		}
		if val > max {
			max = val
		}
	}
	return
}

// FrobeniusNorm is zero for an empty matrix.
func (m Matrix) FrobeniusNorm() float64 {
	if m.IsEmpty() {
		return 0
	}
	return mat.Norm(m.M, 2)
}

func (m Matrix) Print(msgI ...string) (o string) {
	var (
		name = ""
	)
	if len(msgI) != 0 {
		name = msgI[0]
	}
	if m.IsEmpty() {
		return fmt.Sprintf("%s = []\n", name)
	}
	return fmt.Sprintf("%s = \n%v\n", name, mat.Formatted(m.M, mat.Squeeze()))
}

func (m Matrix) checkWritable() {
	if m.readOnly {
		panic(fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name))
	}
}
