package pod

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/meshrom/types"
	"github.com/notargets/meshrom/utils"
)

// snapshotMatrix builds n fields of length f from a few smooth modes with
// parameter dependent amplitudes.
func snapshotMatrix(n, f int) (X utils.Matrix) {
	X = utils.NewMatrix(n, f)
	for i := 0; i < n; i++ {
		mu := -1 + 2*float64(i)/float64(n-1)
		for j := 0; j < f; j++ {
			x := float64(j) / float64(f-1)
			val := (1.5+mu)*math.Sin(math.Pi*x) +
				mu*mu*math.Cos(3*math.Pi*x) +
				0.1*math.Exp(mu)*x*x +
				0.01*math.Sin(7*mu)*math.Sin(11*x)
			X.Set(i, j, val)
		}
	}
	return
}

func TestReducerBasis(t *testing.T) {
	X := snapshotMatrix(8, 50)
	pr := NewReducer(5, false)
	require.NoError(t, pr.Fit(X))
	B := pr.Basis()
	nr, nc := B.Dims()
	assert.Equal(t, 5, nr)
	assert.Equal(t, 50, nc)
	// Orthonormal rows
	G := B.MulT(B)
	for i := 0; i < nr; i++ {
		for j := 0; j < nr; j++ {
			want := 0.
			if i == j {
				want = 1
			}
			assert.InDelta(t, want, G.At(i, j), 1.e-10)
		}
	}
	// Descending, non negative singular values
	sv := pr.SingularValues()
	require.Len(t, sv, 5)
	for i := range sv {
		assert.GreaterOrEqual(t, sv[i], 0.)
		if i > 0 {
			assert.LessOrEqual(t, sv[i], sv[i-1])
		}
	}
	nsv := pr.NormalizedSingularValues()
	assert.Equal(t, 1., nsv[0])
	assert.InDelta(t, sv[3]/sv[0], nsv[3], 1.e-15)
	// The accessor hands out a copy
	sv[0] = -1
	assert.NotEqual(t, -1., pr.SingularValues()[0])
}

func reconstructionError(t *testing.T, X utils.Matrix, rank int, scale bool) float64 {
	pr := NewReducer(rank, scale)
	require.NoError(t, pr.Fit(X))
	C, err := pr.Reduce(X)
	require.NoError(t, err)
	_, k := C.Dims()
	assert.Equal(t, rank, k)
	R, err := pr.Expand(C)
	require.NoError(t, err)
	return R.Subtract(X).FrobeniusNorm() / X.FrobeniusNorm()
}

func TestReducerReconstructionMonotone(t *testing.T) {
	X := snapshotMatrix(7, 30)
	prev := math.Inf(1)
	for rank := 1; rank <= 7; rank++ {
		e := reconstructionError(t, X, rank, false)
		assert.LessOrEqualf(t, e, prev+1.e-12, "rank %d", rank)
		prev = e
	}
	assert.InDelta(t, 0., prev, 1.e-10)
	{ // More samples than features: full rank is min(n, f)
		X := snapshotMatrix(12, 4)
		assert.InDelta(t, 0., reconstructionError(t, X, 4, false), 1.e-10)
	}
}

func TestReducerScaledCoefficients(t *testing.T) {
	X := snapshotMatrix(6, 25)
	for rank := 1; rank <= 4; rank++ {
		assert.InDelta(t,
			reconstructionError(t, X, rank, false),
			reconstructionError(t, X, rank, true), 1.e-10)
	}
	pr := NewReducer(3, true)
	require.NoError(t, pr.Fit(X))
	C, err := pr.Reduce(X)
	require.NoError(t, err)
	// Standardized training coefficients have zero mean per mode
	for k := 0; k < 3; k++ {
		var sum float64
		for _, c := range C.Col(k) {
			sum += c
		}
		assert.InDelta(t, 0., sum, 1.e-9)
	}
	{ // A single snapshot cannot define a spread and falls back to unit scale
		one := utils.NewMatrix(1, 5, []float64{1, 2, 3, 4, 5})
		pr := NewReducer(1, true)
		require.NoError(t, pr.Fit(one))
		C, err := pr.Reduce(one)
		require.NoError(t, err)
		assert.InDelta(t, 0., C.At(0, 0), 1.e-12)
		R, err := pr.Expand(C)
		require.NoError(t, err)
		assert.InDelta(t, 0., R.Subtract(one).FrobeniusNorm(), 1.e-10)
	}
}

func TestReducerRankOne(t *testing.T) {
	X := snapshotMatrix(5, 20)
	pr := NewReducer(1, false)
	require.NoError(t, pr.Fit(X))
	C, err := pr.Reduce(X)
	require.NoError(t, err)
	R, err := pr.Expand(C)
	require.NoError(t, err)
	b := pr.Basis().Row(0)
	for i := 0; i < 5; i++ {
		x := X.Row(i)
		var dot float64
		for j := range x {
			dot += x[j] * b[j]
		}
		for j := range x {
			assert.InDelta(t, dot*b[j], R.At(i, j), 1.e-12)
		}
	}
}

func TestReducerErrors(t *testing.T) {
	X := snapshotMatrix(4, 10)
	{
		pr := NewReducer(5, false)
		assert.True(t, errors.Is(pr.Fit(X), types.ErrRankExceeded))
		assert.False(t, pr.Fitted())
		pr = NewReducer(0, false)
		assert.True(t, errors.Is(pr.Fit(X), types.ErrRankExceeded))
	}
	{
		pr := NewReducer(2, false)
		_, err := pr.Reduce(X)
		assert.True(t, errors.Is(err, types.ErrNotFitted))
		_, err = pr.Expand(utils.NewMatrix(1, 2))
		assert.True(t, errors.Is(err, types.ErrNotFitted))
	}
	{
		pr := NewReducer(2, false)
		require.NoError(t, pr.Fit(X))
		assert.True(t, errors.Is(pr.Fit(X), types.ErrAlreadyFitted))
		_, err := pr.Reduce(utils.NewMatrix(1, 9))
		assert.Error(t, err)
		_, err = pr.Expand(utils.NewMatrix(1, 3))
		assert.Error(t, err)
		assert.Panics(t, func() { pr.Basis().Set(0, 0, 1) })
	}
}
