package pod

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/notargets/meshrom/types"
	"github.com/notargets/meshrom/utils"
)

/*
Reducer computes a rank k Proper Orthogonal Decomposition of a snapshot
matrix with one snapshot per row. The basis rows are the leading right
singular vectors, so for a snapshot x the coefficients are c = x B^T and
the reconstruction is c B.

When scaleCoefficients is set, coefficients are standardized per mode with
the mean and standard deviation seen during Fit. Expand undoes it, so
Expand(Reduce(x)) is the same projection either way.
*/
type Reducer struct {
	rank              int
	scaleCoefficients bool
	basis             utils.Matrix // [k, f]
	singularValues    []float64
	mean, std         []float64
	nFeatures         int
	fitted            bool
}

func NewReducer(rank int, scaleCoefficients bool) *Reducer {
	return &Reducer{
		rank:              rank,
		scaleCoefficients: scaleCoefficients,
	}
}

func (pr *Reducer) Rank() int                { return pr.rank }
func (pr *Reducer) Fitted() bool             { return pr.fitted }
func (pr *Reducer) Basis() utils.Matrix      { return pr.basis }
func (pr *Reducer) ScalesCoefficients() bool { return pr.scaleCoefficients }

// SingularValues returns the retained singular values in descending order.
func (pr *Reducer) SingularValues() []float64 {
	return append([]float64{}, pr.singularValues...)
}

// NormalizedSingularValues divides the retained singular values by the
// largest one, giving the relative energy carried by each mode.
func (pr *Reducer) NormalizedSingularValues() (sv []float64) {
	sv = pr.SingularValues()
	if len(sv) == 0 || sv[0] == 0 {
		return
	}
	smax := sv[0]
	for i := range sv {
		sv[i] /= smax
	}
	return
}

func (pr *Reducer) Fit(snapshots utils.Matrix) (err error) {
	var (
		n, f = snapshots.Dims()
		svd  mat.SVD
		V    mat.Dense
	)
	if pr.fitted {
		return types.ErrAlreadyFitted
	}
	if pr.rank < 1 || pr.rank > min(n, f) {
		return fmt.Errorf("%w: rank %d, snapshot matrix is [%d,%d]",
			types.ErrRankExceeded, pr.rank, n, f)
	}
	if ok := svd.Factorize(snapshots.M, mat.SVDThin); !ok {
		return fmt.Errorf("POD: SVD of the [%d,%d] snapshot matrix did not converge", n, f)
	}
	values := svd.Values(nil)
	svd.VTo(&V) // [f, min(n,f)]

	basis := utils.NewMatrix(pr.rank, f)
	for k := 0; k < pr.rank; k++ {
		for j := 0; j < f; j++ {
			basis.Set(k, j, V.At(j, k))
		}
	}

	var mean, std []float64
	if pr.scaleCoefficients {
		C := snapshots.MulT(basis)
		mean, std = make([]float64, pr.rank), make([]float64, pr.rank)
		for k := 0; k < pr.rank; k++ {
			mean[k], std[k] = stat.MeanStdDev(C.Col(k), nil)
			if n < 2 || math.IsNaN(std[k]) || std[k] < utils.NODETOL {
				std[k] = 1
			}
		}
	}

	pr.basis = basis.SetReadOnly("POD basis")
	pr.singularValues = values[:pr.rank]
	pr.mean, pr.std = mean, std
	pr.nFeatures = f
	pr.fitted = true
	return
}

// Reduce projects each snapshot row onto the basis, giving [n, k].
func (pr *Reducer) Reduce(snapshots utils.Matrix) (C utils.Matrix, err error) {
	var (
		n, f = snapshots.Dims()
	)
	if !pr.fitted {
		err = fmt.Errorf("POD reduce: %w", types.ErrNotFitted)
		return
	}
	if n == 0 {
		C = utils.NewMatrix(0, 0)
		return
	}
	if f != pr.nFeatures {
		err = fmt.Errorf("POD reduce: snapshots have %d columns, basis has %d", f, pr.nFeatures)
		return
	}
	C = snapshots.MulT(pr.basis)
	if pr.scaleCoefficients {
		for i := 0; i < n; i++ {
			for k := 0; k < pr.rank; k++ {
				C.Set(i, k, (C.At(i, k)-pr.mean[k])/pr.std[k])
			}
		}
	}
	return
}

// Expand maps [n, k] coefficients back to [n, f] fields. It inverts Reduce
// only up to the truncation of the basis.
func (pr *Reducer) Expand(coefficients utils.Matrix) (X utils.Matrix, err error) {
	var (
		n, k = coefficients.Dims()
	)
	if !pr.fitted {
		err = fmt.Errorf("POD expand: %w", types.ErrNotFitted)
		return
	}
	if n == 0 {
		X = utils.NewMatrix(0, 0)
		return
	}
	if k != pr.rank {
		err = fmt.Errorf("POD expand: coefficients have %d columns, rank is %d", k, pr.rank)
		return
	}
	C := coefficients
	if pr.scaleCoefficients {
		C = coefficients.Copy()
		for i := 0; i < n; i++ {
			for j := 0; j < pr.rank; j++ {
				C.Set(i, j, C.At(i, j)*pr.std[j]+pr.mean[j])
			}
		}
	}
	X = C.Mul(pr.basis)
	return
}
