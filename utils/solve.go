package utils

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrIllConditioned is returned by LUSolve when the system matrix is
// singular or its condition number exceeds mat.ConditionTolerance.
var ErrIllConditioned = errors.New("matrix is singular or ill conditioned")

// LUSolve solves m * X = B by LU factorization with partial pivoting.
func (m Matrix) LUSolve(B Matrix) (X Matrix, err error) {
	var (
		nr, nc   = m.Dims()
		nrB, ncB = B.Dims()
		lu       mat.LU
	)
	if nr != nc {
		err = fmt.Errorf("LUSolve needs a square matrix, got [%d,%d]", nr, nc)
		return
	}
	if nrB != nr {
		err = fmt.Errorf("LUSolve rhs has %d rows, matrix has %d", nrB, nr)
		return
	}
	if nr == 0 {
		err = fmt.Errorf("LUSolve called with an empty system")
		return
	}
	lu.Factorize(m.M)
	X = NewMatrix(nr, ncB)
	if err = lu.SolveTo(X.M, false, B.M); err != nil {
		var cond mat.Condition
		if errors.Is(err, mat.ErrSingular) || errors.As(err, &cond) {
			err = fmt.Errorf("%w: condition number %8.3g", ErrIllConditioned, lu.Cond())
		}
		X = Matrix{}
		return
	}
	return
}
