package dataset

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// RelativeEpsilon keeps the pointwise relative error finite where the
// reference field vanishes, e.g. on no-slip walls.
const RelativeEpsilon = 1.e-13

// RelativeError is the mean over points of |pred - ref| / (|ref| + 1e-13).
func RelativeError(pred, ref []float64) (e float64, err error) {
	if err = checkLengths(pred, ref); err != nil {
		return
	}
	rel := make([]float64, len(ref))
	for i := range ref {
		rel[i] = math.Abs(pred[i]-ref[i]) / (math.Abs(ref[i]) + RelativeEpsilon)
	}
	return stat.Mean(rel, nil), nil
}

// MSE is the mean squared error of pred against ref.
func MSE(pred, ref []float64) (e float64, err error) {
	if err = checkLengths(pred, ref); err != nil {
		return
	}
	diff := make([]float64, len(ref))
	floats.SubTo(diff, pred, ref)
	return floats.Dot(diff, diff) / float64(len(diff)), nil
}

func checkLengths(pred, ref []float64) error {
	if len(pred) != len(ref) {
		return fmt.Errorf("fields differ in length, %d != %d", len(pred), len(ref))
	}
	if len(ref) == 0 {
		return fmt.Errorf("empty fields")
	}
	return nil
}
