package surrogate

import (
	"fmt"
	"log/slog"

	"github.com/notargets/meshrom/pod"
	"github.com/notargets/meshrom/rbf"
	"github.com/notargets/meshrom/types"
	"github.com/notargets/meshrom/utils"
)

/*
PODRBF predicts a full field for a new parameter value. Fit compresses the
training snapshots with a POD basis of the requested rank and interpolates
the reduced coefficients against the parameters with an RBF. Predict runs
the RBF and expands the coefficients back to the full field.

The error of a prediction is the POD truncation error, controlled by rank,
plus the RBF interpolation error, controlled by the training parameters.
*/
type PODRBF struct {
	rank              int
	cfg               rbf.Config
	scaleCoefficients bool
	reducer           *pod.Reducer
	interp            *rbf.Interpolator
	fitted            bool
}

func New(rank int, cfg rbf.Config) *PODRBF {
	return &PODRBF{
		rank:              rank,
		cfg:               cfg,
		scaleCoefficients: true,
	}
}

// WithoutCoefficientScaling disables standardization of the POD coefficients
// before the RBF fit.
func (s *PODRBF) WithoutCoefficientScaling() *PODRBF {
	s.scaleCoefficients = false
	return s
}

func (s *PODRBF) Rank() int                       { return s.rank }
func (s *PODRBF) Fitted() bool                    { return s.fitted }
func (s *PODRBF) Reducer() *pod.Reducer           { return s.reducer }
func (s *PODRBF) Interpolator() *rbf.Interpolator { return s.interp }

// Fit takes parameters as [n, 1] and snapshots as [n, f]. Both stages run on
// fresh components; the surrogate keeps them only if both succeed.
func (s *PODRBF) Fit(parameters, snapshots utils.Matrix) (err error) {
	var (
		np, _ = parameters.Dims()
		ns, f = snapshots.Dims()
	)
	if s.fitted {
		return types.ErrAlreadyFitted
	}
	if np != ns {
		return fmt.Errorf("surrogate fit: %d parameters for %d snapshots", np, ns)
	}
	reducer := pod.NewReducer(s.rank, s.scaleCoefficients)
	if err = reducer.Fit(snapshots); err != nil {
		return fmt.Errorf("surrogate fit: %w", err)
	}
	var C utils.Matrix
	if C, err = reducer.Reduce(snapshots); err != nil {
		return fmt.Errorf("surrogate fit: %w", err)
	}
	interp := rbf.NewInterpolator(s.cfg)
	if err = interp.Fit(parameters, C); err != nil {
		return fmt.Errorf("surrogate fit: %w", err)
	}
	s.reducer, s.interp = reducer, interp
	s.fitted = true
	slog.Debug("fit POD-RBF surrogate", "rank", s.rank, "samples", ns, "fieldSize", f,
		"kernel", s.cfg.Kernel.String())
	return
}

// PredictBatch maps [q, 1] parameters to [q, f] fields.
func (s *PODRBF) PredictBatch(parameters utils.Matrix) (X utils.Matrix, err error) {
	if !s.fitted {
		err = fmt.Errorf("surrogate predict: %w", types.ErrNotFitted)
		return
	}
	var C utils.Matrix
	if C, err = s.interp.Predict(parameters); err != nil {
		return
	}
	return s.reducer.Expand(C)
}

// Predict returns the field for a single scalar parameter.
func (s *PODRBF) Predict(mu float64) (field []float64, err error) {
	var X utils.Matrix
	if X, err = s.PredictBatch(utils.NewMatrix(1, 1, []float64{mu})); err != nil {
		return
	}
	field = X.Row(0)
	return
}
