package rbf

import (
	"fmt"

	"github.com/notargets/meshrom/types"
	"github.com/notargets/meshrom/utils"
)

/*
Config selects the kernel expansion fit by an Interpolator.

	Radius divides every center distance before the kernel is evaluated.
	Degree is the degree of the polynomial tail: -1 none, 0 constant, 1 affine.
	Smoothing is added to the kernel diagonal, 0 gives exact interpolation.
*/
type Config struct {
	Kernel    Kernel
	Radius    float64
	Degree    int
	Smoothing float64
}

func DefaultConfig() Config {
	return Config{
		Kernel: ThinPlateSpline,
		Radius: 1,
		Degree: 1,
	}
}

func (cfg Config) Validate() (err error) {
	switch {
	case cfg.Radius <= 0:
		err = fmt.Errorf("RBF radius must be positive, have %v", cfg.Radius)
	case cfg.Degree < -1 || cfg.Degree > 1:
		err = fmt.Errorf("RBF polynomial degree must be -1, 0 or 1, have %d", cfg.Degree)
	case cfg.Degree < cfg.Kernel.MinDegree():
		err = fmt.Errorf("RBF kernel %s needs a polynomial degree of at least %d, have %d",
			cfg.Kernel, cfg.Kernel.MinDegree(), cfg.Degree)
	case cfg.Smoothing < 0:
		err = fmt.Errorf("RBF smoothing must be non-negative, have %v", cfg.Smoothing)
	}
	return
}

/*
Interpolator is a scattered data interpolant

	f(x) = sum_i w_i K(|x - c_i| / Radius) + sum_l a_l p_l(x)

The same type serves parameter -> coefficient regression (d_in = 1) and
mesh displacement (d_in = d_out = 3). Fit writes the state once; after
that Predict only reads it and may be called from several goroutines.
*/
type Interpolator struct {
	cfg     Config
	centers utils.Matrix // [m, d_in]
	weights utils.Matrix // [m, d_out]
	coeffs  utils.Matrix // [p, d_out] polynomial tail
	// input dimensions that vary over the centers, with the shift and scale
	// that map them into [-1, 1] for the polynomial tail
	active       utils.Index
	shift, scale []float64
	dIn, dOut    int
	fitted       bool
}

func NewInterpolator(cfg Config) *Interpolator {
	return &Interpolator{cfg: cfg}
}

func (rb *Interpolator) Config() Config                 { return rb.cfg }
func (rb *Interpolator) Fitted() bool                   { return rb.fitted }
func (rb *Interpolator) Centers() utils.Matrix          { return rb.centers }
func (rb *Interpolator) Weights() utils.Matrix          { return rb.weights }
func (rb *Interpolator) PolynomialCoeffs() utils.Matrix { return rb.coeffs }
func (rb *Interpolator) Dims() (dIn, dOut int)          { return rb.dIn, rb.dOut }

// Fit solves the interpolation system so that the expansion reproduces
// values at centers. Duplicate centers or an otherwise rank deficient
// system return an error wrapping types.ErrSingularSystem.
func (rb *Interpolator) Fit(centers, values utils.Matrix) (err error) {
	var (
		m, dIn   = centers.Dims()
		mV, dOut = values.Dims()
	)
	if rb.fitted {
		return types.ErrAlreadyFitted
	}
	if err = rb.cfg.Validate(); err != nil {
		return
	}
	if m == 0 || dIn == 0 {
		return fmt.Errorf("RBF fit needs at least one center")
	}
	if mV != m || dOut == 0 {
		return fmt.Errorf("RBF fit has %d centers but values are [%d,%d]", m, mV, dOut)
	}
	C := centers.Copy()
	D := utils.PairwiseDistance(C, C)
	for i := 0; i < m; i++ {
		for j := i + 1; j < m; j++ {
			if D.At(i, j) == 0 {
				return fmt.Errorf("%w: centers %d and %d coincide", types.ErrSingularSystem, i, j)
			}
		}
	}
	active, shift, scale := polynomialFrame(C)
	P := polynomialMatrix(C, rb.cfg.Degree, active, shift, scale)
	_, p := P.Dims()
	if m < p {
		return fmt.Errorf("%w: %d centers cannot determine %d polynomial terms",
			types.ErrSingularSystem, m, p)
	}

	// Saddle point system [K P; P^T 0] [w; a] = [values; 0]
	N := m + p
	A := utils.NewMatrix(N, N)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			A.Set(i, j, rb.cfg.Kernel.Eval(D.At(i, j)/rb.cfg.Radius))
		}
		A.Set(i, i, A.At(i, i)+rb.cfg.Smoothing)
		for l := 0; l < p; l++ {
			A.Set(i, m+l, P.At(i, l))
			A.Set(m+l, i, P.At(i, l))
		}
	}
	B := utils.NewMatrix(N, dOut)
	for i := 0; i < m; i++ {
		B.SetRow(i, values.Row(i))
	}
	var X utils.Matrix
	if X, err = A.LUSolve(B); err != nil {
		return fmt.Errorf("%w: %v", types.ErrSingularSystem, err)
	}

	rb.centers = C.SetReadOnly("RBF centers")
	weights := X.SliceRows(utils.NewRange(0, m-1))
	rb.weights = weights.SetReadOnly("RBF weights")
	coeffs := X.SliceRows(utils.NewRange(m, N-1))
	rb.coeffs = coeffs.SetReadOnly("RBF polynomial coefficients")
	rb.active, rb.shift, rb.scale = active, shift, scale
	rb.dIn, rb.dOut = dIn, dOut
	rb.fitted = true
	return
}

// Predict evaluates the expansion at each row of query into a [q, dOut]
// matrix. Points far from the centers are extrapolated. An empty query gives
// a 0x0 matrix, as every empty utils.Matrix is; the output width is always
// available from Dims.
func (rb *Interpolator) Predict(query utils.Matrix) (R utils.Matrix, err error) {
	var (
		q, d = query.Dims()
	)
	if !rb.fitted {
		err = fmt.Errorf("RBF predict: %w", types.ErrNotFitted)
		return
	}
	if q == 0 {
		R = utils.NewMatrix(0, 0)
		return
	}
	if d != rb.dIn {
		err = fmt.Errorf("RBF predict: query has %d columns, model was fit with %d", d, rb.dIn)
		return
	}
	radius := rb.cfg.Radius
	Kq := utils.PairwiseDistance(query, rb.centers).Apply(func(r float64) float64 {
		return rb.cfg.Kernel.Eval(r / radius)
	})
	R = Kq.Mul(rb.weights)
	if _, p := rb.coeffs.Dims(); p != 0 {
		Pq := polynomialMatrix(query, rb.cfg.Degree, rb.active, rb.shift, rb.scale)
		tail := Pq.Mul(rb.coeffs)
		R.M.Add(R.M, tail.M)
	}
	return
}

// polynomialFrame finds the input dimensions that vary over the centers and
// the affine map taking each into [-1, 1]. A constant dimension cannot
// support a polynomial term, its column would make the system singular.
func polynomialFrame(C utils.Matrix) (active utils.Index, shift, scale []float64) {
	var (
		_, dIn = C.Dims()
	)
	for j := 0; j < dIn; j++ {
		lo, hi := C.ColumnRange(j)
		if hi > lo {
			active = append(active, j)
			shift = append(shift, 0.5*(hi+lo))
			scale = append(scale, 0.5*(hi-lo))
		}
	}
	return
}

func polynomialMatrix(X utils.Matrix, degree int, active utils.Index, shift, scale []float64) (P utils.Matrix) {
	var (
		n, _ = X.Dims()
		p    int
	)
	switch degree {
	case 0:
		p = 1
	case 1:
		p = 1 + len(active)
	}
	P = utils.NewMatrix(n, p)
	if p == 0 {
		return
	}
	for i := 0; i < n; i++ {
		P.Set(i, 0, 1)
		if degree == 1 {
			for l, j := range active {
				P.Set(i, l+1, (X.At(i, j)-shift[l])/scale[l])
			}
		}
	}
	return
}
