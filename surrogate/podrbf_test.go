package surrogate

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/meshrom/pod"
	"github.com/notargets/meshrom/rbf"
	"github.com/notargets/meshrom/types"
	"github.com/notargets/meshrom/utils"
)

func field(mu float64, f int) (v []float64) {
	v = make([]float64, f)
	for j := range v {
		x := float64(j) / float64(f-1)
		v[j] = (2+mu)*math.Sin(math.Pi*x) + mu*mu*math.Cos(2*math.Pi*x) + 0.05*math.Sin(5*mu)*x
	}
	return
}

func trainingSet(mus []float64, f int) (P, X utils.Matrix) {
	P = utils.NewMatrix(len(mus), 1, append([]float64{}, mus...))
	X = utils.NewMatrix(len(mus), f)
	for i, mu := range mus {
		X.SetRow(i, field(mu, f))
	}
	return
}

var trainingMus = []float64{-1, -0.7, -0.35, 0, 0.2, 0.55, 0.8, 1}

func TestPODRBFNotFitted(t *testing.T) {
	s := New(2, rbf.DefaultConfig())
	_, err := s.Predict(0.3)
	assert.True(t, errors.Is(err, types.ErrNotFitted))
	_, err = s.PredictBatch(utils.NewMatrix(2, 1))
	assert.True(t, errors.Is(err, types.ErrNotFitted))
	assert.False(t, s.Fitted())
}

func TestPODRBFRankOne(t *testing.T) {
	P, X := trainingSet(trainingMus, 40)
	s := New(1, rbf.DefaultConfig())
	require.NoError(t, s.Fit(P, X))
	b := s.Reducer().Basis().Row(0)
	for i, mu := range trainingMus {
		pred, err := s.Predict(mu)
		require.NoError(t, err)
		x := X.Row(i)
		var dot float64
		for j := range x {
			dot += x[j] * b[j]
		}
		for j := range x {
			// the dominant mode projection, not the full field
			assert.InDelta(t, dot*b[j], pred[j], 1.e-6)
		}
	}
}

func TestPODRBFErrorAttribution(t *testing.T) {
	// At training parameters the RBF is exact, so the remaining error is the
	// POD truncation error of the same rank.
	P, X := trainingSet(trainingMus, 60)
	for rank := 1; rank <= len(trainingMus); rank++ {
		s := New(rank, rbf.DefaultConfig())
		require.NoError(t, s.Fit(P, X))
		pred, err := s.PredictBatch(P)
		require.NoError(t, err)

		pr := pod.NewReducer(rank, false)
		require.NoError(t, pr.Fit(X))
		C, err := pr.Reduce(X)
		require.NoError(t, err)
		proj, err := pr.Expand(C)
		require.NoError(t, err)

		assert.InDeltaf(t, 0., pred.Subtract(proj).FrobeniusNorm(), 1.e-6, "rank %d", rank)
	}
	{ // Full rank reproduces the training snapshots
		s := New(len(trainingMus), rbf.DefaultConfig())
		require.NoError(t, s.Fit(P, X))
		pred, err := s.PredictBatch(P)
		require.NoError(t, err)
		assert.InDelta(t, 0., pred.Subtract(X).FrobeniusNorm()/X.FrobeniusNorm(), 1.e-6)
	}
}

func TestPODRBFInterpolates(t *testing.T) {
	P, X := trainingSet(trainingMus, 60)
	s := New(4, rbf.DefaultConfig())
	require.NoError(t, s.Fit(P, X))
	mu := 0.4
	pred, err := s.Predict(mu)
	require.NoError(t, err)
	want := field(mu, 60)
	var num, den float64
	for j := range want {
		num += (pred[j] - want[j]) * (pred[j] - want[j])
		den += want[j] * want[j]
	}
	assert.Less(t, math.Sqrt(num/den), 1.e-2)
	{ // Scaling the coefficients does not change the prediction
		u := New(4, rbf.DefaultConfig()).WithoutCoefficientScaling()
		require.NoError(t, u.Fit(P, X))
		predU, err := u.Predict(mu)
		require.NoError(t, err)
		for j := range pred {
			assert.InDelta(t, pred[j], predU[j], 1.e-8)
		}
	}
}

func TestPODRBFFitFailures(t *testing.T) {
	P, X := trainingSet(trainingMus, 20)
	{
		s := New(len(trainingMus)+1, rbf.DefaultConfig())
		err := s.Fit(P, X)
		assert.True(t, errors.Is(err, types.ErrRankExceeded))
		assert.False(t, s.Fitted())
		assert.Nil(t, s.Reducer())
	}
	{
		dup := []float64{0, 0.5, 0.5, 1}
		Pd, Xd := trainingSet(dup, 20)
		s := New(2, rbf.DefaultConfig())
		err := s.Fit(Pd, Xd)
		assert.True(t, errors.Is(err, types.ErrSingularSystem))
		assert.False(t, s.Fitted())
		assert.Nil(t, s.Reducer())
		_, err = s.Predict(0.5)
		assert.True(t, errors.Is(err, types.ErrNotFitted))
	}
	{
		s := New(2, rbf.DefaultConfig())
		assert.Error(t, s.Fit(utils.NewMatrix(3, 1), X))
		require.NoError(t, s.Fit(P, X))
		assert.True(t, errors.Is(s.Fit(P, X), types.ErrAlreadyFitted))
		_, err := s.PredictBatch(utils.NewMatrix(1, 2))
		assert.Error(t, err)
	}
}
