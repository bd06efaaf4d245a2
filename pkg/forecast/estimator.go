package forecast

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Estimator predicts solar panel output as a percentage of rated output.
// Implementations must be safe for concurrent use.
type Estimator interface {
	Predict(hour int, cloudCover, radiation float64) (float64, error)
}

// EstimatorFunc adapts a function to the Estimator interface.
type EstimatorFunc func(hour int, cloudCover, radiation float64) (float64, error)

// Predict calls f.
func (f EstimatorFunc) Predict(hour int, cloudCover, radiation float64) (float64, error) {
	return f(hour, cloudCover, radiation)
}

const (
	trainingSamples = 4000
	trainingSeed    = 42

	// peak clear-sky irradiance used to synthesize training data
	theoreticalPeakRadiation = 1100.0
	// standard test conditions irradiance, 100% rated output
	stcRadiation = 1000.0
)

// RegressionEstimator is an ordinary least squares model over
// [1, radiation, radiation², cloud cover, altitude factor] fitted once on
// synthetic clear-sky data.
type RegressionEstimator struct {
	coef *mat.VecDense
}

// NewRegressionEstimator fits the model on deterministic synthetic samples.
func NewRegressionEstimator() (*RegressionEstimator, error) {
	return fitRegression(trainingSamples, trainingSeed)
}

func fitRegression(n int, seed uint64) (*RegressionEstimator, error) {
	if n < numFeatures {
		return nil, fmt.Errorf("need at least %d samples, got %d", numFeatures, n)
	}
	src := rand.NewPCG(seed, 0)
	rng := rand.New(src)
	cloud := distuv.Uniform{Min: 0, Max: 100, Src: src}
	noise := distuv.Normal{Mu: 0, Sigma: 50, Src: src}

	x := mat.NewDense(n, numFeatures, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		hour := rng.IntN(24)
		c := cloud.Rand()

		theoretical := altitudeFactor(hour) * theoreticalPeakRadiation
		radiation := math.Max(0, theoretical*(1-0.75*c/100)+noise.Rand())
		efficiency := clamp(radiation/stcRadiation*100, 0, 100)

		x.SetRow(i, features(hour, c, radiation))
		y.SetVec(i, efficiency)
	}

	var coef mat.VecDense
	if err := coef.SolveVec(x, y); err != nil {
		return nil, fmt.Errorf("failed to fit regression: %w", err)
	}
	return &RegressionEstimator{coef: &coef}, nil
}

const numFeatures = 5

func features(hour int, cloudCover, radiation float64) []float64 {
	return []float64{1, radiation, radiation * radiation / stcRadiation, cloudCover, altitudeFactor(hour)}
}

// Predict returns the estimated output percentage clamped to [0,100]. It is
// always 0 while the sun is at or below the horizon.
func (e *RegressionEstimator) Predict(hour int, cloudCover, radiation float64) (float64, error) {
	if e == nil || e.coef == nil {
		return 0, errors.New("regression estimator is not fitted")
	}
	if math.IsNaN(cloudCover) || math.IsNaN(radiation) {
		return 0, fmt.Errorf("invalid features: cloud cover %v, radiation %v", cloudCover, radiation)
	}
	if Altitude(hour) <= 0 {
		return 0, nil
	}
	x := mat.NewVecDense(numFeatures, features(hour, cloudCover, radiation))
	return clamp(mat.Dot(e.coef, x), 0, 100), nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
