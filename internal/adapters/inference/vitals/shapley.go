package vitals

import (
	"fmt"
	"math/bits"
)

// PredictFunc evaluates the regressor on a batch of raw feature vectors.
type PredictFunc func(rows [][]float64) ([]float64, error)

// maxExactFeatures bounds the coalition enumeration (2^n model rows).
const maxExactFeatures = 16

// Explanation is an exact Shapley decomposition of one prediction against a
// baseline: Base + sum(Values) == Prediction up to float rounding.
type Explanation struct {
	Base       float64
	Prediction float64
	Values     []float64 // per feature, input order
}

// Explain computes exact baseline Shapley values of x. Absent features take
// their baseline value. All 2^n coalitions are evaluated in a single batch.
func Explain(predict PredictFunc, x, baseline []float64) (Explanation, error) {
	n := len(x)
	if n == 0 || n != len(baseline) {
		return Explanation{}, fmt.Errorf("%w: %d inputs, %d baseline values", ErrFeatureCount, n, len(baseline))
	}
	if n > maxExactFeatures {
		return Explanation{}, fmt.Errorf("%w: %d features exceeds exact limit %d", ErrFeatureCount, n, maxExactFeatures)
	}

	full := 1 << n
	rows := make([][]float64, full)
	for mask := range full {
		row := make([]float64, n)
		for j := range n {
			if mask&(1<<j) != 0 {
				row[j] = x[j]
			} else {
				row[j] = baseline[j]
			}
		}
		rows[mask] = row
	}

	vals, err := predict(rows)
	if err != nil {
		return Explanation{}, fmt.Errorf("%w: %w", ErrPrediction, err)
	}
	if len(vals) != full {
		return Explanation{}, fmt.Errorf("%w: got %d outputs for %d rows", ErrPrediction, len(vals), full)
	}

	weights := coalitionWeights(n)
	phi := make([]float64, n)
	for i := range n {
		bit := 1 << i
		for mask := range full {
			if mask&bit != 0 {
				continue
			}
			phi[i] += weights[bits.OnesCount(uint(mask))] * (vals[mask|bit] - vals[mask])
		}
	}
	return Explanation{Base: vals[0], Prediction: vals[full-1], Values: phi}, nil
}

// coalitionWeights returns |S|!(n-|S|-1)!/n! indexed by |S|.
func coalitionWeights(n int) []float64 {
	fact := make([]float64, n+1)
	fact[0] = 1
	for i := 1; i <= n; i++ {
		fact[i] = fact[i-1] * float64(i)
	}
	w := make([]float64, n)
	for s := range n {
		w[s] = fact[s] * fact[n-s-1] / fact[n]
	}
	return w
}
