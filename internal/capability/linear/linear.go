// Package linear provides the least-squares attribution capability: it fits a
// linear model of the target over the candidate features and reports, per
// candidate, how far each feature moves the prediction from the set average.
package linear

import (
	"fmt"
)

// ridge keeps the normal equations solvable on degenerate inputs (a single
// candidate, collinear features) without visibly perturbing regular fits.
const ridge = 1e-9

// Attributor fits an ordinary least-squares model with an intercept.
type Attributor struct{}

// New returns the least-squares attributor.
func New() *Attributor {
	return &Attributor{}
}

// Attribute fits target ~ features and returns one contribution per feature
// per sample: coefficient * (value - feature mean). Contributions are additive
// around the average prediction, matching interventional attribution for
// linear models.
func (a *Attributor) Attribute(features [][]float64, target []float64) ([][]float64, error) {
	n := len(features)
	if n == 0 {
		return nil, nil
	}
	if len(target) != n {
		return nil, fmt.Errorf("feature rows (%d) and target length (%d) differ", n, len(target))
	}

	k := len(features[0])
	for i, row := range features {
		if len(row) != k {
			return nil, fmt.Errorf("feature row %d has %d values, want %d", i, len(row), k)
		}
	}
	if k == 0 {
		return make([][]float64, n), nil
	}

	coefs, err := fit(features, target, k)
	if err != nil {
		return nil, err
	}

	means := make([]float64, k)
	for _, row := range features {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(n)
	}

	contributions := make([][]float64, n)
	for i, row := range features {
		contributions[i] = make([]float64, k)
		for j, v := range row {
			contributions[i][j] = coefs[j] * (v - means[j])
		}
	}

	return contributions, nil
}

// fit solves the normal equations for [intercept, coef...] and returns the
// feature coefficients.
func fit(features [][]float64, target []float64, k int) ([]float64, error) {
	dim := k + 1

	// Build X'X and X'y with an implicit leading 1 column for the intercept.
	xtx := make([][]float64, dim)
	for i := range xtx {
		xtx[i] = make([]float64, dim)
	}
	xty := make([]float64, dim)

	for i, row := range features {
		aug := append([]float64{1}, row...)
		for r := 0; r < dim; r++ {
			for c := 0; c < dim; c++ {
				xtx[r][c] += aug[r] * aug[c]
			}
			xty[r] += aug[r] * target[i]
		}
	}

	for d := 0; d < dim; d++ {
		xtx[d][d] += ridge
	}

	solution, err := solve(xtx, xty)
	if err != nil {
		return nil, err
	}
	return solution[1:], nil
}

// solve runs Gaussian elimination with partial pivoting.
func solve(m [][]float64, v []float64) ([]float64, error) {
	dim := len(v)

	for col := 0; col < dim; col++ {
		pivot := col
		for r := col + 1; r < dim; r++ {
			if abs(m[r][col]) > abs(m[pivot][col]) {
				pivot = r
			}
		}
		if abs(m[pivot][col]) == 0 {
			return nil, fmt.Errorf("singular feature matrix")
		}
		m[col], m[pivot] = m[pivot], m[col]
		v[col], v[pivot] = v[pivot], v[col]

		for r := col + 1; r < dim; r++ {
			factor := m[r][col] / m[col][col]
			for c := col; c < dim; c++ {
				m[r][c] -= factor * m[col][c]
			}
			v[r] -= factor * v[col]
		}
	}

	out := make([]float64, dim)
	for r := dim - 1; r >= 0; r-- {
		sum := v[r]
		for c := r + 1; c < dim; c++ {
			sum -= m[r][c] * out[c]
		}
		out[r] = sum / m[r][r]
	}
	return out, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
