package linear

import (
	"math"
	"testing"
)

func TestAttributeRecoversLinearWeights(t *testing.T) {
	features := [][]float64{
		{0.9, 0.2},
		{0.4, 0.8},
		{0.1, 0.5},
		{0.7, 0.6},
	}
	target := make([]float64, len(features))
	for i, row := range features {
		target[i] = 0.6*row[0] + 0.4*row[1]
	}

	contributions, err := New().Attribute(features, target)
	if err != nil {
		t.Fatalf("attribute: %v", err)
	}

	// contribution = coef * (x - mean); recompute with the known weights.
	means := []float64{(0.9 + 0.4 + 0.1 + 0.7) / 4, (0.2 + 0.8 + 0.5 + 0.6) / 4}
	for i, row := range features {
		wantGrade := 0.6 * (row[0] - means[0])
		wantPersona := 0.4 * (row[1] - means[1])
		if math.Abs(contributions[i][0]-wantGrade) > 1e-4 {
			t.Fatalf("sample %d grade contribution = %v, want %v", i, contributions[i][0], wantGrade)
		}
		if math.Abs(contributions[i][1]-wantPersona) > 1e-4 {
			t.Fatalf("sample %d persona contribution = %v, want %v", i, contributions[i][1], wantPersona)
		}
	}
}

func TestAttributeContributionsSumToCenteredPrediction(t *testing.T) {
	features := [][]float64{{0.2, 0.9}, {0.8, 0.1}, {0.5, 0.5}}
	target := []float64{0.48, 0.52, 0.5}

	contributions, err := New().Attribute(features, target)
	if err != nil {
		t.Fatalf("attribute: %v", err)
	}

	var meanTarget float64
	for _, y := range target {
		meanTarget += y
	}
	meanTarget /= float64(len(target))

	for i, y := range target {
		sum := contributions[i][0] + contributions[i][1]
		if math.Abs(sum-(y-meanTarget)) > 1e-4 {
			t.Fatalf("sample %d contributions sum %v, want %v", i, sum, y-meanTarget)
		}
	}
}

func TestAttributeSingleCandidate(t *testing.T) {
	contributions, err := New().Attribute([][]float64{{0.6, 0.4}}, []float64{0.52})
	if err != nil {
		t.Fatalf("attribute: %v", err)
	}
	// A single sample sits exactly at the mean, so contributions vanish.
	if contributions[0][0] != 0 || contributions[0][1] != 0 {
		t.Fatalf("expected zero contributions, got %v", contributions[0])
	}
}

func TestAttributeEmptySet(t *testing.T) {
	contributions, err := New().Attribute(nil, nil)
	if err != nil {
		t.Fatalf("attribute: %v", err)
	}
	if contributions != nil {
		t.Fatalf("expected nil contributions for empty set")
	}
}

func TestAttributeShapeMismatch(t *testing.T) {
	if _, err := New().Attribute([][]float64{{1, 2}}, []float64{1, 2}); err == nil {
		t.Fatalf("expected length mismatch error")
	}
	if _, err := New().Attribute([][]float64{{1, 2}, {1}}, []float64{1, 2}); err == nil {
		t.Fatalf("expected ragged feature error")
	}
}
