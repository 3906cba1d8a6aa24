package stage

import (
	"context"
	"strings"

	"github.com/hiresense/hiresense/internal/table"
)

// feedbackStage folds grade and persona into a composite score and applies
// the explanation-driven adjustment.
type feedbackStage struct{}

// NewFeedback returns the feedback adjustment stage.
func NewFeedback() Stage {
	return &feedbackStage{}
}

func (s *feedbackStage) Name() string { return "feedback" }

func (s *feedbackStage) Boundaries() []Boundary {
	return []Boundary{{
		Input:    ArtifactExplained,
		Output:   ArtifactAdjusted,
		Requires: []string{table.ColGradeScore, table.ColPersonaFitScore, table.ColExplanation},
		Produces: []string{table.ColCompositeScore, table.ColFeedbackAdjustment, table.ColUpdatedScore},
	}}
}

func (s *feedbackStage) Run(ctx context.Context, deps *Deps) (Result, error) {
	tbl, err := table.ReadFile(deps.WS.Path(ArtifactExplained))
	if err != nil {
		return Result{}, err
	}

	for _, col := range []string{table.ColCompositeScore, table.ColFeedbackAdjustment, table.ColUpdatedScore} {
		if err := tbl.AddColumn(col); err != nil {
			return Result{}, err
		}
	}

	for _, row := range tbl.Rows {
		record, err := table.DecodeCandidate(row)
		if err != nil {
			return Result{}, err
		}

		composite := Composite(record.GradeScore, record.PersonaFitScore)
		adjustment := Adjustment(record.Explanation)

		row[table.ColCompositeScore] = table.FormatScore(composite)
		row[table.ColFeedbackAdjustment] = table.FormatScore(adjustment)
		row[table.ColUpdatedScore] = table.FormatScore(composite + adjustment)
	}

	if err := tbl.WriteFile(deps.WS.Path(ArtifactAdjusted)); err != nil {
		return Result{}, err
	}
	return Result{In: tbl.Len(), Out: tbl.Len()}, nil
}

// Composite weighs the semantic grade at 0.6 and persona fit at 0.4.
func Composite(grade, persona float64) float64 {
	return 0.6*grade + 0.4*persona
}

// Adjustment rewards explanations that call out a strong match and applies a
// small penalty otherwise.
func Adjustment(explanation string) float64 {
	if strings.Contains(strings.ToLower(explanation), "strong match") {
		return 0.05
	}
	return -0.02
}
