package stage

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/hiresense/hiresense/internal/table"
)

// explainStage attributes each candidate's score to its grade and persona
// features and renders the attribution as a sentence.
type explainStage struct{}

// NewExplain returns the explainability stage.
func NewExplain() Stage {
	return &explainStage{}
}

func (s *explainStage) Name() string { return "explain" }

func (s *explainStage) Boundaries() []Boundary {
	return []Boundary{{
		Input:    ArtifactPersona,
		Output:   ArtifactExplained,
		Requires: []string{table.ColCandidateID, table.ColGradeScore, table.ColPersonaFitScore},
		Produces: []string{table.ColExplanation},
	}}
}

func (s *explainStage) Run(ctx context.Context, deps *Deps) (Result, error) {
	tbl, err := table.ReadFile(deps.WS.Path(ArtifactPersona))
	if err != nil {
		return Result{}, err
	}
	if err := tbl.AddColumn(table.ColExplanation); err != nil {
		return Result{}, err
	}

	features := make([][]float64, 0, tbl.Len())
	target := make([]float64, 0, tbl.Len())
	ids := make([]string, 0, tbl.Len())

	for _, row := range tbl.Rows {
		record, err := table.DecodeCandidate(row)
		if err != nil {
			return Result{}, err
		}
		features = append(features, []float64{record.GradeScore, record.PersonaFitScore})
		target = append(target, Composite(record.GradeScore, record.PersonaFitScore))
		ids = append(ids, record.CandidateID)
	}

	contributions, err := deps.Caps.Attributor.Attribute(features, target)
	if err != nil {
		return Result{}, fmt.Errorf("attributing scores: %w", err)
	}

	for i, row := range tbl.Rows {
		row[table.ColExplanation] = RenderExplanation(ids[i], contributions[i])
	}

	if err := tbl.WriteFile(deps.WS.Path(ArtifactExplained)); err != nil {
		return Result{}, err
	}
	return Result{In: tbl.Len(), Out: tbl.Len()}, nil
}

var featureNames = []string{table.ColGradeScore, table.ColPersonaFitScore}

// RenderExplanation formats per-feature contributions as a sentence, one
// clause per feature.
func RenderExplanation(candidateID string, contributions []float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Candidate '%s': ", candidateID)

	for i, c := range contributions {
		direction := "increases"
		if c < 0 {
			direction = "decreases"
		}
		fmt.Fprintf(&b, "%s %s score by %.2f; ", featureNames[i], direction, math.Abs(c))
	}
	return b.String()
}
