package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/hiresense/hiresense/internal/capability"
	"github.com/hiresense/hiresense/internal/table"
	"github.com/hiresense/hiresense/internal/workspace"
)

// personaStage blends CV sentiment with soft-skill vocabulary coverage into a
// persona_fit_score.
type personaStage struct{}

// NewPersona returns the persona fit evaluator stage.
func NewPersona() Stage {
	return &personaStage{}
}

func (s *personaStage) Name() string { return "persona" }

func (s *personaStage) Boundaries() []Boundary {
	return []Boundary{{
		Input:    ArtifactCVBias,
		Output:   ArtifactPersona,
		Requires: []string{table.ColCandidateID, table.ColRawTextPreview},
		Produces: []string{table.ColPersonaFitScore},
	}}
}

func (s *personaStage) Run(ctx context.Context, deps *Deps) (Result, error) {
	vocabulary, err := deps.WS.ReadAssetLines(workspace.SoftSkillsAsset)
	if err != nil {
		return Result{}, err
	}

	tbl, err := table.ReadFile(deps.WS.Path(ArtifactCVBias))
	if err != nil {
		return Result{}, err
	}
	if err := tbl.AddColumn(table.ColPersonaFitScore); err != nil {
		return Result{}, err
	}

	for _, row := range tbl.Rows {
		text := row[table.ColRawTextPreview]

		sentiment, err := deps.Caps.Sentiment.ClassifySentiment(ctx, text)
		if err != nil {
			return Result{}, fmt.Errorf("classifying sentiment for %s: %w", row[table.ColCandidateID], err)
		}

		row[table.ColPersonaFitScore] = table.FormatScore(PersonaFit(sentiment, CountSoftSkills(text, vocabulary)))
	}

	if err := tbl.WriteFile(deps.WS.Path(ArtifactPersona)); err != nil {
		return Result{}, err
	}
	return Result{In: tbl.Len(), Out: tbl.Len()}, nil
}

// CountSoftSkills sums raw substring occurrences of every vocabulary term in
// text, case-insensitively.
func CountSoftSkills(text string, vocabulary []string) int {
	lowered := strings.ToLower(text)

	count := 0
	for _, term := range vocabulary {
		count += strings.Count(lowered, strings.ToLower(term))
	}
	return count
}

// PersonaFit weighs positive sentiment at 0.7 and soft-skill coverage at 0.3.
// Coverage saturates at 20 occurrences; non-positive sentiment contributes 0.
func PersonaFit(sentiment *capability.Sentiment, softSkills int) float64 {
	positive := 0.0
	if sentiment.Label == capability.LabelPositive {
		positive = sentiment.Score
	}

	coverage := float64(softSkills) / 20.0
	if coverage > 1.0 {
		coverage = 1.0
	}

	return 0.7*positive + 0.3*coverage
}
