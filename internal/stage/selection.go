package stage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hiresense/hiresense/internal/store"
	"github.com/hiresense/hiresense/internal/table"
	"github.com/hiresense/hiresense/internal/workspace"
)

// selectStage persists the fully-annotated candidates and writes the rows at
// or above the selection threshold to the final artifact.
type selectStage struct{}

// NewSelect returns the threshold selection stage.
func NewSelect() Stage {
	return &selectStage{}
}

func (s *selectStage) Name() string { return "select" }

func (s *selectStage) Boundaries() []Boundary {
	return []Boundary{{
		Input:    ArtifactAdjusted,
		Output:   ArtifactSelected,
		Requires: []string{table.ColCandidateID, table.ColUpdatedScore},
	}}
}

func (s *selectStage) Run(ctx context.Context, deps *Deps) (Result, error) {
	tbl, err := table.ReadFile(deps.WS.Path(ArtifactAdjusted))
	if err != nil {
		return Result{}, err
	}

	candidates := make([]store.Candidate, 0, tbl.Len())
	byID := make(map[string]table.Row, tbl.Len())

	for _, row := range tbl.Rows {
		record, err := table.DecodeCandidate(row)
		if err != nil {
			return Result{}, err
		}
		candidates = append(candidates, store.Candidate{
			CandidateID:        record.CandidateID,
			RawTextPreview:     record.RawTextPreview,
			ExtractedEntities:  row[table.ColExtractedEntities],
			GradeScore:         record.GradeScore,
			CVBiasFlags:        row[table.ColCVBiasFlags],
			CVAnonymized:       record.CVAnonymized,
			PersonaFitScore:    record.PersonaFitScore,
			Explanation:        record.Explanation,
			CompositeScore:     record.CompositeScore,
			FeedbackAdjustment: record.FeedbackAdjustment,
			UpdatedScore:       record.UpdatedScore,
		})
		byID[record.CandidateID] = row
	}

	st, err := store.Open(deps.WS.Path(workspace.StoreFile))
	if err != nil {
		return Result{}, err
	}
	defer st.Close()

	if err := st.Rebuild(); err != nil {
		return Result{}, err
	}
	if err := st.Insert(candidates); err != nil {
		return Result{}, err
	}

	selected, err := st.SelectedAbove(deps.Options.Threshold)
	if err != nil {
		return Result{}, err
	}

	out := table.New(tbl.Columns...)
	for _, c := range selected {
		row, ok := byID[c.CandidateID]
		if !ok {
			return Result{}, fmt.Errorf("store returned unknown candidate %q", c.CandidateID)
		}
		if err := out.Append(row); err != nil {
			return Result{}, err
		}
	}

	deps.Logger.Info("selection complete",
		zap.Int("candidates", tbl.Len()),
		zap.Int("selected", out.Len()),
		zap.Float64("threshold", deps.Options.Threshold),
	)

	if err := out.WriteFile(deps.WS.Path(ArtifactSelected)); err != nil {
		return Result{}, err
	}
	return Result{In: tbl.Len(), Out: out.Len()}, nil
}
