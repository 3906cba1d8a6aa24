package stage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hiresense/hiresense/internal/extract"
	"github.com/hiresense/hiresense/internal/table"
	"github.com/hiresense/hiresense/internal/workspace"
)

// gradeStage scores each CV by cosine similarity between its embedding and
// the reference job description embedding.
type gradeStage struct{}

// NewGrade returns the CV grader stage.
func NewGrade() Stage {
	return &gradeStage{}
}

func (s *gradeStage) Name() string { return "grade" }

func (s *gradeStage) Boundaries() []Boundary {
	return []Boundary{
		{
			Input:    ArtifactOptimized,
			Requires: []string{table.ColOptimizedJD},
		},
		{
			Input:    workspace.CVDir,
			Raw:      true,
			Output:   ArtifactGraded,
			Creates:  true,
			Produces: []string{table.ColCandidateID, table.ColGradeScore, table.ColExtractedEntities, table.ColRawTextPreview},
		},
	}
}

func (s *gradeStage) Run(ctx context.Context, deps *Deps) (Result, error) {
	jobs, err := table.ReadFile(deps.WS.Path(ArtifactOptimized))
	if err != nil {
		return Result{}, err
	}
	if jobs.Len() == 0 {
		return Result{}, errors.New("job description table has no rows")
	}

	reference := jobs.Rows[0][table.ColOptimizedJD]
	referenceVec, err := deps.Caps.Embedder.Embed(ctx, reference)
	if err != nil {
		return Result{}, fmt.Errorf("embedding reference job description: %w", err)
	}

	names, err := deps.WS.ListCVs()
	if err != nil {
		return Result{}, err
	}

	out := table.New(table.ColCandidateID, table.ColGradeScore, table.ColExtractedEntities, table.ColRawTextPreview)
	for _, name := range names {
		if !extract.Supported(name) {
			deps.Logger.Info("skipping unsupported document", zap.String("document", name))
			continue
		}

		text, err := extract.Text(deps.WS.Path(workspace.CVDir + "/" + name))
		if err != nil {
			// Per-document failure: degrade, do not abort.
			deps.Logger.Warn("skipping unreadable document",
				zap.String("document", name),
				zap.Error(err),
			)
			continue
		}
		if strings.TrimSpace(text) == "" {
			deps.Logger.Warn("skipping document with no text content",
				zap.String("document", name),
			)
			continue
		}

		entities, err := deps.Caps.Extractor.ExtractEntities(ctx, text)
		if err != nil {
			return Result{}, fmt.Errorf("extracting entities for %s: %w", name, err)
		}

		vec, err := deps.Caps.Embedder.Embed(ctx, text)
		if err != nil {
			return Result{}, fmt.Errorf("embedding %s: %w", name, err)
		}

		entityCell, err := table.MarshalList(entities.Entities)
		if err != nil {
			return Result{}, err
		}

		if err := out.Append(table.Row{
			table.ColCandidateID:       name,
			table.ColGradeScore:        table.FormatScore(cosine(referenceVec, vec)),
			table.ColExtractedEntities: entityCell,
			table.ColRawTextPreview:    preview(text, deps.Options.PreviewLen),
		}); err != nil {
			return Result{}, err
		}
	}

	if out.Len() == 0 {
		deps.Logger.Warn("no supported cv documents found; continuing with an empty candidate set")
	}

	sortByScoreDesc(out)

	if err := out.WriteFile(deps.WS.Path(ArtifactGraded)); err != nil {
		return Result{}, err
	}
	return Result{In: len(names), Out: out.Len()}, nil
}

// sortByScoreDesc orders rows by grade_score descending, candidate_id
// ascending on ties.
func sortByScoreDesc(t *table.Table) {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		a, _ := table.DecodeCandidate(t.Rows[i])
		b, _ := table.DecodeCandidate(t.Rows[j])
		if a.GradeScore != b.GradeScore {
			return a.GradeScore > b.GradeScore
		}
		return a.CandidateID < b.CandidateID
	})
}

// preview returns the first n runes of text.
func preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}

// cosine computes the cosine similarity of two vectors; zero vectors score 0.
func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	for _, v := range a {
		na += v * v
	}
	for _, v := range b {
		nb += v * v
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
