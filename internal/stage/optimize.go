package stage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hiresense/hiresense/internal/logger"
	"github.com/hiresense/hiresense/internal/readability"
	"github.com/hiresense/hiresense/internal/table"
)

// optimizeStage rewrites hard-to-read job descriptions and extracts their
// entities and noun phrases.
type optimizeStage struct{}

// NewOptimize returns the JD optimizer stage.
func NewOptimize() Stage {
	return &optimizeStage{}
}

func (s *optimizeStage) Name() string { return "optimize" }

func (s *optimizeStage) Boundaries() []Boundary {
	return []Boundary{{
		Input:    ArtifactJobs,
		Output:   ArtifactOptimized,
		Requires: []string{table.ColJobTitle, table.ColJobDescription},
		Produces: []string{table.ColOptimizedJD, table.ColGradeLevel, table.ColExtractedEntities},
	}}
}

// jdExtraction is the JSON shape of the JD extracted_entities cell.
type jdExtraction struct {
	Entities    []table.Entity `json:"entities"`
	NounPhrases []string       `json:"noun_phrases"`
}

func (s *optimizeStage) Run(ctx context.Context, deps *Deps) (Result, error) {
	tbl, err := table.ReadFile(deps.WS.Path(ArtifactJobs))
	if err != nil {
		return Result{}, err
	}

	for _, col := range []string{table.ColOptimizedJD, table.ColGradeLevel, table.ColExtractedEntities} {
		if err := tbl.AddColumn(col); err != nil {
			return Result{}, err
		}
	}

	for _, row := range tbl.Rows {
		description := row[table.ColJobDescription]

		grade := readability.Grade(description)
		optimized := description
		if grade > deps.Options.GradeLimit {
			optimized, err = deps.Caps.Rephraser.Rephrase(ctx, description)
			if err != nil {
				return Result{}, fmt.Errorf("rephrasing job description: %w", err)
			}
			deps.Logger.Info("job description rewritten",
				zap.Float64("grade_level", grade),
				zap.Float64("grade_limit", deps.Options.GradeLimit),
				zap.String("optimized_preview", logger.TruncateForLog(optimized, 120)),
			)
		}

		extraction, err := deps.Caps.Extractor.ExtractEntities(ctx, description)
		if err != nil {
			return Result{}, fmt.Errorf("extracting job description entities: %w", err)
		}

		cell, err := table.MarshalList(jdExtraction{
			Entities:    extraction.Entities,
			NounPhrases: extraction.NounPhrases,
		})
		if err != nil {
			return Result{}, err
		}

		row[table.ColOptimizedJD] = optimized
		row[table.ColGradeLevel] = table.FormatScore(grade)
		row[table.ColExtractedEntities] = cell
	}

	if err := tbl.WriteFile(deps.WS.Path(ArtifactOptimized)); err != nil {
		return Result{}, err
	}
	return Result{In: tbl.Len(), Out: tbl.Len()}, nil
}
