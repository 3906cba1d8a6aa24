package stage

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hiresense/hiresense/internal/capability"
	"github.com/hiresense/hiresense/internal/table"
	"github.com/hiresense/hiresense/internal/workspace"
)

// RedactionMarker replaces person-entity spans during anonymization.
const RedactionMarker = "[REDACTED]"

var tokenRe = regexp.MustCompile(`\w+`)

// biasStage flags biased wording against the staged lexicon and anonymizes
// person entities, on both the job description and the candidate table.
type biasStage struct{}

// NewBias returns the bias and fairness monitor stage.
func NewBias() Stage {
	return &biasStage{}
}

func (s *biasStage) Name() string { return "bias" }

func (s *biasStage) Boundaries() []Boundary {
	return []Boundary{
		{
			Input:    ArtifactOptimized,
			Output:   ArtifactJDBias,
			Requires: []string{table.ColOptimizedJD},
			Produces: []string{table.ColJDBiasFlags, table.ColJDAnonymized},
		},
		{
			Input:    ArtifactGraded,
			Output:   ArtifactCVBias,
			Requires: []string{table.ColRawTextPreview},
			Produces: []string{table.ColCVBiasFlags, table.ColCVAnonymized},
		},
	}
}

func (s *biasStage) Run(ctx context.Context, deps *Deps) (Result, error) {
	lexicon, err := deps.WS.ReadAssetLines(workspace.BiasLexiconAsset)
	if err != nil {
		return Result{}, err
	}

	if err := s.annotate(ctx, deps, lexicon, ArtifactOptimized, ArtifactJDBias,
		table.ColOptimizedJD, table.ColJDBiasFlags, table.ColJDAnonymized); err != nil {
		return Result{}, err
	}

	cvRows, err := s.annotateCV(ctx, deps, lexicon)
	if err != nil {
		return Result{}, err
	}

	return Result{In: cvRows, Out: cvRows}, nil
}

func (s *biasStage) annotate(ctx context.Context, deps *Deps, lexicon []string, in, out, textCol, flagCol, anonCol string) error {
	tbl, err := table.ReadFile(deps.WS.Path(in))
	if err != nil {
		return err
	}

	for _, col := range []string{flagCol, anonCol} {
		if err := tbl.AddColumn(col); err != nil {
			return err
		}
	}

	for _, row := range tbl.Rows {
		text := row[textCol]

		flags := DetectBias(text, lexicon)
		cell, err := table.MarshalList(flags)
		if err != nil {
			return err
		}

		anonymized, err := anonymize(ctx, deps.Caps.Extractor, text)
		if err != nil {
			return err
		}

		if len(flags) > 0 {
			deps.Logger.Info("biased wording detected",
				zap.String("artifact", out),
				zap.Strings("flags", flags),
			)
		}

		row[flagCol] = cell
		row[anonCol] = anonymized
	}

	return tbl.WriteFile(deps.WS.Path(out))
}

func (s *biasStage) annotateCV(ctx context.Context, deps *Deps, lexicon []string) (int, error) {
	if err := s.annotate(ctx, deps, lexicon, ArtifactGraded, ArtifactCVBias,
		table.ColRawTextPreview, table.ColCVBiasFlags, table.ColCVAnonymized); err != nil {
		return 0, err
	}

	tbl, err := table.ReadFile(deps.WS.Path(ArtifactCVBias))
	if err != nil {
		return 0, err
	}
	return tbl.Len(), nil
}

// DetectBias returns the lexicon terms present in text as whole words,
// case-insensitively, in lexicon order. The result is a set: each term
// appears at most once regardless of occurrence count.
func DetectBias(text string, lexicon []string) []string {
	words := make(map[string]bool)
	for _, token := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		words[token] = true
	}

	flags := []string{}
	for _, term := range lexicon {
		if words[strings.ToLower(term)] {
			flags = append(flags, term)
		}
	}
	return flags
}

// anonymize replaces every person-entity span with the redaction marker,
// working from the end of the text backward so earlier replacements cannot
// shift later offsets.
func anonymize(ctx context.Context, extractor capability.EntityExtractor, text string) (string, error) {
	result, err := extractor.ExtractEntities(ctx, text)
	if err != nil {
		return "", fmt.Errorf("extracting entities for anonymization: %w", err)
	}

	type span struct{ start, end int }
	var spans []span

	for _, ent := range result.Entities {
		if ent.Label != "PERSON" || ent.Text == "" {
			continue
		}
		for from := 0; ; {
			idx := strings.Index(text[from:], ent.Text)
			if idx < 0 {
				break
			}
			start := from + idx
			spans = append(spans, span{start: start, end: start + len(ent.Text)})
			from = start + len(ent.Text)
		}
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start > spans[j].start })

	anonymized := text
	lastStart := len(text) + 1
	for _, sp := range spans {
		if sp.end > lastStart {
			// Overlaps a span already redacted.
			continue
		}
		anonymized = anonymized[:sp.start] + RedactionMarker + anonymized[sp.end:]
		lastStart = sp.start
	}

	return anonymized, nil
}
