// Package stage holds the units of the fixed linear pipeline. Every stage
// declares its artifact boundaries up front; the orchestrator validates them
// before and after the stage runs, so a malformed table never reaches the
// stage body.
package stage

import (
	"context"

	"go.uber.org/zap"

	"github.com/hiresense/hiresense/internal/capability"
	"github.com/hiresense/hiresense/internal/workspace"
)

// Workspace-relative artifact names. Stage N's default output is stage N+1's
// default input.
const (
	ArtifactJobs      = workspace.JobFile
	ArtifactOptimized = "optimized_jds.csv"
	ArtifactGraded    = "cv_grading_results.csv"
	ArtifactJDBias    = "jd_bias_fairness.csv"
	ArtifactCVBias    = "cv_bias_fairness.csv"
	ArtifactPersona   = "persona_fit_results.csv"
	ArtifactExplained = "explainability_results.csv"
	ArtifactAdjusted  = "feedback_adjusted_results.csv"
	ArtifactSelected  = "final_selected_candidates.csv"
)

// Boundary binds one input artifact to the columns a stage requires on it
// and, when the stage writes a counterpart, to the columns it appends.
type Boundary struct {
	// Input is the workspace-relative artifact the stage consumes.
	Input string
	// Output is the artifact written for this input; empty for consume-only
	// boundaries.
	Output string
	// Requires lists columns that must be present on Input.
	Requires []string
	// Produces lists columns the stage appends on Output.
	Produces []string
	// Creates marks an output that starts a new table lineage instead of
	// evolving Input's column set.
	Creates bool
	// Raw marks a non-tabular input (a directory of documents); only its
	// existence is checked.
	Raw bool
}

// Options is the single run-wide configuration shared by all stages.
type Options struct {
	// Threshold is the minimum updated_score for selection.
	Threshold float64
	// GradeLimit is the readability grade above which the job description is
	// rewritten.
	GradeLimit float64
	// PreviewLen caps raw_text_preview, in runes.
	PreviewLen int
}

// DefaultOptions returns the authoritative defaults.
func DefaultOptions() Options {
	return Options{
		Threshold:  0.3,
		GradeLimit: 10.0,
		PreviewLen: 200,
	}
}

// Deps aggregates what every stage needs to run.
type Deps struct {
	WS      *workspace.Workspace
	Caps    *capability.Set
	Logger  *zap.Logger
	Options Options
}

// Result reports row accounting for a stage execution.
type Result struct {
	In  int
	Out int
}

// Stage is one unit of the fixed pipeline.
type Stage interface {
	Name() string
	Boundaries() []Boundary
	Run(ctx context.Context, deps *Deps) (Result, error)
}

// All returns the stages in their fixed execution order.
func All() []Stage {
	return []Stage{
		NewOptimize(),
		NewGrade(),
		NewBias(),
		NewPersona(),
		NewExplain(),
		NewFeedback(),
		NewSelect(),
	}
}

// ByName returns the named stage, or nil.
func ByName(name string) Stage {
	for _, s := range All() {
		if s.Name() == name {
			return s
		}
	}
	return nil
}
