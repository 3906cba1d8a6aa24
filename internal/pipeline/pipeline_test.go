package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hiresense/hiresense/internal/capability/heuristic"
	"github.com/hiresense/hiresense/internal/stage"
	"github.com/hiresense/hiresense/internal/table"
	"github.com/hiresense/hiresense/internal/workspace"
)

func provision(t *testing.T, req workspace.Request) *stage.Deps {
	t.Helper()

	ws, err := workspace.Provision(req, workspace.Options{Root: t.TempDir()}, zap.NewNop())
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	t.Cleanup(func() { ws.Close() })

	return &stage.Deps{
		WS:      ws,
		Caps:    heuristic.New(),
		Logger:  zap.NewNop(),
		Options: stage.DefaultOptions(),
	}
}

func TestRunCompletes(t *testing.T) {
	cv := filepath.Join(t.TempDir(), "candidate.txt")
	if err := os.WriteFile(cv, []byte("An experienced, collaborative team player with strong leadership."), 0o644); err != nil {
		t.Fatalf("writing cv: %v", err)
	}

	deps := provision(t, workspace.Request{
		Job:     &workspace.Job{Title: "Engineer", Description: "Build reliable data pipelines with the team."},
		CVPaths: []string{cv},
	})

	p := New(deps)
	if p.State() != StateIdle {
		t.Fatalf("fresh pipeline must be idle, got %v", p.State())
	}

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if p.State() != StateCompleted {
		t.Fatalf("expected completed, got %v", p.State())
	}

	for _, artifact := range []string{
		stage.ArtifactOptimized, stage.ArtifactGraded, stage.ArtifactJDBias,
		stage.ArtifactCVBias, stage.ArtifactPersona, stage.ArtifactExplained,
		stage.ArtifactAdjusted, stage.ArtifactSelected,
	} {
		if _, err := os.Stat(deps.WS.Path(artifact)); err != nil {
			t.Fatalf("artifact %s was not written: %v", artifact, err)
		}
	}
}

func TestRunAbortsOnMissingColumn(t *testing.T) {
	// A job CSV without job_description violates the first stage's contract.
	broken := filepath.Join(t.TempDir(), "job.csv")
	tbl := table.New(table.ColJobTitle)
	if err := tbl.Append(table.Row{table.ColJobTitle: "Engineer"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := tbl.WriteFile(broken); err != nil {
		t.Fatalf("write: %v", err)
	}

	deps := provision(t, workspace.Request{JobCSV: broken})

	p := New(deps)
	err := p.Run(context.Background())
	if err == nil {
		t.Fatal("expected the run to abort")
	}
	if p.State() != StateFailed {
		t.Fatalf("expected failed, got %v", p.State())
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != "optimize" {
		t.Fatalf("expected a stage error from optimize, got %v", err)
	}
	var schemaErr *table.SchemaError
	if !errors.As(err, &schemaErr) || schemaErr.Column != table.ColJobDescription {
		t.Fatalf("expected a schema error for job_description, got %v", err)
	}

	// Nothing downstream of the failed boundary may exist.
	if _, err := os.Stat(deps.WS.Path(stage.ArtifactOptimized)); !os.IsNotExist(err) {
		t.Fatal("failed run must not leave the first stage's output behind")
	}
	if _, err := os.Stat(deps.WS.Path(workspace.StoreFile)); !os.IsNotExist(err) {
		t.Fatal("failed run must not touch the selection store")
	}
}

func TestRunCompletesWithEmptyCandidateSet(t *testing.T) {
	deps := provision(t, workspace.Request{
		Job: &workspace.Job{Title: "Engineer", Description: "Build reliable data pipelines with the team."},
	})

	p := New(deps)
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("an empty candidate set must still complete: %v", err)
	}
	if p.State() != StateCompleted {
		t.Fatalf("expected completed, got %v", p.State())
	}

	final, err := table.ReadFile(deps.WS.Path(stage.ArtifactSelected))
	if err != nil {
		t.Fatalf("reading final artifact: %v", err)
	}
	if final.Len() != 0 {
		t.Fatalf("expected an empty selection, got %d rows", final.Len())
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	deps := provision(t, workspace.Request{
		Job: &workspace.Job{Title: "Engineer", Description: "Build reliable data pipelines with the team."},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(deps)
	if err := p.Run(ctx); err == nil {
		t.Fatal("a cancelled context must abort the run")
	}
	if p.State() != StateFailed {
		t.Fatalf("expected failed, got %v", p.State())
	}
}
