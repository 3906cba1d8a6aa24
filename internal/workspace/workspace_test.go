package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hiresense/hiresense/internal/table"
)

func provisionBasic(t *testing.T, opts Options) *Workspace {
	t.Helper()

	cvDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(cvDir, "cv1.txt"), []byte("Experienced Go developer"), 0o644); err != nil {
		t.Fatalf("seed cv: %v", err)
	}

	if opts.Root == "" {
		opts.Root = t.TempDir()
	}

	ws, err := Provision(Request{
		Job:   &Job{Title: "Go Developer", Description: "Build backend services"},
		CVDir: cvDir,
	}, opts, zap.NewNop())
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	return ws
}

func TestProvisionSeedsInputsAndAssets(t *testing.T) {
	ws := provisionBasic(t, Options{})
	defer ws.Close()

	tbl, err := table.ReadFile(ws.Path(JobFile))
	if err != nil {
		t.Fatalf("reading seeded job table: %v", err)
	}
	if tbl.Len() != 1 || tbl.Rows[0][table.ColJobTitle] != "Go Developer" {
		t.Fatalf("job table not seeded: %+v", tbl.Rows)
	}

	cvs, err := ws.ListCVs()
	if err != nil {
		t.Fatalf("listing cvs: %v", err)
	}
	if len(cvs) != 1 || cvs[0] != "cv1.txt" {
		t.Fatalf("unexpected cvs: %v", cvs)
	}

	terms, err := ws.ReadAssetLines(BiasLexiconAsset)
	if err != nil {
		t.Fatalf("reading bias lexicon: %v", err)
	}
	if len(terms) == 0 {
		t.Fatalf("bias lexicon asset is empty")
	}

	skills, err := ws.ReadAssetLines(SoftSkillsAsset)
	if err != nil {
		t.Fatalf("reading soft skills: %v", err)
	}
	found := false
	for _, s := range skills {
		if s == "proactive" {
			found = true
		}
	}
	if !found {
		t.Fatalf("soft skills asset missing expected term: %v", skills)
	}
}

func TestCloseRemovesWorkspace(t *testing.T) {
	ws := provisionBasic(t, Options{})
	root := ws.Root()

	if err := ws.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Fatalf("workspace directory still exists after close")
	}
}

func TestProvisionFailsOnMissingAsset(t *testing.T) {
	// An override asset dir with only one of the two required assets.
	assets := t.TempDir()
	if err := os.WriteFile(filepath.Join(assets, "bias_lexicon.txt"), []byte("ninja\n"), 0o644); err != nil {
		t.Fatalf("seed asset: %v", err)
	}

	_, err := Provision(Request{
		Job: &Job{Title: "x", Description: "y"},
	}, Options{Root: t.TempDir(), AssetsDir: assets}, zap.NewNop())
	if !errors.Is(err, ErrMissingAsset) {
		t.Fatalf("expected ErrMissingAsset, got %v", err)
	}
}

func TestProvisionWithAssetOverride(t *testing.T) {
	assets := t.TempDir()
	if err := os.WriteFile(filepath.Join(assets, "bias_lexicon.txt"), []byte("wizard\n"), 0o644); err != nil {
		t.Fatalf("seed asset: %v", err)
	}
	if err := os.WriteFile(filepath.Join(assets, "soft_skills.txt"), []byte("empathy\n"), 0o644); err != nil {
		t.Fatalf("seed asset: %v", err)
	}

	ws, err := Provision(Request{
		Job: &Job{Title: "x", Description: "y"},
	}, Options{Root: t.TempDir(), AssetsDir: assets}, zap.NewNop())
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	defer ws.Close()

	terms, err := ws.ReadAssetLines(BiasLexiconAsset)
	if err != nil {
		t.Fatalf("reading asset: %v", err)
	}
	if len(terms) != 1 || terms[0] != "wizard" {
		t.Fatalf("override asset not staged: %v", terms)
	}
}

func TestProvisionCopiesExistingJobCSV(t *testing.T) {
	src := filepath.Join(t.TempDir(), "jobs.csv")
	if err := os.WriteFile(src, []byte("job_title,job_description\nDev,Build things\n"), 0o644); err != nil {
		t.Fatalf("seed job csv: %v", err)
	}

	ws, err := Provision(Request{JobCSV: src}, Options{Root: t.TempDir()}, zap.NewNop())
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	defer ws.Close()

	tbl, err := table.ReadFile(ws.Path(JobFile))
	if err != nil {
		t.Fatalf("reading job table: %v", err)
	}
	if tbl.Rows[0][table.ColJobDescription] != "Build things" {
		t.Fatalf("job csv not copied: %+v", tbl.Rows)
	}
}

func TestProvisionRequiresJob(t *testing.T) {
	if _, err := Provision(Request{}, Options{Root: t.TempDir()}, zap.NewNop()); err == nil {
		t.Fatalf("expected error when no job description is given")
	}
}
