// Package workspace provisions the isolated per-request storage area every
// pipeline run owns: seeded inputs, staged lexicon assets, intermediate
// artifacts and the private selection store all live under one disposable
// directory.
package workspace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hiresense/hiresense/internal/table"
)

// Workspace-relative locations of the seeded inputs and the store.
const (
	JobFile   = "inputs/job_description.csv"
	CVDir     = "inputs/cvs"
	AssetsDir = "assets"
	StoreFile = "memory.db"

	BiasLexiconAsset = "assets/bias_lexicon.txt"
	SoftSkillsAsset  = "assets/soft_skills.txt"
)

// ErrMissingAsset reports a required pipeline asset absent from the
// configured asset directory.
var ErrMissingAsset = errors.New("required pipeline asset is missing")

// requiredAssets maps asset file names to their built-in defaults, used when
// no asset directory override is configured.
var requiredAssets = map[string][]string{
	"bias_lexicon.txt": {
		"ninja", "rockstar", "guru", "aggressive", "whiz", "bombastic", "alpha", "dominant",
	},
	"soft_skills.txt": {
		"team", "collaborative", "leadership", "innovative", "adaptable", "communicative", "proactive",
	},
}

// Job is the single job description record of a request.
type Job struct {
	Title       string
	Description string
}

// Request describes the inputs to provision. Exactly one of Job or JobCSV
// seeds the job description; CVPaths and CVDir both may contribute documents.
type Request struct {
	Job     *Job
	JobCSV  string
	CVPaths []string
	CVDir   string
}

// Options tunes where the workspace lives and where assets come from.
type Options struct {
	// Root is the parent directory for workspaces. Empty means the system
	// temp directory.
	Root string
	// AssetsDir optionally overrides the built-in lexicons. Every required
	// asset must be present in it.
	AssetsDir string
}

// Workspace is one provisioned, isolated run directory.
type Workspace struct {
	root   string
	logger *zap.Logger
}

// Provision creates the workspace, seeds the job description and CV blobs and
// stages the pipeline assets. The caller owns teardown via Close on every
// exit path.
func Provision(req Request, opts Options, logger *zap.Logger) (*Workspace, error) {
	parent := opts.Root
	if parent == "" {
		parent = os.TempDir()
	}

	root := filepath.Join(parent, "hiresense-"+uuid.New().String())
	ws := &Workspace{root: root, logger: logger}

	for _, dir := range []string{filepath.Dir(ws.Path(JobFile)), ws.Path(CVDir), ws.Path(AssetsDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating workspace directory: %w", err)
		}
	}

	if err := ws.seedJob(req); err != nil {
		ws.Close()
		return nil, err
	}
	if err := ws.seedCVs(req); err != nil {
		ws.Close()
		return nil, err
	}
	if err := ws.stageAssets(opts.AssetsDir); err != nil {
		ws.Close()
		return nil, err
	}

	logger.Info("workspace provisioned", zap.String("root", root))
	return ws, nil
}

// Open attaches to an already-provisioned workspace directory.
func Open(root string, logger *zap.Logger) (*Workspace, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("opening workspace: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace %s is not a directory", root)
	}
	return &Workspace{root: root, logger: logger}, nil
}

// Root returns the workspace directory.
func (w *Workspace) Root() string {
	return w.root
}

// Path resolves a workspace-relative artifact name.
func (w *Workspace) Path(rel string) string {
	return filepath.Join(w.root, filepath.FromSlash(rel))
}

// Close destroys the workspace and everything in it.
func (w *Workspace) Close() error {
	if w == nil || w.root == "" {
		return nil
	}
	if err := os.RemoveAll(w.root); err != nil {
		return fmt.Errorf("removing workspace: %w", err)
	}
	if w.logger != nil {
		w.logger.Debug("workspace removed", zap.String("root", w.root))
	}
	return nil
}

// ListCVs returns the seeded CV file names in deterministic order.
func (w *Workspace) ListCVs() ([]string, error) {
	entries, err := os.ReadDir(w.Path(CVDir))
	if err != nil {
		return nil, fmt.Errorf("listing cv documents: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ReadAssetLines returns the non-empty lines of a staged asset.
func (w *Workspace) ReadAssetLines(rel string) ([]string, error) {
	data, err := os.ReadFile(w.Path(rel))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingAsset, rel)
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (w *Workspace) seedJob(req Request) error {
	if req.JobCSV != "" {
		return copyFile(req.JobCSV, w.Path(JobFile))
	}
	if req.Job == nil {
		return errors.New("a job description is required")
	}

	tbl := table.New(table.ColJobTitle, table.ColJobDescription)
	if err := tbl.Append(table.Row{
		table.ColJobTitle:       req.Job.Title,
		table.ColJobDescription: req.Job.Description,
	}); err != nil {
		return err
	}
	return tbl.WriteFile(w.Path(JobFile))
}

func (w *Workspace) seedCVs(req Request) error {
	paths := append([]string{}, req.CVPaths...)

	if req.CVDir != "" {
		entries, err := os.ReadDir(req.CVDir)
		if err != nil {
			return fmt.Errorf("reading cv directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			paths = append(paths, filepath.Join(req.CVDir, entry.Name()))
		}
	}

	for _, src := range paths {
		if err := copyFile(src, filepath.Join(w.Path(CVDir), filepath.Base(src))); err != nil {
			return err
		}
	}
	return nil
}

// stageAssets writes the lexicons the stages read at run time. An override
// directory must carry every required asset; otherwise built-ins are used.
func (w *Workspace) stageAssets(assetsDir string) error {
	for name, defaults := range requiredAssets {
		target := filepath.Join(w.Path(AssetsDir), name)

		if assetsDir != "" {
			src := filepath.Join(assetsDir, name)
			if _, err := os.Stat(src); err != nil {
				return fmt.Errorf("%w: %s", ErrMissingAsset, name)
			}
			if err := copyFile(src, target); err != nil {
				return err
			}
			continue
		}

		content := strings.Join(defaults, "\n") + "\n"
		if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
			return fmt.Errorf("staging asset %s: %w", name, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}
