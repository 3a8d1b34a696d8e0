// Package patch implements the Edit Application Pipeline: a 4-tier
// SEARCH/REPLACE matcher (exact → line-trimmed → block-anchor → single-
// line fallback) plus destructive-edit guards, grounded on the teacher's
// internal/tool/edit.go Execute/fuzzyReplace shape and generalized to the
// full FileOperation variant set.
package patch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/forgepilot/agentcore/internal/domain"
	"github.com/forgepilot/agentcore/internal/logging"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Workspace abstracts file IO so the Patcher can run against a real
// directory or an in-memory fixture in tests.
type Workspace interface {
	ReadFile(path string) ([]byte, bool, error)
	WriteFile(path string, content []byte) error
	DeleteFile(path string) error
}

// DirWorkspace is a Workspace backed by a real directory on disk.
type DirWorkspace struct {
	Root string
}

func NewDirWorkspace(root string) *DirWorkspace { return &DirWorkspace{Root: root} }

func (w *DirWorkspace) resolve(path string) string {
	return filepath.Join(w.Root, filepath.FromSlash(path))
}

func (w *DirWorkspace) ReadFile(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(w.resolve(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (w *DirWorkspace) WriteFile(path string, content []byte) error {
	full := w.resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return err
	}
	return os.WriteFile(full, content, 0644)
}

func (w *DirWorkspace) DeleteFile(path string) error {
	err := os.Remove(w.resolve(path))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Result describes the outcome of applying one operation.
type Result struct {
	Op      *domain.FileOperation
	Applied bool
	Skipped bool
	Error   error
}

// BatchResult is the outcome of applying a batch of operations.
type BatchResult struct {
	Results    []Result
	ErrorCount int
}

// Patcher applies FileOperations to a Workspace.
type Patcher struct {
	ws Workspace
}

func New(ws Workspace) *Patcher {
	return &Patcher{ws: ws}
}

// pendingWrite stages one file's final content until the whole batch is
// known to be safe to commit.
type pendingWrite struct {
	path    string
	content []byte
	delete  bool
}

// ApplyBatch stages every operation into a single transactional edit: if
// staging fails for any, none apply (spec §4.4).
func (p *Patcher) ApplyBatch(ops []*domain.FileOperation) (*BatchResult, error) {
	staged := make(map[string]*pendingWrite)
	results := make([]Result, 0, len(ops))

	stage := func(op *domain.FileOperation) error {
		return p.stageOp(op, staged)
	}

	for _, op := range ops {
		if err := stage(op); err != nil {
			return nil, fmt.Errorf("staging failed, batch aborted: %w", err)
		}
	}

	br := &BatchResult{}
	for _, w := range staged {
		var err error
		if w.delete {
			err = p.ws.DeleteFile(w.path)
		} else {
			err = p.ws.WriteFile(w.path, w.content)
		}
		if err != nil {
			br.ErrorCount++
		}
	}

	for _, op := range ops {
		results = append(results, Result{Op: op, Applied: true})
	}
	br.Results = results
	return br, nil
}

// Apply applies a single operation outside of a batch transaction
// (best-effort multi_write, or standalone use).
func (p *Patcher) Apply(op *domain.FileOperation) Result {
	staged := make(map[string]*pendingWrite)
	if err := p.stageOp(op, staged); err != nil {
		return Result{Op: op, Error: err}
	}
	for _, w := range staged {
		var err error
		if w.delete {
			err = p.ws.DeleteFile(w.path)
		} else {
			err = p.ws.WriteFile(w.path, w.content)
		}
		if err != nil {
			return Result{Op: op, Error: err}
		}
	}
	return Result{Op: op, Applied: true}
}

func (p *Patcher) stageOp(op *domain.FileOperation, staged map[string]*pendingWrite) error {
	switch op.Type {
	case domain.OpCreate:
		staged[op.Path] = &pendingWrite{path: op.Path, content: []byte(op.Content)}
		return nil

	case domain.OpWriteFull:
		existing, exists, err := p.ws.ReadFile(op.Path)
		if err != nil {
			return err
		}
		if exists && writeFullGuardTrips(len(existing), len(op.Content)) {
			return fmt.Errorf("%w: %s", ErrWriteFullGuard, op.Path)
		}
		staged[op.Path] = &pendingWrite{path: op.Path, content: []byte(op.Content)}
		return nil

	case domain.OpPrepend:
		existing, _, err := p.ws.ReadFile(op.Path)
		if err != nil {
			return err
		}
		newContent := op.Content + "\n\n" + string(existing)
		staged[op.Path] = &pendingWrite{path: op.Path, content: []byte(newContent)}
		return nil

	case domain.OpAppend:
		existing, _, err := p.ws.ReadFile(op.Path)
		if err != nil {
			return err
		}
		trimmed := strings.TrimRight(string(existing), " \t\n")
		newContent := trimmed + "\n\n" + op.Content
		staged[op.Path] = &pendingWrite{path: op.Path, content: []byte(newContent)}
		return nil

	case domain.OpEdit, domain.OpReplace:
		return p.stageSearchReplace(op, staged)

	case domain.OpDelete:
		staged[op.Path] = &pendingWrite{path: op.Path, delete: true}
		return nil

	case domain.OpRead:
		return nil // no mutation

	case domain.OpMultiWrite:
		for _, sub := range op.Ops {
			if err := p.stageOp(sub, staged); err != nil {
				if op.Atomic {
					return err
				}
				logging.Warn().Err(err).Str("path", sub.Path).Msg("patch: multi_write sub-operation failed (best-effort)")
			}
		}
		return nil

	default:
		return fmt.Errorf("patch: unsupported operation type %q", op.Type)
	}
}

// stageSearchReplace implements the four tiers of §4.4 for edit/replace
// operations.
func (p *Patcher) stageSearchReplace(op *domain.FileOperation, staged map[string]*pendingWrite) error {
	var blocks []DiffBlock

	switch {
	case op.Search != "" || op.Replace != "":
		// Tier 1: explicit fields — synthesize a single block and run it
		// through tier 3 matching (exact, then line-trimmed) below.
		blocks = []DiffBlock{{Search: op.Search, Replace: op.Replace}}
	case HasEmbeddedDiff(op.Content):
		// Tier 2: embedded diff.
		blocks = ParseDiffBlocks(op.Content)
	default:
		// Tier 4: snippet fallback, handled separately below since it has
		// no SEARCH/REPLACE pair at all.
		return p.stageSnippetFallback(op, staged)
	}

	existing, exists, err := p.ws.ReadFile(op.Path)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s (file does not exist)", ErrSearchNotFound, op.Path)
	}
	content := string(existing)

	for _, b := range blocks {
		if isNoop(b.Search, b.Replace) {
			continue
		}
		if isDestructive(b.Search, b.Replace) {
			logging.Warn().Str("path", op.Path).Msg("patch: refused destructive edit block")
			return fmt.Errorf("%w: %s", ErrDestructiveEdit, op.Path)
		}

		start, end, ok := blockMatch(content, b.Search)
		if !ok {
			start, end, ok = lineTrimmedMatch(content, b.Search)
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrSearchNotFound, op.Path)
		}
		content = content[:start] + b.Replace + content[end:]
	}

	staged[op.Path] = &pendingWrite{path: op.Path, content: []byte(content)}
	return nil
}

// stageSnippetFallback handles tier 4: block-anchor matching over the
// first/last 50 lines of a bare content snippet, with a single-line
// Jaccard/Levenshtein fallback.
func (p *Patcher) stageSnippetFallback(op *domain.FileOperation, staged map[string]*pendingWrite) error {
	if op.Content == "" {
		return fmt.Errorf("%w: %s (no SEARCH/REPLACE or content)", ErrSearchNotFound, op.Path)
	}

	existing, exists, err := p.ws.ReadFile(op.Path)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s (file does not exist)", ErrSearchNotFound, op.Path)
	}
	content := string(existing)

	start, end, ok := anchorMatch(content, op.Content)
	if !ok {
		start, end, ok = singleLineJaccard(content, op.Content)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrSearchNotFound, op.Path)
	}

	newContent := content[:start] + op.Content + content[end:]
	staged[op.Path] = &pendingWrite{path: op.Path, content: []byte(newContent)}
	return nil
}

// UnifiedDiff renders a human-readable diff between before/after. The
// destructive-edit warning log and Synthesis text do not include it.
// Grounded on the wider pack's use of sergi/go-diff rather than a
// hand-rolled differ.
func UnifiedDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	return dmp.DiffPrettyText(diffs)
}
