// Package checkpoint is the Engine's Checkpoint collaborator (spec §6):
// an opaque snapshot-and-restore over the workspace and a copy of the
// Plan, returning a checkpoint id, invoked before each step when
// checkpoints are enabled.
//
// Checkpoints are explicitly "opaque snapshots owned by a collaborator"
// (spec §1 Non-goals: "not a git client"), so this package does not
// reach for the teacher's git-backed internal/vcs. Instead it adapts
// internal/storage.Storage's atomic temp-file-then-rename write pattern
// to whole-workspace tar+gzip snapshots, keyed by ULID so ids sort
// chronologically the same way the teacher's storage keys do.
package checkpoint

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/oklog/ulid/v2"

	"github.com/forgepilot/agentcore/internal/domain"
)

// Store manages checkpoints under a base directory, one subdirectory per
// checkpoint id containing workspace.tar.gz and plan.json.
type Store struct {
	baseDir      string
	workspaceDir string
}

// New returns a Store that snapshots workspaceDir into baseDir.
func New(baseDir, workspaceDir string) *Store {
	return &Store{baseDir: baseDir, workspaceDir: workspaceDir}
}

// Checkpoint is the metadata returned alongside a snapshot's id.
type Checkpoint struct {
	ID   string
	Plan *domain.Plan
}

// Create snapshots the workspace and plan, returning a new checkpoint
// id (spec §6 "returns a checkpoint id").
func (s *Store) Create(plan *domain.Plan) (string, error) {
	id := ulid.Make().String()
	dir := filepath.Join(s.baseDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("checkpoint: creating checkpoint dir: %w", err)
	}

	if err := s.writeWorkspaceArchive(filepath.Join(dir, "workspace.tar.gz")); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	if err := writePlanAtomic(filepath.Join(dir, "plan.json"), plan); err != nil {
		os.RemoveAll(dir)
		return "", err
	}

	return id, nil
}

// Restore overwrites the workspace with the contents of checkpoint id's
// snapshot and returns the Plan copy stored alongside it.
func (s *Store) Restore(id string) (*domain.Plan, error) {
	dir := filepath.Join(s.baseDir, id)
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("checkpoint: %s not found: %w", id, err)
	}

	if err := s.restoreWorkspaceArchive(filepath.Join(dir, "workspace.tar.gz")); err != nil {
		return nil, err
	}

	plan, err := readPlan(filepath.Join(dir, "plan.json"))
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// List returns known checkpoint ids in creation order (ULIDs sort
// lexicographically by timestamp).
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("checkpoint: listing: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func writePlanAtomic(path string, plan *domain.Plan) error {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: marshaling plan: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("checkpoint: writing temp plan file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("checkpoint: renaming plan file: %w", err)
	}
	return nil
}

func readPlan(path string) (*domain.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: reading plan: %w", err)
	}
	var plan domain.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("checkpoint: unmarshaling plan: %w", err)
	}
	return &plan, nil
}

func (s *Store) writeWorkspaceArchive(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("checkpoint: creating archive: %w", err)
	}

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	walkErr := filepath.Walk(s.workspaceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.workspaceDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(tw, src)
		return err
	})

	closeErr := tw.Close()
	gzErr := gz.Close()
	fErr := f.Close()

	if walkErr != nil || closeErr != nil || gzErr != nil || fErr != nil {
		os.Remove(tmp)
		if walkErr != nil {
			return fmt.Errorf("checkpoint: archiving workspace: %w", walkErr)
		}
		return fmt.Errorf("checkpoint: finalizing archive: %w", firstNonNil(closeErr, gzErr, fErr))
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("checkpoint: renaming archive: %w", err)
	}
	return nil
}

func (s *Store) restoreWorkspaceArchive(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("checkpoint: opening archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("checkpoint: opening gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("checkpoint: reading archive entry: %w", err)
		}

		target := filepath.Join(s.workspaceDir, filepath.FromSlash(hdr.Name))
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("checkpoint: restoring dir %s: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("checkpoint: restoring dir for %s: %w", hdr.Name, err)
			}
			out, err := os.Create(target)
			if err != nil {
				return fmt.Errorf("checkpoint: restoring file %s: %w", hdr.Name, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("checkpoint: writing file %s: %w", hdr.Name, err)
			}
			out.Close()
		}
	}
	return nil
}

func firstNonNil(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}
