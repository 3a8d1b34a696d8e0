// Package preflight implements the Action Pre-flight stage (spec §4.7):
// before executing an edit-like operation carrying a SEARCH block, verify
// the SEARCH text actually matches the target file, and if not, ask the
// LLM for a corrective action rather than letting the Patcher fail blind.
package preflight

import (
	"context"
	"fmt"
	"strings"

	"github.com/forgepilot/agentcore/internal/domain"
	"github.com/forgepilot/agentcore/internal/opparse"
	"github.com/forgepilot/agentcore/internal/patch"
)

// contentCap is the truncation length applied to file content embedded in
// a corrective prompt (spec §4.7: "truncated to a cap, e.g., 3000 chars").
const contentCap = 3000

// FileReader loads the current content of a workspace file, reporting
// whether it exists.
type FileReader interface {
	ReadFile(path string) ([]byte, bool, error)
}

// Completer is the minimal LLM surface pre-flight needs to request a
// corrective action.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Checker runs pre-flight verification and correction.
type Checker struct {
	files     FileReader
	completer Completer
}

// New returns a Checker.
func New(files FileReader, completer Completer) *Checker {
	return &Checker{files: files, completer: completer}
}

// Check verifies op's SEARCH block (if any) against the target file's
// current content. Operations with no SEARCH block, or of a type the
// Patcher doesn't tier-match (create/delete/...), pass through unchanged.
// multi_write is checked recursively against each sub-operation.
//
// If SEARCH fails to match both exactly and with line-trimming, Check
// asks the LLM for a corrected action and, if the response parses into a
// usable operation, returns it in place of op. If the correction is
// unusable, the original op is returned unchanged so it proceeds to fail
// through the Patcher's normal path (the caller still gets a result, just
// not a silently dropped step).
func (c *Checker) Check(ctx context.Context, op *domain.FileOperation) (*domain.FileOperation, error) {
	if op.Type == domain.OpMultiWrite {
		corrected := op.Clone()
		for i, sub := range corrected.Ops {
			fixedSub, err := c.Check(ctx, sub)
			if err != nil {
				return nil, err
			}
			corrected.Ops[i] = fixedSub
		}
		return corrected, nil
	}

	search, replace := op.Search, op.Replace
	if search == "" {
		embeddedSearch, embeddedReplace, ok := firstUnmatchedDiffBlock(op.Content)
		if !ok {
			return op, nil // no SEARCH content of any kind to verify
		}
		search, replace = embeddedSearch, embeddedReplace
	}

	content, exists, err := c.files.ReadFile(op.Path)
	if err != nil {
		return nil, fmt.Errorf("preflight: reading %s: %w", op.Path, err)
	}
	if !exists {
		return op, nil // nothing to verify against yet; let Patcher report it
	}

	if matchesExactOrTrimmed(string(content), search) {
		return op, nil
	}

	prompt := correctionPrompt(op.Path, search, replace, string(content))
	response, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		return op, nil // fall through to the original op on LLM failure
	}

	corrected := parseCorrection(response)
	if corrected == nil {
		return op, nil
	}
	return corrected, nil
}

// firstUnmatchedDiffBlock extracts the SEARCH/REPLACE pair to verify from
// an operation's embedded-diff Content (the `<<<<<<< SEARCH ... =======
// ... >>>>>>> REPLACE` dialect opparse's mergeEdits produces when it
// collapses multiple edit/replace operations on one path). Returns the
// first block found, since Check only needs one candidate to drive the
// corrective prompt; ok is false when Content carries no embedded diff at
// all.
func firstUnmatchedDiffBlock(content string) (search, replace string, ok bool) {
	if !patch.HasEmbeddedDiff(content) {
		return "", "", false
	}
	blocks := patch.ParseDiffBlocks(content)
	if len(blocks) == 0 {
		return "", "", false
	}
	return blocks[0].Search, blocks[0].Replace, true
}

// matchesExactOrTrimmed reports whether search matches content either
// verbatim or after line-trimming both sides.
func matchesExactOrTrimmed(content, search string) bool {
	if strings.Contains(content, search) {
		return true
	}
	return lineTrimmedContains(content, search)
}

// lineTrimmedContains checks whether a contiguous run of content's lines,
// each trimmed of leading/trailing whitespace, equals search's lines
// trimmed the same way.
func lineTrimmedContains(content, search string) bool {
	searchLines := strings.Split(search, "\n")
	trimmedSearch := make([]string, len(searchLines))
	for i, l := range searchLines {
		trimmedSearch[i] = strings.TrimSpace(l)
	}

	contentLines := strings.Split(content, "\n")
	n := len(trimmedSearch)
	for i := 0; i+n <= len(contentLines); i++ {
		match := true
		for j := 0; j < n; j++ {
			if strings.TrimSpace(contentLines[i+j]) != trimmedSearch[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func truncate(s string, cap int) string {
	if len(s) <= cap {
		return s
	}
	return s[:cap] + "\n... (truncated)"
}

// correctionPrompt builds the inline corrective-action request (spec
// §4.7): the file's current content (capped) plus the rejected
// SEARCH/REPLACE, whether it came from op's explicit fields or an
// embedded diff block in op.Content.
func correctionPrompt(path, search, replace, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The following SEARCH block does not match the current content of %s.\n\n", path)
	b.WriteString("Current file content:\n```\n")
	b.WriteString(truncate(content, contentCap))
	b.WriteString("\n```\n\n")
	b.WriteString("Rejected SEARCH:\n```\n")
	b.WriteString(search)
	b.WriteString("\n```\n\n")
	b.WriteString("Rejected REPLACE:\n```\n")
	b.WriteString(replace)
	b.WriteString("\n```\n\n")
	b.WriteString("Respond with a single corrected action as one <<<FILE_OPERATION>>> block (TYPE/PATH/SEARCH/REPLACE fields) whose SEARCH text actually appears in the current file content above.")
	return b.String()
}

// parseCorrection runs the LLM's response through the operation parser.
// Returns nil if nothing usable is found.
func parseCorrection(response string) *domain.FileOperation {
	ops := opparse.Parse(response)
	if len(ops) == 0 {
		return nil
	}
	return ops[0]
}
