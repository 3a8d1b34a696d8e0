// Package opparse parses LLM responses into a typed list of
// domain.FileOperation, recognizing three dialects: framed blocks,
// tool-invoke XML, and a single-block wrapper fallback. Parse errors
// never propagate — malformed input simply yields fewer operations, with
// a log warning (spec §4.2: "the parser never throws").
package opparse

import (
	"regexp"
	"strings"

	"github.com/forgepilot/agentcore/internal/domain"
	"github.com/forgepilot/agentcore/internal/logging"
)

var htmlEscapeReplacer = strings.NewReplacer("&lt;", "<", "&gt;", ">")

var wrapperFenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\n(.*)\\n```\\s*$")

// Parse parses a single LLM response into an ordered list of operations.
func Parse(response string) []*domain.FileOperation {
	text := htmlEscapeReplacer.Replace(response)

	framedOps, remainder := parseFramedBlocks(text)

	invokeOps := parseInvokeBlocks(remainder)

	var ops []*domain.FileOperation
	ops = append(ops, framedOps...)
	ops = append(ops, invokeOps...)

	if len(ops) == 0 {
		if m := wrapperFenceRe.FindStringSubmatch(strings.TrimSpace(text)); m != nil {
			inner := m[1]
			if strings.Contains(inner, `<invoke name="edit"`) {
				ops = append(ops, parseInvokeBlocks(inner)...)
			}
		}
	}

	for _, op := range ops {
		sanitizeOp(op)
	}

	if len(ops) == 0 && strings.TrimSpace(response) != "" {
		logging.Debug().Msg("opparse: no operations recognized in non-empty LLM response")
	}

	ops = dedupOperations(ops)
	ops = applyWriteFullSubsumption(ops)
	ops = mergeEdits(ops)

	return ops
}

// dedupOperations removes exact duplicates: operations with identical
// (type, path, content, search, replace) collapse to one, keeping the
// first occurrence's order.
func dedupOperations(ops []*domain.FileOperation) []*domain.FileOperation {
	seen := make(map[domain.Key]bool, len(ops))
	result := make([]*domain.FileOperation, 0, len(ops))
	for _, op := range ops {
		k := domain.KeyOf(op)
		if seen[k] {
			continue
		}
		seen[k] = true
		result = append(result, op)
	}
	return result
}

// applyWriteFullSubsumption drops every other operation on a path that
// also has a write_full operation, since the full rewrite is authoritative.
func applyWriteFullSubsumption(ops []*domain.FileOperation) []*domain.FileOperation {
	writeFullPaths := make(map[string]bool)
	for _, op := range ops {
		if op.Type == domain.OpWriteFull {
			writeFullPaths[op.Path] = true
		}
	}
	if len(writeFullPaths) == 0 {
		return ops
	}

	result := make([]*domain.FileOperation, 0, len(ops))
	for _, op := range ops {
		if writeFullPaths[op.Path] && op.Type != domain.OpWriteFull {
			continue
		}
		result = append(result, op)
	}
	return result
}

// mergeEdits merges multiple edit/replace operations on the same path
// into a single replace operation whose content concatenates one
// SEARCH/REPLACE block per original operation, preserving original order.
func mergeEdits(ops []*domain.FileOperation) []*domain.FileOperation {
	type group struct {
		firstIdx int
		ops      []*domain.FileOperation
	}
	groups := make(map[string]*group)
	var order []string

	for i, op := range ops {
		if op.Type != domain.OpEdit && op.Type != domain.OpReplace {
			continue
		}
		g, ok := groups[op.Path]
		if !ok {
			g = &group{firstIdx: i}
			groups[op.Path] = g
			order = append(order, op.Path)
		}
		g.ops = append(g.ops, op)
	}

	toMerge := make(map[string]bool)
	for _, path := range order {
		if len(groups[path].ops) > 1 {
			toMerge[path] = true
		}
	}
	if len(toMerge) == 0 {
		return ops
	}

	merged := make(map[string]*domain.FileOperation, len(toMerge))
	for path, g := range groups {
		if !toMerge[path] {
			continue
		}
		var sb strings.Builder
		for i, op := range g.ops {
			search, replace := op.Search, op.Replace
			if search == "" && replace == "" && op.Content != "" {
				sb.WriteString(op.Content)
			} else {
				sb.WriteString("<<<<<<< SEARCH\n")
				sb.WriteString(search)
				sb.WriteString("\n=======\n")
				sb.WriteString(replace)
				sb.WriteString("\n>>>>>>> REPLACE")
			}
			if i < len(g.ops)-1 {
				sb.WriteString("\n")
			}
		}
		merged[path] = &domain.FileOperation{
			Type:        domain.OpReplace,
			Path:        path,
			Description: g.ops[0].Description,
			Content:     sb.String(),
		}
	}

	result := make([]*domain.FileOperation, 0, len(ops))
	emitted := make(map[string]bool)
	for _, op := range ops {
		if (op.Type == domain.OpEdit || op.Type == domain.OpReplace) && toMerge[op.Path] {
			if emitted[op.Path] {
				continue
			}
			emitted[op.Path] = true
			result = append(result, merged[op.Path])
			continue
		}
		result = append(result, op)
	}
	return result
}
