package opparse

import (
	"regexp"
	"strings"

	"github.com/forgepilot/agentcore/internal/domain"
)

var (
	invokeOpenRe  = regexp.MustCompile(`<invoke\s+name="([^"]*)"\s*>`)
	invokeCloseTag = "</invoke>"

	paramOpenRe  = regexp.MustCompile(`<parameter\s+name="([^"]*)"\s*>`)
	paramCloseTag = "</parameter>"
)

var invokeNameToType = map[string]domain.OperationType{
	"write_to_file":   domain.OpWriteFull,
	"replace_in_file": domain.OpReplace,
	"prepend":         domain.OpPrepend,
	"append":          domain.OpAppend,
	"edit":            domain.OpEdit,
	"run_command":     domain.OpRun,
}

// parseInvokeBlocks scans tool-invoke XML blocks of the form
// `<invoke name="NAME">...<parameter name="...">value</parameter>...</invoke>`
// and returns the operations they describe.
func parseInvokeBlocks(text string) []*domain.FileOperation {
	var ops []*domain.FileOperation

	pos := 0
	for {
		loc := invokeOpenRe.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		name := text[pos+loc[2] : pos+loc[3]]
		bodyStart := pos + loc[1]

		closeIdx := strings.Index(text[bodyStart:], invokeCloseTag)
		var body string
		var next int
		if closeIdx == -1 {
			body = text[bodyStart:]
			next = len(text)
		} else {
			body = text[bodyStart : bodyStart+closeIdx]
			next = bodyStart + closeIdx + len(invokeCloseTag)
		}

		if op := parseInvokeBody(name, body); op != nil {
			ops = append(ops, op)
		}
		pos = next
	}

	return ops
}

// parseInvokeBody parses the parameter tags inside one <invoke> body.
func parseInvokeBody(name, body string) *domain.FileOperation {
	opType, ok := invokeNameToType[name]
	if !ok {
		return nil
	}

	params := make(map[string]string)
	pos := 0
	for {
		loc := paramOpenRe.FindStringSubmatchIndex(body[pos:])
		if loc == nil {
			break
		}
		pname := strings.ToLower(body[pos+loc[2] : pos+loc[3]])
		valStart := pos + loc[1]

		closeIdx := strings.Index(body[valStart:], paramCloseTag)
		var val string
		var next int
		if closeIdx == -1 {
			val = body[valStart:]
			next = len(body)
		} else {
			val = body[valStart : valStart+closeIdx]
			next = valStart + closeIdx + len(paramCloseTag)
		}

		params[pname] = val
		pos = next
	}

	op := &domain.FileOperation{
		Type:        opType,
		Path:        strings.TrimSpace(firstNonEmpty(params, "path")),
		Description: strings.TrimSpace(firstNonEmpty(params, "description")),
		Content:     firstNonEmpty(params, "content"),
		Search:      firstNonEmpty(params, "search", "search_text"),
		Replace:     firstNonEmpty(params, "replace", "replace_text"),
		Command:     strings.TrimSpace(firstNonEmpty(params, "command")),
	}

	// `diff` parameter carries an embedded SEARCH/REPLACE body in `content`.
	if diff := firstNonEmpty(params, "diff"); diff != "" && op.Content == "" {
		op.Content = diff
	}

	if opType == domain.OpRun {
		if op.Command == "" {
			return nil
		}
		return op
	}

	if op.Path == "" {
		return nil
	}
	return op
}

func firstNonEmpty(params map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := params[k]; ok && v != "" {
			return v
		}
	}
	return ""
}
