package opparse

import (
	"regexp"
	"strings"

	"github.com/forgepilot/agentcore/internal/domain"
	"github.com/forgepilot/agentcore/internal/sanitize"
)

const (
	frameOpen  = "<<<FILE_OPERATION>>>"
	frameClose = "<<<END_OPERATION>>>"
)

var fieldLabelRe = regexp.MustCompile(`(?m)^\s*(TYPE|PATH|DESCRIPTION|CONTENT|SEARCH|REPLACE|COMMAND):[ \t]*(.*)$`)

var typeAlias = map[string]domain.OperationType{
	"create":      domain.OpCreate,
	"edit":        domain.OpEdit,
	"replace":     domain.OpReplace,
	"write_full":  domain.OpWriteFull,
	"prepend":     domain.OpPrepend,
	"append":      domain.OpAppend,
	"delete":      domain.OpDelete,
	"read":        domain.OpRead,
	"multi_write": domain.OpMultiWrite,
	"run":         domain.OpRun,
}

// parseFramedBlocks extracts and parses every `<<<FILE_OPERATION>>> ...
// <<<END_OPERATION>>>` block in text. A missing close marker means the
// block's extent runs until the next open marker or end of text (spec
// §4.2). Returns the parsed operations and the text with every consumed
// block span removed, so later dialects don't double-count the same
// content.
func parseFramedBlocks(text string) ([]*domain.FileOperation, string) {
	var ops []*domain.FileOperation
	var remainder strings.Builder

	pos := 0
	for {
		openIdx := strings.Index(text[pos:], frameOpen)
		if openIdx == -1 {
			remainder.WriteString(text[pos:])
			break
		}
		openIdx += pos
		remainder.WriteString(text[pos:openIdx])

		bodyStart := openIdx + len(frameOpen)
		closeIdx := strings.Index(text[bodyStart:], frameClose)
		nextOpenIdx := strings.Index(text[bodyStart:], frameOpen)

		var bodyEnd, next int
		if closeIdx == -1 || (nextOpenIdx != -1 && nextOpenIdx < closeIdx) {
			// No close marker before the next open marker (or at all):
			// extent runs until the next open marker, or end of text.
			if nextOpenIdx == -1 {
				bodyEnd = len(text)
				next = bodyEnd
			} else {
				bodyEnd = bodyStart + nextOpenIdx
				next = bodyEnd
			}
		} else {
			bodyEnd = bodyStart + closeIdx
			next = bodyEnd + len(frameClose)
		}

		body := text[bodyStart:bodyEnd]
		if op := parseFramedBlock(body); op != nil {
			ops = append(ops, op)
		}
		pos = next
	}

	return ops, remainder.String()
}

// parseFramedBlock parses the labeled-field body of one framed block.
func parseFramedBlock(body string) *domain.FileOperation {
	fields := extractFields(body)

	typeStr := strings.ToLower(strings.TrimSpace(fields["TYPE"]))
	opType, ok := typeAlias[typeStr]
	if !ok {
		return nil
	}

	op := &domain.FileOperation{
		Type:        opType,
		Path:        strings.TrimSpace(fields["PATH"]),
		Description: strings.TrimSpace(fields["DESCRIPTION"]),
	}
	if v, ok := fields["CONTENT"]; ok {
		op.Content = stripFence(v)
	}
	if v, ok := fields["SEARCH"]; ok {
		op.Search = stripFence(v)
	}
	if v, ok := fields["REPLACE"]; ok {
		op.Replace = stripFence(v)
	}
	if v, ok := fields["COMMAND"]; ok {
		op.Command = strings.TrimSpace(stripFence(v))
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

// extractFields splits a framed-block body into labeled fields. A field's
// value extends until the next field label on its own line, or the end
// of the body.
func extractFields(body string) map[string]string {
	matches := fieldLabelRe.FindAllStringSubmatchIndex(body, -1)
	fields := make(map[string]string)

	for i, m := range matches {
		label := body[m[2]:m[3]]
		inlineVal := body[m[4]:m[5]]

		valueStart := m[1] // end of the label:value line match
		valueEnd := len(body)
		if i+1 < len(matches) {
			valueEnd = matches[i+1][0]
		}

		rest := strings.TrimPrefix(body[valueStart:valueEnd], "\n")
		value := inlineVal
		if strings.TrimSpace(rest) != "" {
			if value != "" {
				value += "\n"
			}
			value += strings.TrimRight(rest, "\n")
		}
		fields[label] = value
	}

	return fields
}

// stripFence removes a single leading fenced-code-block open line (```
// optionally with a language tag) and its trailing close fence, if the
// value is wrapped in one.
func stripFence(value string) string {
	lines := strings.Split(value, "\n")
	if len(lines) == 0 {
		return value
	}

	start := 0
	end := len(lines)

	if strings.HasPrefix(strings.TrimSpace(lines[0]), "```") {
		start = 1
	}
	if end > start && strings.TrimSpace(lines[end-1]) == "```" {
		end--
	}

	if start == 0 && end == len(lines) {
		return value
	}
	return strings.Join(lines[start:end], "\n")
}

// sanitizeOp applies the Content Sanitizer to edit-like operations' content.
func sanitizeOp(op *domain.FileOperation) {
	switch op.Type {
	case domain.OpEdit, domain.OpReplace, domain.OpWriteFull, domain.OpCreate, domain.OpPrepend, domain.OpAppend:
		if op.Content != "" {
			op.Content = sanitize.Sanitize(op.Content)
		}
	}
}
