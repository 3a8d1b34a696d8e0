// Package sanitize strips artifacts LLMs routinely append to edit
// content before it reaches the Patcher: auto-execution tails, dangling
// code-fence closes, and editor-glyph control-character noise. Every
// pass is idempotent — sanitizing already-sanitized text is a no-op
// (spec invariant: sanitize(sanitize(x)) == sanitize(x)).
package sanitize

import (
	"regexp"
	"strings"
)

var (
	// Bare self-invocation tails ("run();", "main();") on their own line,
	// optionally preceded/followed by blank lines, at the very end of the
	// content.
	bareCallTailRe = regexp.MustCompile(`(?:(?:^|\n)\s*(?:run|main)\(\s*\)\s*;?)+\s*$`)

	// Python-style "if __name__ == '__main__':" footer through end of text.
	pythonMainRe = regexp.MustCompile(`(?s)\n\s*if\s+__name__\s*==\s*['"]__main__['"]\s*:.*$`)

	// Node/CommonJS "if (require.main === module) { ... }" footer.
	nodeMainRe = regexp.MustCompile(`(?s)\n\s*if\s*\(\s*require\.main\s*===\s*module\s*\)\s*\{.*$`)

	// Anonymous test-runner tails that announce themselves via console.log
	// right before end of text, e.g. `(function(){ ...; console.log("done"); })();`
	anonRunnerTailRe = regexp.MustCompile(`(?s)\n\s*\(\s*(?:async\s+)?function\s*\([^)]*\)\s*\{.*console\.(?:log|info)\([^)]*\)[\s\S]*?\}\s*\)\s*\(\s*\)\s*;?\s*$`)

	// Dangling trailing fence: a "```" (optionally with a language tag on
	// the line it closes, though that would be an opening fence — here we
	// only ever strip a *closing* fence with nothing meaningful after it).
	trailingFenceRe = regexp.MustCompile("(?s)\\n?```\\s*$")

	// Literal "<ctrlNN>" textual artifacts some editors' renderers leave
	// behind, e.g. <ctrl3>, <ctrl61>.
	ctrlArtifactRe = regexp.MustCompile(`<ctrl\d+>`)

	// C0 control bytes except tab (0x09), LF (0x0A), CR (0x0D).
	c0ControlRe = regexp.MustCompile("[\x00-\x08\x0B\x0C\x0E-\x1F]")

	// Runs of 3+ blank lines collapse to exactly 2.
	blankRunRe = regexp.MustCompile(`\n{3,}`)
)

// Sanitize applies all three passes in order: auto-execution stripping,
// trailing-fence stripping, control-character stripping.
func Sanitize(content string) string {
	content = stripAutoExecution(content)
	content = stripTrailingFence(content)
	content = stripControlArtifacts(content)
	return content
}

// stripAutoExecution removes trailing self-invocation tails.
func stripAutoExecution(content string) string {
	content = pythonMainRe.ReplaceAllString(content, "")
	content = nodeMainRe.ReplaceAllString(content, "")
	content = anonRunnerTailRe.ReplaceAllString(content, "")
	content = bareCallTailRe.ReplaceAllString(content, "")
	return strings.TrimRight(content, "\n") + trailingNewlineOf(content)
}

// trailingNewlineOf preserves a single trailing newline if the original
// had one, otherwise returns "". Keeps the pass from churning whitespace
// that wasn't there (idempotence).
func trailingNewlineOf(content string) string {
	if strings.HasSuffix(content, "\n") {
		return "\n"
	}
	return ""
}

// stripTrailingFence removes a dangling closing ``` fence that leaked
// outside its proper block.
func stripTrailingFence(content string) string {
	trimmed := strings.TrimRight(content, " \t\n")
	if trailingFenceRe.MatchString(trimmed) {
		return trailingFenceRe.ReplaceAllString(trimmed, "")
	}
	return content
}

// stripControlArtifacts removes literal <ctrlNN> glyph artifacts and C0
// control bytes, then collapses long blank-line runs.
func stripControlArtifacts(content string) string {
	content = ctrlArtifactRe.ReplaceAllString(content, "")
	content = c0ControlRe.ReplaceAllString(content, "")
	content = blankRunRe.ReplaceAllString(content, "\n\n")
	return content
}
