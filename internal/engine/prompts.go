package engine

import (
	"fmt"
	"strings"

	"github.com/forgepilot/agentcore/internal/domain"
	"github.com/forgepilot/agentcore/internal/observer"
)

// actionSystemPreamble is prepended ahead of every action-mode prompt (spec
// §6: "forbids tool-call blocks ... specifies the exact 7-character
// <<<<<<< SEARCH / ======= / >>>>>>> REPLACE delimiters"). Built as an
// ordered parts slice joined at the end, following the teacher's
// session.SystemPrompt Build() idiom (internal/session/system.go).
func actionSystemPreamble() string {
	parts := []string{
		"You are an autonomous coding agent. Do not emit tool-call blocks.",
		"Respond with exactly one action, framed as:",
		"<<<FILE_OPERATION>>>\nTYPE: <create|edit|replace|write_full|prepend|append|delete|read|run>\nPATH: <relative-path>\nDESCRIPTION: <one line>\nSEARCH:\n<fenced block with the exact existing code>\nREPLACE:\n<fenced block with the new code>\n<<<END_OPERATION>>>",
		"The SEARCH/REPLACE delimiters are exactly `<<<<<<< SEARCH`, `=======`, `>>>>>>> REPLACE` — seven characters each side.",
		"For a shell command, use TYPE: run and put the command in place of SEARCH/REPLACE under a COMMAND field.",
	}
	return strings.Join(parts, "\n\n")
}

// planningPrompt builds the Planning-stage request: the user's request
// plus assembled file context (spec §4.8 Planning: "Gather relevant
// files ... assemble a token-budgeted context, ask the LLM for a plan").
func planningPrompt(userRequest, context string, strict bool) string {
	var b strings.Builder
	b.WriteString("Produce a plan for the following request as a markdown checklist ")
	b.WriteString("(`- [ ] description`, optionally with a trailing `[depends: step-N]` hint).\n\n")
	if strict {
		b.WriteString("Your previous response did not contain any checklist items. ")
		b.WriteString("Respond with ONLY the checklist, no prose, no headings.\n\n")
	}
	fmt.Fprintf(&b, "Request:\n%s\n", userRequest)
	if context != "" {
		fmt.Fprintf(&b, "\nRelevant file context:\n%s\n", context)
	}
	return b.String()
}

// actionPrompt builds the lazy per-step action request (spec §4.8
// Executing: "If the step has no stored action, request one lazily from
// the LLM, providing step context and, if the description mentions a
// file, its current content").
func actionPrompt(step *domain.PlanStep, fileContent string, fileExists bool) string {
	var b strings.Builder
	b.WriteString(actionSystemPreamble())
	b.WriteString("\n\nStep to perform:\n")
	b.WriteString(step.Description)
	if fileExists {
		b.WriteString("\n\nCurrent content of the referenced file:\n```\n")
		b.WriteString(fileContent)
		b.WriteString("\n```")
	}
	return b.String()
}

// reflectionPrompt builds the Reflecting-stage classifier request (spec
// §4.8 Reflecting: "classify the step result as one of SUCCESS, RETRY,
// REPLAN plus a one-line reason").
func reflectionPrompt(step *domain.PlanStep) string {
	var b strings.Builder
	b.WriteString("Classify the outcome of the following step as exactly one of SUCCESS, RETRY, or REPLAN, ")
	b.WriteString("followed by a one-line reason on the same line.\n\n")
	fmt.Fprintf(&b, "Step: %s\nAction: %s\nResult: %s\n", step.Description, step.Action, step.Result)
	b.WriteString("\nRespond in the form: `VERDICT: <reason>`")
	return b.String()
}

// fixPrompt builds the Fixing-stage request: diagnostics, up to 3
// error-adjacent file contents (truncated), escalation hints, and the
// SEARCH-mismatch target file when applicable (spec §4.8 Fixing).
func fixPrompt(step *domain.PlanStep, diags []observer.Diagnostic, fileSnippets map[string]string, consecutiveMistakes int, searchMismatchContent string) string {
	var b strings.Builder
	b.WriteString(actionSystemPreamble())
	b.WriteString("\n\nThe previous action for this step failed. Fix it.\n\n")
	fmt.Fprintf(&b, "Step: %s\nPrevious action: %s\nFailure: %s\n\n", step.Description, step.Action, step.Result)

	b.WriteString("Diagnostics:\n")
	b.WriteString(observer.FormatDiagnostics(diags))

	if len(fileSnippets) > 0 {
		b.WriteString("\n\nRelevant file contents:\n")
		count := 0
		for path, content := range fileSnippets {
			if count >= 3 {
				break
			}
			fmt.Fprintf(&b, "\n--- %s ---\n%s\n", path, truncateTo(content, 2000))
			count++
		}
	}

	if searchMismatchContent != "" {
		b.WriteString("\n\nThe previous SEARCH block did not match. Current file content:\n```\n")
		b.WriteString(truncateTo(searchMismatchContent, 2000))
		b.WriteString("\n```")
	}

	if consecutiveMistakes >= 3 {
		b.WriteString("\n\nThis is the third or later consecutive mistake. Reconsider your overall approach, not just this one error.")
	} else if consecutiveMistakes >= 2 {
		b.WriteString("\n\nThis is a repeated mistake. Be more careful and explicit about what you are changing.")
	}

	return b.String()
}

func truncateTo(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n... (truncated)"
}
