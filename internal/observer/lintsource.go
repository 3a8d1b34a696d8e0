package observer

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// diagnosticLineRe matches the "file:line:col: message" / "file:line:
// message" shape most Go, TypeScript, and Python toolchains emit on
// stderr/stdout (go vet, tsc --noEmit, pyflakes, ...).
var diagnosticLineRe = regexp.MustCompile(`^([^:]+):(\d+)(?::\d+)?:\s*(.*)$`)

// CommandConfig names the diagnostic command to run for a given file
// extension, e.g. {".go": {"go", []string{"vet", "./..."}}}.
type CommandConfig struct {
	Name string
	Args []string
}

// CommandSource runs a configured lint/build command per file extension
// and parses its output into Diagnostics, generalizing the teacher's
// internal/lsp builtin-server-by-extension table (spawn a per-language
// tool, keyed by extension) from a long-lived JSON-RPC language server
// into a one-shot command invocation — the Observer only needs a
// point-in-time diagnostics snapshot after an edit, not live push
// notifications.
type CommandSource struct {
	dir      string
	commands map[string]CommandConfig
	timeout  time.Duration
}

// NewCommandSource returns a CommandSource rooted at dir, running
// commands configured per extension.
func NewCommandSource(dir string, commands map[string]CommandConfig) *CommandSource {
	return &CommandSource{dir: dir, commands: commands, timeout: 60 * time.Second}
}

// Diagnostics runs each distinct extension's command at most once across
// paths and parses the combined output.
func (s *CommandSource) Diagnostics(paths []string) ([]Diagnostic, error) {
	seen := make(map[string]bool)
	var all []Diagnostic

	for _, p := range paths {
		ext := filepath.Ext(p)
		cmd, ok := s.commands[ext]
		if !ok || seen[ext] {
			continue
		}
		seen[ext] = true

		out, _ := s.run(cmd) // non-zero exit is expected (diagnostics found); only the output matters
		all = append(all, parseDiagnosticLines(out)...)
	}

	return all, nil
}

func (s *CommandSource) run(cmd CommandConfig) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = s.dir

	var buf bytes.Buffer
	c.Stdout = &buf
	c.Stderr = &buf
	err := c.Run()
	return buf.String(), err
}

// parseDiagnosticLines extracts Diagnostics from command output, one per
// matching line. Lines that don't match the file:line:message shape
// (summary lines, blank lines) are skipped rather than treated as
// errors.
func parseDiagnosticLines(output string) []Diagnostic {
	var diags []Diagnostic
	for _, line := range strings.Split(output, "\n") {
		m := diagnosticLineRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		lineNum, _ := strconv.Atoi(m[2])
		diags = append(diags, Diagnostic{
			File:     m[1],
			Line:     lineNum,
			Severity: SeverityError,
			Message:  m[3],
		})
	}
	return diags
}
