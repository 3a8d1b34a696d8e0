package observer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	diags []Diagnostic
	err   error
}

func (f *fakeSource) Diagnostics(paths []string) ([]Diagnostic, error) {
	return f.diags, f.err
}

func TestGetDiagnostics_AggregatesAndSorts(t *testing.T) {
	src1 := &fakeSource{diags: []Diagnostic{
		{File: "b.go", Severity: SeverityWarning, Message: "unused import", Line: 3},
	}}
	src2 := &fakeSource{diags: []Diagnostic{
		{File: "a.go", Severity: SeverityError, Message: "undefined: foo", Line: 10},
		{File: "a.go", Severity: SeverityError, Message: "syntax error", Line: 2},
	}}
	o := New(src1, src2)

	diags, err := o.GetDiagnostics([]string{"a.go", "b.go"})
	require.NoError(t, err)
	require.Len(t, diags, 3)
	assert.Equal(t, "a.go", diags[0].File)
	assert.Equal(t, 2, diags[0].Line)
	assert.Equal(t, "a.go", diags[1].File)
	assert.Equal(t, 10, diags[1].Line)
	assert.Equal(t, "b.go", diags[2].File)
}

func TestGetDiagnostics_PropagatesSourceError(t *testing.T) {
	o := New(&fakeSource{err: errors.New("lsp connection lost")})
	_, err := o.GetDiagnostics([]string{"a.go"})
	assert.Error(t, err)
}

func TestHasErrors(t *testing.T) {
	assert.True(t, HasErrors([]Diagnostic{{Severity: SeverityWarning}, {Severity: SeverityError}}))
	assert.False(t, HasErrors([]Diagnostic{{Severity: SeverityWarning}, {Severity: SeverityHint}}))
	assert.False(t, HasErrors(nil))
}

func TestFormatDiagnostics_Empty(t *testing.T) {
	assert.Equal(t, "No diagnostics reported.", FormatDiagnostics(nil))
}

func TestFormatDiagnostics_WithAndWithoutLine(t *testing.T) {
	out := FormatDiagnostics([]Diagnostic{
		{File: "a.go", Severity: SeverityError, Message: "boom", Line: 5},
		{File: "b.go", Severity: SeverityWarning, Message: "meh"},
	})
	assert.Contains(t, out, "a.go:5: error: boom")
	assert.Contains(t, out, "b.go: warning: meh")
}
