package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize_StripsPythonMainFooter(t *testing.T) {
	in := "def f():\n    return 1\n\nif __name__ == '__main__':\n    print(f())\n"
	got := Sanitize(in)
	assert.False(t, strings.Contains(got, "__main__"))
	assert.True(t, strings.Contains(got, "def f():"))
}

func TestSanitize_StripsNodeMainFooter(t *testing.T) {
	in := "function f() { return 1 }\n\nif (require.main === module) {\n  console.log(f());\n}\n"
	got := Sanitize(in)
	assert.False(t, strings.Contains(got, "require.main"))
}

func TestSanitize_StripsBareCallTail(t *testing.T) {
	in := "function run() {}\n\nrun();\n"
	got := Sanitize(in)
	assert.False(t, strings.Contains(strings.TrimSpace(got), "run();\n"))
}

func TestSanitize_StripsTrailingFence(t *testing.T) {
	in := "const x = 1;\n```\n"
	got := Sanitize(in)
	assert.False(t, strings.Contains(got, "```"))
	assert.True(t, strings.Contains(got, "const x = 1;"))
}

func TestSanitize_StripsControlArtifactsAndCollapsesBlankLines(t *testing.T) {
	in := "a<ctrl61>b\n\n\n\n\nc"
	got := Sanitize(in)
	assert.Equal(t, "ab\n\nc", got)
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"def f():\n    return 1\n\nif __name__ == '__main__':\n    print(f())\n",
		"const x = 1;\n```\n",
		"a<ctrl61>b\n\n\n\n\nc",
		"plain text with nothing to strip",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(once)
		assert.Equal(t, once, twice, "not idempotent for input %q", in)
	}
}
