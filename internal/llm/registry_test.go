package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseModelString(t *testing.T) {
	p, m := ParseModelString("anthropic/claude-sonnet-4-20250514")
	assert.Equal(t, "anthropic", p)
	assert.Equal(t, "claude-sonnet-4-20250514", m)

	p, m = ParseModelString("bare-model-id")
	assert.Equal(t, "", p)
	assert.Equal(t, "bare-model-id", m)
}

func TestRegistry_GetUnknownProvider(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("nope")
	assert.Error(t, err)
}

func TestRegistry_ResolveUnknownProvider(t *testing.T) {
	r := NewRegistry()
	_, _, err := r.Resolve("anthropic/claude-sonnet-4-20250514")
	assert.Error(t, err)
}
