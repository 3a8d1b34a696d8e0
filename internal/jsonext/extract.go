// Package jsonext extracts the outermost balanced JSON object from
// free-form text. LLM responses routinely wrap an action payload in prose
// or markdown fencing, and the first `{` in that text is frequently the
// open brace of a key whose *value* contains more `{`/`}` (embedded code
// snippets, nested objects) — a greedy regex corrupts on exactly that
// input. This package tracks string and escape state by hand instead.
package jsonext

import "errors"

// ErrNotFound is returned when no balanced `{...}` object exists in text.
var ErrNotFound = errors.New("jsonext: no balanced JSON object found")

// Extract returns the substring of text spanning the outermost balanced
// `{...}` object, starting at the first `{` in text. Braces inside string
// literals are ignored, and a backslash inside a string escapes the next
// character (so a string containing `\"` or `\\` does not toggle string
// state incorrectly).
func Extract(text string) (string, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if start == -1 {
			if c == '{' {
				start = i
				depth = 1
			}
			continue
		}

		if escaped {
			escaped = false
			continue
		}

		if inString {
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}

	return "", ErrNotFound
}

// Found reports whether text contains a balanced JSON object.
func Found(text string) bool {
	_, err := Extract(text)
	return err == nil
}
