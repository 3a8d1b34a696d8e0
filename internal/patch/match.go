package patch

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// blockMatch finds the first verbatim occurrence of search in content and
// returns the byte range [start, end) of the match, or ok=false.
func blockMatch(content, search string) (start, end int, ok bool) {
	idx := strings.Index(content, search)
	if idx == -1 {
		return 0, 0, false
	}
	return idx, idx + len(search), true
}

// lineTrimmedMatch compares search against sliding windows of content
// after trimming each line's leading/trailing whitespace, and returns the
// byte range of the matching (untrimmed) window in content.
func lineTrimmedMatch(content, search string) (start, end int, ok bool) {
	searchLines := splitKeepCount(search)
	if len(searchLines) == 0 {
		return 0, 0, false
	}
	trimmedSearch := make([]string, len(searchLines))
	for i, l := range searchLines {
		trimmedSearch[i] = strings.TrimSpace(l)
	}

	contentLines, lineOffsets := splitWithOffsets(content)
	n := len(searchLines)
	for i := 0; i+n <= len(contentLines); i++ {
		match := true
		for j := 0; j < n; j++ {
			if strings.TrimSpace(contentLines[i+j]) != trimmedSearch[j] {
				match = false
				break
			}
		}
		if match {
			winStart := lineOffsets[i]
			var winEnd int
			if i+n < len(lineOffsets) {
				winEnd = lineOffsets[i+n]
			} else {
				winEnd = len(content)
			}
			return winStart, winEnd, true
		}
	}
	return 0, 0, false
}

// splitKeepCount splits s into lines without altering content, used only
// to count/compare.
func splitKeepCount(s string) []string {
	return strings.Split(s, "\n")
}

// splitWithOffsets splits content into lines (content preserved, no
// trailing newline included in each line) and returns the byte offset at
// which each line starts within content.
func splitWithOffsets(content string) ([]string, []int) {
	var lines []string
	var offsets []int
	start := 0
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			lines = append(lines, content[start:i])
			offsets = append(offsets, start)
			start = i + 1
		}
	}
	lines = append(lines, content[start:])
	offsets = append(offsets, start)
	return lines, offsets
}

// anchorMatch implements the snippet-fallback block-anchor algorithm: for
// each combination of a leading and a trailing non-empty line within the
// first/last 50 lines of snippet, it finds a file window bounded by lines
// that, trimmed, equal those anchors, scores by anchor span minus
// line-count delta, and returns the byte range of the best-scoring
// window.
func anchorMatch(content, snippet string) (start, end int, ok bool) {
	snippetLines := splitKeepCount(snippet)
	leading := nonEmptyIndices(snippetLines, 0, min(50, len(snippetLines)))
	trailingStart := max(0, len(snippetLines)-50)
	trailing := nonEmptyIndices(snippetLines, trailingStart, len(snippetLines))

	if len(leading) == 0 || len(trailing) == 0 {
		return 0, 0, false
	}

	contentLines, lineOffsets := splitWithOffsets(content)

	bestScore := -1 << 31
	bestStart, bestEnd := 0, 0
	found := false

	for _, li := range leading {
		leadAnchor := strings.TrimSpace(snippetLines[li])
		for _, ti := range trailing {
			if ti < li {
				continue
			}
			trailAnchor := strings.TrimSpace(snippetLines[ti])
			snippetSpan := ti - li + 1

			for ci := 0; ci < len(contentLines); ci++ {
				if strings.TrimSpace(contentLines[ci]) != leadAnchor {
					continue
				}
				for cj := ci; cj < len(contentLines) && cj-ci < snippetSpan*4+50; cj++ {
					if strings.TrimSpace(contentLines[cj]) != trailAnchor {
						continue
					}
					fileSpan := cj - ci + 1
					delta := fileSpan - snippetSpan
					if delta < 0 {
						delta = -delta
					}
					score := snippetSpan - delta
					if score > bestScore {
						bestScore = score
						bestStart = lineOffsets[ci]
						if cj+1 < len(lineOffsets) {
							bestEnd = lineOffsets[cj+1]
						} else {
							bestEnd = len(content)
						}
						found = true
					}
				}
			}
		}
	}

	return bestStart, bestEnd, found
}

func nonEmptyIndices(lines []string, from, to int) []int {
	var idx []int
	for i := from; i < to; i++ {
		if strings.TrimSpace(lines[i]) != "" {
			idx = append(idx, i)
		}
	}
	return idx
}

// singleLineJaccard implements the single-line fallback: if snippet is
// one line of >= 4 non-space characters, find the file line with the
// highest Jaccard-ish similarity (here: normalized Levenshtein, matching
// the teacher's `similarity()` helper), accepting matches > 0.8 with a
// length delta < 15 chars.
func singleLineJaccard(content, snippet string) (start, end int, ok bool) {
	if strings.Contains(snippet, "\n") {
		return 0, 0, false
	}
	trimmed := strings.ReplaceAll(snippet, " ", "")
	if len(trimmed) < 4 {
		return 0, 0, false
	}

	contentLines, lineOffsets := splitWithOffsets(content)

	bestSim := 0.0
	bestIdx := -1
	for i, line := range contentLines {
		if abs(len(line)-len(snippet)) >= 15 {
			continue
		}
		sim := similarity(line, snippet)
		if sim > bestSim {
			bestSim = sim
			bestIdx = i
		}
	}

	if bestIdx == -1 || bestSim <= 0.8 {
		return 0, 0, false
	}

	start = lineOffsets[bestIdx]
	if bestIdx+1 < len(lineOffsets) {
		end = lineOffsets[bestIdx+1]
	} else {
		end = len(content)
	}
	return start, end, true
}

// similarity calculates normalized Levenshtein similarity, grounded on
// the teacher's tool/edit.go similarity() helper.
func similarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	if len(a) > 10000 || len(b) > 10000 {
		return float64(min(len(a), len(b))) / float64(max(len(a), len(b)))
	}
	dist := levenshtein.ComputeDistance(a, b)
	maxLen := max(len(a), len(b))
	return 1.0 - float64(dist)/float64(maxLen)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
