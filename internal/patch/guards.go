package patch

import (
	"errors"
	"strings"
)

// ErrDestructiveEdit is returned when a SEARCH/REPLACE block trips a
// destructive-edit guard (spec §4.4).
var ErrDestructiveEdit = errors.New("patch: refused destructive edit")

// ErrSearchNotFound is returned when no tier locates the SEARCH text in
// the target file.
var ErrSearchNotFound = errors.New("patch: SEARCH block does not match")

// ErrWriteFullGuard is returned when a write_full proposes truncating an
// existing file by more than half.
var ErrWriteFullGuard = errors.New("patch: write_full refused (looks like bulk deletion)")

// isDestructive reports whether a SEARCH/REPLACE pair trips a
// destructive-edit guard: REPLACE is empty, or SEARCH has more than 3
// lines and REPLACE has none, or SEARCH is >= 100 chars and REPLACE is
// less than 30% of its length.
func isDestructive(search, replace string) bool {
	if replace == "" {
		return true
	}
	searchLines := strings.Count(search, "\n") + 1
	if searchLines > 3 && strings.TrimSpace(replace) == "" {
		return true
	}
	if len(search) >= 100 && float64(len(replace)) < 0.3*float64(len(search)) {
		return true
	}
	return false
}

// isNoop reports whether a SEARCH/REPLACE pair is a no-op (SEARCH equals
// REPLACE exactly), which should be silently skipped rather than applied
// or refused.
func isNoop(search, replace string) bool {
	return search == replace
}

// writeFullGuardTrips reports whether replacing an existing file's
// content of length existingLen with a new body of length newLen should
// be refused: existing > 200 bytes and proposed < 50% of existing length.
func writeFullGuardTrips(existingLen, newLen int) bool {
	if existingLen <= 200 {
		return false
	}
	return float64(newLen) < 0.5*float64(existingLen)
}
