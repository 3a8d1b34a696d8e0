package patch

import "strings"

// DiffBlock is one parsed `<<<<<<< SEARCH ... ======= ... >>>>>>> REPLACE`
// block.
type DiffBlock struct {
	Search  string
	Replace string
}

const (
	markerSearch  = "<<<<<<< SEARCH"
	markerDivider = "======="
	markerReplace = ">>>>>>> REPLACE"
)

// HasEmbeddedDiff reports whether content contains the literal SEARCH
// marker.
func HasEmbeddedDiff(content string) bool {
	return strings.Contains(content, markerSearch)
}

// ParseDiffBlocks hand-scans content for zero or more SEARCH/REPLACE
// blocks. A proper scanner avoids the overlapping-match pitfalls a
// regex-based parser hits when multiple blocks appear back to back.
func ParseDiffBlocks(content string) []DiffBlock {
	var blocks []DiffBlock
	pos := 0

	for {
		searchIdx := strings.Index(content[pos:], markerSearch)
		if searchIdx == -1 {
			break
		}
		searchIdx += pos
		searchBodyStart := searchIdx + len(markerSearch)
		if searchBodyStart < len(content) && content[searchBodyStart] == '\n' {
			searchBodyStart++
		}

		dividerIdx := strings.Index(content[searchBodyStart:], "\n"+markerDivider)
		if dividerIdx == -1 {
			break
		}
		dividerIdx += searchBodyStart
		search := content[searchBodyStart:dividerIdx]

		replaceBodyStart := dividerIdx + 1 + len(markerDivider)
		if replaceBodyStart < len(content) && content[replaceBodyStart] == '\n' {
			replaceBodyStart++
		}

		replaceEndIdx := strings.Index(content[replaceBodyStart:], "\n"+markerReplace)
		var replace string
		var next int
		if replaceEndIdx == -1 {
			// Tolerate a missing trailing marker line: the rest of the
			// content (up to the next SEARCH marker, if any) is REPLACE.
			nextSearch := strings.Index(content[replaceBodyStart:], markerSearch)
			if nextSearch == -1 {
				replace = content[replaceBodyStart:]
				next = len(content)
			} else {
				replace = strings.TrimRight(content[replaceBodyStart:replaceBodyStart+nextSearch], "\n")
				next = replaceBodyStart + nextSearch
			}
		} else {
			replaceEndIdx += replaceBodyStart
			replace = content[replaceBodyStart:replaceEndIdx]
			next = replaceEndIdx + 1 + len(markerReplace)
		}

		blocks = append(blocks, DiffBlock{Search: search, Replace: replace})
		pos = next
	}

	return blocks
}
