package core

import (
	"fmt"
	"strings"
)

const unifiedContext = 3

// UnifiedDiff renders a unified diff with three lines of context between
// two text blocks, matching the classic diff -u layout. It returns the
// empty string when the inputs are equal.
func UnifiedDiff(oldText, newText, oldName, newName string) string {
	if oldText == newText {
		return ""
	}

	oldLines := strings.Split(oldText, "\n")
	newLines := strings.Split(newText, "\n")
	edits := diffLinesLCS(oldLines, newLines)

	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n", oldName)
	fmt.Fprintf(&b, "+++ %s\n", newName)

	for _, hunk := range groupHunks(edits) {
		first := hunk[0]
		oldCount, newCount := 0, 0
		for _, e := range hunk {
			if e.kind != editInsert {
				oldCount++
			}
			if e.kind != editDelete {
				newCount++
			}
		}
		fmt.Fprintf(&b, "@@ -%s +%s @@\n",
			formatRange(first.oldIndex, oldCount),
			formatRange(first.newIndex, newCount))
		for _, e := range hunk {
			switch e.kind {
			case editKeep:
				fmt.Fprintf(&b, " %s\n", oldLines[e.oldIndex])
			case editDelete:
				fmt.Fprintf(&b, "-%s\n", oldLines[e.oldIndex])
			case editInsert:
				fmt.Fprintf(&b, "+%s\n", newLines[e.newIndex])
			}
		}
	}

	return b.String()
}

type editKind int

const (
	editKeep editKind = iota
	editDelete
	editInsert
)

type edit struct {
	kind     editKind
	oldIndex int
	newIndex int
}

// diffLinesLCS produces the full edit script between two line slices using
// a longest-common-subsequence table. Record serializations are small, so
// the quadratic table is fine here.
func diffLinesLCS(old, new []string) []edit {
	n, m := len(old), len(new)
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if old[i] == new[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var edits []edit
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case old[i] == new[j]:
			edits = append(edits, edit{editKeep, i, j})
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			edits = append(edits, edit{editDelete, i, j})
			i++
		default:
			edits = append(edits, edit{editInsert, i, j})
			j++
		}
	}
	for ; i < n; i++ {
		edits = append(edits, edit{editDelete, i, j})
	}
	for ; j < m; j++ {
		edits = append(edits, edit{editInsert, i, j})
	}
	return edits
}

// groupHunks trims the edit script down to changed regions plus context.
func groupHunks(edits []edit) [][]edit {
	changed := make([]bool, len(edits))
	for i, e := range edits {
		if e.kind != editKeep {
			changed[i] = true
		}
	}

	// Mark context lines around every change.
	include := make([]bool, len(edits))
	for i := range edits {
		if !changed[i] {
			continue
		}
		lo := i - unifiedContext
		if lo < 0 {
			lo = 0
		}
		hi := i + unifiedContext
		if hi > len(edits)-1 {
			hi = len(edits) - 1
		}
		for k := lo; k <= hi; k++ {
			include[k] = true
		}
	}

	var hunks [][]edit
	var current []edit
	for i, e := range edits {
		if include[i] {
			current = append(current, e)
		} else if len(current) > 0 {
			hunks = append(hunks, current)
			current = nil
		}
	}
	if len(current) > 0 {
		hunks = append(hunks, current)
	}
	return hunks
}

// formatRange renders one side of a hunk header the way diff -u does:
// "start,count" with the count omitted when it is exactly one.
func formatRange(start, length int) string {
	if length == 1 {
		return fmt.Sprintf("%d", start+1)
	}
	if length == 0 {
		return fmt.Sprintf("%d,0", start)
	}
	return fmt.Sprintf("%d,%d", start+1, length)
}
