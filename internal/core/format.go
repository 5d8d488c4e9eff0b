package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

const sectionSeparator = "------"

// FormatChange renders the notification subject and body for a detected
// change. It reports false when the diff is empty, in which case the caller
// must neither notify nor rewrite the cache. Output is deterministic for
// identical inputs: both trees serialize with sorted keys.
func FormatChange(rec *Record, oldTree, newTree map[string]interface{}, ops []ChangeOp) (bool, string, string) {
	if len(ops) == 0 {
		return false, "", ""
	}

	subject := fmt.Sprintf("Change in %s %q (%d)", rec.Kind, rec.Title, rec.ID)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", rec.WebURL())
	fmt.Fprintf(&b, "Title: %s\n", rec.Title)
	fmt.Fprintf(&b, "Original title: %s\n", rec.OriginalTitle)
	fmt.Fprintf(&b, "Status: %s\n", rec.Status)

	switch rec.Kind {
	case KindMovie:
		for _, r := range rec.ReleaseDates {
			fmt.Fprintf(&b, "Release(%s, %s): %s\n", r.Type, r.Region, r.Date)
		}
	case KindShow:
		if next := rec.NextEpisode; next != nil {
			fmt.Fprintf(&b, "%dx%02d - %s (%d)  --  %s\n",
				next.SeasonNumber, next.EpisodeNumber, next.Name, next.ID, next.AirDate)
		}
	}

	fmt.Fprintf(&b, "\n%s\n\n", sectionSeparator)
	b.WriteString(UnifiedDiff(
		prettyJSON(oldTree), prettyJSON(newTree),
		fmt.Sprintf("%d.json.old", rec.ID), fmt.Sprintf("%d.json.new", rec.ID)))
	fmt.Fprintf(&b, "\n%s\n\n", sectionSeparator)

	for _, op := range ops {
		b.WriteString(op.String())
		b.WriteByte('\n')
	}

	return true, subject, b.String()
}

// prettyJSON serializes a record tree with two-space indentation. Map keys
// come out sorted, which keeps the serialization stable across both the
// cached and the freshly fetched side.
func prettyJSON(tree map[string]interface{}) string {
	if tree == nil {
		tree = map[string]interface{}{}
	}
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
