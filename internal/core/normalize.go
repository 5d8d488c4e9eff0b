package core

import "fmt"

// regionPriority is the fallback chain for picking a movie's canonical
// release list. The first region with a non-empty list wins; lists are
// never merged across regions.
var regionPriority = []string{"US", "GB", "DE"}

// Normalize maps a raw TMDB payload into a Record. An unrecognized kind is
// a contract violation by the caller, not a runtime condition.
func Normalize(kind MediaKind, id int, payload map[string]interface{}) (*Record, error) {
	switch kind {
	case KindMovie:
		return normalizeMovie(id, payload), nil
	case KindShow:
		return normalizeShow(id, payload), nil
	default:
		return nil, fmt.Errorf("unsupported media kind %q", kind)
	}
}

func normalizeMovie(id int, payload map[string]interface{}) *Record {
	title := stringField(payload, "title")
	original := stringField(payload, "original_title")
	if original == "" {
		original = title
	}

	rec := &Record{
		ID:            id,
		Kind:          KindMovie,
		Title:         title,
		OriginalTitle: original,
		Status:        stringField(payload, "status"),
		ReleaseDates:  []Release{},
	}

	for _, region := range regionPriority {
		releases := releasesForRegion(payload, region)
		if len(releases) > 0 {
			rec.ReleaseDates = releases
			break
		}
	}

	return rec
}

func normalizeShow(id int, payload map[string]interface{}) *Record {
	title := stringField(payload, "name")
	original := stringField(payload, "original_name")
	if original == "" {
		original = title
	}

	rec := &Record{
		ID:            id,
		Kind:          KindShow,
		Title:         title,
		OriginalTitle: original,
		Status:        stringField(payload, "status"),
	}

	if next, ok := payload["next_episode_to_air"].(map[string]interface{}); ok {
		rec.NextEpisode = &NextEpisode{
			SeasonNumber:  intField(next, "season_number"),
			EpisodeNumber: intField(next, "episode_number"),
			Name:          stringField(next, "name"),
			ID:            intField(next, "id"),
			AirDate:       stringField(next, "air_date"),
		}
	}

	return rec
}

// releasesForRegion extracts the release list for one region from the
// payload's release_dates.results structure. Each entry's numeric type code
// is replaced by its name and the entry is tagged with the region it came
// from.
func releasesForRegion(payload map[string]interface{}, region string) []Release {
	dates, ok := payload["release_dates"].(map[string]interface{})
	if !ok {
		return nil
	}
	results, ok := dates["results"].([]interface{})
	if !ok {
		return nil
	}

	for _, entry := range results {
		group, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		if stringField(group, "iso_3166_1") != region {
			continue
		}

		raw, ok := group["release_dates"].([]interface{})
		if !ok {
			return nil
		}
		releases := make([]Release, 0, len(raw))
		for _, item := range raw {
			fields, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			releases = append(releases, Release{
				Type:   ReleaseTypeName(intField(fields, "type")),
				Region: region,
				Date:   stringField(fields, "release_date"),
			})
		}
		return releases
	}

	return nil
}

func stringField(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// intField tolerates both float64 (decoded JSON) and int values.
func intField(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
