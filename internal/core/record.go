package core

import (
	"encoding/json"
	"fmt"
)

type MediaKind string

const (
	KindMovie MediaKind = "movie"
	KindShow  MediaKind = "show"
)

// releaseTypeNames maps the TMDB release type codes to readable names.
var releaseTypeNames = map[int]string{
	1: "Premiere",
	2: "LimitedTheatrical",
	3: "Theatrical",
	4: "Digital",
	5: "Physical",
	6: "TV",
}

// ReleaseTypeName returns the name for a TMDB release type code. Codes
// outside the known range come back as "Unknown" rather than an error, so
// new upstream codes show up in diffs instead of breaking the poll.
func ReleaseTypeName(code int) string {
	if name, ok := releaseTypeNames[code]; ok {
		return name
	}
	return "Unknown"
}

// Release is one entry of a movie's canonical release date list.
type Release struct {
	Type   string `json:"type"`
	Region string `json:"iso_639_1"`
	Date   string `json:"release_date"`
}

// NextEpisode is the next-episode-to-air sub-record of a show. Missing
// upstream fields normalize to zero values, never to absent keys.
type NextEpisode struct {
	SeasonNumber  int    `json:"season_number"`
	EpisodeNumber int    `json:"episode_number"`
	Name          string `json:"name"`
	ID            int    `json:"id"`
	AirDate       string `json:"air_date"`
}

// Record is the provider-independent snapshot of one movie or show. It is
// what gets cached, diffed and rendered; it is never mutated after
// normalization.
type Record struct {
	ID            int          `json:"id"`
	Kind          MediaKind    `json:"kind"`
	Title         string       `json:"title"`
	OriginalTitle string       `json:"original_title"`
	Status        string       `json:"status"`
	ReleaseDates  []Release    `json:"release_dates"`
	NextEpisode   *NextEpisode `json:"next_episode_to_air,omitempty"`
}

// WebURL returns the canonical TMDB page for the record.
func (r *Record) WebURL() string {
	if r.Kind == KindShow {
		return fmt.Sprintf("https://www.themoviedb.org/tv/%d", r.ID)
	}
	return fmt.Sprintf("https://www.themoviedb.org/movie/%d", r.ID)
}

// Tree converts the record into the decoded-JSON form the differ works on.
// Going through a marshal round trip keeps the comparison representation
// identical to what the cache file deserializes to.
func (r *Record) Tree() (map[string]interface{}, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize record: %w", err)
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to rebuild record tree: %w", err)
	}
	switch r.Kind {
	case KindShow:
		// Shows carry next_episode_to_air instead of a release list.
		delete(tree, "release_dates")
	case KindMovie:
		if tree["release_dates"] == nil {
			tree["release_dates"] = []interface{}{}
		}
	}
	return tree, nil
}
