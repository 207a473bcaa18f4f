// Package mixzter defines the core domain vocabulary shared by the match
// engine, the fact providers and the persistence adapters.
package mixzter

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fact is a single song record. Year is the ground truth a guess is judged
// against and must not reach a player before the guess is resolved.
type Fact struct {
	Artist   string `json:"artist"`
	Title    string `json:"title"`
	Year     int    `json:"year"`
	MediaURL string `json:"mediaUrl"`
}

// Key returns the normalized "artist - title" dedup key of f.
func (f Fact) Key() string {
	return FactKey(f.Artist, f.Title)
}

// Validate reports whether every field a provider must supply is present.
func (f Fact) Validate() error {
	switch {
	case strings.TrimSpace(f.Artist) == "":
		return fmt.Errorf("fact is missing artist")
	case strings.TrimSpace(f.Title) == "":
		return fmt.Errorf("fact is missing title")
	case f.Year <= 0:
		return fmt.Errorf("fact is missing year")
	case strings.TrimSpace(f.MediaURL) == "":
		return fmt.Errorf("fact is missing media url")
	}
	return nil
}

// WithMediaFallback replaces a media URL that is not an http(s) link with a
// Spotify search for the song.
func (f Fact) WithMediaFallback() Fact {
	if !strings.HasPrefix(f.MediaURL, "http") {
		f.MediaURL = "https://open.spotify.com/search/" + url.PathEscape(f.Artist+" "+f.Title)
	}
	return f
}

var folder = cases.Fold()

// FactKey builds the dedup key for a song. Keys are NFC-normalized and case
// folded so "ABBA - Waterloo" and "abba - waterloo" collide.
func FactKey(artist, title string) string {
	s := strings.TrimSpace(artist) + " - " + strings.TrimSpace(title)
	return folder.String(norm.NFC.String(s))
}

// Category selects the pool facts are drawn from.
type Category string

const (
	CategoryDefault      Category = "default"
	CategorySvenska      Category = "svenska"
	CategoryEurovision   Category = "eurovision"
	CategoryRock         Category = "rock"
	CategoryOneHitWonder Category = "onehitwonder"
)

// CategoryConfig is the provider-facing description of a category.
type CategoryConfig struct {
	Label    string
	Prompt   string
	FromYear int
	ToYear   int
}

var categories = map[Category]CategoryConfig{
	CategoryDefault: {
		Label:    "Mixed 1950-2025",
		Prompt:   "Choose a popular, culturally significant song from 1950 to 2025. Prefer global English hits.",
		FromYear: 1950,
		ToYear:   2025,
	},
	CategorySvenska: {
		Label:    "Svenska Hits",
		Prompt:   "Choose a Swedish song (sung in Swedish or by a very famous Swedish artist) from 1960 to 2025.",
		FromYear: 1960,
		ToYear:   2025,
	},
	CategoryEurovision: {
		Label:    "Eurovision",
		Prompt:   "Choose a song that competed in the Eurovision Song Contest between 1956 and 2025.",
		FromYear: 1956,
		ToYear:   2025,
	},
	CategoryRock: {
		Label:    "Rock & Metal",
		Prompt:   "Choose a song in the Rock, Hard Rock, Metal or Punk genres from 1960 to 2025.",
		FromYear: 1960,
		ToYear:   2025,
	},
	CategoryOneHitWonder: {
		Label:    "One Hit Wonders",
		Prompt:   "Choose a classic One Hit Wonder from 1970 to 2015.",
		FromYear: 1970,
		ToYear:   2015,
	},
}

// Categories lists every category in display order.
func Categories() []Category {
	return []Category{
		CategoryDefault,
		CategorySvenska,
		CategoryEurovision,
		CategoryRock,
		CategoryOneHitWonder,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// Config returns the configuration of c. Unknown categories fall back to the
// default pool.
func (c Category) Config() CategoryConfig {
	if cfg, ok := categories[c]; ok {
		return cfg
	}
	return categories[CategoryDefault]
}

// ParseCategory converts user input to a Category. An empty string selects
// the default category.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CategoryDefault, nil
	}
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}
