// Package provider contains the fact sources a match can draw songs from.
package provider

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/mixzter/duel/internal/mixzter"
)

//go:embed catalog.json
var catalogJSON []byte

// ErrEmptyCategory is returned when a category has no songs.
var ErrEmptyCategory = errors.New("category has no songs")

// Catalog serves songs from a fixed list. It prefers songs outside the
// exclusion hint and falls back to the full list once every song was seen.
type Catalog struct {
	mu    sync.Mutex
	rng   *rand.Rand
	songs map[mixzter.Category][]mixzter.Fact
}

// NewCatalog loads the embedded song list. The seed makes draws repeatable.
func NewCatalog(seed uint64) (*Catalog, error) {
	songs := make(map[mixzter.Category][]mixzter.Fact)
	if err := json.Unmarshal(catalogJSON, &songs); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	return NewCatalogFrom(seed, songs), nil
}

// NewCatalogFrom builds a catalog over the given songs.
func NewCatalogFrom(seed uint64, songs map[mixzter.Category][]mixzter.Fact) *Catalog {
	return &Catalog{
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		songs: songs,
	}
}

func (c *Catalog) Fact(ctx context.Context, category mixzter.Category, exclude []string) (mixzter.Fact, error) {
	if err := ctx.Err(); err != nil {
		return mixzter.Fact{}, err
	}

	all := c.songs[category]
	if len(all) == 0 {
		return mixzter.Fact{}, fmt.Errorf("%w: %s", ErrEmptyCategory, category)
	}

	fresh := make([]mixzter.Fact, 0, len(all))
	for _, f := range all {
		if !slices.Contains(exclude, f.Key()) {
			fresh = append(fresh, f)
		}
	}
	if len(fresh) == 0 {
		fresh = all
	}

	c.mu.Lock()
	f := fresh[c.rng.IntN(len(fresh))]
	c.mu.Unlock()

	return f.WithMediaFallback(), nil
}

// Size returns the number of songs in category.
func (c *Catalog) Size(category mixzter.Category) int {
	return len(c.songs[category])
}
