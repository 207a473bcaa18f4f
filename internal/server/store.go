package server

import (
	"context"

	"github.com/mixzter/duel/internal/match"
)

// Store is the persistence the HTTP layer needs on top of match.Repository.
type Store interface {
	match.Repository
	ListMatches(ctx context.Context, limit int) ([]match.Summary, error)
	LatestMatch(ctx context.Context) (*match.Session, error)
	SetOwner(ctx context.Context, matchID, token string) error
	CheckOwner(ctx context.Context, matchID, token string) error
}
