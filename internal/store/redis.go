package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mixzter/duel/internal/match"
)

// Redis stores each match under its own key and indexes them in a sorted
// set scored by last update.
type Redis struct {
	rdb    *redis.Client
	prefix string
	opts   options
}

// NewRedis uses rdb with keys under prefix, e.g. "mixzter:".
func NewRedis(rdb *redis.Client, prefix string, opts ...Option) *Redis {
	return &Redis{rdb: rdb, prefix: prefix, opts: buildOptions(opts)}
}

func (r *Redis) matchKey(id string) string { return r.prefix + "match:" + id }
func (r *Redis) ownerKey(id string) string { return r.prefix + "owner:" + id }
func (r *Redis) indexKey() string          { return r.prefix + "matches" }

func (r *Redis) SaveMatch(ctx context.Context, m *match.Session) error {
	data, err := match.EncodeSession(m)
	if err != nil {
		return fmt.Errorf("encoding match: %w", err)
	}
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.matchKey(m.MatchID), data, 0)
		p.ZAdd(ctx, r.indexKey(), redis.Z{Score: float64(m.UpdatedAt.UnixMilli()), Member: m.MatchID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving match %s: %w", m.MatchID, err)
	}
	return nil
}

func (r *Redis) LoadMatch(ctx context.Context, id string) (*match.Session, error) {
	data, err := r.rdb.Get(ctx, r.matchKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("match %s: %w", id, match.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading match %s: %w", id, err)
	}
	return match.DecodeSession(data)
}

func (r *Redis) DeleteMatch(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		del = p.Del(ctx, r.matchKey(id))
		p.Del(ctx, r.ownerKey(id))
		p.ZRem(ctx, r.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting match %s: %w", id, err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("match %s: %w", id, match.ErrNotFound)
	}
	return nil
}

// ListMatches returns up to limit matches, most recently updated first.
// Index entries whose record is gone or malformed are skipped.
func (r *Redis) ListMatches(ctx context.Context, limit int) ([]match.Summary, error) {
	sessions, err := r.recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	summaries := make([]match.Summary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, s.Summarize())
	}
	return summaries, nil
}

// LatestMatch returns the most recently updated match.
func (r *Redis) LatestMatch(ctx context.Context) (*match.Session, error) {
	sessions, err := r.recent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("no matches: %w", match.ErrNotFound)
	}
	return sessions[0], nil
}

func (r *Redis) recent(ctx context.Context, limit int) ([]*match.Session, error) {
	if limit <= 0 {
		return nil, nil
	}
	ids, err := r.rdb.ZRevRange(ctx, r.indexKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.matchKey(id)
	}
	values, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("loading matches: %w", err)
	}

	sessions := make([]*match.Session, 0, len(values))
	for _, v := range values {
		data, ok := v.(string)
		if !ok {
			continue
		}
		s, err := match.DecodeSession([]byte(data))
		if err != nil {
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// SetOwner registers the token that authorizes changes to a match.
func (r *Redis) SetOwner(ctx context.Context, matchID, token string) error {
	hash, err := hashToken(token, r.opts.tokenCost)
	if err != nil {
		return fmt.Errorf("hashing owner token: %w", err)
	}
	return r.rdb.Set(ctx, r.ownerKey(matchID), hash, 0).Err()
}

// CheckOwner verifies token against the registered owner of a match. A match
// without a registered owner accepts any token.
func (r *Redis) CheckOwner(ctx context.Context, matchID, token string) error {
	hash, err := r.rdb.Get(ctx, r.ownerKey(matchID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	return compareToken(hash, token)
}

// Check reports whether Redis is reachable.
func (r *Redis) Check(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
