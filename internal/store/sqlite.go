package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mixzter/duel/internal/match"
)

// SQLite stores matches in the tables created by the migrations package.
type SQLite struct {
	db   *sql.DB
	opts options
}

func NewSQLite(db *sql.DB, opts ...Option) *SQLite {
	return &SQLite{db: db, opts: buildOptions(opts)}
}

func (s *SQLite) SaveMatch(ctx context.Context, m *match.Session) error {
	data, err := match.EncodeSession(m)
	if err != nil {
		return fmt.Errorf("encoding match: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO matches (id, updated_at, data) VALUES (?, ?, jsonb(?))
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at, data = excluded.data`,
		m.MatchID, m.UpdatedAt.UnixMilli(), string(data),
	)
	if err != nil {
		return fmt.Errorf("saving match %s: %w", m.MatchID, err)
	}
	return nil
}

func (s *SQLite) LoadMatch(ctx context.Context, id string) (*match.Session, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM matches WHERE id = ?`, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("match %s: %w", id, match.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading match %s: %w", id, err)
	}
	return match.DecodeSession([]byte(data))
}

func (s *SQLite) DeleteMatch(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting match %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM match_owners WHERE match_id = ?`, id); err != nil {
		return fmt.Errorf("deleting owner of %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("match %s: %w", id, match.ErrNotFound)
	}
	return tx.Commit()
}

// ListMatches returns up to limit matches, most recently updated first.
// Records that no longer decode are skipped.
func (s *SQLite) ListMatches(ctx context.Context, limit int) ([]match.Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT json(data) FROM matches ORDER BY updated_at DESC, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	defer rows.Close()

	summaries := []match.Summary{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		m, err := match.DecodeSession([]byte(data))
		if err != nil {
			continue
		}
		summaries = append(summaries, m.Summarize())
	}
	return summaries, rows.Err()
}

// LatestMatch returns the most recently updated match.
func (s *SQLite) LatestMatch(ctx context.Context) (*match.Session, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM matches ORDER BY updated_at DESC, id LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no matches: %w", match.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading latest match: %w", err)
	}
	return match.DecodeSession([]byte(data))
}

// SetOwner registers the token that authorizes changes to a match.
func (s *SQLite) SetOwner(ctx context.Context, matchID, token string) error {
	hash, err := hashToken(token, s.opts.tokenCost)
	if err != nil {
		return fmt.Errorf("hashing owner token: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO match_owners (match_id, token_hash, created_at) VALUES (?, ?, ?)`,
		matchID, hash, time.Now().UnixMilli(),
	)
	return err
}

// CheckOwner verifies token against the registered owner of a match. A match
// without a registered owner accepts any token.
func (s *SQLite) CheckOwner(ctx context.Context, matchID, token string) error {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT token_hash FROM match_owners WHERE match_id = ?`, matchID,
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return compareToken(hash, token)
}

// Check reports whether the database is reachable.
func (s *SQLite) Check(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
