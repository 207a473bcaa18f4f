package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mixzter/duel/internal/database"
	"github.com/mixzter/duel/internal/match"
	"github.com/mixzter/duel/internal/migrations"
	"github.com/mixzter/duel/internal/mixzter"
	"github.com/mixzter/duel/internal/provider"
	"github.com/mixzter/duel/internal/store"
	"github.com/mixzter/duel/internal/timeline"
)

var errQuit = errors.New("quit")

var newProvider = func(seed uint64) (match.FactProvider, error) {
	return provider.NewCatalog(seed)
}

func newLogger(cfg *Config) *slog.Logger {
	level := slog.LevelError
	if cfg.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func openStore(ctx context.Context, path string) (*store.SQLite, func(), error) {
	db, err := database.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	return store.NewSQLite(db), func() { db.Close() }, nil
}

func play(ctx context.Context, cfg *Config, in io.Reader, out io.Writer) error {
	st, closeStore, err := openStore(ctx, cfg.dbPath)
	if err != nil {
		return err
	}
	defer closeStore()

	seed := cfg.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	songs, err := newProvider(seed)
	if err != nil {
		return err
	}

	opts := match.Options{Provider: songs, Repository: st, Logger: newLogger(cfg)}

	var e *match.Engine
	switch {
	case cfg.resume != "":
		e, err = match.Resume(ctx, cfg.resume, opts)
	case cfg.latest:
		var s *match.Session
		if s, err = st.LatestMatch(ctx); err == nil {
			e = match.New(s, opts)
		}
	default:
		category, _ := mixzter.ParseCategory(cfg.category)
		e, err = match.Start(ctx, match.Setup{
			PlayerA:    cfg.player1,
			PlayerB:    cfg.player2,
			Category:   category,
			SkipTokens: cfg.tokens,
		}, opts)
	}
	if err != nil {
		return err
	}

	snap := e.Snapshot()
	fmt.Fprintf(out, "match %s: %s vs %s, %s\n", e.ID(), snap.Match.PlayerA.Name, snap.Match.PlayerB.Name,
		snap.Match.Category.Config().Label)
	return newTerminal(e, in, out).run(ctx)
}

// terminal drives one engine from line-based input.
type terminal struct {
	e   *match.Engine
	in  *bufio.Scanner
	out io.Writer
}

func newTerminal(e *match.Engine, in io.Reader, out io.Writer) *terminal {
	return &terminal{e: e, in: bufio.NewScanner(in), out: out}
}

func (t *terminal) run(ctx context.Context) error {
	for ctx.Err() == nil {
		err := t.step(ctx)
		switch {
		case err == nil:
		case errors.Is(err, errQuit):
			fmt.Fprintf(t.out, "saved, resume with: duel --resume %s\n", t.e.ID())
			return nil
		case match.CodeOf(err) == match.CodeValidation, match.CodeOf(err) == match.CodeProvider:
			fmt.Fprintf(t.out, "! %v\n", err)
		default:
			return err
		}
	}
	return nil
}

func (t *terminal) prompt(format string, args ...any) (string, error) {
	fmt.Fprintf(t.out, format, args...)
	fmt.Fprint(t.out, "> ")
	if !t.in.Scan() {
		if err := t.in.Err(); err != nil {
			return "", err
		}
		return "", errQuit
	}
	line := strings.TrimSpace(t.in.Text())
	if strings.EqualFold(line, "q") {
		return "", errQuit
	}
	return line, nil
}

func (t *terminal) step(ctx context.Context) error {
	snap := t.e.Snapshot()
	if snap.PersistError != "" {
		fmt.Fprintf(t.out, "! progress not saved: %s\n", snap.PersistError)
	}
	active := snap.Match.Active()

	switch snap.Phase {
	case match.PhaseIdle:
		t.scoreboard(snap.Match)
		if _, err := t.prompt("%s, press enter to draw a song (q quits)\n", active.Name); err != nil {
			return err
		}
		_, err := t.e.Load(ctx)
		return err

	case match.PhaseAcquiring:
		if _, err := t.prompt("no song yet, press enter to try again\n"); err != nil {
			return err
		}
		_, err := t.e.Load(ctx)
		return err

	case match.PhaseGuessing:
		t.card(snap)
		line, err := t.prompt("year? (h)int, (s)kip with %d token(s) left\n", active.SkipTokens)
		if err != nil {
			return err
		}
		switch strings.ToLower(line) {
		case "h":
			_, err = t.e.ToggleHint()
		case "s":
			if active.SkipTokens == 0 {
				fmt.Fprintln(t.out, "no skip tokens left")
				return nil
			}
			_, err = t.e.Skip(ctx)
		default:
			_, err = t.e.Submit(line)
		}
		return err

	case match.PhaseDisambiguating:
		line, err := t.prompt("%d is already on your timeline. (b)efore or (a)fter it?\n", snap.Guess)
		if err != nil {
			return err
		}
		side, err := parseSide(line)
		if err != nil {
			fmt.Fprintln(t.out, err)
			return nil
		}
		if _, err := t.e.Choose(side); err != nil {
			return err
		}
		_, err = t.e.Confirm()
		return err

	case match.PhaseResolved:
		f := snap.Outcome.Fact
		if !snap.Outcome.Correct {
			fmt.Fprintf(t.out, "wrong: %s - %s is from %d\n", f.Artist, f.Title, f.Year)
			if n := len(snap.Match.PendingBuffer); n > 0 {
				fmt.Fprintf(t.out, "%d unbanked card(s) lost\n", n)
			}
			if _, err := t.prompt("press enter for the next player\n"); err != nil {
				return err
			}
			_, err := t.e.NextPlayer(ctx)
			return err
		}

		fmt.Fprintf(t.out, "correct: %s - %s is from %d\n", f.Artist, f.Title, f.Year)
		line, err := t.prompt("(c)ontinue the streak or (b)ank %d card(s)\n", len(snap.Match.PendingBuffer)+1)
		if err != nil {
			return err
		}
		switch strings.ToLower(line) {
		case "c":
			_, err = t.e.Continue(ctx)
		case "b":
			_, err = t.e.BankAndPass(ctx)
		default:
			fmt.Fprintln(t.out, "type c or b")
		}
		return err
	}
	return fmt.Errorf("unexpected phase %s", snap.Phase)
}

func parseSide(s string) (timeline.Side, error) {
	switch strings.ToLower(s) {
	case "b":
		return timeline.Before, nil
	case "a":
		return timeline.After, nil
	}
	return timeline.ParseSide(s)
}

func (t *terminal) scoreboard(s *match.Session) {
	for _, slot := range []match.Slot{match.SlotA, match.SlotB} {
		p := s.Player(slot)
		marker := " "
		if slot == s.ActivePlayer {
			marker = "*"
		}
		fmt.Fprintf(t.out, "%s %-12s %2d  %s\n", marker, p.Name, p.Score(), joinYears(p.CommittedYears))
	}
}

func (t *terminal) card(snap match.Snapshot) {
	fmt.Fprintf(t.out, "listen: %s\n", snap.Card.MediaURL)
	if snap.HintShown {
		fmt.Fprintf(t.out, "hint: %s - %s\n", snap.Card.Artist, snap.Card.Title)
	}
	fmt.Fprintf(t.out, "timeline: %s\n", joinYears(snap.Match.EffectiveTimeline()))
	if len(snap.Match.PendingBuffer) > 0 {
		fmt.Fprintf(t.out, "unbanked: %s\n", joinYears(snap.Match.PendingBuffer))
	}
}

func joinYears(years []int) string {
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = fmt.Sprint(y)
	}
	return strings.Join(parts, " ")
}

func listMatches(ctx context.Context, cfg *Config, limit int, out io.Writer) error {
	st, closeStore, err := openStore(ctx, cfg.dbPath)
	if err != nil {
		return err
	}
	defer closeStore()

	list, err := st.ListMatches(ctx, limit)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "no matches")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPLAYERS\tSCORE\tCATEGORY\tUPDATED")
	for _, m := range list {
		fmt.Fprintf(tw, "%s\t%s vs %s\t%d-%d\t%s\t%s\n", m.ID, m.Player1, m.Player2, m.P1Score, m.P2Score,
			m.Category, m.UpdatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func abandonMatch(ctx context.Context, cfg *Config, id string, out io.Writer) error {
	st, closeStore, err := openStore(ctx, cfg.dbPath)
	if err != nil {
		return err
	}
	defer closeStore()

	e, err := match.Resume(ctx, id, match.Options{Repository: st, Logger: newLogger(cfg)})
	if err != nil {
		return err
	}
	if err := e.Abandon(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "abandoned %s\n", id)
	return nil
}
