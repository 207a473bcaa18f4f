package match

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mixzter/duel/internal/mixzter"
	"github.com/mixzter/duel/internal/timeline"
)

// MinGuessYear is the earliest year a guess may name.
const MinGuessYear = 1900

// DefaultHintSize is how many recent fact keys are sent as exclusion hint.
const DefaultHintSize = 20

// FactProvider supplies the next song for a category. exclude lists recently
// seen fact keys the provider should avoid.
type FactProvider interface {
	Fact(ctx context.Context, category mixzter.Category, exclude []string) (mixzter.Fact, error)
}

// Repository persists match sessions keyed by match id. LoadMatch returns an
// error matching ErrNotFound for a missing or malformed record.
type Repository interface {
	SaveMatch(ctx context.Context, s *Session) error
	LoadMatch(ctx context.Context, id string) (*Session, error)
	DeleteMatch(ctx context.Context, id string) error
}

// Phase is the turn state.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseAcquiring      Phase = "acquiring"
	PhaseGuessing       Phase = "guessing"
	PhaseDisambiguating Phase = "disambiguating"
	PhaseResolved       Phase = "resolved"
)

// Outcome is the result of a resolved guess.
type Outcome struct {
	Correct bool         `json:"correct"`
	Fact    mixzter.Fact `json:"fact"`
}

// Card is the player-facing view of the fact in play. Year is only set once
// the guess is resolved; Artist and Title only with the hint shown or after
// resolution.
type Card struct {
	MediaURL string `json:"mediaUrl"`
	Artist   string `json:"artist,omitempty"`
	Title    string `json:"title,omitempty"`
	Year     int    `json:"year,omitempty"`
	Revealed bool   `json:"revealed"`
}

// Snapshot is a read-only view of a match and its current turn.
type Snapshot struct {
	Match        *Session `json:"match"`
	Phase        Phase    `json:"phase"`
	Card         *Card    `json:"card,omitempty"`
	Guess        int      `json:"guess,omitempty"`
	Placement    string   `json:"placement,omitempty"`
	HintShown    bool     `json:"hintShown"`
	Outcome      *Outcome `json:"outcome,omitempty"`
	Busy         bool     `json:"busy"`
	PersistError string   `json:"persistError,omitempty"`
}

type turn struct {
	phase    Phase
	fact     *mixzter.Fact
	guess    int
	side     timeline.Side
	hint     bool
	outcome  *Outcome
	inflight bool
}

// Options configures an Engine.
type Options struct {
	Provider   FactProvider
	Repository Repository
	Logger     *slog.Logger
	Now        func() time.Time
	// HintSize overrides DefaultHintSize.
	HintSize int
	// Strict makes contract violations panic instead of returning an error.
	Strict bool
	// OnChange is called with the new snapshot after every transition. It
	// runs with the engine locked and must not call back into the engine.
	OnChange func(Snapshot)
}

// Engine drives the turns of a single match. Intents are processed one at a
// time; only fact acquisition releases the lock while it waits on the
// provider, and every other intent is rejected with ErrBusy meanwhile.
type Engine struct {
	mu         sync.Mutex
	session    *Session
	turn       turn
	epoch      uint64
	abandoned  bool
	persistErr error

	provider FactProvider
	repo     Repository
	logger   *slog.Logger
	now      func() time.Time
	hintSize int
	strict   bool
	onChange func(Snapshot)
}

// New wraps an existing session. The turn starts idle.
func New(s *Session, opts Options) *Engine {
	e := &Engine{
		session:  s,
		turn:     turn{phase: PhaseIdle},
		provider: opts.Provider,
		repo:     opts.Repository,
		logger:   opts.Logger,
		now:      opts.Now,
		hintSize: opts.HintSize,
		strict:   opts.Strict,
		onChange: opts.OnChange,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.hintSize <= 0 {
		e.hintSize = DefaultHintSize
	}
	e.logger = e.logger.With("match_id", s.MatchID)
	return e
}

// Start creates and persists a new match.
func Start(ctx context.Context, setup Setup, opts Options) (*Engine, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	s, err := NewSession(uuid.NewString(), setup, now())
	if err != nil {
		return nil, err
	}
	e := New(s, opts)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.persist(ctx)
	e.logger.Info("match started", "player_a", s.PlayerA.Name, "player_b", s.PlayerB.Name, "category", s.Category)
	return e, nil
}

// Resume rehydrates a persisted match.
func Resume(ctx context.Context, id string, opts Options) (*Engine, error) {
	if opts.Repository == nil {
		return nil, newError(CodeNotFound, "no repository configured")
	}
	s, err := opts.Repository.LoadMatch(ctx, id)
	if err != nil {
		if CodeOf(err) == CodeNotFound {
			return nil, err
		}
		return nil, wrapError(CodePersistence, "loading match", err)
	}
	return New(s, opts), nil
}

// ID returns the match id.
func (e *Engine) ID() string {
	return e.session.MatchID
}

// Snapshot returns the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

// Load requests a fact for the active player. It is valid when the turn is
// idle or when a previous request failed.
func (e *Engine) Load(ctx context.Context) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return e.snapshot(), err
	}
	if e.turn.phase != PhaseIdle && e.turn.phase != PhaseAcquiring {
		return e.snapshot(), e.violation("load in phase %s", e.turn.phase)
	}
	return e.acquire(ctx)
}

// Submit handles a guessed year typed by the player.
func (e *Engine) Submit(yearText string) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return e.snapshot(), err
	}
	if e.turn.phase != PhaseGuessing {
		return e.snapshot(), e.violation("submit in phase %s", e.turn.phase)
	}

	year, err := e.parseYear(yearText)
	if err != nil {
		return e.snapshot(), err
	}

	e.turn.guess = year
	e.turn.side = timeline.SideNone
	if timeline.Contains(e.session.EffectiveTimeline(), year) {
		e.turn.phase = PhaseDisambiguating
		e.logger.Debug("guess collides", "year", year)
		return e.changed(), nil
	}
	return e.resolve()
}

var yearPattern = regexp.MustCompile(`^[0-9]{4}$`)

func (e *Engine) parseYear(text string) (int, error) {
	if !yearPattern.MatchString(text) {
		return 0, newError(CodeValidation, "guess must be a four digit year")
	}
	year, _ := strconv.Atoi(text)
	if current := e.now().Year(); year < MinGuessYear || year > current {
		return 0, newError(CodeValidation, fmt.Sprintf("guess must be between %d and %d", MinGuessYear, current))
	}
	return year, nil
}

// Choose records the side for a colliding guess. A later choice replaces an
// earlier one until Confirm is called.
func (e *Engine) Choose(side timeline.Side) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return e.snapshot(), err
	}
	if e.turn.phase != PhaseDisambiguating {
		return e.snapshot(), e.violation("choose in phase %s", e.turn.phase)
	}
	if side != timeline.Before && side != timeline.After {
		return e.snapshot(), newError(CodeValidation, "side must be before or after")
	}
	e.turn.side = side
	return e.changed(), nil
}

// Confirm evaluates a colliding guess with the chosen side.
func (e *Engine) Confirm() (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return e.snapshot(), err
	}
	if e.turn.phase != PhaseDisambiguating {
		return e.snapshot(), e.violation("confirm in phase %s", e.turn.phase)
	}
	if e.turn.side == timeline.SideNone {
		return e.snapshot(), newError(CodeValidation, "choose before or after first")
	}
	return e.resolve()
}

// ToggleHint shows or hides artist and title of the fact in play.
func (e *Engine) ToggleHint() (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return e.snapshot(), err
	}
	if e.turn.phase != PhaseGuessing {
		return e.snapshot(), e.violation("hint in phase %s", e.turn.phase)
	}
	e.turn.hint = !e.turn.hint
	return e.changed(), nil
}

// Skip spends a skip token to replace the fact in play. With no tokens left
// it does nothing.
func (e *Engine) Skip(ctx context.Context) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return e.snapshot(), err
	}
	if e.turn.phase != PhaseGuessing {
		return e.snapshot(), e.violation("skip in phase %s", e.turn.phase)
	}
	p := e.session.Active()
	if p.SkipTokens <= 0 {
		e.logger.Debug("skip ignored, no tokens left", "player", p.Name)
		return e.snapshot(), nil
	}
	p.SkipTokens--
	e.logger.Debug("fact skipped", "player", p.Name, "tokens_left", p.SkipTokens)
	e.persist(ctx)
	return e.acquire(ctx)
}

// Continue keeps the streak going: the won year goes to the pending buffer
// and a new fact is requested for the same player.
func (e *Engine) Continue(ctx context.Context) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.resolvedAs(true, "continue"); err != nil {
		return e.snapshot(), err
	}
	e.session.PendingBuffer = append(e.session.PendingBuffer, e.turn.outcome.Fact.Year)
	e.persist(ctx)
	return e.acquire(ctx)
}

// BankAndPass commits the pending buffer plus the year just won and hands
// the turn to the other player.
func (e *Engine) BankAndPass(ctx context.Context) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.resolvedAs(true, "bank"); err != nil {
		return e.snapshot(), err
	}
	e.session.PendingBuffer = append(e.session.PendingBuffer, e.turn.outcome.Fact.Year)
	banked := len(e.session.PendingBuffer)
	e.session.bank()
	e.logger.Info("streak banked", "player", e.session.Active().Name, "years", banked)
	e.session.pass()
	e.turn = turn{phase: PhaseIdle}
	e.persist(ctx)
	return e.changed(), nil
}

// NextPlayer ends a turn lost on an incorrect guess. The pending buffer is
// discarded.
func (e *Engine) NextPlayer(ctx context.Context) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.resolvedAs(false, "next player"); err != nil {
		return e.snapshot(), err
	}
	if lost := len(e.session.PendingBuffer); lost > 0 {
		e.logger.Info("streak lost", "player", e.session.Active().Name, "years", lost)
	}
	e.session.discard()
	e.session.pass()
	e.turn = turn{phase: PhaseIdle}
	e.persist(ctx)
	return e.changed(), nil
}

// Abandon deletes the persisted match. Any outstanding fact request is
// dropped when it returns and all later intents are rejected. A failed
// delete leaves the match untouched so the call can be retried.
func (e *Engine) Abandon(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.abandoned {
		return nil
	}
	if e.repo != nil {
		if err := e.repo.DeleteMatch(ctx, e.session.MatchID); err != nil && CodeOf(err) != CodeNotFound {
			e.logger.Error("deleting match failed", "error", err)
			return wrapError(CodePersistence, "deleting match", err)
		}
	}
	e.abandoned = true
	e.epoch++
	e.turn = turn{phase: PhaseIdle}
	e.logger.Info("match abandoned")
	e.changed()
	return nil
}

// Abandoned reports whether the match was abandoned.
func (e *Engine) Abandoned() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.abandoned
}

func (e *Engine) ready() error {
	if e.abandoned {
		return e.violation("match was abandoned")
	}
	if e.turn.inflight {
		return ErrBusy
	}
	return nil
}

func (e *Engine) resolvedAs(correct bool, intent string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.turn.phase != PhaseResolved || e.turn.outcome.Correct != correct {
		return e.violation("%s in phase %s", intent, e.describePhase())
	}
	return nil
}

func (e *Engine) describePhase() string {
	if e.turn.phase == PhaseResolved {
		if e.turn.outcome.Correct {
			return "resolved(correct)"
		}
		return "resolved(incorrect)"
	}
	return string(e.turn.phase)
}

// acquire requests a fact. It must be called with e.mu held and releases the
// lock while the provider runs.
func (e *Engine) acquire(ctx context.Context) (Snapshot, error) {
	e.turn = turn{phase: PhaseAcquiring, inflight: true}
	epoch := e.epoch
	category := e.session.Category
	exclude := e.session.ExclusionHint(e.hintSize)
	e.changed()

	e.mu.Unlock()
	fact, err := e.provider.Fact(ctx, category, exclude)
	e.mu.Lock()

	if epoch != e.epoch {
		return e.snapshot(), newError(CodeContractViolation, "match was abandoned while the fact was loading")
	}
	e.turn.inflight = false

	if err == nil {
		if verr := fact.Validate(); verr != nil {
			err = verr
		}
	}
	if err != nil {
		if ctx.Err() != nil {
			e.turn = turn{phase: PhaseIdle}
			e.logger.Info("fact request cancelled", "error", ctx.Err())
			return e.changed(), wrapError(CodeProvider, "fact request cancelled", ctx.Err())
		}
		e.logger.Warn("fact request failed", "category", category, "error", err)
		return e.changed(), wrapError(CodeProvider, "fact request failed", err)
	}

	fact = fact.WithMediaFallback()
	e.session.remember(fact.Key())
	e.turn = turn{phase: PhaseGuessing, fact: &fact}
	e.logger.Debug("fact received", "player", e.session.Active().Name)
	e.persist(ctx)
	return e.changed(), nil
}

func (e *Engine) resolve() (Snapshot, error) {
	g := timeline.Guess{Year: e.turn.guess, Side: e.turn.side}
	correct, err := timeline.Evaluate(e.session.EffectiveTimeline(), g, e.turn.fact.Year, e.now().Year())
	if err != nil {
		return e.snapshot(), e.violation("evaluate: %v", err)
	}
	e.turn.phase = PhaseResolved
	e.turn.outcome = &Outcome{Correct: correct, Fact: *e.turn.fact}
	e.logger.Debug("guess resolved", "player", e.session.Active().Name, "guess", g.Year, "side", g.Side.String(), "correct", correct)
	return e.changed(), nil
}

// persist saves the session. A failed save is logged and reported in the
// snapshot; the match continues in memory.
func (e *Engine) persist(ctx context.Context) {
	e.session.UpdatedAt = e.now()
	if e.repo == nil {
		return
	}
	if err := e.repo.SaveMatch(context.WithoutCancel(ctx), e.session.Clone()); err != nil {
		e.persistErr = wrapError(CodePersistence, "saving match", err)
		e.logger.Error("saving match failed", "error", err)
		return
	}
	e.persistErr = nil
}

func (e *Engine) violation(format string, args ...any) error {
	err := newError(CodeContractViolation, fmt.Sprintf(format, args...))
	if e.strict {
		panic(err)
	}
	e.logger.Warn("contract violation", "error", err)
	return err
}

// changed notifies the OnChange hook and returns the snapshot it was given.
func (e *Engine) changed() Snapshot {
	snap := e.snapshot()
	if e.onChange != nil {
		e.onChange(snap)
	}
	return snap
}

func (e *Engine) snapshot() Snapshot {
	snap := Snapshot{
		Match:     e.session.Clone(),
		Phase:     e.turn.phase,
		Guess:     e.turn.guess,
		Placement: e.turn.side.String(),
		HintShown: e.turn.hint,
		Outcome:   e.turn.outcome,
		Busy:      e.turn.inflight,
	}
	if f := e.turn.fact; f != nil {
		if e.turn.phase != PhaseResolved {
			// The seen list would name the song in play.
			key := f.Key()
			snap.Match.SeenFactKeys = slices.DeleteFunc(snap.Match.SeenFactKeys, func(k string) bool { return k == key })
		}
		card := &Card{MediaURL: f.MediaURL}
		if e.turn.hint || e.turn.phase == PhaseResolved {
			card.Artist = f.Artist
			card.Title = f.Title
		}
		if e.turn.phase == PhaseResolved {
			card.Year = f.Year
			card.Revealed = true
		}
		snap.Card = card
	}
	if e.persistErr != nil {
		snap.PersistError = e.persistErr.Error()
	}
	return snap
}
