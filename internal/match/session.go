package match

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/mixzter/duel/internal/mixzter"
	"github.com/mixzter/duel/internal/timeline"
)

const (
	// MaxSkipTokens caps the skip tokens a player can hold.
	MaxSkipTokens = 5

	DefaultSkipTokens = 3
	DefaultStartYearA = 2000
	DefaultStartYearB = 1995
)

// Slot identifies one of the two seats of a duo match.
type Slot string

const (
	SlotA Slot = "A"
	SlotB Slot = "B"
)

// Other returns the opposing slot.
func (s Slot) Other() Slot {
	if s == SlotA {
		return SlotB
	}
	return SlotA
}

func (s Slot) valid() bool { return s == SlotA || s == SlotB }

// PlayerState is one player's permanent history.
type PlayerState struct {
	Name           string `json:"name"`
	CommittedYears []int  `json:"committedYears"`
	StartYear      int    `json:"startYear"`
	SkipTokens     int    `json:"skipTokens"`
}

// Score is the number of cards banked, not counting the start year.
func (p PlayerState) Score() int {
	return len(p.CommittedYears) - 1
}

func (p PlayerState) clone() PlayerState {
	p.CommittedYears = slices.Clone(p.CommittedYears)
	return p
}

func (p PlayerState) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("player name is empty")
	}
	if !slices.Contains(p.CommittedYears, p.StartYear) {
		return fmt.Errorf("start year %d missing from timeline", p.StartYear)
	}
	if !slices.IsSorted(p.CommittedYears) {
		return fmt.Errorf("timeline is not sorted")
	}
	if p.SkipTokens < 0 || p.SkipTokens > MaxSkipTokens {
		return fmt.Errorf("skip tokens %d out of range", p.SkipTokens)
	}
	return nil
}

// Session is the persisted state of a duo match. Its JSON encoding is the
// record written to the repository.
type Session struct {
	MatchID       string           `json:"matchId"`
	PlayerA       PlayerState      `json:"playerA"`
	PlayerB       PlayerState      `json:"playerB"`
	ActivePlayer  Slot             `json:"activePlayer"`
	PendingBuffer []int            `json:"pendingBuffer"`
	Category      mixzter.Category `json:"category"`
	SeenFactKeys  []string         `json:"seenFactKeys"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// Setup describes a new match.
type Setup struct {
	PlayerA    string
	PlayerB    string
	Category   mixzter.Category
	StartYearA int
	StartYearB int
	SkipTokens int
}

// NewSession builds a fresh match with player A to move. Zero values in
// setup fall back to the defaults.
func NewSession(id string, setup Setup, now time.Time) (*Session, error) {
	if setup.PlayerA = strings.TrimSpace(setup.PlayerA); setup.PlayerA == "" {
		setup.PlayerA = "Player 1"
	}
	if setup.PlayerB = strings.TrimSpace(setup.PlayerB); setup.PlayerB == "" {
		setup.PlayerB = "Player 2"
	}
	if setup.Category == "" {
		setup.Category = mixzter.CategoryDefault
	}
	if !setup.Category.Valid() {
		return nil, newError(CodeValidation, fmt.Sprintf("unknown category %q", setup.Category))
	}
	if setup.StartYearA == 0 {
		setup.StartYearA = DefaultStartYearA
	}
	if setup.StartYearB == 0 {
		setup.StartYearB = DefaultStartYearB
	}
	if setup.SkipTokens == 0 {
		setup.SkipTokens = DefaultSkipTokens
	}
	if setup.SkipTokens < 0 || setup.SkipTokens > MaxSkipTokens {
		return nil, newError(CodeValidation, fmt.Sprintf("skip tokens must be between 0 and %d", MaxSkipTokens))
	}

	return &Session{
		MatchID: id,
		PlayerA: PlayerState{
			Name:           setup.PlayerA,
			CommittedYears: []int{setup.StartYearA},
			StartYear:      setup.StartYearA,
			SkipTokens:     setup.SkipTokens,
		},
		PlayerB: PlayerState{
			Name:           setup.PlayerB,
			CommittedYears: []int{setup.StartYearB},
			StartYear:      setup.StartYearB,
			SkipTokens:     setup.SkipTokens,
		},
		ActivePlayer:  SlotA,
		PendingBuffer: []int{},
		Category:      setup.Category,
		SeenFactKeys:  []string{},
		UpdatedAt:     now,
	}, nil
}

// Player returns the state of the player in slot.
func (s *Session) Player(slot Slot) *PlayerState {
	if slot == SlotB {
		return &s.PlayerB
	}
	return &s.PlayerA
}

// Active returns the player whose turn it is.
func (s *Session) Active() *PlayerState {
	return s.Player(s.ActivePlayer)
}

// EffectiveTimeline merges the active player's committed years with the
// pending buffer.
func (s *Session) EffectiveTimeline() []int {
	return timeline.Effective(s.Active().CommittedYears, s.PendingBuffer)
}

// ExclusionHint returns the n most recently seen fact keys.
func (s *Session) ExclusionHint(n int) []string {
	if n <= 0 || len(s.SeenFactKeys) <= n {
		return slices.Clone(s.SeenFactKeys)
	}
	return slices.Clone(s.SeenFactKeys[len(s.SeenFactKeys)-n:])
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	c := *s
	c.PlayerA = s.PlayerA.clone()
	c.PlayerB = s.PlayerB.clone()
	c.PendingBuffer = slices.Clone(s.PendingBuffer)
	c.SeenFactKeys = slices.Clone(s.SeenFactKeys)
	return &c
}

func (s *Session) bank() {
	p := s.Active()
	p.CommittedYears = timeline.Bank(p.CommittedYears, s.PendingBuffer)
	s.PendingBuffer = []int{}
}

func (s *Session) discard() {
	s.PendingBuffer = []int{}
}

func (s *Session) pass() {
	s.ActivePlayer = s.ActivePlayer.Other()
}

func (s *Session) remember(key string) {
	if !slices.Contains(s.SeenFactKeys, key) {
		s.SeenFactKeys = append(s.SeenFactKeys, key)
	}
}

// Validate checks the invariants a persisted record must satisfy.
func (s *Session) Validate() error {
	if s.MatchID == "" {
		return fmt.Errorf("match id is empty")
	}
	if !s.ActivePlayer.valid() {
		return fmt.Errorf("active player %q is not A or B", s.ActivePlayer)
	}
	if !s.Category.Valid() {
		return fmt.Errorf("unknown category %q", s.Category)
	}
	if err := s.PlayerA.validate(); err != nil {
		return fmt.Errorf("player A: %w", err)
	}
	if err := s.PlayerB.validate(); err != nil {
		return fmt.Errorf("player B: %w", err)
	}
	return nil
}

// EncodeSession serializes s into its persisted record.
func EncodeSession(s *Session) ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSession parses a persisted record. A record that does not have the
// expected shape yields ErrNotFound so callers treat it as absent.
func DecodeSession(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, wrapError(CodeNotFound, "malformed match record", err)
	}
	if err := s.Validate(); err != nil {
		return nil, wrapError(CodeNotFound, "malformed match record", err)
	}
	if s.PendingBuffer == nil {
		s.PendingBuffer = []int{}
	}
	if s.SeenFactKeys == nil {
		s.SeenFactKeys = []string{}
	}
	return &s, nil
}

// Summary is the dashboard view of a stored match.
type Summary struct {
	ID        string           `json:"id"`
	Player1   string           `json:"player1"`
	Player2   string           `json:"player2"`
	P1Score   int              `json:"p1Score"`
	P2Score   int              `json:"p2Score"`
	Category  mixzter.Category `json:"category"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Summarize returns the dashboard view of s.
func (s *Session) Summarize() Summary {
	return Summary{
		ID:        s.MatchID,
		Player1:   s.PlayerA.Name,
		Player2:   s.PlayerB.Name,
		P1Score:   s.PlayerA.Score(),
		P2Score:   s.PlayerB.Score(),
		Category:  s.Category,
		UpdatedAt: s.UpdatedAt,
	}
}
