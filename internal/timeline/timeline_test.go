package timeline

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
)

const thisYear = 2026

func TestEvaluateScenarios(t *testing.T) {
	tests := []struct {
		name     string
		timeline []int
		guess    Guess
		fact     int
		want     bool
	}{
		{"before only entry", []int{2000}, Guess{Year: 1995}, 1995, true},
		{"before only entry, fact later", []int{2000}, Guess{Year: 1995}, 2005, false},
		{"upper bound is closed", []int{2000}, Guess{Year: 1995}, 2000, true},
		{"after last entry", []int{2000}, Guess{Year: 2010}, 2024, true},
		{"after last entry, up to next year", []int{2000}, Guess{Year: 2010}, thisYear + 1, true},
		{"after last entry, fact too old", []int{2000}, Guess{Year: 2010}, 2000, false},
		{"between entries", []int{1980, 2000}, Guess{Year: 1990}, 1999, true},
		{"between entries, lower bound is open", []int{1980, 2000}, Guess{Year: 1990}, 1980, false},
		{"exact year wins outside interval", []int{1980, 2000}, Guess{Year: 2010}, 2010, true},
		{"collision before", []int{2000}, Guess{Year: 2000, Side: Before}, 1998, true},
		{"collision before, fact later", []int{2000}, Guess{Year: 2000, Side: Before}, 2003, false},
		{"collision before, same year", []int{2000}, Guess{Year: 2000, Side: Before}, 2000, true},
		{"collision after", []int{1995, 2000}, Guess{Year: 1995, Side: After}, 1997, true},
		{"collision after, fact earlier", []int{1995, 2000}, Guess{Year: 1995, Side: After}, 1990, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.timeline, tt.guess, tt.fact, thisYear)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%v, %+v, %d) = %v, want %v", tt.timeline, tt.guess, tt.fact, got, tt.want)
			}
		})
	}
}

func TestEvaluateCollisionRequiresSide(t *testing.T) {
	_, err := Evaluate([]int{1995, 2000}, Guess{Year: 2000}, 2000, thisYear)
	if !errors.Is(err, ErrDisambiguationRequired) {
		t.Fatalf("err = %v, want ErrDisambiguationRequired", err)
	}
}

// reference mirrors the placement rule with a linear scan.
func reference(effective []int, guess, fact, currentYear int) bool {
	if fact == guess {
		return true
	}
	lower, hasLower := 0, false
	upper := currentYear + 1
	for i, y := range effective {
		if y > guess {
			upper = y
			if i > 0 {
				lower, hasLower = effective[i-1], true
			}
			break
		}
		lower, hasLower = y, true
	}
	if hasLower && fact <= lower {
		return false
	}
	return fact <= upper
}

func TestEvaluateMatchesReference(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 5000; i++ {
		var years []int
		for n := 1 + rng.IntN(8); n > 0; n-- {
			years = append(years, 1900+rng.IntN(thisYear-1900+1))
		}
		effective := Effective(years, nil)

		guess := 1900 + rng.IntN(thisYear-1900+1)
		if Contains(effective, guess) {
			continue
		}
		fact := 1900 + rng.IntN(thisYear-1900+2)

		got, err := Evaluate(effective, Guess{Year: guess}, fact, thisYear)
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		if want := reference(effective, guess, fact, thisYear); got != want {
			t.Fatalf("timeline %v guess %d fact %d: got %v, want %v", effective, guess, fact, got, want)
		}
	}
}

func TestEvaluateExactYearAlwaysCorrect(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))

	for i := 0; i < 1000; i++ {
		var years []int
		for n := 1 + rng.IntN(6); n > 0; n-- {
			years = append(years, 1900+rng.IntN(120))
		}
		effective := Effective(years, nil)
		guess := 1900 + rng.IntN(120)
		if Contains(effective, guess) {
			continue
		}
		if ok, _ := Evaluate(effective, Guess{Year: guess}, guess, thisYear); !ok {
			t.Fatalf("timeline %v: exact guess %d judged incorrect", effective, guess)
		}
	}
}

func TestEffective(t *testing.T) {
	committed := []int{2000, 1995, 2000}
	pending := []int{1987, 1995}

	got := Effective(committed, pending)
	if want := []int{1987, 1995, 2000}; !slices.Equal(got, want) {
		t.Errorf("Effective = %v, want %v", got, want)
	}
	if !slices.Equal(committed, []int{2000, 1995, 2000}) {
		t.Errorf("committed was modified: %v", committed)
	}
}

func TestBank(t *testing.T) {
	got := Bank([]int{2000}, []int{1999, 1987})
	if want := []int{1987, 1999, 2000}; !slices.Equal(got, want) {
		t.Errorf("Bank = %v, want %v", got, want)
	}

	dup := Bank([]int{1995, 2000}, []int{2000})
	if want := []int{1995, 2000, 2000}; !slices.Equal(dup, want) {
		t.Errorf("Bank with duplicate = %v, want %v", dup, want)
	}
}

func TestParseSide(t *testing.T) {
	for in, want := range map[string]Side{"before": Before, " AFTER ": After} {
		got, err := ParseSide(in)
		if err != nil || got != want {
			t.Errorf("ParseSide(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseSide("middle"); err == nil {
		t.Error("expected error for unknown side")
	}
}
