package server

import (
	"context"
	"net/http"
	"time"

	"github.com/mixzter/duel/internal/match"
	"github.com/mixzter/duel/internal/timeline"
)

type GuessRequest struct {
	Year string `json:"year"`
}

type PlacementRequest struct {
	Side string `json:"side" enum:"before,after"`
}

// intent runs one engine intent and writes the resulting snapshot.
func intent(fn func(r *http.Request, e *match.Engine) (match.Snapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := fn(r, engineFrom(r))
		if err != nil {
			writeMatchError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

// factContext bounds a provider call. A client that hangs up cancels it.
func factContext(r *http.Request, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), timeout)
}

func handleLoadFact(timeout time.Duration) http.HandlerFunc {
	return intent(func(r *http.Request, e *match.Engine) (match.Snapshot, error) {
		ctx, cancel := factContext(r, timeout)
		defer cancel()
		return e.Load(ctx)
	})
}

func handleGuess() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GuessRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		intent(func(_ *http.Request, e *match.Engine) (match.Snapshot, error) {
			return e.Submit(req.Year)
		})(w, r)
	}
}

func handlePlacement() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlacementRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		side, err := timeline.ParseSide(req.Side)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: string(match.CodeValidation)})
			return
		}
		intent(func(_ *http.Request, e *match.Engine) (match.Snapshot, error) {
			return e.Choose(side)
		})(w, r)
	}
}

func handleConfirmPlacement() http.HandlerFunc {
	return intent(func(_ *http.Request, e *match.Engine) (match.Snapshot, error) {
		return e.Confirm()
	})
}

func handleHint() http.HandlerFunc {
	return intent(func(_ *http.Request, e *match.Engine) (match.Snapshot, error) {
		return e.ToggleHint()
	})
}

func handleSkip(timeout time.Duration) http.HandlerFunc {
	return intent(func(r *http.Request, e *match.Engine) (match.Snapshot, error) {
		ctx, cancel := factContext(r, timeout)
		defer cancel()
		return e.Skip(ctx)
	})
}

func handleContinue(timeout time.Duration) http.HandlerFunc {
	return intent(func(r *http.Request, e *match.Engine) (match.Snapshot, error) {
		ctx, cancel := factContext(r, timeout)
		defer cancel()
		return e.Continue(ctx)
	})
}

func handleBank() http.HandlerFunc {
	return intent(func(r *http.Request, e *match.Engine) (match.Snapshot, error) {
		return e.BankAndPass(r.Context())
	})
}

func handleNextPlayer() http.HandlerFunc {
	return intent(func(r *http.Request, e *match.Engine) (match.Snapshot, error) {
		return e.NextPlayer(r.Context())
	})
}
