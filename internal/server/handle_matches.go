package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mixzter/duel/internal/match"
	"github.com/mixzter/duel/internal/mixzter"
)

type CreateMatchRequest struct {
	Player1  string `json:"player1"`
	Player2  string `json:"player2"`
	Category string `json:"category"`
}

type CreateMatchResponse struct {
	OwnerToken string         `json:"ownerToken"`
	Snapshot   match.Snapshot `json:"snapshot"`
}

type CategoryInfo struct {
	ID       mixzter.Category `json:"id"`
	Label    string           `json:"label"`
	FromYear int              `json:"fromYear"`
	ToYear   int              `json:"toYear"`
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func handleCreateMatch(logger *slog.Logger, st Store, matches *Registry, startTokens int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateMatchRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		category, err := mixzter.ParseCategory(req.Category)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: string(match.CodeValidation)})
			return
		}

		e, err := matches.Start(r.Context(), match.Setup{
			PlayerA:    req.Player1,
			PlayerB:    req.Player2,
			Category:   category,
			SkipTokens: startTokens,
		})
		if err != nil {
			writeMatchError(w, err)
			return
		}

		token := newOwnerToken()
		if err := st.SetOwner(r.Context(), e.ID(), token); err != nil {
			logger.Error("registering match owner failed", "match_id", e.ID(), "error", err)
			// Without an owner row the match would accept any token.
			if err := e.Abandon(context.WithoutCancel(r.Context())); err != nil {
				logger.Error("removing unowned match failed", "match_id", e.ID(), "error", err)
			}
			matches.Remove(e.ID())
			writeError(w, http.StatusInternalServerError, "failed to create match")
			return
		}

		writeJSON(w, http.StatusCreated, CreateMatchResponse{OwnerToken: token, Snapshot: e.Snapshot()})
	}
}

func handleListMatches(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultListLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, maxListLimit)
		}

		list, err := st.ListMatches(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list matches")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleLatestMatch(st Store, matches *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := st.LatestMatch(r.Context())
		if err != nil {
			if match.CodeOf(err) == match.CodeNotFound {
				writeMatchError(w, err)
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to load latest match")
			return
		}

		e, err := matches.Get(r.Context(), s.MatchID)
		if err != nil {
			writeMatchError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, e.Snapshot())
	}
}

func handleGetMatch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, engineFrom(r).Snapshot())
	}
}

func handleAbandonMatch(matches *Registry, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e := engineFrom(r)
		if err := e.Abandon(r.Context()); err != nil {
			writeMatchError(w, err)
			return
		}
		matches.Remove(e.ID())
		broker.Close(e.ID())
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleCategories() http.HandlerFunc {
	cats := make([]CategoryInfo, 0, len(mixzter.Categories()))
	for _, c := range mixzter.Categories() {
		cfg := c.Config()
		cats = append(cats, CategoryInfo{ID: c, Label: cfg.Label, FromYear: cfg.FromYear, ToYear: cfg.ToYear})
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, cats)
	}
}
