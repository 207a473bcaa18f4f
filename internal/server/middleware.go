package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mixzter/duel/internal/match"
)

type ctxKey int

const ctxKeyEngine ctxKey = iota

// matchMiddleware resolves {id} to a live engine.
func matchMiddleware(matches *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			if id == "" {
				writeError(w, http.StatusNotFound, "match not found")
				return
			}

			e, err := matches.Get(r.Context(), id)
			if err != nil {
				writeMatchError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyEngine, e)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func engineFrom(r *http.Request) *match.Engine {
	return r.Context().Value(ctxKeyEngine).(*match.Engine)
}
