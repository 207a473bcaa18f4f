package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/mixzter/duel/internal/store"
)

// newOwnerToken returns a random token handed to whoever starts a match.
func newOwnerToken() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func bearerToken(r *http.Request) string {
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return strings.TrimSpace(token)
}

// ownerMiddleware lets a request through only when it carries the owner
// token of the match in the URL.
func ownerMiddleware(st Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "owner token required")
				return
			}

			err := st.CheckOwner(r.Context(), engineFrom(r).ID(), token)
			switch {
			case errors.Is(err, store.ErrBadToken):
				writeError(w, http.StatusForbidden, "not the owner of this match")
				return
			case err != nil:
				writeError(w, http.StatusInternalServerError, "checking owner token failed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
