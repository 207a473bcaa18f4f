package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

// joinURL is the link a second device opens to follow a match.
func joinURL(publicURL, matchID string) string {
	return strings.TrimRight(publicURL, "/") + "/?match=" + url.QueryEscape(matchID)
}

func handleQR(publicURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		png, err := qrcode.Encode(joinURL(publicURL, engineFrom(r).ID()), qrcode.Medium, 256)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to render qr code")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.WriteHeader(http.StatusOK)
		w.Write(png)
	}
}
