package server

import (
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

type routeDeps struct {
	store       Store
	matches     *Registry
	broker      *Broker
	factTimeout time.Duration
	startTokens int
	publicURL   string
	spaDir      string
	mount       func(chi.Router)
}

func addRoutes(r chi.Router, logger *slog.Logger, d routeDeps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Mixzter Duel API", "/openapi.json", "/docs"))
	if d.mount != nil {
		d.mount(r)
	}

	r.Get("/api/categories", handleCategories())

	r.Route("/api/matches", func(r chi.Router) {
		r.Get("/", handleListMatches(d.store))
		r.Post("/", handleCreateMatch(logger, d.store, d.matches, d.startTokens))
		r.Get("/latest", handleLatestMatch(d.store, d.matches))

		r.Route("/{id}", func(r chi.Router) {
			r.Use(matchMiddleware(d.matches))

			// Read-only views, open to anyone with the match link.
			r.Get("/", handleGetMatch())
			r.Get("/events", handleEvents(d.broker))
			r.Get("/ws", handleStream(logger, d.broker))
			r.Get("/qr.png", handleQR(d.publicURL))

			// Intents, owner only.
			r.Group(func(r chi.Router) {
				r.Use(ownerMiddleware(d.store))
				r.Delete("/", handleAbandonMatch(d.matches, d.broker))
				r.Post("/fact", handleLoadFact(d.factTimeout))
				r.Post("/guess", handleGuess())
				r.Post("/placement", handlePlacement())
				r.Post("/placement/confirm", handleConfirmPlacement())
				r.Post("/skip", handleSkip(d.factTimeout))
				r.Post("/hint", handleHint())
				r.Post("/continue", handleContinue(d.factTimeout))
				r.Post("/bank", handleBank())
				r.Post("/next", handleNextPlayer())
			})
		})
	})

	if d.spaDir != "" {
		if info, err := os.Stat(d.spaDir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", d.spaDir)
			r.NotFound(handleSPA(d.spaDir))
		}
	}
}
