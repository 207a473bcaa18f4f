package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/mixzter/duel/internal/match"
)

// HealthStatus is the state of one dependency in the health report.
type HealthStatus struct {
	Status string `json:"status" enum:"ok,error"`
}

// HealthResponse maps dependency names to their status.
type HealthResponse map[string]HealthStatus

type matchPath struct {
	ID string `path:"id"`
}

type guessInput struct {
	matchPath
	GuessRequest
}

type placementInput struct {
	matchPath
	PlacementRequest
}

type listInput struct {
	Limit int `query:"limit" minimum:"1" maximum:"200"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Mixzter Duel API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Two-player timeline trivia duel: guess the release year of a song and build your timeline.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of the match store.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/categories
	getCategories, _ := r.NewOperationContext(http.MethodGet, "/api/categories")
	getCategories.SetSummary("List categories")
	getCategories.SetDescription("Returns the song categories a match can be played in.")
	getCategories.AddRespStructure([]CategoryInfo{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getCategories)

	// POST /api/matches
	createMatch, _ := r.NewOperationContext(http.MethodPost, "/api/matches")
	createMatch.SetSummary("Start match")
	createMatch.SetDescription("Starts a duo match. The returned owner token authorizes every intent on the match.")
	createMatch.AddReqStructure(CreateMatchRequest{})
	createMatch.AddRespStructure(CreateMatchResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	createMatch.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createMatch.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(createMatch)

	// GET /api/matches
	listMatches, _ := r.NewOperationContext(http.MethodGet, "/api/matches")
	listMatches.SetSummary("List matches")
	listMatches.SetDescription("Dashboard of stored matches, most recently updated first.")
	listMatches.AddReqStructure(listInput{})
	listMatches.AddRespStructure([]match.Summary{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listMatches)

	// GET /api/matches/latest
	latest, _ := r.NewOperationContext(http.MethodGet, "/api/matches/latest")
	latest.SetSummary("Latest match")
	latest.SetDescription("Resumes the most recently updated match.")
	latest.AddRespStructure(match.Snapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	latest.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(latest)

	// GET /api/matches/{id}
	getMatch, _ := r.NewOperationContext(http.MethodGet, "/api/matches/{id}")
	getMatch.SetSummary("Get match")
	getMatch.SetDescription("Returns the current snapshot. The year of a card is hidden until the guess is resolved.")
	getMatch.AddReqStructure(matchPath{})
	getMatch.AddRespStructure(match.Snapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	getMatch.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getMatch)

	// DELETE /api/matches/{id}
	abandon, _ := r.NewOperationContext(http.MethodDelete, "/api/matches/{id}")
	abandon.SetSummary("Abandon match")
	abandon.SetDescription("Deletes the match. Requires the owner token.")
	abandon.AddReqStructure(matchPath{})
	abandon.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	abandon.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	abandon.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	_ = r.AddOperation(abandon)

	// POST /api/matches/{id}/guess
	guess, _ := r.NewOperationContext(http.MethodPost, "/api/matches/{id}/guess")
	guess.SetSummary("Submit guess")
	guess.SetDescription("Submits a four digit year. A year already on the timeline asks for a placement first.")
	guess.AddReqStructure(guessInput{})
	guess.AddRespStructure(match.Snapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	guess.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	guess.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(guess)

	// POST /api/matches/{id}/placement
	placement, _ := r.NewOperationContext(http.MethodPost, "/api/matches/{id}/placement")
	placement.SetSummary("Choose placement")
	placement.SetDescription("Places a colliding guess before or after the existing card.")
	placement.AddReqStructure(placementInput{})
	placement.AddRespStructure(match.Snapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	placement.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	placement.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(placement)

	intents := []struct {
		path, summary, description string
		upstream                   bool
	}{
		{"/api/matches/{id}/fact", "Load fact", "Requests the next song for the active player.", true},
		{"/api/matches/{id}/placement/confirm", "Confirm placement", "Evaluates a colliding guess with the chosen side.", false},
		{"/api/matches/{id}/skip", "Skip song", "Spends a skip token and loads another song. Does nothing without tokens.", true},
		{"/api/matches/{id}/hint", "Toggle hint", "Shows or hides artist and title of the song in play.", false},
		{"/api/matches/{id}/continue", "Continue streak", "Keeps the won year pending and loads another song.", true},
		{"/api/matches/{id}/bank", "Bank and pass", "Commits the streak and hands the turn over.", false},
		{"/api/matches/{id}/next", "Next player", "Ends a turn lost on an incorrect guess.", false},
	}
	for _, in := range intents {
		op, _ := r.NewOperationContext(http.MethodPost, in.path)
		op.SetSummary(in.summary)
		op.SetDescription(in.description + " Requires the owner token.")
		op.AddReqStructure(matchPath{})
		op.AddRespStructure(match.Snapshot{}, openapi.WithHTTPStatus(http.StatusOK))
		op.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
		if in.upstream {
			op.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadGateway))
		}
		_ = r.AddOperation(op)
	}

	// GET /api/matches/{id}/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/matches/{id}/events")
	getEvents.SetSummary("SSE snapshot stream")
	getEvents.SetDescription("Server-Sent Events stream of match snapshots, starting with the current one.")
	getEvents.AddReqStructure(matchPath{})
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/matches/{id}/ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/api/matches/{id}/ws")
	getWS.SetSummary("WebSocket snapshot stream")
	getWS.SetDescription("Upgrades to a WebSocket that receives a JSON snapshot after every transition.")
	getWS.AddReqStructure(matchPath{})
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWS)

	// GET /api/matches/{id}/qr.png
	getQR, _ := r.NewOperationContext(http.MethodGet, "/api/matches/{id}/qr.png")
	getQR.SetSummary("Share code")
	getQR.SetDescription("PNG QR code linking to the match.")
	getQR.AddReqStructure(matchPath{})
	getQR.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("image/png"))
	_ = r.AddOperation(getQR)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
