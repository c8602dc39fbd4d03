package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gridlock/internal/config"
	"gridlock/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server exposes the orchestration surface over HTTP. All game semantics
// live in the game package; handlers only decode, dispatch, and map errors.
type Server struct {
	cfg config.APIConfig
	log *slog.Logger
	hub *game.Hub
	mux *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, hub *game.Hub) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg: cfg,
		log: logger,
		hub: hub,
		mux: chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/games", s.handleCreateGame)

		r.Route("/games/{id}", func(r chi.Router) {
			r.Delete("/", s.handleDiscardGame)
			r.Post("/teams", s.handleJoinTeam)
			r.Post("/teams/{team_id}/connect", s.handleConnect(true))
			r.Post("/teams/{team_id}/disconnect", s.handleConnect(false))
			r.Get("/teams/{team_id}/assets", s.handleTeamAssets)

			r.Post("/round/start", s.handleStartRound)
			r.Post("/bidding/start", s.handleStartBidding)
			r.Post("/bids", s.handleSubmitBids)
			r.Get("/bids/status", s.handleBidStatus)
			r.Post("/tick", s.handleTick)
			r.Post("/dispatch", s.handleDispatch)
			r.Post("/balance", s.handleBalance)
			r.Post("/surprise", s.handleSurprise)
			r.Post("/advance", s.handleAdvance)
			r.Post("/reset", s.handleReset)
			r.Get("/snapshot", s.handleSnapshot)
		})
	})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*game.Session, bool) {
	sess, err := s.hub.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var in game.CreateOptions
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := s.hub.Create(in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.Snapshot(""))
}

func (s *Server) handleDiscardGame(w http.ResponseWriter, r *http.Request) {
	s.hub.Discard(chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleJoinTeam(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var in struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	team, err := sess.AddTeam(in.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (s *Server) handleConnect(connected bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.session(w, r)
		if !ok {
			return
		}
		if err := sess.SetConnected(chi.URLParam(r, "team_id"), connected); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func (s *Server) handleTeamAssets(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	views, err := sess.AssetViews(chi.URLParam(r, "team_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assets": views})
}

func (s *Server) handleStartRound(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	rc, err := sess.StartRound()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rc)
}

func (s *Server) handleStartBidding(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.StartBidding(); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSubmitBids(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var in struct {
		TeamID string     `json:"team_id"`
		Bids   []game.Bid `json:"bids"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	accepted, err := sess.SubmitBids(in.TeamID, in.Bids)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accepted": accepted})
}

func (s *Server) handleBidStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	snap := sess.Snapshot("")
	writeJSON(w, http.StatusOK, map[string]any{
		"bid_status":    snap.BidStatus,
		"all_submitted": snap.AllSubmitted,
		"countdown_sec": snap.CountdownSec,
	})
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"countdown_sec": sess.Tick()})
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	result, err := sess.RunDispatch()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	result, err := sess.ApplyBalancing()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSurprise(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var in struct {
		SurpriseID string `json:"surprise_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := sess.ApplySurprise(in.SurpriseID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	phase, err := sess.AdvancePhase()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"phase": phase})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Reset()
	writeJSON(w, http.StatusOK, sess.Snapshot(""))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	teamID := strings.TrimSpace(r.URL.Query().Get("team"))
	writeJSON(w, http.StatusOK, sess.Snapshot(teamID))
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrGameNotFound), errors.Is(err, game.ErrTeamNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrInvalidPhase), errors.Is(err, game.ErrRoundsExhausted):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrLobbyFull), errors.Is(err, game.ErrDuplicateTeamName):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrBadBid), errors.Is(err, game.ErrBadTeamName),
		errors.Is(err, game.ErrUnknownMode), errors.Is(err, game.ErrUnknownScenario):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
