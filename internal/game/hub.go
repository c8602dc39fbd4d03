package game

import (
	"log/slog"
	"sync"
)

// Hub owns every live session, keyed by game id. Sessions are independent;
// the hub lock only guards the map itself.
type Hub struct {
	mu       sync.Mutex
	log      *slog.Logger
	content  Content
	defaults GameDefaults
	sessions map[string]*Session
}

// GameDefaults are the creation-time knobs not chosen by the operator.
type GameDefaults struct {
	PriceCap         float64
	PriceFloor       float64
	Variability      float64
	BalancingTrigger float64
}

func NewHub(content Content, defaults GameDefaults, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		log:      logger,
		content:  content,
		defaults: defaults,
		sessions: make(map[string]*Session),
	}
}

// CreateOptions are the operator's per-game flags.
type CreateOptions struct {
	Mode      string  `json:"mode"`
	MaxTeams  int     `json:"max_teams"`
	Variation bool    `json:"variation"`
	Seed      int64   `json:"seed,omitempty"` // 0 means fresh seed
	PriceCap  float64 `json:"price_cap,omitempty"`
}

func (h *Hub) Create(opts CreateOptions) (*Session, error) {
	rounds, ok := h.content.Curriculum.RoundsFor(opts.Mode)
	if !ok {
		return nil, ErrUnknownMode
	}
	if opts.MaxTeams < 1 {
		opts.MaxTeams = 1
	}
	cfg := GameConfig{
		Mode:             opts.Mode,
		MaxTeams:         opts.MaxTeams,
		PriceCap:         h.defaults.PriceCap,
		PriceFloor:       h.defaults.PriceFloor,
		Rounds:           rounds,
		Variation:        opts.Variation,
		Variability:      h.defaults.Variability,
		BalancingTrigger: h.defaults.BalancingTrigger,
	}
	if opts.PriceCap > 0 {
		cfg.PriceCap = opts.PriceCap
	}

	var sess *Session
	if opts.Seed != 0 {
		sess = NewSessionWithSeed(h.content, cfg, h.log, opts.Seed)
	} else {
		sess = NewSession(h.content, cfg, h.log)
	}

	h.mu.Lock()
	h.sessions[sess.ID()] = sess
	h.mu.Unlock()

	h.log.Info("game created", "game_id", sess.ID(), "mode", opts.Mode, "max_teams", opts.MaxTeams)
	return sess, nil
}

func (h *Hub) Get(id string) (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.sessions[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	return sess, nil
}

// Discard drops a session entirely. The only cancellation semantic there is.
func (h *Hub) Discard(id string) {
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
}

// TickAll advances every bidding-phase countdown by one second. Driven by a
// wall-clock ticker in the server binary; it only decrements counters.
func (h *Hub) TickAll() {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, sess := range h.sessions {
		sessions = append(sessions, sess)
	}
	h.mu.Unlock()

	for _, sess := range sessions {
		sess.Tick()
	}
}
