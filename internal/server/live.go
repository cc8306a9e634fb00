package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/internal/constants"
	"github.com/annko/keiba-bot-go/internal/domain"
)

// OddsUpdate is one push on the live odds stream.
type OddsUpdate struct {
	RaceID    string           `json:"race_id"`
	BetType   domain.BetType   `json:"bet_type"`
	Rows      []domain.OddsRow `json:"rows,omitempty"`
	Error     string           `json:"error,omitempty"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// handleLiveOdds streams ?bet= odds (default tansho) every poll interval until the
// client goes away. Fetch errors are pushed and the stream keeps polling.
func (s *Server) handleLiveOdds(w http.ResponseWriter, r *http.Request) {
	id, err := s.raceID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	bet := domain.BetWin
	if raw := r.URL.Query().Get("bet"); raw != "" {
		if bet, err = domain.ParseBetType(raw); err != nil {
			s.writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	source := r.URL.Query().Get("source")

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	s.metrics.LiveSubscribers.Inc()
	defer s.metrics.LiveSubscribers.Dec()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reads only detect the close frame.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.logger.Info("Live odds subscriber connected",
		zap.String("race_id", id.String()),
		zap.String("bet_type", bet.String()),
	)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		if err := s.pushOdds(ctx, conn, id, bet, source); err != nil {
			s.logger.Debug("Live odds subscriber gone", zap.String("race_id", id.String()), zap.Error(err))
			return
		}
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) pushOdds(ctx context.Context, conn *websocket.Conn, id domain.RaceID, bet domain.BetType, source string) error {
	update := OddsUpdate{RaceID: id.String(), BetType: bet}
	rows, err := s.races.Odds(ctx, id, bet, source)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		update.Error = err.Error()
	}
	update.Rows = rows
	update.FetchedAt = s.now()

	if err := conn.SetWriteDeadline(time.Now().Add(constants.WebSocketConfig.WriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(update)
}

// checkOrigin mirrors the CORS allow list; clients without an Origin header pass.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
