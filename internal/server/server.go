package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/internal/config"
	"github.com/annko/keiba-bot-go/internal/constants"
	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/metrics"
	"github.com/annko/keiba-bot-go/internal/util"
)

// RaceAPI is the read side of race.Service exposed over HTTP.
type RaceAPI interface {
	Resolve(ctx context.Context, q domain.RaceQuery) (domain.RaceID, error)
	ResolveByDate(ctx context.Context, date time.Time, racecourse string, raceNum int) (domain.RaceID, error)
	ResultByID(ctx context.Context, id domain.RaceID) ([]domain.ResultEntry, error)
	Database(ctx context.Context, id domain.RaceID) (*domain.RaceDatabase, error)
	Info(ctx context.Context, id domain.RaceID) (*domain.RaceInfo, error)
	Payouts(ctx context.Context, id domain.RaceID) ([]domain.Payout, error)
	Corners(ctx context.Context, id domain.RaceID) ([]domain.CornerPassing, error)
	Laps(ctx context.Context, id domain.RaceID) ([]domain.Lap, error)
	RaceIDsByDate(ctx context.Context, date time.Time) ([]string, error)
	RaceIDsByMonth(ctx context.Context, year int, month time.Month) ([]string, error)
	RaceIDsByYear(ctx context.Context, year int) ([]string, error)
	HorseResults(ctx context.Context, horseID string) (*domain.HorseResults, error)
	HorseProfile(ctx context.Context, horseID string) (*domain.HorseProfile, error)
	Pedigree(ctx context.Context, horseID string) ([]domain.Ancestor, error)
	Umabashira(ctx context.Context, id domain.RaceID) ([]domain.UmabashiraRow, error)
	UmabashiraGrid(ctx context.Context, id domain.RaceID) (*domain.Grid, error)
	Odds(ctx context.Context, id domain.RaceID, bet domain.BetType, source string) ([]domain.OddsRow, error)
	AllOdds(ctx context.Context, id domain.RaceID, source string) (domain.OddsSet, error)
}

// BreakerStatus reports a group of circuit breakers for /status.
type BreakerStatus func() []util.CircuitBreakerStatus

type Options struct {
	Config   config.ServerConfig
	Races    RaceAPI
	Line     http.Handler
	Breakers []BreakerStatus
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

type Server struct {
	cfg          config.ServerConfig
	races        RaceAPI
	line         http.Handler
	breakers     []BreakerStatus
	metrics      *metrics.Metrics
	logger       *zap.Logger
	now          func() time.Time
	pollInterval time.Duration
	httpServer   *http.Server
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	return &Server{
		cfg:          opts.Config,
		races:        opts.Races,
		line:         opts.Line,
		breakers:     opts.Breakers,
		metrics:      m,
		logger:       logger,
		now:          util.NowJST,
		pollInterval: constants.WebSocketConfig.OddsPollInterval,
	}
}

// Handler builds the router with CORS, recovery and request logging applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/healthcheck", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/nicerace", s.handleNice).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	for _, path := range []string{"/race_result", "/api/race_result", "/api/keiba/race_result"} {
		r.HandleFunc(path, s.handleRaceResult).Methods(http.MethodPost)
	}
	for _, path := range []string{"/date_result", "/api/date_result"} {
		r.HandleFunc(path, s.handleDateResult).Methods(http.MethodPost)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/races/{id:[0-9]{12}}/odds", s.handleAllOdds).Methods(http.MethodGet)
	api.HandleFunc("/races/{id:[0-9]{12}}/odds/{bet}", s.handleOdds).Methods(http.MethodGet)
	api.HandleFunc("/races/{id:[0-9]{12}}/{product}", s.handleRaceProduct).Methods(http.MethodGet)
	api.HandleFunc("/race_ids", s.handleRaceIDs).Methods(http.MethodGet)
	api.HandleFunc("/horses/{id:[0-9a-zA-Z]+}/{product}", s.handleHorseProduct).Methods(http.MethodGet)
	api.HandleFunc("/umabashira/{id:[0-9]{12}}", s.handleUmabashira).Methods(http.MethodGet)

	r.HandleFunc("/ws/odds/{id:[0-9]{12}}", s.handleLiveOdds).Methods(http.MethodGet)

	if s.line != nil {
		r.Handle("/callback", s.line).Methods(http.MethodPost)
	}

	cors := handlers.CORS(
		handlers.AllowedOrigins(s.cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		handlers.AllowCredentials(),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(s.logger)),
		handlers.PrintRecoveryStack(true),
	)
	return recovery(cors(r))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.cfg.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
