// Package admin serves the operational HTTP surface: metrics, health and
// parked dead-letter replay.
package admin

import (
	// Go Internal Packages
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	// Local Packages
	models "pix-stream/models"

	// External Packages
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 5 * time.Second
	defaultDrain    = 100
)

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

// ParkingLot holds dead-letter copies the bus refused.
type ParkingLot interface {
	Drain(ctx context.Context, limit int) ([]models.Message, error)
	Send(ctx context.Context, msgs []models.Message) error
}

type Publisher interface {
	Publish(ctx context.Context, msgs ...models.Message) error
}

type Server struct {
	router    *mux.Router
	checks    map[string]Check
	clients   map[string]http.Handler
	parked    ParkingLot
	publisher Publisher
	logger    *zap.Logger
}

// NewServer builds the admin router. clients maps each kafka client name to
// the handler of its metrics registry.
func NewServer(checks map[string]Check, parked ParkingLot, publisher Publisher, clients map[string]http.Handler, logger *zap.Logger) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		checks:    checks,
		clients:   clients,
		parked:    parked,
		publisher: publisher,
		logger:    logger,
	}
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics/kafka/{client}", s.kafkaMetrics).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	s.router.HandleFunc("/dead-letters/parked/replay", s.replay).Methods(http.MethodPost)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on address until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	srv := &http.Server{Addr: address, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) kafkaMetrics(w http.ResponseWriter, r *http.Request) {
	h, ok := s.clients[mux.Vars(r)["client"]]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown kafka client"})
		return
	}
	h.ServeHTTP(w, r)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{}
	code := http.StatusOK
	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			status[name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}
	writeJSON(w, code, map[string]any{"status": http.StatusText(code), "checks": status})
}

// replay republishes up to ?limit parked messages. Messages the bus still
// refuses go back to the parking lot.
func (s *Server) replay(w http.ResponseWriter, r *http.Request) {
	limit := defaultDrain
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	msgs, err := s.parked.Drain(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if len(msgs) == 0 {
		writeJSON(w, http.StatusOK, map[string]int{"replayed": 0})
		return
	}
	if err := s.publisher.Publish(r.Context(), msgs...); err != nil {
		s.logger.Error("cannot replay parked messages", zap.Int("count", len(msgs)), zap.Error(err))
		if perr := s.parked.Send(r.Context(), msgs); perr != nil {
			s.logger.Error("cannot re-park messages", zap.Error(perr))
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	s.logger.Info("parked messages replayed", zap.Int("count", len(msgs)))
	writeJSON(w, http.StatusOK, map[string]int{"replayed": len(msgs)})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
