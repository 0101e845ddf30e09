package webserver

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zsprackett/audioid-web/internal/broadcast"
	"github.com/zsprackett/audioid-web/internal/db"
	"github.com/zsprackett/audioid-web/internal/events"
	"github.com/zsprackett/audioid-web/internal/monitor"
)

const (
	defaultEventsLimit = 50
	maxEventsLimit     = 1000
)

type TLSConfig struct {
	Mode     string
	Domain   string
	CertFile string
	KeyFile  string
	CacheDir string
}

type Config struct {
	Port      int
	Host      string
	Path      string
	StaticDir string
	TLS       TLSConfig
}

// Hub is the live side of the service: the monitor loop.
type Hub interface {
	Subscribe(ctx context.Context, sub broadcast.Subscriber) error
	Unsubscribe(id uuid.UUID)
	Recent(ctx context.Context) ([]events.Event, error)
	Stats(ctx context.Context) (monitor.Stats, error)
}

// Journal serves persisted events. Nil when the journal is disabled.
type Journal interface {
	RecentEvents(limit int) ([]db.JournalEvent, error)
}

type Server struct {
	hub     Hub
	journal Journal
	metrics prometheus.Gatherer
	cfg     Config
	logger  *slog.Logger
	srv     *http.Server
	ln      net.Listener
}

func New(hub Hub, journal Journal, gatherer prometheus.Gatherer, cfg Config, logger *slog.Logger) *Server {
	if cfg.Path == "" {
		cfg.Path = "/audioid"
	}
	return &Server{
		hub:     hub,
		journal: journal,
		metrics: gatherer,
		cfg:     cfg,
		logger:  logger,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+s.cfg.Path, s.handleSocket)
	mux.HandleFunc("GET /api/recent", s.handleRecent)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
	}
	mux.Handle("GET /", http.FileServer(staticFiles(s.cfg.StaticDir)))
	return mux
}

// Start binds the listener and serves in the background. Bind errors are
// returned; later serve errors are logged.
func (s *Server) Start() error {
	tlsCfg, err := serverTLS(s.cfg.TLS)
	if err != nil {
		return fmt.Errorf("webserver: tls: %w", err)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("webserver: listen %s: %w", addr, err)
	}
	if tlsCfg != nil {
		ln = tls.NewListener(ln, tlsCfg)
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheme := "http"
	if tlsCfg != nil {
		scheme = "https"
	}
	s.logger.Info("webserver: listening", "url", fmt.Sprintf("%s://%s", scheme, ln.Addr()), "socket", s.cfg.Path)
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("webserver: serve", "err", err)
		}
	}()
	return nil
}

// Addr reports the bound address once Start has succeeded.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	recent, err := s.hub.Recent(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if recent == nil {
		recent = []events.Event{}
	}
	writeJSON(w, map[string]any{"recent": recent})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		http.Error(w, "journal disabled", http.StatusNotFound)
		return
	}
	limit := defaultEventsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxEventsLimit)
	}
	evts, err := s.journal.RecentEvents(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if evts == nil {
		evts = []db.JournalEvent{}
	}
	writeJSON(w, map[string]any{"events": evts})
}

type healthResponse struct {
	Status string `json:"status"`
	monitor.Stats
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.hub.Stats(r.Context())
	if err != nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": err.Error()})
		return
	}
	writeJSON(w, healthResponse{Status: "ok", Stats: stats})
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus sets the content type before the status line goes out.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
