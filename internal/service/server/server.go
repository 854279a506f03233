// Package server is a reference implementation of the synchronisation
// service. It keeps accounts in memory and speaks the same JSON protocol
// the HTTP client expects, so the CLI can be exercised end to end without
// a hosted service.
package server

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/klauern/feedsync/internal/logging"
	"github.com/klauern/feedsync/internal/model"
	"github.com/klauern/feedsync/internal/service"
)

const maxRequestBytes = 32 << 20

var (
	// ErrInvalidCredentials is returned when the password does not match
	// the registered account.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type account struct {
	email  string
	userID string
	salt   []byte
	digest []byte
	doc    *model.Document
	prefs  map[string]string
	pings  map[string]int
}

// Server holds the accounts and serves the HTTP API.
type Server struct {
	mu       sync.RWMutex
	accounts map[string]*account
	byUserID map[string]*account

	limiter  *Limiter
	logger   *slog.Logger
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRateLimit limits each client to r requests per second with the
// given burst. A zero rate disables limiting.
func WithRateLimit(r float64, burst int) Option {
	return func(s *Server) {
		if r <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = NewLimiter(rate.Limit(r), burst)
	}
}

// New creates a server with no accounts.
func New(opts ...Option) *Server {
	s := &Server{
		accounts: make(map[string]*account),
		byUserID: make(map[string]*account),
		logger:   logging.Default(),
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedsync_server_requests_total",
		Help: "Requests served by route and status code.",
	}, []string{"route", "code"})
	s.registry.MustRegister(s.requests)
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Registry returns the registry behind /metrics.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.countRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Middleware)
		}
		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Get("/snapshot", s.handleGetSnapshot)
			r.Put("/snapshot", s.handlePutSnapshot)
			r.Get("/preferences", s.handleGetPreferences)
			r.Put("/preferences", s.handlePutPreferences)
		})
		r.Post("/users/{userID}/guides/{title}/ping", s.handlePing)
	})

	s.router = r
}

// Register creates an account. Registering an existing email fails.
func (s *Server) Register(email, password string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[email]; ok {
		return "", fmt.Errorf("account %q already exists", email)
	}
	return s.registerLocked(email, password).userID, nil
}

func (s *Server) registerLocked(email, password string) *account {
	salt := make([]byte, 16)
	_, _ = rand.Read(salt)
	a := &account{
		email:  email,
		userID: uuid.NewString(),
		salt:   salt,
		digest: digest(salt, password),
		doc:    &model.Document{Version: model.DocumentVersion},
		prefs:  make(map[string]string),
		pings:  make(map[string]int),
	}
	s.accounts[email] = a
	s.byUserID[a.userID] = a
	return a
}

// login returns the account for the credentials, registering unknown
// emails on first use.
func (s *Server) login(email, password string) (*account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[email]
	if !ok {
		a = s.registerLocked(email, password)
		s.logger.Info("registered account", slog.String("email", email))
		return a, nil
	}
	if subtle.ConstantTimeCompare(a.digest, digest(a.salt, password)) != 1 {
		return nil, ErrInvalidCredentials
	}
	return a, nil
}

// Pings returns how often the guide of the user was pinged.
func (s *Server) Pings(userID, guideTitle string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byUserID[userID]
	if !ok {
		return 0
	}
	return a.pings[guideTitle]
}

// Accounts returns the registered emails in sorted order.
func (s *Server) Accounts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.accounts))
	for email := range s.accounts {
		out = append(out, email)
	}
	sort.Strings(out)
	return out
}

type ctxKey struct{}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, password, ok := r.BasicAuth()
		if !ok || email == "" {
			w.Header().Set("WWW-Authenticate", `Basic realm="feedsync"`)
			writeError(w, http.StatusUnauthorized, "Please configure your account email and password.")
			return
		}
		a, err := s.login(email, password)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "The email or password is incorrect.")
			return
		}
		next.ServeHTTP(w, r.WithContext(withAccount(r, a)))
	})
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	a := accountFrom(r)
	s.mu.RLock()
	doc := a.doc
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handlePutSnapshot(w http.ResponseWriter, r *http.Request) {
	a := accountFrom(r)
	var doc model.Document
	if err := decodeBody(r, &doc); err != nil {
		writeError(w, http.StatusBadRequest, "The snapshot could not be read.")
		return
	}
	if _, err := model.Import(&doc); err != nil {
		s.logger.Warn("rejected snapshot", slog.String("email", a.email), logging.Err(err))
		writeError(w, http.StatusBadRequest, "The snapshot is inconsistent: "+err.Error())
		return
	}
	if doc.Version == 0 {
		doc.Version = model.DocumentVersion
	}

	s.mu.Lock()
	a.doc = &doc
	s.mu.Unlock()

	s.logger.Info("stored snapshot",
		slog.String("email", a.email),
		logging.Count(len(doc.Feeds)),
	)
	writeJSON(w, http.StatusOK, service.SnapshotResponse{UserID: a.userID})
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	a := accountFrom(r)
	s.mu.RLock()
	out := make(map[string]string, len(a.prefs))
	for k, v := range a.prefs {
		out[k] = v
	}
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	a := accountFrom(r)
	var prefs map[string]string
	if err := decodeBody(r, &prefs); err != nil {
		writeError(w, http.StatusBadRequest, "The preferences could not be read.")
		return
	}
	s.mu.Lock()
	for k, v := range prefs {
		a.prefs[k] = v
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	title, err := url.PathUnescape(chi.URLParam(r, "title"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid guide title.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byUserID[userID]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown user.")
		return
	}
	if !published(a.doc, title) {
		writeError(w, http.StatusNotFound, "The guide is not published.")
		return
	}
	a.pings[title]++
	w.WriteHeader(http.StatusNoContent)
}

func published(doc *model.Document, title string) bool {
	for _, g := range doc.Guides {
		if g.Title == title {
			return g.Publishing.Enabled
		}
	}
	return false
}

// countRequests records every response by route pattern and status.
func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.requests.WithLabelValues(route, fmt.Sprint(status)).Inc()
	})
}

func withAccount(r *http.Request, a *account) context.Context {
	return context.WithValue(r.Context(), ctxKey{}, a)
}

func accountFrom(r *http.Request) *account {
	a, _ := r.Context().Value(ctxKey{}).(*account)
	return a
}

func digest(salt []byte, password string) []byte {
	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(password))
	return h.Sum(nil)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, service.ErrorResponse{Message: msg})
}

// Serve serves the API on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("service listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
