// Package server serves the login gate and the section pages over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/goliatone/go-stepform/pkg/model"
	"github.com/goliatone/go-stepform/pkg/render"
	"github.com/goliatone/go-stepform/pkg/renderers/vanilla"
	"github.com/goliatone/go-stepform/pkg/session"
)

const (
	// CookieName holds the browser session id.
	CookieName = "stepform_session"
	// SessionField is the hidden input echoing the per-session token.
	SessionField = model.ReservedPrefix + "session"
	// VersionField is the hidden input carrying the schema version.
	VersionField = model.ReservedPrefix + "version"

	assetsPrefix = "/assets/"
)

// Messages shown on the login and section pages.
const (
	LoginFailedMessage   = "Login failed, please check your details and try again."
	LoginMissingMessage  = "Please enter your roll number and name."
	LoginThrottleMessage = "Too many attempts, please wait a moment and try again."
	SubmitFailedMessage  = "We could not submit your form. Please try again."
	StaleVersionMessage  = "This form was updated. Please review your answers."
)

var ErrMissingDependency = errors.New("server: authenticator and fetcher are required")

// Authenticator checks an identity against the login service.
type Authenticator interface {
	Login(ctx context.Context, identity session.Identity) error
}

// Dependencies are the collaborators every server needs.
type Dependencies struct {
	Authenticator Authenticator
	Fetcher       session.Fetcher
	// Sink receives completed forms. Nil discards them.
	Sink session.Sink
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRenderer replaces the default vanilla renderer.
func WithRenderer(renderer render.Renderer) Option {
	return func(s *Server) {
		if renderer != nil {
			s.renderer = renderer
		}
	}
}

// WithAddr sets the listen address used by Run.
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithLoginRate throttles login attempts across all clients.
func WithLoginRate(limit rate.Limit, burst int) Option {
	return func(s *Server) {
		s.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithSessionTTL expires browser sessions idle for longer than ttl.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.ttl = ttl
	}
}

// WithFetchTimeout bounds each background schema fetch.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.fetchTimeout = timeout
	}
}

// WithShutdownGrace bounds how long Run waits for in-flight requests.
func WithShutdownGrace(grace time.Duration) Option {
	return func(s *Server) {
		if grace > 0 {
			s.shutdownGrace = grace
		}
	}
}

// WithSecureCookies marks the session cookie Secure.
func WithSecureCookies(secure bool) Option {
	return func(s *Server) {
		s.secureCookies = secure
	}
}

// WithSessionOptions passes extra options to every form session.
func WithSessionOptions(opts ...session.Option) Option {
	return func(s *Server) {
		s.sessionOpts = append(s.sessionOpts, opts...)
	}
}

// WithClock overrides time.Now for session expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// Server is the HTTP front end. Each browser session owns a form session
// guarded by its own mutex.
type Server struct {
	auth     Authenticator
	fetcher  session.Fetcher
	sink     session.Sink
	renderer render.Renderer
	logger   *zap.Logger
	limiter  *rate.Limiter

	addr          string
	ttl           time.Duration
	fetchTimeout  time.Duration
	shutdownGrace time.Duration
	secureCookies bool
	sessionOpts   []session.Option
	now           func() time.Time

	sessions *store
	mux      *http.ServeMux

	// fetches run on baseCtx so they outlive the login request. closed is
	// guarded by mu so no fetch is counted after Close starts waiting.
	baseCtx context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	closed  bool
	fetches sync.WaitGroup
}

// New builds a server. The default renderer is the vanilla HTML renderer
// linking the stylesheet served under /assets/.
func New(deps Dependencies, opts ...Option) (*Server, error) {
	if deps.Authenticator == nil || deps.Fetcher == nil {
		return nil, ErrMissingDependency
	}
	s := &Server{
		auth:          deps.Authenticator,
		fetcher:       deps.Fetcher,
		sink:          deps.Sink,
		logger:        zap.NewNop(),
		limiter:       rate.NewLimiter(rate.Limit(1), 5),
		addr:          ":8080",
		ttl:           2 * time.Hour,
		shutdownGrace: 5 * time.Second,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.renderer == nil {
		renderer, err := vanilla.New(vanilla.WithStylesheetHref(assetsPrefix + vanilla.StylesheetName))
		if err != nil {
			return nil, fmt.Errorf("server: %w", err)
		}
		s.renderer = renderer
	}

	s.sessions = newStore(s.ttl, s.now)
	s.baseCtx, s.cancel = context.WithCancel(context.Background())
	s.mux = s.routes()
	return s, nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /form", s.handleForm)
	mux.HandleFunc("POST /form", s.handleFormPost)
	mux.HandleFunc("POST /form/retry", s.handleRetry)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.Handle("GET "+assetsPrefix, http.StripPrefix(assetsPrefix, http.FileServerFS(vanilla.AssetsFS())))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully and waits
// for background fetches. It returns nil on a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("listening", zap.String("addr", ln.Addr().String()))

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownGrace)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		s.Close()
		if err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		s.sweepLoop(groupCtx)
		return nil
	})

	err := group.Wait()
	s.logger.Info("stopped")
	return err
}

func (s *Server) sweepLoop(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}
	interval := s.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.sweep(); n > 0 {
				s.logger.Debug("expired sessions", zap.Int("count", n))
			}
		}
	}
}

// Close cancels background fetches and waits for them to finish.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	s.cancel()
	s.mu.Unlock()
	s.fetches.Wait()
}

// startFetch loads the schema for e in the background unless a fetch is
// already running or the session is past loading.
func (s *Server) startFetch(e *entry) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.fetches.Add(1)
	s.mu.Unlock()

	e.mu.Lock()
	if e.fetching || !e.sess.CanLoad() {
		e.mu.Unlock()
		s.fetches.Done()
		return
	}
	e.fetching = true
	identifier := e.sess.Identity().Identifier
	e.mu.Unlock()

	go func() {
		defer s.fetches.Done()
		ctx := s.baseCtx
		if s.fetchTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
			defer cancel()
		}
		schema, err := s.fetcher.FetchSchema(ctx, identifier)

		e.mu.Lock()
		defer e.mu.Unlock()
		e.fetching = false
		if resolveErr := e.sess.Resolve(schema, err); resolveErr != nil {
			s.logger.Warn("form load failed",
				zap.String("identifier", identifier),
				zap.Error(resolveErr),
			)
		}
	}()
}
