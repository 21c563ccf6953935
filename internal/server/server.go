// Package server implements the development server: it builds the site into
// a temporary directory, serves it and rebuilds on change, pushing reloads to
// open browsers.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitegen/internal/build"
	"git.home.luguber.info/inful/sitegen/internal/config"
	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/plugins"
)

const (
	defaultQuietWindow = 300 * time.Millisecond
	defaultMaxDelay    = 5 * time.Second
	shutdownTimeout    = 5 * time.Second
)

// Options configure a Server.
type Options struct {
	// ConfigFile is the mkdocs.yml to serve. It is reloaded before every
	// rebuild.
	ConfigFile string
	// DevAddr overrides the configured dev_addr.
	DevAddr string
	Strict  bool
	Dirty   bool
	// RebuildEvery schedules a rebuild at a fixed interval when > 0.
	RebuildEvery time.Duration
	// Metrics exposes Prometheus metrics at /metrics.
	Metrics bool

	QuietWindow time.Duration
	MaxDelay    time.Duration

	Registry  *plugins.Registry
	Observers []build.BuildObserver
	Logger    *slog.Logger
}

// Server is the development server.
type Server struct {
	opts      Options
	logger    *slog.Logger
	tmpDir    string
	siteDir   string
	hub       *Hub
	debouncer *Debouncer
	registry  *prom.Registry
	recorder  metrics.Recorder

	buildMu sync.Mutex

	mu     sync.RWMutex
	cfg    *config.Config
	status buildStatus
}

// buildStatus tracks the outcome of the latest rebuild.
type buildStatus struct {
	lastError    error
	lastReport   *build.BuildReport
	hasGoodBuild bool
}

// New loads the configuration and prepares a temporary output directory.
// Call Close to remove it.
func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.QuietWindow <= 0 {
		opts.QuietWindow = defaultQuietWindow
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = defaultMaxDelay
	}
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	deb, err := NewDebouncer(opts.QuietWindow, opts.MaxDelay)
	if err != nil {
		return nil, err
	}
	tmp, err := os.MkdirTemp("", "sitegen-serve-")
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create temporary site directory").Build()
	}
	s := &Server{
		opts:      opts,
		logger:    opts.Logger,
		tmpDir:    tmp,
		siteDir:   filepath.Join(tmp, "site"),
		hub:       NewHub(opts.Logger),
		debouncer: deb,
		recorder:  metrics.NoopRecorder{},
		cfg:       cfg,
	}
	if opts.Metrics {
		s.registry = prom.NewRegistry()
		s.recorder = metrics.NewPrometheusRecorder(s.registry)
	}
	return s, nil
}

// SiteDir is the temporary directory the site is built into.
func (s *Server) SiteDir() string { return s.siteDir }

// Config returns the last configuration that loaded successfully.
func (s *Server) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Addr is the listen address.
func (s *Server) Addr() string {
	if s.opts.DevAddr != "" {
		return s.opts.DevAddr
	}
	return s.Config().DevAddr
}

// Rebuild reloads the configuration and builds the site. On failure the
// previous build keeps being served. Browsers are told to reload either way.
func (s *Server) Rebuild(ctx context.Context) (*build.BuildReport, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	cfg, err := config.Load(s.opts.ConfigFile)
	if err != nil {
		s.logger.Warn("Configuration reload failed; keeping previous configuration",
			logfields.Path(s.opts.ConfigFile), logfields.Error(err))
		s.setResult(nil, nil, err)
		return nil, err
	}

	gen := build.NewGenerator(cfg, build.Options{
		SiteDir:   s.siteDir,
		Strict:    s.opts.Strict,
		Dirty:     s.opts.Dirty,
		Registry:  s.opts.Registry,
		Recorder:  s.recorder,
		Observers: s.opts.Observers,
		Logger:    s.logger,
	})
	report, err := gen.Build(ctx)
	s.setResult(cfg, report, err)
	if err != nil {
		s.logger.Warn("Rebuild failed; serving previous build", logfields.Error(err))
		return report, err
	}
	s.logger.Info("Site rebuilt", logfields.BuildID(report.ID), slog.String("summary", report.Summary()))
	return report, nil
}

func (s *Server) setResult(cfg *config.Config, report *build.BuildReport, err error) {
	s.mu.Lock()
	if cfg != nil {
		s.cfg = cfg
	}
	s.status.lastError = err
	s.status.lastReport = report
	if err == nil && report != nil {
		s.status.hasGoodBuild = true
	}
	s.mu.Unlock()

	switch {
	case err != nil:
		s.hub.Broadcast(fmt.Sprintf("error:%d", time.Now().UnixNano()))
	case report != nil:
		s.hub.Broadcast(report.ID)
	}
}

// LastError returns the error of the latest rebuild, nil when it succeeded.
func (s *Server) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status.lastError
}

// watchPaths lists the configuration file, docs_dir, a custom theme
// directory and the configured watch paths.
func (s *Server) watchPaths() []string {
	cfg := s.Config()
	paths := []string{s.opts.ConfigFile, cfg.DocsDir}
	if cfg.Theme.CustomDir != "" {
		paths = append(paths, cfg.Theme.CustomDir)
	}
	return append(paths, cfg.Watch...)
}

// Handler returns the HTTP handler serving the site and the livereload
// endpoints.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/livereload", s.hub.ServeHTTP)
	r.Get("/livereload.js", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write([]byte(Script))
	})
	if s.registry != nil {
		r.Handle("/metrics", metrics.HTTPHandler(s.registry))
	}
	site := injectLiveReload(http.HandlerFunc(s.serveSite))
	r.Get("/*", site.ServeHTTP)
	r.Head("/*", site.ServeHTTP)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		if r.URL.Path == "/livereload" {
			return
		}
		s.logger.Debug("request",
			slog.String("method", r.Method),
			logfields.URL(r.URL.Path),
			slog.Int("status", ww.Status()),
			logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	})
}

// serveSite serves files of the latest good build below the site_url path.
// Directories resolve to index.html; missing files get the site's 404 page.
func (s *Server) serveSite(w http.ResponseWriter, r *http.Request) {
	base := build.BasePath(s.Config().SiteURL)
	reqPath := r.URL.Path
	if !strings.HasPrefix(reqPath, base) {
		if reqPath == "/" || reqPath+"/" == base {
			http.Redirect(w, r, base, http.StatusFound)
			return
		}
		s.notFound(w)
		return
	}

	s.mu.RLock()
	good, lastErr := s.status.hasGoodBuild, s.status.lastError
	s.mu.RUnlock()
	if !good {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		if lastErr != nil {
			fmt.Fprintf(w, "The site has not been built successfully yet.\n\n%v\n", lastErr)
		} else {
			fmt.Fprintln(w, "The site is being built.")
		}
		return
	}

	rel := path.Clean("/" + strings.TrimPrefix(reqPath, base))
	name := filepath.Join(s.siteDir, filepath.FromSlash(rel))
	fi, err := os.Stat(name)
	if err == nil && fi.IsDir() {
		if !strings.HasSuffix(reqPath, "/") {
			http.Redirect(w, r, reqPath+"/", http.StatusMovedPermanently)
			return
		}
		name = filepath.Join(name, "index.html")
		fi, err = os.Stat(name)
	}
	if err != nil || fi.IsDir() {
		s.notFound(w)
		return
	}
	f, err := os.Open(name)
	if err != nil {
		s.notFound(w)
		return
	}
	defer f.Close()
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
}

func (s *Server) notFound(w http.ResponseWriter) {
	data, err := os.ReadFile(filepath.Join(s.siteDir, "404.html"))
	if err != nil {
		http.Error(w, "404 page not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write(data)
}

// Run builds the site, serves it on the configured address and rebuilds on
// change until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to listen").
			WithContext("addr", s.Addr()).UserAction().Build()
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if _, err := s.Rebuild(ctx); err != nil && ctx.Err() != nil {
		_ = ln.Close()
		return nil
	}

	watcher, err := NewWatcher(s.logger)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer func() { _ = watcher.Close() }()
	watcher.Watch(s.watchPaths()...)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.debouncer.Run(ctx, func(ctx context.Context, b Batch) {
			s.logger.Info("Change detected; rebuilding site",
				slog.String("reason", b.LastReason),
				logfields.Count(b.Count),
				slog.String("cause", b.Cause))
			_, _ = s.Rebuild(ctx)
			watcher.Watch(s.watchPaths()...)
		})
	}()
	go func() {
		defer wg.Done()
		watcher.Run(ctx, func(p string) { s.debouncer.Trigger(p) })
	}()

	if s.opts.RebuildEvery > 0 {
		sched, err := NewScheduler(s.logger)
		if err != nil {
			_ = ln.Close()
			return err
		}
		if _, err := sched.ScheduleEvery("periodic-rebuild", s.opts.RebuildEvery, func() {
			s.debouncer.Trigger("scheduled")
		}); err != nil {
			_ = ln.Close()
			return err
		}
		sched.Start()
		defer func() { _ = sched.Stop(context.Background()) }()
	}

	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("Serving site",
		logfields.URL("http://"+ln.Addr().String()+build.BasePath(s.Config().SiteURL)),
		logfields.Output(s.siteDir))

	var serveErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = ferrors.WrapError(err, ferrors.CategoryNetwork, "server failed").Build()
		}
	}

	s.logger.Info("Shutting down server")
	s.hub.Shutdown()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP server shutdown error", logfields.Error(err))
	}
	cancel()
	wg.Wait()
	return serveErr
}

// Close removes the temporary site directory.
func (s *Server) Close() error {
	s.hub.Shutdown()
	if err := os.RemoveAll(s.tmpDir); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to remove temporary site").
			WithContext("dir", s.tmpDir).Build()
	}
	return nil
}
