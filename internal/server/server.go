package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"xrpals-lps/internal/convert"
	"xrpals-lps/internal/fsutil"
	"xrpals-lps/internal/timeutil"
)

const (
	DefaultAddr           = ":3030"
	DefaultUploadDir      = "./uploads"
	DefaultMaxUploadBytes = 5_000_000
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version string
	Commit  string
}

// Config carries settings and collaborators. Zero values fall back to the
// defaults above, the OS filesystem and the real clock; a nil Ledger or
// Mirror disables that stage.
type Config struct {
	Addr           string
	AdminAddr      string // empty disables the admin listener
	UploadDir      string
	MaxUploadBytes int64
	Naming         Naming
	Build          BuildInfo

	Retention         time.Duration // zero keeps uploads forever
	RetentionInterval time.Duration

	Logger *Logger
	FS     fsutil.FileSystem
	Clock  timeutil.Clock
	Ledger Ledger
	Mirror Mirror
}

type Server struct {
	cfg       Config
	log       *Logger
	fs        fsutil.FileSystem
	clock     timeutil.Clock
	converter *convert.Converter
	ledger    Ledger
	mirror    Mirror
	metrics   *Metrics

	handler     http.Handler
	httpServer  *http.Server
	adminServer *http.Server
}

// New applies defaults, creates the upload directory and builds both
// listeners. Nothing is bound until Start.
func New(cfg Config) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = DefaultUploadDir
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Naming == "" {
		cfg.Naming = NamingTimestamp
	}
	if cfg.RetentionInterval <= 0 {
		cfg.RetentionInterval = time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = NewLogger(io.Discard, LogLevelError, false)
	}
	if cfg.FS == nil {
		cfg.FS = fsutil.OSFileSystem{}
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}

	if err := cfg.FS.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", cfg.UploadDir, err)
	}

	s := &Server{
		cfg:       cfg,
		log:       cfg.Logger,
		fs:        cfg.FS,
		clock:     cfg.Clock,
		converter: convert.New(cfg.FS),
		ledger:    cfg.Ledger,
		mirror:    cfg.Mirror,
		metrics:   NewMetrics(),
	}
	s.handler = s.routes()

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if cfg.AdminAddr != "" {
		s.adminServer = &http.Server{
			Addr:              cfg.AdminAddr,
			Handler:           s.adminRoutes(),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(securityHeadersMiddleware)
	r.Use(s.recoverMiddleware)

	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	// The index answers any method; the upload endpoint is POST only.
	r.HandleFunc("/", handleIndex)
	r.Post("/upload", s.handleUpload)
	return r
}

// Handler returns the public HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Metrics exposes the server's counters.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start binds the public listener (and the admin listener when configured)
// and serves until Shutdown. The bound addresses are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.log.Info("listening", map[string]interface{}{
		"addr":       ln.Addr().String(),
		"upload_dir": s.cfg.UploadDir,
		"max_bytes":  s.cfg.MaxUploadBytes,
		"naming":     s.cfg.Naming,
	})

	if s.adminServer != nil {
		aln, err := net.Listen("tcp", s.adminServer.Addr)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("admin listener: %w", err)
		}
		s.log.Info("admin_listening", map[string]interface{}{"addr": aln.Addr().String()})
		go func() {
			if err := s.adminServer.Serve(aln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("admin_server_error", nil, err)
			}
		}()
	}

	return s.httpServer.Serve(ln)
}

// Shutdown drains both listeners.
func (s *Server) Shutdown(ctx context.Context) error {
	var adminErr error
	if s.adminServer != nil {
		adminErr = s.adminServer.Shutdown(ctx)
	}
	return errors.Join(s.httpServer.Shutdown(ctx), adminErr)
}
