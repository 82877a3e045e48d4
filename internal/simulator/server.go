package simulator

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/custodia-labs/docchat/internal/logger"
	"github.com/custodia-labs/docchat/internal/simulator/extract"
)

// Default configuration values.
const (
	DefaultAddr       = "127.0.0.1:8080"
	DefaultStageDelay = 1500 * time.Millisecond
	DefaultTokenDelay = 40 * time.Millisecond
	DefaultTTL        = 24 * time.Hour
	DefaultBodyLimit  = 32 << 20
)

// Config holds simulator settings.
type Config struct {
	// StageDelay is how long each pipeline stage lasts after upload.
	// Zero makes uploaded documents ready at once.
	StageDelay time.Duration

	// TokenDelay is the pause between streamed fragments.
	TokenDelay time.Duration

	// TTL is how long submitted documents are kept.
	TTL time.Duration

	// BodyLimit caps uploaded document size in bytes.
	BodyLimit int

	// Now overrides the clock.
	Now func() time.Time
}

// DefaultConfig returns the interactive defaults.
func DefaultConfig() Config {
	return Config{
		StageDelay: DefaultStageDelay,
		TokenDelay: DefaultTokenDelay,
		TTL:        DefaultTTL,
		BodyLimit:  DefaultBodyLimit,
	}
}

// Server is the simulated backend.
type Server struct {
	cfg        Config
	app        *fiber.App
	store      *store
	extractors *extract.Registry
	chunker    *extract.Chunker
}

// New creates a simulator with its routes registered.
func New(cfg Config) *Server {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = DefaultBodyLimit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Server{
		cfg:        cfg,
		store:      newStore(cfg.TTL),
		extractors: extract.Default(),
		chunker:    extract.NewChunker(),
		app: fiber.New(fiber.Config{
			AppName:               "docchat-simulator",
			DisableStartupMessage: true,
			BodyLimit:             cfg.BodyLimit,
			ErrorHandler:          errorHandler,
		}),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.app.Group("/api")
	api.Get("/check-email", s.handleCheckEmail)
	api.Post("/extract", s.handleExtract)
	api.Get("/status/:id", s.handleStatus)

	s.app.Put("/upload/:id", s.handleUpload)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws", websocket.New(s.serveChat))
}

// errorHandler renders errors as {"error": "..."} with the matching status.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// Run listens on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	logger.Info("simulator listening on http://%s", ln.Addr())

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
				logger.Warn("simulator shutdown: %v", err)
			}
		case <-done:
		}
	}()

	return s.app.Listener(ln)
}

// Shutdown stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
