package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"campus-community/src/auth"
	"campus-community/src/lib"
	"campus-community/src/services"
	"campus-community/src/storage"
)

// Server wires the directory service and its HTTP handlers.
type Server struct {
	cfg        lib.Config
	logger     *slog.Logger
	metrics    *lib.Metrics
	db         *pgxpool.Pool
	service    *services.DirectoryService
	httpServer *http.Server
}

func NewServer(ctx context.Context, cfg lib.Config) (*Server, error) {
	logger := lib.NewLogger(cfg.LogLevel)
	metrics := lib.NewMetrics()

	db, err := storage.NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := storage.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	limiter := services.NewRateLimiter(cfg.RateLimitBurst, cfg.RateLimitPerMinute)
	service := services.NewDirectoryService(storage.NewGroupRepo(db), metrics, services.WithRateLimiter(limiter))

	images, uploadDir, err := newImageStore(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	handler := NewRouter(RouterDeps{
		Backend:   service,
		Verifier:  auth.NewVerifier(cfg.JWTSecret),
		Metrics:   metrics,
		Logger:    logger,
		Images:    services.NewImageService(images, limiter, metrics),
		UploadDir: uploadDir,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
		db:         db,
		service:    service,
		httpServer: httpServer,
	}, nil
}

// newImageStore prefers Cloudinary and falls back to local disk. uploadDir is
// empty unless images are served by this process.
func newImageStore(cfg lib.Config) (storage.ImageStore, string, error) {
	if cfg.CloudinaryURL != "" {
		store, err := storage.NewCloudinaryImages(cfg.CloudinaryURL, cfg.CloudinaryFolder)
		return store, "", err
	}
	store, err := storage.NewDiskImages(cfg.UploadDir, cfg.UploadBaseURL)
	if err != nil {
		return nil, "", err
	}
	return store, store.Dir(), nil
}

// Service exposes the directory service for administrative commands.
func (s *Server) Service() *services.DirectoryService {
	return s.service
}

func (s *Server) Start() error {
	s.logger.Info("directory server starting", "addr", s.cfg.HTTPAddr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	defer s.db.Close()
	return s.httpServer.Shutdown(ctx)
}
