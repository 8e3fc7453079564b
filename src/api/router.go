package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"campus-community/src/lib"
)

type RouterDeps struct {
	Backend  Backend
	Verifier CredentialVerifier
	Metrics  *lib.Metrics
	Logger   *slog.Logger
	// Images enables POST /uploads/images when set.
	Images ImageUploader
	// UploadDir, when set, is served read-only under /uploads/.
	UploadDir string
}

// NewRouter mounts the directory's HTTP surface.
func NewRouter(deps RouterDeps) http.Handler {
	routes := NewGraphQLRoutes(deps.Backend, deps.Verifier, deps.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(deps.Logger))

	r.Post("/graphql", routes.handleGraphQL)
	if deps.Images != nil {
		uploads := UploadRoutes{Uploader: deps.Images, Verifier: deps.Verifier, Logger: deps.Logger}
		r.Post("/uploads/images", uploads.handleUpload)
	}
	if deps.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(deps.UploadDir))))
	}
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, deps.Metrics.Snapshot())
	})
	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
			next.ServeHTTP(ww, req)
			logger.Debug("http request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(req.Context()),
			)
		})
	}
}
