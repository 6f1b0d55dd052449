// Package api exposes the grid9 codec and spatial utilities over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/1F47E/grid9/internal/config"
	"github.com/1F47E/grid9/internal/logging"
	"github.com/1F47E/grid9/pkg/index"
)

// maxBodyBytes caps POST bodies for the batch endpoints
const maxBodyBytes = 16 << 20

type Options struct {
	AllowedOrigins []string
	Nearby         config.NearbyConfig
	// Index enables the /index routes when set
	Index *index.CodeIndex
}

// New builds the router with CORS, request ids, recovery and request logging
func New(ctx context.Context, opts Options) http.Handler {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		Debug:          false,
	}).Handler)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logging.GetLoggerFromContext(ctx)))

	h := &handler{nearbyCfg: opts.Nearby, index: opts.Index}

	r.Get("/health", health)

	r.Route("/api/v0", func(r chi.Router) {
		r.Get("/encode", h.encode)
		r.Get("/decode/{code}", h.decode)
		r.Get("/distance", h.distance)
		r.Get("/precision", h.precision)
		r.Get("/neighbors/{code}", h.neighbors)
		r.Get("/nearby", h.nearby)

		r.Post("/batch/encode", h.batchEncode)
		r.Post("/batch/decode", h.batchDecode)
		r.Post("/bbox", h.bbox)
		r.Post("/center", h.center)
		r.Post("/group", h.group)

		if h.index != nil {
			r.Route("/index", func(r chi.Router) {
				r.Get("/radius", h.indexRadius)
				r.Get("/nearest", h.indexNearest)
				r.Get("/count", h.indexCount)
			})
		}
	})

	return r
}
