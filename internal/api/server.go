// Package api exposes the site catalog, the filter engine and per-client
// UI sessions over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/sponge-spot/internal/dataset"
	"github.com/sells-group/sponge-spot/internal/geospatial"
	"github.com/sells-group/sponge-spot/internal/model"
	"github.com/sells-group/sponge-spot/internal/scorer"
	"github.com/sells-group/sponge-spot/internal/session"
)

// MapView is the initial map state handed to clients.
type MapView struct {
	CenterLat   float64 `json:"center_lat"`
	CenterLon   float64 `json:"center_lon"`
	Zoom        int     `json:"zoom"`
	TileURL     string  `json:"tile_url"`
	Attribution string  `json:"attribution"`
}

// Options configures the HTTP surface.
type Options struct {
	Map MapView

	// Defaults fills in criteria a request leaves out; nil means
	// model.DefaultCriteria.
	Defaults *model.Criteria

	// Scorer ranks recommendations; nil uses the default weights.
	Scorer *scorer.Scorer

	CORSOrigins []string
}

// Server wires the dataset, sessions and tile proxy into a chi router.
type Server struct {
	opts     Options
	defaults model.Criteria
	scorer   *scorer.Scorer
	data     *dataset.Dataset
	index    *geospatial.Index
	sessions *session.Manager
	tiles    *geospatial.TileProxy
	metrics  *Metrics
}

// NewServer creates the API server. tiles and metrics may be nil.
func NewServer(opts Options, data *dataset.Dataset, sessions *session.Manager, tiles *geospatial.TileProxy, metrics *Metrics) *Server {
	defaults := model.DefaultCriteria()
	if opts.Defaults != nil {
		defaults = opts.Defaults.Clone()
	}
	sc := opts.Scorer
	if sc == nil {
		sc = scorer.New(scorer.DefaultScorerConfig())
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	return &Server{
		opts:     opts,
		defaults: defaults,
		scorer:   sc,
		data:     data,
		index:    geospatial.NewIndex(data.All()),
		sessions: sessions,
		tiles:    tiles,
		metrics:  metrics,
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "locations": s.data.Len()})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/map", s.handleMap)
		r.Get("/locations", s.handleListLocations)
		r.Get("/locations.geojson", s.handleLocationsGeoJSON)
		r.Get("/locations/{id}", s.handleGetLocation)
		r.Get("/recommendations", s.handleRecommendations)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Get("/{id}", s.handleGetSession)
			r.Delete("/{id}", s.handleDeleteSession)
			r.Put("/{id}/criteria", s.handleReplaceCriteria)
			r.Post("/{id}/criteria/toggle", s.handleToggleCriteria)
			r.Post("/{id}/selection", s.handleSelect)
		})
	})

	if s.tiles != nil {
		r.Method(http.MethodGet, "/tiles/*", s.tiles)
	}
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
