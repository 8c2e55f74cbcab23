// Package server exposes the analytics views as a read-only JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/city-pulse/internal/analytics"
	"github.com/sells-group/city-pulse/internal/metrics"
	"github.com/sells-group/city-pulse/internal/model"
)

// Config controls the API server.
type Config struct {
	Port        int
	CORSOrigins []string
	// RateLimit is the sustained requests per second across all clients.
	// Zero disables limiting.
	RateLimit float64
	RateBurst int
}

// Server serves analytics views from a Reporter.
type Server struct {
	rep *analytics.Reporter
	cfg Config
}

// New returns a server over rep.
func New(rep *analytics.Reporter, cfg Config) *Server {
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = max(1, int(cfg.RateLimit))
	}
	return &Server{rep: rep, cfg: cfg}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			r.Use(limit(rate.NewLimiter(rate.Limit(s.cfg.RateLimit), s.cfg.RateBurst)))
		}

		r.Route("/map", func(r chi.Router) {
			r.Get("/regions", s.view(analytics.PartRegions, func(ds *model.Dataset) any { return ds.Regions }))
			r.Get("/regions/{id}", s.regionDetail)
			r.Get("/dining", s.view(analytics.PartDining, func(ds *model.Dataset) any { return activeDining(ds.DiningVenues) }))
			r.Get("/leisure", s.view(analytics.PartLeisure, func(ds *model.Dataset) any { return ds.LeisureVenues }))
		})

		r.Route("/dining", func(r chi.Router) {
			r.Get("/density-matrix", s.view(analytics.PartRegions|analytics.PartDining, func(ds *model.Dataset) any {
				return analytics.DensityMatrix(ds.Regions, ds.DiningVenues)
			}))
			r.Get("/brands", s.view(analytics.PartBrands, func(ds *model.Dataset) any { return ds.Brands }))
			r.Get("/price-distribution", s.view(analytics.PartDining, func(ds *model.Dataset) any {
				return analytics.PriceDistribution(ds.DiningVenues)
			}))
			r.Get("/categories", s.view(analytics.PartDining, func(ds *model.Dataset) any {
				return analytics.CategoryDistribution(ds.DiningVenues)
			}))
			r.Get("/ranking", s.view(analytics.PartRegions|analytics.PartDining, func(ds *model.Dataset) any {
				return analytics.RankRegions(ds.Regions, ds.DiningVenues)
			}))
		})

		r.Route("/night", func(r chi.Router) {
			r.Get("/trend", s.view(analytics.PartSignals, func(ds *model.Dataset) any {
				return analytics.HourlyTrend(ds.Signals)
			}))
			r.Get("/comparison", s.view(analytics.PartRegions, func(ds *model.Dataset) any { return ds.Regions }))
			r.Get("/transit/{hour}", s.transitAtHour)
			r.Get("/overview", s.view(analytics.PartRegions|analytics.PartDining|analytics.PartLeisure|analytics.PartSignals,
				func(ds *model.Dataset) any {
					return analytics.CityOverview(ds.Regions, ds.DiningVenues, ds.LeisureVenues, ds.Signals)
				}))
		})

		r.Route("/leisure", func(r chi.Router) {
			r.Get("/decades", s.view(analytics.PartLeisure, func(ds *model.Dataset) any {
				return analytics.FoundingDecades(ds.LeisureVenues)
			}))
			r.Get("/regions", s.view(analytics.PartRegions|analytics.PartLeisure, func(ds *model.Dataset) any {
				return analytics.LeisureByRegion(ds.Regions, ds.LeisureVenues)
			}))
			r.Get("/tags", s.view(analytics.PartLeisure, func(ds *model.Dataset) any {
				return analytics.TagCounts(ds.LeisureVenues)
			}))
			r.Get("/timeline", s.view(analytics.PartLeisure, func(ds *model.Dataset) any {
				return analytics.Timeline(ds.LeisureVenues)
			}))
		})

		r.Route("/insight", func(r chi.Router) {
			r.Get("/temperature", s.view(analytics.PartRegions|analytics.PartLeisure|analytics.PartSignals, func(ds *model.Dataset) any {
				return analytics.TemperatureIndex(ds.Regions, ds.LeisureVenues, ds.Signals, s.rep.Now())
			}))
			r.Get("/vitality", s.view(analytics.PartRegions, func(ds *model.Dataset) any {
				return analytics.VitalityRanking(ds.Regions)
			}))
			r.Get("/alerts", s.view(analytics.PartAlerts, func(ds *model.Dataset) any {
				return analytics.ActiveAlerts(ds.Alerts)
			}))
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		fail(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		fail(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// view loads parts and responds with compute's result.
func (s *Server) view(parts analytics.Part, compute func(*model.Dataset) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds, err := s.rep.Load(r.Context(), parts)
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		respond(w, compute(ds))
	}
}

func (s *Server) regionDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		fail(w, http.StatusBadRequest, "region id must be a positive integer")
		return
	}
	ds, err := s.rep.Load(r.Context(), analytics.PartRegions|analytics.PartDining|analytics.PartLeisure)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	detail, ok := analytics.RegionDetail(id, ds.Regions, ds.DiningVenues, ds.LeisureVenues)
	if !ok {
		fail(w, http.StatusNotFound, fmt.Sprintf("region %d not found", id))
		return
	}
	respond(w, detail)
}

func (s *Server) transitAtHour(w http.ResponseWriter, r *http.Request) {
	hour, err := strconv.Atoi(chi.URLParam(r, "hour"))
	if err != nil || hour < 0 || hour > 23 {
		fail(w, http.StatusBadRequest, "hour must be between 0 and 23")
		return
	}
	ds, err := s.rep.Load(r.Context(), analytics.PartSignals)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	respond(w, analytics.SignalsAtHour(ds.Signals, hour))
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	zap.L().Error("server: load view",
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	fail(w, http.StatusInternalServerError, "internal error")
}

func activeDining(dining []model.DiningVenue) []model.DiningVenue {
	out := make([]model.DiningVenue, 0, len(dining))
	for _, v := range dining {
		if v.Active {
			out = append(out, v)
		}
	}
	return out
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("server shutdown", zap.Error(err))
		}
	}()

	zap.L().Info("starting server", zap.Int("port", s.cfg.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}
