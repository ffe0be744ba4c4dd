package simsource

import (
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bezboss20/Dashboard-sub001/internal/adapters/source"
	"github.com/bezboss20/Dashboard-sub001/pkg/logger"
)

// Server serves a Ward over the upstream dashboard API.
type Server struct {
	ward     *Ward
	shape    source.ShapeKind
	failRate float64
	log      logger.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewServer creates a server for w configured by cfg.
func NewServer(w *Ward, cfg Config, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	return &Server{
		ward:     w,
		shape:    cfg.Shape,
		failRate: cfg.FailRate,
		log:      log,
		rng:      rand.New(rand.NewPCG(cfg.Seed, cfg.Seed+1)),
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.flaky)
	r.Get(source.PathOverview, s.handleOverview)
	r.Get(source.PathPatients, s.handleRoster)
	r.Get(source.PathAlerts, s.handleAlerts)
	return r
}

// flaky fails a configured share of requests.
func (s *Server) flaky(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.failRate > 0 {
			s.mu.Lock()
			fail := s.rng.Float64() < s.failRate
			s.mu.Unlock()
			if fail {
				s.log.Debug(r.Context(), "injected failure", logger.String("path", r.URL.Path))
				http.Error(w, "simulated outage", http.StatusServiceUnavailable)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleOverview(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.wrap(s.ward.Overview()))
}

func (s *Server) handleRoster(w http.ResponseWriter, _ *http.Request) {
	patients := s.ward.Roster()
	switch s.shape {
	case source.ShapeDoubleEnvelope:
		writeJSON(w, http.StatusOK, envelope(map[string]any{"data": patients, "total": len(patients)}))
	case source.ShapeEnvelope:
		writeJSON(w, http.StatusOK, envelope(patients))
	default:
		writeJSON(w, http.StatusOK, patients)
	}
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": err.Error()})
		return
	}
	pg := s.ward.Alerts(q)
	switch s.shape {
	case source.ShapeDoubleEnvelope:
		// Legacy layout: totalCount beside the list.
		writeJSON(w, http.StatusOK, envelope(map[string]any{
			"data":       pg.Alerts,
			"totalCount": pg.Total,
			"page":       pg.Page,
			"limit":      pg.Limit,
		}))
	case source.ShapeEnvelope:
		writeJSON(w, http.StatusOK, envelope(map[string]any{
			"alerts": pg.Alerts,
			"pagination": map[string]any{
				"total":      pg.Total,
				"page":       pg.Page,
				"limit":      pg.Limit,
				"totalPages": pg.TotalPages,
			},
		}))
	default:
		writeJSON(w, http.StatusOK, pg.Alerts)
	}
}

func (s *Server) wrap(payload any) any {
	switch s.shape {
	case source.ShapeDoubleEnvelope:
		return envelope(map[string]any{"data": payload})
	case source.ShapeEnvelope:
		return envelope(payload)
	default:
		return payload
	}
}

func envelope(data any) map[string]any {
	return map[string]any{"success": true, "data": data}
}

func parseQuery(r *http.Request) (Query, error) {
	v := r.URL.Query()
	q := Query{Search: v.Get("search")}
	var err error
	if s := v.Get("page"); s != "" {
		if q.Page, err = strconv.Atoi(s); err != nil {
			return q, err
		}
	}
	if s := v.Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil {
			return q, err
		}
	}
	if s := v.Get("startDate"); s != "" {
		if q.Start, err = time.Parse(time.DateOnly, s); err != nil {
			return q, err
		}
	}
	if s := v.Get("endDate"); s != "" {
		if q.End, err = time.Parse(time.DateOnly, s); err != nil {
			return q, err
		}
	}
	return q, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
