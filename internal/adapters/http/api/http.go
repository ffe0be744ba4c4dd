// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bezboss20/Dashboard-sub001/internal/adapters/geo"
	"github.com/bezboss20/Dashboard-sub001/internal/adapters/http/swagger"
	"github.com/bezboss20/Dashboard-sub001/internal/adapters/sink"
	"github.com/bezboss20/Dashboard-sub001/internal/adapters/source"
	service "github.com/bezboss20/Dashboard-sub001/internal/app"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/focus"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/triage"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/types"
	"github.com/bezboss20/Dashboard-sub001/pkg/logger"
)

// Monitor is what the handlers need from the running monitor. Reads come
// from immutable views; every write goes through a command.
type Monitor interface {
	View() *types.View
	Stats(ctx context.Context) map[string]any
	Entries() ([]model.NotificationEntry, bool)

	Refresh(ctx context.Context) error
	Acknowledge(ctx context.Context, id, actor, note string) (model.AlertEvent, error)
	Resolve(ctx context.Context, id, actor string) (model.AlertEvent, error)
	Search(ctx context.Context, q source.AlertQuery) error

	SelectDevice(ctx context.Context, deviceID string) (focus.Snapshot, error)
	ClearSelection(ctx context.Context) (focus.Snapshot, error)
	SetSelfTracking(ctx context.Context, on bool) (focus.Snapshot, error)
	LocateSelf(ctx context.Context) (model.Position, error)
	OpenTrackingView(ctx context.Context) error
	CloseTrackingView(ctx context.Context) error
	DismissNotice(ctx context.Context) error
}

// Server wires HTTP routes for the monitor API.
type Server struct {
	log logger.Logger

	opsHandler     *OpsHandler
	monitorHandler *MonitorHandler
	alertsHandler  *AlertsHandler
	focusHandler   *FocusHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(m Monitor, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	return &Server{
		log:            log,
		opsHandler:     NewOpsHandler(m),
		monitorHandler: NewMonitorHandler(m),
		alertsHandler:  NewAlertsHandler(m),
		focusHandler:   NewFocusHandler(m),
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(s.accessLog)

	r.Get("/healthz", s.opsHandler.HandleHealth)
	r.Handle("/metrics", s.opsHandler.Metrics())
	r.Get("/stats", s.opsHandler.HandleStats)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api-docs", http.StatusFound)
	})
	swagger.Register(r)

	r.Route("/api", func(r chi.Router) {
		r.Get("/view", s.monitorHandler.HandleView)
		r.Get("/overview", s.monitorHandler.HandleOverview)
		r.Get("/patients", s.monitorHandler.HandlePatients)
		r.Get("/devices", s.monitorHandler.HandleDevices)
		r.Get("/notifications", s.monitorHandler.HandleNotifications)
		r.Post("/refresh", s.monitorHandler.HandleRefresh)
		r.Get("/notice", s.monitorHandler.HandleNotice)
		r.Delete("/notice", s.monitorHandler.HandleDismissNotice)

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", s.alertsHandler.HandleList)
			r.Get("/search", s.alertsHandler.HandleSearchResult)
			r.Post("/search", s.alertsHandler.HandleSearch)
			r.Post("/{id}/acknowledge", s.alertsHandler.HandleAcknowledge)
			r.Post("/{id}/resolve", s.alertsHandler.HandleResolve)
		})

		r.Route("/focus", func(r chi.Router) {
			r.Get("/", s.focusHandler.HandleGet)
			r.Post("/select", s.focusHandler.HandleSelect)
			r.Post("/clear", s.focusHandler.HandleClear)
			r.Post("/tracking", s.focusHandler.HandleTracking)
			r.Post("/locate", s.focusHandler.HandleLocate)
		})

		r.Post("/tracking-view/open", s.focusHandler.HandleOpenView)
		r.Post("/tracking-view/close", s.focusHandler.HandleCloseView)
	})
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps a command error to a status code.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, triage.ErrInvalidCommand):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, triage.ErrAlertNotFound), errors.Is(err, focus.ErrUnknownDevice), errors.Is(err, ErrNotKept):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrBusy):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, service.ErrStopped):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, sink.ErrSinkWrite):
		return http.StatusBadGateway, "sink_unavailable"
	case errors.Is(err, geo.ErrPermissionDenied):
		return http.StatusForbidden, "geo_" + geo.Kind(err)
	case errors.Is(err, geo.ErrUnsupported):
		return http.StatusNotImplemented, "geo_" + geo.Kind(err)
	case errors.Is(err, geo.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, geo.ErrPositionUnavailable):
		return http.StatusServiceUnavailable, "geo_" + geo.Kind(err)
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}
