package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/rainfall-predictor/internal/artifact"
	"github.com/couchcryptid/rainfall-predictor/internal/domain"
	"github.com/couchcryptid/rainfall-predictor/internal/pipeline"
)

const maxFormBytes = 64 << 10

// Predictor classifies a submitted form.
type Predictor interface {
	Predict(ctx context.Context, form map[string][]string) (pipeline.Result, error)
}

// Server exposes the prediction pages plus health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	predictor  Predictor
	pages      *Pages
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /, /predict, /healthz, /readyz, and
// /metrics routes.
func NewServer(addr string, predictor Predictor, ready sharedobs.ReadinessChecker, pages *Pages, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		predictor: predictor,
		pages:     pages,
		logger:    logger,
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /predict", s.handlePredict)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

var formOptions = map[string][]string{
	"Location":    artifact.Locations,
	"WindGustDir": artifact.CompassPoints,
	"WindDir9am":  artifact.CompassPoints,
	"WindDir3pm":  artifact.CompassPoints,
	"RainToday":   {"No", "Yes"},
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.renderPage(w, IndexPage, indexData{Fields: formFields(formOptions)})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := parseForm(r); err != nil {
		writeText(w, http.StatusBadRequest, "Error: Invalid input values - "+err.Error())
		return
	}

	res, err := s.predictor.Predict(r.Context(), r.PostForm)
	if err != nil {
		status, msg := errorResponse(err)
		writeText(w, status, msg)
		return
	}

	page := NoChancePage
	if res.Prediction == domain.Rain {
		page = ChancePage
	}
	s.renderPage(w, page, resultData{
		Location:        res.Event.Observation.Location,
		FallbackColumns: res.Event.FallbackColumns,
	})
}

// parseForm fills r.PostForm from a urlencoded or multipart body.
func parseForm(r *http.Request) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return r.ParseMultipartForm(maxFormBytes)
	}
	return r.ParseForm()
}

func (s *Server) renderPage(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.pages.Render(w, name, data); err != nil {
		s.logger.Error("render page failed", "page", name, "error", err)
		writeText(w, http.StatusInternalServerError, "Error rendering page: "+err.Error())
	}
}

// errorResponse maps a prediction error onto the status and plain-text body
// returned to the browser. Internal details of 500s stay in the logs.
func errorResponse(err error) (int, string) {
	var fe *domain.FieldError
	switch {
	case errors.As(err, &fe) && errors.Is(err, domain.ErrMissingField):
		return http.StatusBadRequest, "Error: Missing required field - " + fe.Field
	case errors.As(err, &fe) && errors.Is(err, domain.ErrInvalidInput):
		reason := "not a valid value"
		if fe.Cause != nil {
			reason = fe.Cause.Error()
		}
		return http.StatusBadRequest, fmt.Sprintf("Error: Invalid input values - %s: %s", fe.Field, reason)
	case errors.Is(err, domain.ErrMissingArtifact):
		return http.StatusInternalServerError, "Error: Model artifacts not found. Please generate the model artifacts first."
	case errors.Is(err, domain.ErrSchemaMismatch):
		return http.StatusInternalServerError, "Error: Model artifacts are invalid. Please regenerate the model artifacts."
	default:
		return http.StatusInternalServerError, "Error during prediction"
	}
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, msg) //nolint:errcheck // client may have gone away
}
