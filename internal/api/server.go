package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"labbook/internal/domain"
	"labbook/internal/models"
	"labbook/internal/report"
	"labbook/internal/service"
	"labbook/internal/timerange"
	"labbook/internal/validator"
)

// BookingAPI is the service surface the HTTP handlers call.
type BookingAPI interface {
	Location() *time.Location
	GetAssets(ctx context.Context) []models.Asset
	GetAsset(ctx context.Context, id string) (*models.Asset, error)
	SaveAsset(ctx context.Context, a *models.Asset) (*models.Asset, error)
	GetBookings(ctx context.Context) []models.Booking
	Book(ctx context.Context, b *models.Booking) error
	CheckAvailability(ctx context.Context, assetID string, date time.Time, start, end string) (models.Availability, error)
	TimeSlots(ctx context.Context, assetID string, date time.Time) ([]models.TimeSlot, error)
	Calendar(ctx context.Context, assetID string, start time.Time) ([]models.CalendarDay, error)
	AssetStatusAt(ctx context.Context, assetID string, now time.Time) (*service.AssetStatus, error)
}

// Options configures the HTTP server.
type Options struct {
	Address        string
	APIKey         string
	RequestTimeout time.Duration
	RateLimitRPS   int
	RateLimitBurst int
	// TrustedProxies lists peers (CIDR or address) whose X-Forwarded-For is
	// used as the client address for rate limiting.
	TrustedProxies []string
}

// HTTPServer serves the JSON API.
type HTTPServer struct {
	server    *http.Server
	svc       BookingAPI
	export    report.Source
	validator *validator.Validator
	logger    *zerolog.Logger
	now       func() time.Time
}

func NewHTTPServer(opts Options, svc BookingAPI, export report.Source, logger *zerolog.Logger) (*HTTPServer, error) {
	v, err := validator.New()
	if err != nil {
		return nil, err
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}

	s := &HTTPServer{
		svc:       svc,
		export:    export,
		validator: v,
		logger:    logger,
		now:       time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/assets", s.handleListAssets)
	mux.HandleFunc("PUT /api/assets", s.handleSaveAsset)
	mux.HandleFunc("GET /api/assets/{id}", s.handleGetAsset)
	mux.HandleFunc("GET /api/assets/{id}/status", s.handleAssetStatus)
	mux.HandleFunc("GET /api/assets/{id}/slots", s.handleSlots)
	mux.HandleFunc("GET /api/assets/{id}/calendar", s.handleCalendar)
	mux.HandleFunc("GET /api/assets/{id}/availability", s.handleAvailability)
	mux.HandleFunc("GET /api/bookings", s.handleListBookings)
	mux.HandleFunc("POST /api/bookings", s.handleCreateBooking)
	mux.HandleFunc("GET /api/export.xlsx", s.handleExport)

	trusted, err := ParseTrustedProxies(opts.TrustedProxies)
	if err != nil {
		return nil, err
	}
	limiter := newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst, trusted)

	var handler http.Handler = mux
	handler = http.TimeoutHandler(handler, opts.RequestTimeout, `{"error":"request timed out"}`)
	handler = apiKeyMiddleware(opts.APIKey, handler)
	handler = limiter.middleware(logger, handler)
	handler = loggingMiddleware(logger, handler)

	s.server = &http.Server{
		Addr:              opts.Address,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Handler exposes the full middleware chain.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.server.Addr).Msg("api server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

type errorResponse struct {
	Error   string                     `json:"error"`
	Details validator.ValidationErrors `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps service errors to HTTP statuses.
func (s *HTTPServer) writeDomainError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Details: verrs})
	case errors.Is(err, timerange.ErrInvalidClock), errors.Is(err, timerange.ErrEmptyRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrSlotUnavailable), errors.Is(err, domain.ErrDuplicateBooking):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrAvailabilityUnknown), errors.Is(err, domain.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// dateParam reads a YYYY-MM-DD query parameter, defaulting to today.
func (s *HTTPServer) dateParam(r *http.Request, name string) (time.Time, error) {
	loc := s.svc.Location()
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return timerange.Day(s.now().In(loc)), nil
	}
	return timerange.ParseDate(raw, loc)
}
