package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"strings"
	"time"

	"eyegic/internal/config"
	"eyegic/internal/domain"
	"eyegic/internal/metrics"
	"eyegic/internal/models"
	"eyegic/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const (
	apiPrefix     = "/api/v1"
	maxBodyBytes  = 1 << 20
	kindAuth      = "Unauthorized"
	kindInternal  = "Internal"
	routeNotFound = "unmatched"
)

// Services bundles what the HTTP API dispatches to.
type Services struct {
	Bookings      *service.BookingService
	Providers     *service.ProviderDirectory
	Profiles      *service.ProfileService
	Verifications *service.VerificationService
	Access        *service.AccessService
	Rentals       *service.RentalService
	Store         Pinger
}

// HTTPServer exposes the booking API as JSON over HTTP.
type HTTPServer struct {
	cfg      config.APIConfig
	svc      Services
	server   *http.Server
	auth     *TokenAuth
	limiter  *rateLimiter
	validate *validator.Validate
	log      zerolog.Logger
}

type actorHandler func(w http.ResponseWriter, r *http.Request, actor models.Actor)

func NewHTTPServer(cfg config.APIConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:      cfg,
		svc:      svc,
		auth:     NewTokenAuth(cfg.Auth),
		limiter:  newRateLimiter(cfg.RateLimit),
		validate: newValidator(),
		log:      zerolog.Nop(),
	}
	if logger != nil {
		srv.log = logger.With().Str("component", "http").Logger()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", srv.handleHealthz)
	srv.routes(mux)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.loggingMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	handle := func(pattern string, h http.Handler) {
		method, path, _ := strings.Cut(pattern, " ")
		mux.Handle(method+" "+apiPrefix+path, h)
	}

	handle("POST /bookings/optician", s.private(s.handleCreateOptician))
	handle("POST /bookings/repair", s.private(s.handleCreateRepair))
	handle("POST /bookings/rental", s.private(s.handleCreateRental))
	handle("GET /bookings/mine", s.private(s.handleMyBookings))
	handle("GET /bookings/{id}", s.private(s.handleGetBooking))
	handle("POST /bookings/{id}/status", s.private(s.handleUpdateStatus))
	handle("POST /bookings/{id}/provider", s.private(s.handleAssignProvider))
	handle("GET /provider/bookings", s.private(s.handleProviderBookings))
	handle("GET /admin/bookings", s.private(s.handleAllBookings))
	handle("GET /admin/bookings/export", s.private(s.handleExportBookings))

	handle("POST /providers", s.private(s.handleOnboard))
	handle("GET /providers/active", s.public(s.handleActiveProviders))
	handle("GET /providers/match", s.public(s.handleMatchProviders))
	handle("GET /providers/{id}", s.public(s.handleGetProvider))
	handle("POST /admin/providers/{id}/active", s.private(s.handleSetProviderActive))

	handle("GET /profile", s.private(s.handleGetProfile))
	handle("PUT /profile", s.private(s.handleSaveProfile))
	handle("GET /profile/completion", s.private(s.handleProfileCompletion))
	handle("PUT /profile/frames", s.private(s.handleUpdateFrames))
	handle("PUT /profile/pictures/{kind}", s.private(s.handleUpdatePicture))
	handle("GET /users/{id}/profile", s.private(s.handleUserProfile))

	// anonymous callers verify through /otp/verify
	handle("POST /verifications", s.private(s.handleLogVerification))
	handle("GET /admin/verifications", s.private(s.handleListVerifications))
	handle("POST /otp/request", s.public(s.handleRequestOTP))
	handle("POST /otp/verify", s.public(s.handleVerifyOTP))

	handle("POST /initialize", s.private(s.handleInitialize))
	handle("GET /me/role", s.public(s.handleMyRole))
	handle("GET /me/admin", s.public(s.handleIsAdmin))
	handle("POST /admin/roles", s.private(s.handleAssignRole))

	handle("GET /rentals", s.public(s.handleCatalog))
	handle("GET /rentals/available", s.public(s.handleAvailableItems))
	handle("GET /rentals/{id}", s.public(s.handleRentalItem))
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.svc.Store != nil {
		if err := s.svc.Store.Ping(r.Context()); err != nil {
			s.log.Warn().Err(err).Msg("Store ping failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// public resolves an optional caller. A present but invalid token is still rejected.
func (s *HTTPServer) public(h actorHandler) http.Handler {
	return s.withActor(h, false)
}

// private requires a caller identified by a valid token.
func (s *HTTPServer) private(h actorHandler) http.Handler {
	return s.withActor(h, true)
}

func (s *HTTPServer) withActor(h actorHandler, required bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := s.auth.Principal(r.Header.Get(authorizationHeader))
		switch {
		case errors.Is(err, errMissingToken) && !required:
			principal = ""
		case err != nil:
			s.log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected token")
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error(), Kind: kindAuth})
			return
		}

		key := principal
		if key == "" {
			key = remoteHost(r)
		}
		if !s.limiter.Allow(key) {
			s.fail(w, domain.RateLimited("rate limit exceeded"))
			return
		}

		actor, err := s.svc.Access.Resolve(r.Context(), principal)
		if err != nil {
			s.fail(w, err)
			return
		}
		h(w, r, actor)
	})
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := requestIDFromHeader(r.Header.Get(requestIDMetadataKey))
		w.Header().Set(requestIDMetadataKey, requestID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)

		route := r.Pattern
		if route == "" {
			route = routeNotFound
		}
		metrics.ObserveHTTP(route, r.Method, recorder.status, dur)

		s.log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", dur).
			Msg("http request")
	})
}

// decode reads a JSON body into dst and checks its validate tags.
func (s *HTTPServer) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.InvalidInput("malformed request body: %v", err)
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return domain.InvalidInput("field %s failed %s validation", fe.Field(), fe.Tag())
		}
		return domain.InvalidInput("invalid request: %v", err)
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fail writes err with the status its domain kind maps to.
func (s *HTTPServer) fail(w http.ResponseWriter, err error) {
	derr, ok := domain.AsError(err)
	if !ok {
		s.log.Error().Err(err).Msg("Request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error", Kind: kindInternal})
		return
	}
	writeJSON(w, statusFor(derr.Kind), errorResponse{Error: derr.Error(), Kind: string(derr.Kind)})
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindInvalidTransition, domain.KindConflict, domain.KindAlreadyRegistered,
		domain.KindProviderInactive, domain.KindUnavailable:
		return http.StatusConflict
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
