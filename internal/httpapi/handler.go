package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"io"
	"log/slog"
	"net/http"

	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/auth"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/hub"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/models"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/payments"
)

const defaultMaxBodyBytes = 10 << 10

type Handler struct {
	accounts *auth.Service
	sessions *auth.Sessions
	payments *payments.Service
	hub      *hub.Hub
	limiter  *RateLimiter
	logger   *slog.Logger
	options  Options
}

// Pinger reports whether a backing dependency answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	// Database is checked by /api/health when set.
	Database               Pinger
	AllowStaffRegistration bool
	MaxBodyBytes           int64
	ListLimit              int
	CORSOrigin             string
	StaticDir              string
	RateLimit              RateLimitConfig
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func NewHandler(accounts *auth.Service, sessions *auth.Sessions, paymentService *payments.Service, realtime *hub.Hub, logger *slog.Logger, options Options) *Handler {
	if options.MaxBodyBytes <= 0 {
		options.MaxBodyBytes = defaultMaxBodyBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		accounts: accounts,
		sessions: sessions,
		payments: paymentService,
		hub:      realtime,
		limiter:  NewRateLimiter(options.RateLimit),
		logger:   logger,
		options:  options,
	}
}

// Routes returns the full handler chain: logging, panic recovery, security
// headers, CORS, the /api rate limit and the body size cap around the mux.
func (h *Handler) Routes() http.Handler {
	staff := RequireRole(h.sessions, h.accounts, models.RoleStaff)
	customer := RequireRole(h.sessions, h.accounts, models.RoleCustomer)
	anyone := RequireRole(h.sessions, h.accounts)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.Handle("GET /metrics", expvar.Handler())

	mux.HandleFunc("POST /api/auth/register", h.handleRegister)
	mux.HandleFunc("POST /api/auth/register-staff", h.handleRegisterStaff)
	mux.HandleFunc("POST /api/auth/customer-login", h.handleLogin(models.RoleCustomer))
	mux.HandleFunc("POST /api/auth/staff-login", h.handleLogin(models.RoleStaff))
	mux.HandleFunc("POST /api/auth/logout", h.handleLogout)
	mux.Handle("GET /api/auth/me", anyone(http.HandlerFunc(h.handleMe)))

	mux.Handle("GET /api/users", staff(http.HandlerFunc(h.handleListUsers)))

	mux.Handle("GET /api/bankpayments", staff(http.HandlerFunc(h.handleListPayments)))
	mux.Handle("POST /api/bankpayments", customer(http.HandlerFunc(h.handleCreatePayment)))
	mux.Handle("GET /api/bankpayments/mine", customer(http.HandlerFunc(h.handleListMyPayments)))
	mux.Handle("PATCH /api/bankpayments/{id}/verify", staff(http.HandlerFunc(h.handleVerifyPayment)))
	mux.Handle("GET /api/bankpayments/{id}/events", staff(http.HandlerFunc(h.handlePaymentEvents)))
	mux.Handle("POST /api/bankpayments/submit-to-swift", staff(http.HandlerFunc(h.handleSubmitPayments)))

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})

	if h.hub != nil {
		mux.Handle("/realtime/", staff(h.realtimeHandler()))
	}
	mux.Handle("/", h.staticHandler())

	var handler http.Handler = mux
	handler = BodyLimit(h.options.MaxBodyBytes, handler)
	handler = h.limiter.Middleware(handler)
	handler = CORS(h.options.CORSOrigin, handler)
	handler = SecurityHeaders(handler)
	handler = Recover(h.logger, handler)
	return LoggingMiddleware(h.logger, handler)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.options.Database != nil {
		if err := h.options.Database.Ping(r.Context()); err != nil {
			h.logger.Error("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ok": false})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// decodeJSON reads a single JSON object into dst. Unknown fields and
// bodies over the size cap are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Payload too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return false
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// internalError logs err and answers with a generic message.
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.logger.Error(message, "method", r.Method, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, message)
}
