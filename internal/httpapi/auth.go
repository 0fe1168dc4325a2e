package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/auth"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/models"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/store"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/validate"
)

type authContextKey struct{}

type authInfo struct {
	Session models.Session
	User    models.User
}

type registerRequest struct {
	Username      string `json:"username"`
	FullName      string `json:"fullName"`
	IDNumber      string `json:"idNumber"`
	AccountNumber string `json:"accountNumber"`
	Password      string `json:"password"`
	Role          string `json:"role,omitempty"`
}

type loginRequest struct {
	Username      string `json:"username"`
	AccountNumber string `json:"accountNumber,omitempty"`
	Password      string `json:"password"`
}

type loginResponse struct {
	Message string      `json:"message"`
	User    models.User `json:"user"`
}

// RequireRole resolves the session cookie, checks the role against roles
// (empty means any authenticated user) and loads the user into the context.
func RequireRole(sessions *auth.Sessions, accounts *auth.Service, roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := sessions.Resolve(r.Context(), sessions.Token(r))
			if err != nil {
				if errors.Is(err, store.ErrSessionNotFound) {
					writeError(w, http.StatusUnauthorized, "Unauthorized")
					return
				}
				writeError(w, http.StatusInternalServerError, "Authentication error")
				return
			}
			if len(roles) > 0 && !hasRole(roles, session.Role) {
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}
			user, err := accounts.User(r.Context(), session.UserID)
			if err != nil {
				if errors.Is(err, store.ErrUserNotFound) {
					writeError(w, http.StatusUnauthorized, "Unauthorized")
					return
				}
				writeError(w, http.StatusInternalServerError, "Authentication error")
				return
			}
			ctx := context.WithValue(r.Context(), authContextKey{}, authInfo{Session: session, User: user})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the user attached by RequireRole.
func UserFromContext(ctx context.Context) (models.User, bool) {
	info, ok := ctx.Value(authContextKey{}).(authInfo)
	if !ok {
		return models.User{}, false
	}
	return info.User, true
}

func hasRole(roles []models.Role, role models.Role) bool {
	for _, allowed := range roles {
		if allowed == role {
			return true
		}
	}
	return false
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Role != "" && req.Role != string(models.RoleCustomer) {
		writeError(w, http.StatusBadRequest, "Invalid role for customer registration")
		return
	}
	if !h.register(w, r, req, models.RoleCustomer) {
		return
	}
	writeMessage(w, http.StatusCreated, "User registered successfully")
}

func (h *Handler) handleRegisterStaff(w http.ResponseWriter, r *http.Request) {
	if !h.options.AllowStaffRegistration {
		writeError(w, http.StatusForbidden, "Staff registration is disabled")
		return
	}
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Role != string(models.RoleStaff) {
		writeError(w, http.StatusBadRequest, "Invalid role for staff registration")
		return
	}
	if !h.register(w, r, req, models.RoleStaff) {
		return
	}
	writeMessage(w, http.StatusCreated, "Staff user registered successfully")
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request, req registerRequest, role models.Role) bool {
	user, err := h.accounts.Register(r.Context(), auth.RegisterInput{
		Username:      req.Username,
		FullName:      req.FullName,
		IDNumber:      req.IDNumber,
		AccountNumber: req.AccountNumber,
		Password:      req.Password,
	}, role)
	if err != nil {
		var verr *validate.Error
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Message)
		case errors.Is(err, store.ErrUserExists):
			writeError(w, http.StatusBadRequest, "Username, account, or ID already exists")
		default:
			h.internalError(w, r, "Registration failed", err)
		}
		return false
	}
	h.logger.Info("user registered", "user_id", user.UserID, "role", user.Role)
	return true
}

func (h *Handler) handleLogin(role models.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		creds := auth.Credentials{Username: req.Username, Password: req.Password}
		if role == models.RoleCustomer {
			creds.AccountNumber = req.AccountNumber
		}

		user, err := h.accounts.Authenticate(r.Context(), creds, role)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				writeError(w, http.StatusUnauthorized, "Invalid credentials")
				return
			}
			h.internalError(w, r, "Login failed", err)
			return
		}

		session, err := h.sessions.Create(r.Context(), user.UserID, user.Role)
		if err != nil {
			h.internalError(w, r, "Login failed", err)
			return
		}
		h.sessions.SetCookie(w, session)
		writeJSON(w, http.StatusOK, loginResponse{Message: "Login successful", User: user})
	}
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := h.sessions.Token(r)
	if token != "" {
		if err := h.sessions.Destroy(r.Context(), token); err != nil && !errors.Is(err, store.ErrSessionNotFound) {
			h.internalError(w, r, "Logout failed", err)
			return
		}
	}
	h.sessions.ClearCookie(w)
	writeMessage(w, http.StatusOK, "Logout successful")
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.Users(r.Context(), h.listLimit())
	if err != nil {
		h.internalError(w, r, "DB error", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) listLimit() int {
	if h.options.ListLimit <= 0 || h.options.ListLimit > 100 {
		return 100
	}
	return h.options.ListLimit
}
