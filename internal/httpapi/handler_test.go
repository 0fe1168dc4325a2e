package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/auth"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/models"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/payments"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/store"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type fakeStore struct {
	userExistsFn  func(ctx context.Context, username, accountNumber, idNumber string) (bool, error)
	createUserFn  func(ctx context.Context, user models.User) (models.User, error)
	findUserFn    func(ctx context.Context, lookup store.UserLookup) (models.User, error)
	getUserFn     func(ctx context.Context, userID string) (models.User, error)
	getSessionFn  func(ctx context.Context, sessionID string) (models.Session, error)
	transitionFn  func(ctx context.Context, input store.TransitionInput) ([]models.Payment, error)
	listPaymentFn func(ctx context.Context, limit int) ([]models.Payment, error)
}

func (f fakeStore) UserExists(ctx context.Context, username, accountNumber, idNumber string) (bool, error) {
	if f.userExistsFn == nil {
		return false, nil
	}
	return f.userExistsFn(ctx, username, accountNumber, idNumber)
}

func (f fakeStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	if f.createUserFn == nil {
		user.UserID = uuid.NewString()
		return user, nil
	}
	return f.createUserFn(ctx, user)
}

func (f fakeStore) FindUser(ctx context.Context, lookup store.UserLookup) (models.User, error) {
	if f.findUserFn == nil {
		return models.User{}, store.ErrUserNotFound
	}
	return f.findUserFn(ctx, lookup)
}

func (f fakeStore) GetUser(ctx context.Context, userID string) (models.User, error) {
	if f.getUserFn == nil {
		return models.User{}, store.ErrUserNotFound
	}
	return f.getUserFn(ctx, userID)
}

func (f fakeStore) ListUsers(ctx context.Context, limit int) ([]models.User, error) {
	return []models.User{}, nil
}

func (f fakeStore) CreateSession(ctx context.Context, session models.Session) error {
	return nil
}

func (f fakeStore) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	if f.getSessionFn == nil {
		return models.Session{}, store.ErrSessionNotFound
	}
	return f.getSessionFn(ctx, sessionID)
}

func (f fakeStore) DeleteSession(ctx context.Context, sessionID string) error {
	return nil
}

func (f fakeStore) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (f fakeStore) CreatePayment(ctx context.Context, input store.CreatePaymentInput) (models.Payment, error) {
	return models.Payment{PaymentID: uuid.NewString(), CustomerID: input.CustomerID, Status: models.StatusPending}, nil
}

func (f fakeStore) GetPayment(ctx context.Context, paymentID string) (models.Payment, error) {
	return models.Payment{}, store.ErrPaymentNotFound
}

func (f fakeStore) ListPayments(ctx context.Context, limit int) ([]models.Payment, error) {
	if f.listPaymentFn == nil {
		return []models.Payment{}, nil
	}
	return f.listPaymentFn(ctx, limit)
}

func (f fakeStore) ListCustomerPayments(ctx context.Context, customerID string, limit int) ([]models.Payment, error) {
	return []models.Payment{}, nil
}

func (f fakeStore) TransitionPayments(ctx context.Context, input store.TransitionInput) ([]models.Payment, error) {
	if f.transitionFn == nil {
		return []models.Payment{}, nil
	}
	return f.transitionFn(ctx, input)
}

func (f fakeStore) ListPaymentEvents(ctx context.Context, paymentID string) ([]models.PaymentEvent, error) {
	return []models.PaymentEvent{}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(t *testing.T, st fakeStore, options Options) http.Handler {
	t.Helper()
	accounts, err := auth.NewService(st, auth.Options{BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	sessions := auth.NewSessions(st, auth.SessionOptions{Secure: true})
	return NewHandler(accounts, sessions, payments.NewService(st, payments.Options{}), nil, discardLogger(), options).Routes()
}

// sessionAs returns a fake store whose single session belongs to a user with role.
func sessionAs(role models.Role) (fakeStore, *http.Cookie) {
	sessionID := uuid.NewString()
	userID := uuid.NewString()
	st := fakeStore{
		getSessionFn: func(ctx context.Context, id string) (models.Session, error) {
			if id != sessionID {
				return models.Session{}, store.ErrSessionNotFound
			}
			return models.Session{SessionID: id, UserID: userID, Role: role, ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
		getUserFn: func(ctx context.Context, id string) (models.User, error) {
			if id != userID {
				return models.User{}, store.ErrUserNotFound
			}
			return models.User{UserID: userID, Username: "someone", Role: role}, nil
		},
	}
	return st, &http.Cookie{Name: auth.DefaultCookieName, Value: sessionID}
}

func serve(handler http.Handler, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "203.0.113.7:5555"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp.Error
}

func TestHealth(t *testing.T) {
	handler := newTestHandler(t, fakeStore{}, Options{})
	rec := serve(handler, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReportsDatabase(t *testing.T) {
	down := pingerFunc(func(ctx context.Context) error { return errors.New("connection refused") })
	rec := serve(newTestHandler(t, fakeStore{}, Options{Database: down}), http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "refused") {
		t.Fatalf("internal detail leaked: %s", rec.Body.String())
	}

	up := pingerFunc(func(ctx context.Context) error { return nil })
	rec = serve(newTestHandler(t, fakeStore{}, Options{Database: up}), http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestGateWithoutSession(t *testing.T) {
	handler := newTestHandler(t, fakeStore{}, Options{})
	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/users", ""},
		{http.MethodGet, "/api/bankpayments", ""},
		{http.MethodPost, "/api/bankpayments", `{}`},
		{http.MethodPatch, "/api/bankpayments/" + uuid.NewString() + "/verify", ""},
		{http.MethodPost, "/api/bankpayments/submit-to-swift", `{"ids":[]}`},
		{http.MethodGet, "/api/auth/me", ""},
	} {
		rec := serve(handler, tc.method, tc.path, tc.body, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", tc.method, tc.path, rec.Code)
		}
		if msg := errorMessage(t, rec); msg != "Unauthorized" {
			t.Fatalf("unexpected error message: %s", msg)
		}
	}

	rec := serve(handler, http.MethodGet, "/api/bankpayments", "", &http.Cookie{Name: auth.DefaultCookieName, Value: "garbage"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for malformed session, got %d", rec.Code)
	}
}

func TestGateWrongRole(t *testing.T) {
	st, customerCookie := sessionAs(models.RoleCustomer)
	handler := newTestHandler(t, st, Options{})
	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/users", ""},
		{http.MethodGet, "/api/bankpayments", ""},
		{http.MethodPatch, "/api/bankpayments/" + uuid.NewString() + "/verify", ""},
		{http.MethodPost, "/api/bankpayments/submit-to-swift", `{"ids":["x"]}`},
	} {
		rec := serve(handler, tc.method, tc.path, tc.body, customerCookie)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s %s: expected 403, got %d", tc.method, tc.path, rec.Code)
		}
	}

	st, staffCookie := sessionAs(models.RoleStaff)
	handler = newTestHandler(t, st, Options{})
	rec := serve(handler, http.MethodPost, "/api/bankpayments", `{"amount":"1","currency":"USD","payeeAccount":"ABC12","swiftCode":"ABCDUS33"}`, staffCookie)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected staff to be forbidden from creating payments, got %d", rec.Code)
	}
}

func TestGateMissingUser(t *testing.T) {
	st, cookie := sessionAs(models.RoleStaff)
	st.getUserFn = func(ctx context.Context, id string) (models.User, error) {
		return models.User{}, store.ErrUserNotFound
	}
	rec := serve(newTestHandler(t, st, Options{}), http.MethodGet, "/api/bankpayments", "", cookie)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGateStorageFailure(t *testing.T) {
	st, cookie := sessionAs(models.RoleStaff)
	st.getSessionFn = func(ctx context.Context, id string) (models.Session, error) {
		return models.Session{}, errors.New("connection refused")
	}
	rec := serve(newTestHandler(t, st, Options{}), http.MethodGet, "/api/bankpayments", "", cookie)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "Authentication error" {
		t.Fatalf("unexpected message: %s", msg)
	}
}

func TestVerifyNotFound(t *testing.T) {
	st, cookie := sessionAs(models.RoleStaff)
	handler := newTestHandler(t, st, Options{})

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		rec := serve(handler, http.MethodPatch, "/api/bankpayments/"+id+"/verify", "", cookie)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for %s, got %d", id, rec.Code)
		}
		if msg := errorMessage(t, rec); msg != "Payment not found or already processed" {
			t.Fatalf("unexpected message: %s", msg)
		}
	}
}

func TestVerifyStorageFailure(t *testing.T) {
	st, cookie := sessionAs(models.RoleStaff)
	st.transitionFn = func(ctx context.Context, input store.TransitionInput) ([]models.Payment, error) {
		return nil, errors.New("pq: deadlock detected at line 1")
	}
	rec := serve(newTestHandler(t, st, Options{}), http.MethodPatch, "/api/bankpayments/"+uuid.NewString()+"/verify", "", cookie)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "deadlock") {
		t.Fatalf("internal detail leaked: %s", rec.Body.String())
	}
}

func TestSubmitValidation(t *testing.T) {
	st, cookie := sessionAs(models.RoleStaff)
	handler := newTestHandler(t, st, Options{})

	for _, body := range []string{`{"ids":[]}`, `{}`, `{"ids":["nope"]}`} {
		rec := serve(handler, http.MethodPost, "/api/bankpayments/submit-to-swift", body, cookie)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", body, rec.Code)
		}
		if msg := errorMessage(t, rec); msg != "Invalid IDs" {
			t.Fatalf("unexpected message: %s", msg)
		}
	}

	rec := serve(handler, http.MethodPost, "/api/bankpayments/submit-to-swift", `{"ids":{"$in":[]}}`, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for operator object, got %d", rec.Code)
	}

	rec = serve(handler, http.MethodPost, "/api/bankpayments/submit-to-swift", `{"ids":["`+uuid.NewString()+`"]}`, cookie)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when nothing is verified, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "No verified payments found" {
		t.Fatalf("unexpected message: %s", msg)
	}
}

func TestSubmitReportsCount(t *testing.T) {
	st, cookie := sessionAs(models.RoleStaff)
	st.transitionFn = func(ctx context.Context, input store.TransitionInput) ([]models.Payment, error) {
		if input.Action != store.ActionSubmit {
			t.Fatalf("unexpected action %s", input.Action)
		}
		return []models.Payment{{PaymentID: input.PaymentIDs[0], Status: models.StatusSubmitted}}, nil
	}
	rec := serve(newTestHandler(t, st, Options{}), http.MethodPost, "/api/bankpayments/submit-to-swift",
		`{"ids":["`+uuid.NewString()+`","`+uuid.NewString()+`"]}`, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp submitPaymentsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || resp.Message != "1 payments submitted to SWIFT" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestRegisterRejectsOperatorObjects(t *testing.T) {
	handler := newTestHandler(t, fakeStore{}, Options{})
	rec := serve(handler, http.MethodPost, "/api/auth/register", `{"username":{"$ne":null},"password":"x"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	rec = serve(handler, http.MethodPost, "/api/auth/customer-login", `{"username":"a","password":"b","isAdmin":true}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected unknown field to be rejected, got %d", rec.Code)
	}
}

func TestRegisterValidationMessage(t *testing.T) {
	handler := newTestHandler(t, fakeStore{}, Options{})
	rec := serve(handler, http.MethodPost, "/api/auth/register",
		`{"username":"jd","fullName":"Jane Doe","idNumber":"9001015009087","accountNumber":"1234567890","password":"Secret123"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "Invalid username" {
		t.Fatalf("unexpected message: %s", msg)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	st := fakeStore{userExistsFn: func(ctx context.Context, username, accountNumber, idNumber string) (bool, error) {
		return true, nil
	}}
	rec := serve(newTestHandler(t, st, Options{}), http.MethodPost, "/api/auth/register",
		`{"username":"jane_doe","fullName":"Jane Doe","idNumber":"9001015009087","accountNumber":"1234567890","password":"Secret123"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "Username, account, or ID already exists" {
		t.Fatalf("unexpected message: %s", msg)
	}
}

func TestRegisterStaff(t *testing.T) {
	body := `{"username":"teller","fullName":"Tina Teller","idNumber":"8001015009087","accountNumber":"2222222222","password":"Secret123"%s}`

	disabled := newTestHandler(t, fakeStore{}, Options{AllowStaffRegistration: false})
	rec := serve(disabled, http.MethodPost, "/api/auth/register-staff", strings.Replace(body, "%s", `,"role":"staff"`, 1), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 when disabled, got %d", rec.Code)
	}

	var created models.User
	st := fakeStore{createUserFn: func(ctx context.Context, user models.User) (models.User, error) {
		created = user
		return user, nil
	}}
	enabled := newTestHandler(t, st, Options{AllowStaffRegistration: true})
	rec = serve(enabled, http.MethodPost, "/api/auth/register-staff", strings.Replace(body, "%s", "", 1), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without role, got %d", rec.Code)
	}
	rec = serve(enabled, http.MethodPost, "/api/auth/register-staff", strings.Replace(body, "%s", `,"role":"staff"`, 1), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if created.Role != models.RoleStaff {
		t.Fatalf("expected staff role, got %s", created.Role)
	}

	rec = serve(enabled, http.MethodPost, "/api/auth/register", strings.Replace(body, "%s", `,"role":"staff"`, 1), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected customer path to refuse a staff role, got %d", rec.Code)
	}
}

func TestLoginSetsCookie(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("Secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	st := fakeStore{findUserFn: func(ctx context.Context, lookup store.UserLookup) (models.User, error) {
		if lookup.Username != "jane_doe" || lookup.AccountNumber != "1234567890" || lookup.Role != models.RoleCustomer {
			return models.User{}, store.ErrUserNotFound
		}
		return models.User{UserID: uuid.NewString(), Username: "jane_doe", PasswordHash: string(hash), Role: models.RoleCustomer}, nil
	}}
	handler := newTestHandler(t, st, Options{})

	rec := serve(handler, http.MethodPost, "/api/auth/customer-login", `{"username":"jane_doe","accountNumber":"1234567890","password":"Secret123"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || !cookies[0].HttpOnly || !cookies[0].Secure || cookies[0].SameSite != http.SameSiteStrictMode {
		t.Fatalf("unexpected cookie: %+v", cookies)
	}
	if strings.Contains(rec.Body.String(), "passwordHash") || strings.Contains(rec.Body.String(), string(hash)) {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}

	rec = serve(handler, http.MethodPost, "/api/auth/customer-login", `{"username":"jane_doe","accountNumber":"1234567890","password":"Wrong1234"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "Invalid credentials" {
		t.Fatalf("unexpected message: %s", msg)
	}

	rec = serve(handler, http.MethodPost, "/api/auth/staff-login", `{"username":"jane_doe","password":"Secret123"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected customer credentials to fail on staff login, got %d", rec.Code)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	st, cookie := sessionAs(models.RoleCustomer)
	rec := serve(newTestHandler(t, st, Options{}), http.MethodPost, "/api/auth/logout", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected cleared cookie, got %+v", cookies)
	}
}

func TestBodyTooLarge(t *testing.T) {
	handler := newTestHandler(t, fakeStore{}, Options{MaxBodyBytes: 64})
	body := `{"username":"` + strings.Repeat("a", 200) + `"}`
	rec := serve(handler, http.MethodPost, "/api/auth/register", body, nil)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	handler := newTestHandler(t, fakeStore{}, Options{RateLimit: RateLimitConfig{Window: time.Minute, Max: 2}})
	for i := 0; i < 2; i++ {
		rec := serve(handler, http.MethodGet, "/api/health", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
		if rec.Header().Get("RateLimit-Limit") != "2" {
			t.Fatalf("missing RateLimit-Limit header")
		}
	}
	rec := serve(handler, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("RateLimit-Remaining") != "0" {
		t.Fatalf("expected no remaining budget")
	}

	rec = serve(handler, http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected non-api path to bypass the limiter, got %d", rec.Code)
	}
}

func TestSecurityHeadersAndCORS(t *testing.T) {
	handler := newTestHandler(t, fakeStore{}, Options{CORSOrigin: "https://localhost:5173"})

	rec := serve(handler, http.MethodGet, "/api/health", "", nil)
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("missing frame options")
	}
	if !strings.Contains(rec.Header().Get("Strict-Transport-Security"), "max-age=63072000") {
		t.Fatalf("missing hsts")
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/bankpayments", nil)
	req.Header.Set("Origin", "https://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	pre := httptest.NewRecorder()
	handler.ServeHTTP(pre, req)
	if pre.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", pre.Code)
	}
	if pre.Header().Get("Access-Control-Allow-Origin") != "https://localhost:5173" || pre.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("unexpected cors headers: %v", pre.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	other := httptest.NewRecorder()
	handler.ServeHTTP(other, req)
	if other.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("foreign origin must not be allowed")
	}
}

func TestUnknownAPIPath(t *testing.T) {
	rec := serve(newTestHandler(t, fakeStore{}, Options{}), http.MethodGet, "/api/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestStaticSPA(t *testing.T) {
	rec := serve(newTestHandler(t, fakeStore{}, Options{StaticDir: t.TempDir()}), http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != noClientBuild {
		t.Fatalf("expected fallback text, got %d %s", rec.Code, rec.Body.String())
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}
	handler := newTestHandler(t, fakeStore{}, Options{StaticDir: dir})

	rec = serve(handler, http.MethodGet, "/staff/payments", "", nil)
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte("app</html>")) {
		t.Fatalf("expected index fallback, got %d %s", rec.Code, rec.Body.String())
	}
	rec = serve(handler, http.MethodGet, "/app.js", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "console.log(1)" {
		t.Fatalf("expected asset, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestRecoverFromPanic(t *testing.T) {
	handler := Recover(discardLogger(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestRedirectToHTTPS(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://bank.local:8080/api/health?x=1", nil)
	rec := httptest.NewRecorder()
	RedirectToHTTPS("8443").ServeHTTP(rec, req)
	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("expected 301, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://bank.local:8443/api/health?x=1" {
		t.Fatalf("unexpected location: %s", loc)
	}
}

func TestCreatePaymentAmountOverflow(t *testing.T) {
	st, cookie := sessionAs(models.RoleCustomer)
	rec := serve(newTestHandler(t, st, Options{}), http.MethodPost, "/api/bankpayments",
		`{"amount":"12345678901234567890.00","currency":"USD","payeeAccount":"ABC1234567","swiftCode":"ABCDUS33XXX"}`, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "Invalid amount" {
		t.Fatalf("unexpected message: %s", msg)
	}
}
