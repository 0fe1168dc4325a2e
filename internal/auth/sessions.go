package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/models"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/store"

	"github.com/google/uuid"
)

const (
	DefaultCookieName = "bank.sid"
	DefaultSessionTTL = 24 * time.Hour
)

type SessionOptions struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Sessions issues opaque server-side session ids and carries them in a cookie.
type Sessions struct {
	store      store.SessionStore
	cookieName string
	ttl        time.Duration
	secure     bool
	now        func() time.Time
}

func NewSessions(st store.SessionStore, options SessionOptions) *Sessions {
	name := options.CookieName
	if name == "" {
		name = DefaultCookieName
	}
	ttl := options.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{
		store:      st,
		cookieName: name,
		ttl:        ttl,
		secure:     options.Secure,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Sessions) Create(ctx context.Context, userID string, role models.Role) (models.Session, error) {
	session := models.Session{
		SessionID: uuid.NewString(),
		UserID:    userID,
		Role:      role,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return models.Session{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Resolve returns the live session for token. Empty, malformed, unknown and
// expired tokens all return store.ErrSessionNotFound.
func (s *Sessions) Resolve(ctx context.Context, token string) (models.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.Session{}, store.ErrSessionNotFound
	}
	if _, err := uuid.Parse(token); err != nil {
		return models.Session{}, store.ErrSessionNotFound
	}
	session, err := s.store.GetSession(ctx, token)
	if err != nil {
		return models.Session{}, err
	}
	if session.Expired(s.now()) {
		return models.Session{}, store.ErrSessionNotFound
	}
	return session, nil
}

func (s *Sessions) Destroy(ctx context.Context, token string) error {
	if _, err := uuid.Parse(token); err != nil {
		return store.ErrSessionNotFound
	}
	return s.store.DeleteSession(ctx, token)
}

// Purge removes every session that expired before now.
func (s *Sessions) Purge(ctx context.Context) (int64, error) {
	return s.store.PurgeExpiredSessions(ctx, s.now())
}

// Token reads the session id from the request cookie.
func (s *Sessions) Token(r *http.Request) string {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (s *Sessions) SetCookie(w http.ResponseWriter, session models.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    session.SessionID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(s.ttl / time.Second),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Sessions) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	})
}
