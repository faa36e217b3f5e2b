package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+$`)

// Settings tunes the session cookie. Zero values fall back to defaults.
type Settings struct {
	CookieName string
	// CookieSecure is "true", "false" or "auto" (secure when the request
	// arrived over TLS or X-Forwarded-Proto is https).
	CookieSecure string
	SessionTTL   time.Duration
}

type Service struct {
	creds    *CredentialStore
	sessions *MemorySessionRepo

	logger *log.Logger

	cookieName   string
	cookieSecure string
	sessionTTL   time.Duration
}

func NewService(creds *CredentialStore, sessions *MemorySessionRepo, logger *log.Logger, settings Settings) *Service {
	if creds == nil {
		creds = NewCredentialStore(nil)
	}
	if sessions == nil {
		sessions = NewMemorySessionRepo()
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Service{
		creds:        creds,
		sessions:     sessions,
		logger:       logger,
		cookieName:   "taskapp_session",
		cookieSecure: "auto",
		sessionTTL:   7 * 24 * time.Hour,
	}
	if name := strings.TrimSpace(settings.CookieName); name != "" {
		s.cookieName = name
	}
	switch strings.ToLower(strings.TrimSpace(settings.CookieSecure)) {
	case "1", "true", "yes":
		s.cookieSecure = "true"
	case "0", "false", "no":
		s.cookieSecure = "false"
	}
	if settings.SessionTTL > 0 {
		s.sessionTTL = settings.SessionTTL
	}
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	if email == "" || !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateToken() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}

// Login checks email and password against the credential list and opens a
// session. The returned token goes into the session cookie.
func (s *Service) Login(email, password string, now time.Time) (User, string, time.Time, error) {
	email = normalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return User{}, "", time.Time{}, err
	}
	if !s.creds.Check(email, password) {
		return User{}, "", time.Time{}, ErrInvalidCredentials
	}

	token, err := generateToken()
	if err != nil {
		return User{}, "", time.Time{}, err
	}
	exp := now.Add(s.sessionTTL)
	sess := Session{
		ID:        "sess_" + uuid.NewString(),
		Email:     email,
		TokenHash: hashToken(token),
		CreatedAt: now,
		LastSeen:  now,
		ExpiresAt: exp,
	}
	if err := s.sessions.CreateSession(sess); err != nil {
		return User{}, "", time.Time{}, err
	}
	return User{Email: email}, token, exp, nil
}

func (s *Service) AuthenticateRequest(r *http.Request, now time.Time) (User, Session, bool) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return User{}, Session{}, false
	}

	sess, ok := s.sessions.GetSessionByTokenHash(hashToken(cookie.Value))
	if !ok {
		return User{}, Session{}, false
	}

	if now.After(sess.ExpiresAt) {
		s.sessions.DeleteSessionByID(sess.ID)
		return User{}, Session{}, false
	}

	// A user removed from the credential list loses their sessions.
	if !s.creds.Known(sess.Email) {
		s.sessions.DeleteSessionByID(sess.ID)
		return User{}, Session{}, false
	}

	if now.Sub(sess.LastSeen) >= 5*time.Minute {
		s.sessions.TouchSession(sess.ID, now)
		sess.LastSeen = now
	}

	return User{Email: sess.Email}, sess, true
}

func (s *Service) RevokeSessionForRequest(r *http.Request) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return
	}
	s.sessions.DeleteSessionByTokenHash(hashToken(cookie.Value))
}

// PurgeExpiredSessions is meant to be called periodically by the server.
func (s *Service) PurgeExpiredSessions(now time.Time) {
	if n := s.sessions.PurgeExpired(now); n > 0 {
		s.logger.Printf("[auth] purged %d expired sessions", n)
	}
}

func (s *Service) shouldUseSecureCookie(r *http.Request) bool {
	switch s.cookieSecure {
	case "true":
		return true
	case "false":
		return false
	}
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https")
}

func (s *Service) SetSessionCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.shouldUseSecureCookie(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Service) ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.shouldUseSecureCookie(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Service) RequirePage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, sess, ok := s.AuthenticateRequest(r, time.Now())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ctx := withSessionContext(withUserContext(r.Context(), u), sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) RequireAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, sess, ok := s.AuthenticateRequest(r, time.Now())
		if !ok {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "unauthorized"})
			return
		}
		ctx := withSessionContext(withUserContext(r.Context(), u), sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) HandleLoginPage(loginPage http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := s.AuthenticateRequest(r, time.Now()); ok {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		loginPage.ServeHTTP(w, r)
	})
}
