package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"github.com/tahcohcat/stride/config"
	"github.com/tahcohcat/stride/internal/logger"
)

const (
	sessionName      = "stride-session"
	authenticatedKey = "authenticated"
)

type LoginRequest struct {
	Password string `json:"password"`
}

// Gate protects the API with a single shared password. Without a configured hash every request
// is let through.
type Gate struct {
	store        *sessions.CookieStore
	passwordHash []byte
	log          *logger.Log
}

func NewGate(cfg config.AuthConfig) *Gate {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return &Gate{
		store:        store,
		passwordHash: []byte(cfg.PasswordHash),
		log:          logger.Named("auth"),
	}
}

// HashPassword produces the value for auth.password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (g *Gate) Enabled() bool {
	return len(g.passwordHash) > 0
}

// LoginHandler accepts {"password": "..."} or a form field and starts a session.
func (g *Gate) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if !g.Enabled() {
		writeJSON(w, http.StatusOK, map[string]bool{authenticatedKey: true})
		return
	}

	var req LoginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
			return
		}
	} else {
		req.Password = r.FormValue("password")
	}

	if bcrypt.CompareHashAndPassword(g.passwordHash, []byte(req.Password)) != nil {
		g.log.Warn("Rejected login attempt")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid password"})
		return
	}

	session, _ := g.store.Get(r, sessionName)
	session.Values[authenticatedKey] = true
	if err := session.Save(r, w); err != nil {
		g.log.WithError(err).Error("Failed to save session")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to start session"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{authenticatedKey: true})
}

func (g *Gate) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	session, _ := g.store.Get(r, sessionName)
	session.Values[authenticatedKey] = false
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		g.log.WithError(err).Warn("Failed to clear session")
	}
	writeJSON(w, http.StatusOK, map[string]bool{authenticatedKey: false})
}

// Middleware rejects requests without an authenticated session.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.Enabled() {
			session, _ := g.store.Get(r, sessionName)
			if ok, _ := session.Values[authenticatedKey].(bool); !ok {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Authentication required"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
