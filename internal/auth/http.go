package auth

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

type loginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// readLoginInput accepts a JSON body or the username/password form fields.
func readLoginInput(r *http.Request) (loginInput, error) {
	var in loginInput
	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil && mt == "application/json" {
		err := json.NewDecoder(r.Body).Decode(&in)
		return in, err
	}
	in.Username = r.FormValue("username")
	in.Password = r.FormValue("password")
	return in, nil
}

// POST /api/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	in, err := readLoginInput(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	u, token, exp, err := h.service.Login(in.Username, in.Password, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidEmail):
			writeErr(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrInvalidCredentials):
			h.service.logger.Printf("[auth] failed login for %q", in.Username)
			writeErr(w, http.StatusUnauthorized, err.Error())
		default:
			writeErr(w, http.StatusInternalServerError, "could not log in")
		}
		return
	}

	h.service.SetSessionCookie(w, r, token, exp)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"user":      map[string]any{"email": u.Email},
		"expiresAt": exp.Format(time.RFC3339),
	})
}

// GET|POST /api/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.service.RevokeSessionForRequest(r)
	h.service.ClearSessionCookie(w, r)
	// GET comes from the page's logout link.
	if r.Method == http.MethodGet {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// GET /api/email
func (h *Handler) Email(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	u, sess, ok := h.service.AuthenticateRequest(r, time.Now())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "not logged in")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"email":     u.Email,
		"expiresAt": sess.ExpiresAt.Format(time.RFC3339),
	})
}
