package ledger

import (
	"encoding/json"
	"errors"
	"log"
	"mime"
	"net/http"
	"strings"
)

type Handler struct {
	ledger       *Ledger
	chores       []string
	userResolver func(*http.Request) (string, bool)
	logger       *log.Logger
}

func NewHandler(l *Ledger, chores []string, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	if chores == nil {
		chores = []string{}
	}
	return &Handler{ledger: l, chores: chores, logger: logger}
}

// SetUserResolver installs the function mapping a request to the
// authenticated user's email.
func (h *Handler) SetUserResolver(fn func(*http.Request) (string, bool)) {
	h.userResolver = fn
}

func (h *Handler) userForRequest(r *http.Request) (string, bool) {
	if h.userResolver == nil {
		return "", false
	}
	u, ok := h.userResolver(r)
	if !ok || strings.TrimSpace(u) == "" {
		return "", false
	}
	return u, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func (h *Handler) writeStorageErr(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Printf("[ledger] %s %s: %v", r.Method, r.URL.Path, err)
	switch {
	case errors.Is(err, ErrUnreadable), errors.Is(err, ErrCorrupt):
		writeErr(w, http.StatusServiceUnavailable, "task storage unavailable")
	default:
		writeErr(w, http.StatusInternalServerError, "task storage failed")
	}
}

func isJSONRequest(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// taskFromRequest reads the "task" field from a JSON body, a form body or
// the query string.
func taskFromRequest(r *http.Request) (string, error) {
	if isJSONRequest(r) {
		var in struct {
			Task string `json:"task"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			return "", err
		}
		return strings.TrimSpace(in.Task), nil
	}
	return strings.TrimSpace(r.FormValue("task")), nil
}

// GET /api/tasks
func (h *Handler) Chores(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, h.chores)
}

// POST /api/complete
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	user, ok := h.userForRequest(r)
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	task, err := taskFromRequest(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if task == "" {
		writeErr(w, http.StatusBadRequest, "task is required")
		return
	}
	if err := h.ledger.Add(user, task); err != nil {
		h.writeStorageErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "task": task})
}

// GET /api/profile
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	h.listForUser(w, r, h.ledger.TasksForToday)
}

// GET /api/profile/all-tasks
func (h *Handler) ProfileAllTasks(w http.ResponseWriter, r *http.Request) {
	h.listForUser(w, r, h.ledger.AllTasksForUser)
}

// GET /api/profile/history
func (h *Handler) ProfileHistory(w http.ResponseWriter, r *http.Request) {
	h.listForUser(w, r, h.ledger.History)
}

func (h *Handler) listForUser(w http.ResponseWriter, r *http.Request, list func(string) ([]string, error)) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	user, ok := h.userForRequest(r)
	if !ok {
		writeJSON(w, http.StatusOK, []string{})
		return
	}
	out, err := list(user)
	if err != nil {
		h.writeStorageErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /api/all-profiles
func (h *Handler) AllProfiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if _, ok := h.userForRequest(r); !ok {
		writeJSON(w, http.StatusOK, map[string][]string{})
		return
	}
	out, err := h.ledger.AllUserTasks()
	if err != nil {
		h.writeStorageErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /api/undo-last
func (h *Handler) UndoLast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	user, ok := h.userForRequest(r)
	if !ok {
		writeErr(w, http.StatusBadRequest, "nothing to undo")
		return
	}
	removed, err := h.ledger.RemoveLast(user)
	if err != nil {
		h.writeStorageErr(w, r, err)
		return
	}
	if !removed {
		writeErr(w, http.StatusBadRequest, "nothing to undo")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
