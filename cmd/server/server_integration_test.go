package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"taskapp/internal/config"
	"taskapp/internal/ledger"
	"taskapp/internal/serverapp"
)

func TestServer_ProtectedRoutesRequireAuth(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/api/profile", "/api/profile/all-tasks", "/api/profile/history", "/api/all-profiles"} {
		res := app.request(http.MethodGet, path, nil, "")
		if res.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s, got %d", path, res.Code)
		}
	}
	for _, path := range []string{"/api/complete", "/api/undo-last"} {
		res := app.request(http.MethodPost, path, nil, "")
		if res.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for POST %s, got %d", path, res.Code)
		}
	}

	emailRes := app.request(http.MethodGet, "/api/email", nil, "")
	if emailRes.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for /api/email, got %d", emailRes.Code)
	}

	pageRes := app.request(http.MethodGet, "/", nil, "")
	if pageRes.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 for /, got %d", pageRes.Code)
	}
	if loc := pageRes.Header().Get("Location"); loc != "/login" {
		t.Fatalf("expected redirect to /login, got %q", loc)
	}

	loginPage := app.request(http.MethodGet, "/login", nil, "")
	if loginPage.Code != http.StatusOK {
		t.Fatalf("login page expected 200, got %d", loginPage.Code)
	}
	if !strings.Contains(loginPage.Body.String(), `name="username"`) {
		t.Fatalf("login page missing username field: %s", loginPage.Body.String())
	}
}

func TestServer_ChoreCatalogIsPublic(t *testing.T) {
	app := newTestApp(t)

	res := app.request(http.MethodGet, "/api/tasks", nil, "")
	if res.Code != http.StatusOK {
		t.Fatalf("tasks expected 200, got %d", res.Code)
	}
	var chores []string
	if err := json.Unmarshal(res.Body.Bytes(), &chores); err != nil {
		t.Fatalf("decode chores: %v body=%s", err, res.Body.String())
	}
	if len(chores) != 5 || chores[0] != "Udělat myčku" {
		t.Fatalf("unexpected chore catalog %v", chores)
	}
}

func TestServer_CompleteUndoAndProfiles(t *testing.T) {
	app := newTestApp(t)
	app.login(t, "anna@example.com", "anna")

	homeRes := app.request(http.MethodGet, "/", nil, "")
	if homeRes.Code != http.StatusOK {
		t.Fatalf("home expected 200 after login, got %d", homeRes.Code)
	}
	if !strings.Contains(homeRes.Body.String(), "anna@example.com") {
		t.Fatalf("home page should greet the user: %s", homeRes.Body.String())
	}
	if res := app.request(http.MethodGet, "/login", nil, ""); res.Code != http.StatusSeeOther {
		t.Fatalf("login page expected redirect once logged in, got %d", res.Code)
	}
	if res := app.request(http.MethodGet, "/nope", nil, ""); res.Code != http.StatusNotFound {
		t.Fatalf("unknown page expected 404, got %d", res.Code)
	}

	for _, task := range []string{"Udělat myčku", "Prádlo"} {
		res := app.json(http.MethodPost, "/api/complete", map[string]any{"task": task})
		if res.Code != http.StatusOK {
			t.Fatalf("complete %q expected 200, got %d body=%s", task, res.Code, res.Body.String())
		}
	}
	form := url.Values{"task": {"Vynést koš"}}
	formRes := app.request(http.MethodPost, "/api/complete", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if formRes.Code != http.StatusOK {
		t.Fatalf("form complete expected 200, got %d body=%s", formRes.Code, formRes.Body.String())
	}

	today := decodeStrings(t, app.request(http.MethodGet, "/api/profile", nil, ""))
	if strings.Join(today, "|") != "Udělat myčku|Prádlo|Vynést koš" {
		t.Fatalf("unexpected today list %v", today)
	}

	undoRes := app.request(http.MethodPost, "/api/undo-last", nil, "")
	if undoRes.Code != http.StatusOK {
		t.Fatalf("undo expected 200, got %d body=%s", undoRes.Code, undoRes.Body.String())
	}
	today = decodeStrings(t, app.request(http.MethodGet, "/api/profile", nil, ""))
	if strings.Join(today, "|") != "Udělat myčku|Prádlo" {
		t.Fatalf("undo should drop the newest entry, got %v", today)
	}

	all := decodeStrings(t, app.request(http.MethodGet, "/api/profile/all-tasks", nil, ""))
	if len(all) != 2 || all[0] != "Udělat myčku (completed: 2025-01-15)" {
		t.Fatalf("unexpected all-tasks %v", all)
	}
	history := decodeStrings(t, app.request(http.MethodGet, "/api/profile/history", nil, ""))
	if len(history) != 2 {
		t.Fatalf("unexpected history %v", history)
	}

	profilesRes := app.request(http.MethodGet, "/api/all-profiles", nil, "")
	var profiles map[string][]string
	if err := json.Unmarshal(profilesRes.Body.Bytes(), &profiles); err != nil {
		t.Fatalf("decode all-profiles: %v body=%s", err, profilesRes.Body.String())
	}
	if got := profiles["anna@example.com"]; len(got) != 2 || got[1] != "Prádlo (2025-01-15)" {
		t.Fatalf("unexpected all-profiles %v", profiles)
	}

	raw, err := os.ReadFile(filepath.Join(app.dataDir, "tasks", "tasks_2025_01.json"))
	if err != nil {
		t.Fatalf("month file not written: %v", err)
	}
	if !strings.Contains(string(raw), "\n  {\n    \"user\": \"anna@example.com\"") {
		t.Fatalf("month file not indented as expected:\n%s", raw)
	}

	app.request(http.MethodPost, "/api/undo-last", nil, "")
	app.request(http.MethodPost, "/api/undo-last", nil, "")
	emptyUndo := app.request(http.MethodPost, "/api/undo-last", nil, "")
	if emptyUndo.Code != http.StatusBadRequest || !strings.Contains(emptyUndo.Body.String(), "nothing to undo") {
		t.Fatalf("undo with nothing left expected 400, got %d body=%s", emptyUndo.Code, emptyUndo.Body.String())
	}

	logoutRes := app.request(http.MethodPost, "/api/logout", nil, "")
	if logoutRes.Code != http.StatusOK {
		t.Fatalf("logout expected 200, got %d", logoutRes.Code)
	}
	if res := app.request(http.MethodGet, "/api/profile", nil, ""); res.Code != http.StatusUnauthorized {
		t.Fatalf("profile after logout expected 401, got %d", res.Code)
	}
}

func TestServer_UsersDoNotSeeEachOthersToday(t *testing.T) {
	anna := newTestApp(t)
	petr := anna.fork()
	anna.login(t, "anna@example.com", "anna")
	petr.login(t, "petr@example.com", "petr")

	anna.json(http.MethodPost, "/api/complete", map[string]any{"task": "Umýt zem"})
	petr.json(http.MethodPost, "/api/complete", map[string]any{"task": "Jít se psem"})

	if got := decodeStrings(t, petr.request(http.MethodGet, "/api/profile", nil, "")); len(got) != 1 || got[0] != "Jít se psem" {
		t.Fatalf("petr should only see his own task, got %v", got)
	}
	// petr has nothing of anna's to undo
	petr.request(http.MethodPost, "/api/undo-last", nil, "")
	if got := decodeStrings(t, anna.request(http.MethodGet, "/api/profile", nil, "")); len(got) != 1 {
		t.Fatalf("anna's entry must survive petr's undo, got %v", got)
	}
}

func TestServer_LogoutLinkReturnsToLogin(t *testing.T) {
	app := newTestApp(t)
	app.login(t, "anna@example.com", "anna")

	home := app.request(http.MethodGet, "/", nil, "")
	if !strings.Contains(home.Body.String(), `href="/api/logout"`) {
		t.Fatalf("home page should link to logout: %s", home.Body.String())
	}

	res := app.request(http.MethodGet, "/api/logout", nil, "")
	if res.Code != http.StatusSeeOther {
		t.Fatalf("logout link expected 303, got %d body=%s", res.Code, res.Body.String())
	}
	if loc := res.Header().Get("Location"); loc != "/login" {
		t.Fatalf("logout link expected redirect to /login, got %q", loc)
	}
	if len(app.cookies) != 0 {
		t.Fatalf("logout should drop the session cookie, got %v", app.cookies)
	}
	if res := app.request(http.MethodGet, "/", nil, ""); res.Code != http.StatusSeeOther {
		t.Fatalf("home after logout expected 303, got %d", res.Code)
	}
}

func TestServer_LoginRejectsBadCredentials(t *testing.T) {
	app := newTestApp(t)

	res := app.json(http.MethodPost, "/api/login", map[string]any{"username": "anna@example.com", "password": "wrong"})
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password expected 401, got %d", res.Code)
	}
	res = app.json(http.MethodPost, "/api/login", map[string]any{"username": "anna", "password": "anna"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("malformed email expected 400, got %d", res.Code)
	}
	if len(app.cookies) != 0 {
		t.Fatalf("failed logins must not set cookies, got %v", app.cookies)
	}
}

func TestServer_HealthAndEmbeddedStatic(t *testing.T) {
	app := newTestApp(t)

	health := app.request(http.MethodGet, "/healthz", nil, "")
	if health.Code != http.StatusOK {
		t.Fatalf("healthz expected 200, got %d", health.Code)
	}
	if health.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected a request id header")
	}
	if !strings.Contains(app.logs.String(), health.Header().Get("X-Request-Id")) {
		t.Fatalf("access log should carry the request id: %s", app.logs.String())
	}

	ready := app.request(http.MethodGet, "/readyz", nil, "")
	if ready.Code != http.StatusOK {
		t.Fatalf("readyz expected 200, got %d body=%s", ready.Code, ready.Body.String())
	}

	js := app.request(http.MethodGet, "/static/js/app.js", nil, "")
	if js.Code != http.StatusOK {
		t.Fatalf("embedded app.js expected 200, got %d", js.Code)
	}
	css := app.request(http.MethodGet, "/static/css/app.css", nil, "")
	if css.Code != http.StatusOK {
		t.Fatalf("embedded app.css expected 200, got %d", css.Code)
	}
}

func TestServer_ReadyzReportsCorruptStorage(t *testing.T) {
	app := newTestApp(t)
	tasksDir := filepath.Join(app.dataDir, "tasks")
	if err := os.WriteFile(filepath.Join(tasksDir, "tasks_2025_01.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	ready := app.request(http.MethodGet, "/readyz", nil, "")
	if ready.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz expected 503, got %d", ready.Code)
	}

	app.login(t, "anna@example.com", "anna")
	res := app.request(http.MethodGet, "/api/profile", nil, "")
	if res.Code != http.StatusServiceUnavailable || !strings.Contains(res.Body.String(), "task storage unavailable") {
		t.Fatalf("profile expected 503, got %d body=%s", res.Code, res.Body.String())
	}
}

func TestParseFlagsAndLoadConfig(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.yml")
	f, err := parseFlags([]string{"--config", missing, "--addr", ":9999", "--data-dir", "/tmp/chores"})
	if err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	t.Setenv("TASKAPP_ADDR", ":7000")
	t.Setenv("TASKAPP_USERS_FILE", "env-users.txt")

	cfg, err := loadConfig(f)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Fatalf("flag should win over env, got %q", cfg.Server.Addr)
	}
	if cfg.Storage.DataDir != "/tmp/chores" {
		t.Fatalf("unexpected data dir %q", cfg.Storage.DataDir)
	}
	if cfg.Auth.UsersFile != "env-users.txt" {
		t.Fatalf("env should apply when no flag is given, got %q", cfg.Auth.UsersFile)
	}

	if _, err := parseFlags([]string{"--bogus"}); err == nil {
		t.Fatalf("expected an error for an unknown flag")
	}
}

type testApp struct {
	handler http.Handler
	logs    *bytes.Buffer
	cookies map[string]*http.Cookie
	dataDir string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := loadTestConfig(t)
	dataDir := t.TempDir()
	cfg.Storage.DataDir = dataDir
	cfg.Auth.UsersFile = filepath.Join(dataDir, "users.txt")
	cfg.Auth.Users = map[string]string{
		"anna@example.com": "anna",
		"petr@example.com": "petr",
	}

	var logs bytes.Buffer
	logger := log.New(&logs, "", 0)
	h, err := serverapp.NewHandler(serverapp.Options{
		Config: cfg,
		Logger: logger,
		Clock:  ledger.NewFakeClock(time.Date(2025, 1, 15, 10, 0, 0, 0, time.Local)),
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	return &testApp{
		handler: h,
		logs:    &logs,
		cookies: map[string]*http.Cookie{},
		dataDir: dataDir,
	}
}

// fork shares the server with a fresh cookie jar.
func (a *testApp) fork() *testApp {
	return &testApp{
		handler: a.handler,
		logs:    a.logs,
		cookies: map[string]*http.Cookie{},
		dataDir: a.dataDir,
	}
}

func (a *testApp) login(t *testing.T, email, password string) {
	t.Helper()
	form := url.Values{"username": {email}, "password": {password}}
	res := a.request(http.MethodPost, "/api/login", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if res.Code != http.StatusOK {
		t.Fatalf("login expected 200, got %d body=%s", res.Code, res.Body.String())
	}
}

func (a *testApp) json(method, path string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	return a.request(method, path, bytes.NewReader(b), "application/json")
}

func (a *testApp) request(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, c := range a.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	a.captureCookies(rec.Result())
	return rec
}

func (a *testApp) captureCookies(res *http.Response) {
	for _, c := range res.Cookies() {
		if c == nil {
			continue
		}
		if c.MaxAge < 0 || strings.TrimSpace(c.Value) == "" {
			delete(a.cookies, c.Name)
			continue
		}
		cp := *c
		a.cookies[c.Name] = &cp
	}
}

func decodeStrings(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	var out []string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode json list failed: %v body=%s", err, rec.Body.String())
	}
	return out
}

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfgPath := filepath.Join(projectRoot(t), "taskapp_config.yml")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("load config %s: %v", cfgPath, err)
	}
	return cfg
}

func projectRoot(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime.Caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
