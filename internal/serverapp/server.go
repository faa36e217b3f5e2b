package serverapp

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"taskapp/internal/auth"
	"taskapp/internal/config"
	"taskapp/internal/httpmw"
	"taskapp/internal/ledger"
	"taskapp/static"
	"taskapp/ui/page"

	"github.com/a-h/templ"
)

type Options struct {
	Config *config.Config
	Logger *log.Logger
	// Clock defaults to the wall clock; tests pin it.
	Clock ledger.Clock
}

// App is the wired service: the HTTP handler plus the components the
// process manages over its lifetime.
type App struct {
	Handler http.Handler
	Auth    *auth.Service
	Ledger  *ledger.Ledger
}

func NewHandler(opts Options) (http.Handler, error) {
	app, err := New(opts)
	if err != nil {
		return nil, err
	}
	return app.Handler, nil
}

func New(opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Clock == nil {
		opts.Clock = ledger.RealClock
	}
	cfg := opts.Config

	store, err := newLedgerStore(cfg)
	if err != nil {
		return nil, err
	}
	tasks, err := ledger.New(ledger.Options{
		Store:      store,
		Clock:      opts.Clock,
		Logger:     opts.Logger,
		BestEffort: cfg.Ledger.BestEffort,
	})
	if err != nil {
		return nil, err
	}

	creds, err := auth.LoadCredentialsFile(cfg.Auth.UsersFile, opts.Logger)
	if err != nil {
		return nil, err
	}
	creds.Merge(cfg.Auth.Users)
	authService := auth.NewService(creds, auth.NewMemorySessionRepo(), opts.Logger, auth.Settings{
		CookieName:   cfg.Auth.CookieName,
		CookieSecure: cfg.Auth.CookieSecure,
		SessionTTL:   cfg.SessionTTL(),
	})
	logStartupHints(opts.Logger, cfg, creds.Len())

	mux := http.NewServeMux()

	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticfiles.FS()))))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "taskapp",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := tasks.Ping(); err != nil {
			opts.Logger.Printf("[ledger] readiness check failed: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"ok":    false,
				"error": "task storage unavailable",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "taskapp",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	authHandler := auth.NewHandler(authService)
	mux.HandleFunc("/api/login", authHandler.Login)
	mux.HandleFunc("/api/logout", authHandler.Logout)
	mux.HandleFunc("/api/email", authHandler.Email)

	ledgerHandler := ledger.NewHandler(tasks, cfg.Chores, opts.Logger)
	ledgerHandler.SetUserResolver(func(r *http.Request) (string, bool) {
		return auth.EmailFromContext(r.Context())
	})
	mux.HandleFunc("/api/tasks", ledgerHandler.Chores)
	mux.Handle("/api/complete", authService.RequireAPI(http.HandlerFunc(ledgerHandler.Complete)))
	mux.Handle("/api/profile", authService.RequireAPI(http.HandlerFunc(ledgerHandler.Profile)))
	mux.Handle("/api/profile/all-tasks", authService.RequireAPI(http.HandlerFunc(ledgerHandler.ProfileAllTasks)))
	mux.Handle("/api/profile/history", authService.RequireAPI(http.HandlerFunc(ledgerHandler.ProfileHistory)))
	mux.Handle("/api/all-profiles", authService.RequireAPI(http.HandlerFunc(ledgerHandler.AllProfiles)))
	mux.Handle("/api/undo-last", authService.RequireAPI(http.HandlerFunc(ledgerHandler.UndoLast)))

	mux.Handle("/login", authService.HandleLoginPage(templ.Handler(page.LoginPage())))
	mux.Handle("/", authService.RequirePage(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		email, _ := auth.EmailFromContext(r.Context())
		templ.Handler(page.HomePage(email, cfg.Chores)).ServeHTTP(w, r)
	})))

	handler := httpmw.Chain(
		mux,
		httpmw.WithRequestID,
		httpmw.WithAccessLog(opts.Logger),
		httpmw.WithRecover(opts.Logger),
		httpmw.WithSecurityHeaders,
	)

	return &App{
		Handler: handler,
		Auth:    authService,
		Ledger:  tasks,
	}, nil
}

func newLedgerStore(cfg *config.Config) (ledger.Store, error) {
	if cfg.Ledger.Storage == "memory" {
		return ledger.NewMemoryStore(), nil
	}
	return ledger.NewFileStore(cfg.TasksDir())
}

// RunSessionJanitor purges expired sessions every interval until ctx is done.
func (a *App) RunSessionJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			a.Auth.PurgeExpiredSessions(now)
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func logStartupHints(logger *log.Logger, cfg *config.Config, users int) {
	if logger == nil {
		return
	}
	if users == 0 {
		logger.Printf("[security] no credentials loaded from %s, nobody can log in", cfg.Auth.UsersFile)
	}
	if cfg.Ledger.Storage == "memory" {
		logger.Printf("[ledger] memory storage selected, completed tasks are lost on restart")
	}
	if cfg.Ledger.BestEffort {
		logger.Printf("[ledger] best_effort enabled, storage failures are only logged")
	}
	if strings.EqualFold(cfg.Auth.CookieSecure, "false") {
		logger.Printf("[security] session cookie is never marked Secure")
	}
}
