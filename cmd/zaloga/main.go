package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/unrolled/secure"
	_ "go.uber.org/automaxprocs"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/erazemk/zaloga/internal/api"
	"github.com/erazemk/zaloga/internal/auth"
	"github.com/erazemk/zaloga/internal/config"
	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/inventory"
	"github.com/erazemk/zaloga/internal/metrics"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/notify"
	"github.com/erazemk/zaloga/internal/store"
	"github.com/erazemk/zaloga/internal/web"
)

// build is set at link time.
var build = "dev"

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	min    slog.Level
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= lr.min
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		min:    lr.min,
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		min:    lr.min,
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. If a log path is set, all levels are also written to a rotated
// file. Returns a cleanup function that closes the log file (if opened).
func setupLogger(cfg *config.Config) (func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}

	cleanup := func() {}

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if cfg.Log.Path != "" {
		f := &lumberjack.Logger{
			Filename:   cfg.Log.Path,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			Compress:   true,
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	newHandler := func(w io.Writer) slog.Handler {
		if cfg.Log.Format == "json" {
			return slog.NewJSONHandler(w, opts)
		}
		return slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(&levelRouter{
		min:    level,
		stdout: newHandler(stdoutW),
		stderr: newHandler(stderrW),
	}))
	return cleanup, nil
}

func main() {
	cfg, help, err := config.Load(build)
	if err != nil {
		if errors.Is(err, config.ErrHelpWanted) {
			fmt.Println(help)
			fmt.Print(`
Commands:
  serve                       run the web server (default)
  useradd <USERNAME> <ROLE>   create an account with a generated password; ROLE is admin or staff
`)
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := setupLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	switch cmd := cfg.Args.Num(0); cmd {
	case "", "serve":
		err = serve(cfg)
	case "useradd":
		err = userAdd(cfg, cfg.Args.Num(1), cfg.Args.Num(2))
	default:
		err = fmt.Errorf("unknown command %q (try --help)", cmd)
	}
	if err != nil {
		slog.Error("fatal", "error", err)
		closeLog()
		os.Exit(1)
	}
}

// openDatabase opens and migrates the configured database.
func openDatabase(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	database, err := db.Open(db.Dialect(cfg.DB.Driver), cfg.DB.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, database); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return database, nil
}

func serve(cfg *config.Config) error {
	slog.Info("starting", "build", build, "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	slog.Info("database ready", "driver", cfg.DB.Driver)

	if err := seedAdmin(ctx, database, strings.ToUpper(cfg.Admin.Username)); err != nil {
		return err
	}

	// Secrets are generated on first run and persisted in settings.
	jwtSecret, err := store.GetSecret(ctx, database, store.SettingJWTSecret, 32)
	if err != nil {
		return fmt.Errorf("loading JWT secret: %w", err)
	}
	flashHex, err := store.GetSecret(ctx, database, store.SettingFlashKey, 32)
	if err != nil {
		return fmt.Errorf("loading flash key: %w", err)
	}
	flashKey, err := hex.DecodeString(flashHex)
	if err != nil {
		return fmt.Errorf("decoding flash key: %w", err)
	}

	broker, err := newBroker(ctx, cfg)
	if err != nil {
		return err
	}
	defer broker.Close()

	sessions := auth.NewManager(database, jwtSecret)
	svc := inventory.NewService(database, broker)
	m := metrics.New()

	apiRouter := api.NewRouter(sessions, svc, m)
	webRouter, err := web.NewRouter(web.Deps{
		Sessions:       sessions,
		Service:        svc,
		Metrics:        m,
		FlashKey:       flashKey,
		SecureCookies:  cfg.Web.SecureCookies,
		LoginRateLimit: cfg.Web.LoginRateLimit,
	})
	if err != nil {
		return fmt.Errorf("setting up web router: %w", err)
	}

	apiCORS := cors.Handler(cors.Options{
		AllowedOrigins: cfg.Web.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	})

	// Combine: API routes take priority, web routes handle the rest.
	mux := http.NewServeMux()
	mux.Handle("/api/", apiCORS(apiRouter))
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := database.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	mux.Handle("/", webRouter)

	headers := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		ReferrerPolicy:        "same-origin",
		ContentSecurityPolicy: "default-src 'self'; img-src * data:",
		IsDevelopment:         !cfg.Web.SecureCookies,
	})

	var handler http.Handler = m.Middleware(mux)
	handler = api.LoggingMiddleware(handler)
	handler = headers.Handler(handler)
	handler = middleware.Recoverer(handler)
	handler = middleware.RealIP(handler)
	handler = middleware.RequestID(handler)

	// Cancelled when shutdown starts so live streams end instead of
	// holding the server open.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	server.RegisterOnShutdown(cancelBase)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server started", "addr", cfg.Addr, "notify", cfg.Notify.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("server stopped, closing database")
	return nil
}

// newBroker builds the configured live-change broker.
func newBroker(ctx context.Context, cfg *config.Config) (notify.Broker, error) {
	switch cfg.Notify.Backend {
	case "redis":
		b, err := notify.NewRedis(ctx, cfg.Notify.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return b, nil
	case "postgres":
		tables := make([]string, 0, len(model.Kinds))
		for _, kind := range model.Kinds {
			tables = append(tables, kind.Table())
		}
		b, err := notify.NewPostgres(ctx, cfg.DB.DSN, tables...)
		if err != nil {
			return nil, fmt.Errorf("connecting postgres listener: %w", err)
		}
		return b, nil
	default:
		return notify.NewHub(), nil
	}
}

// seedAdmin creates the admin account on first run and prints its password.
func seedAdmin(ctx context.Context, database *db.DB, username string) error {
	existing, err := store.GetUserByUsername(ctx, database, username)
	if err != nil {
		return fmt.Errorf("checking admin account: %w", err)
	}
	if existing != nil {
		return nil
	}

	password, err := createUser(ctx, database, username, model.RoleAdmin)
	if err != nil {
		return err
	}

	printCredentials("Admin account created:", username, password)
	return nil
}

func userAdd(cfg *config.Config, username, role string) error {
	if username == "" || !model.ValidRole(role) {
		return fmt.Errorf("usage: zaloga useradd <USERNAME> <admin|staff>")
	}

	ctx := context.Background()
	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	username = strings.ToUpper(username)
	password, err := createUser(ctx, database, username, role)
	if err != nil {
		return err
	}

	printCredentials("Account created ("+role+"):", username, password)
	return nil
}

// createUser stores a new account with a generated password.
func createUser(ctx context.Context, database *db.DB, username, role string) (string, error) {
	password, err := generatePassword(16)
	if err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	if _, err := store.CreateUser(ctx, database, username, hash, role); err != nil {
		return "", fmt.Errorf("creating user: %w", err)
	}
	return password, nil
}

// printCredentials prints a new account's credentials to stdout.
func printCredentials(heading, username, password string) {
	fmt.Println(heading)
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println()
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
