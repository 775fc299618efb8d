// Command ytmod moderates the live chat of the authenticated account's broadcast.
// It:
//   - Loads configuration and initializes structured logging.
//   - Authorizes against YouTube with a cached installed-app OAuth token.
//   - Selects the broadcast to moderate and prints its title, description and link.
//   - Polls the live chat, classifies every new message and deletes toxic ones.
//   - Optionally records every decision in Postgres and exposes /healthz, /readyz
//     and /metrics over HTTP.
//
// Shutdown is graceful on SIGINT/SIGTERM. Fatal errors exit non-zero.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/onnwee/ytmod/chat"
	"github.com/onnwee/ytmod/config"
	"github.com/onnwee/ytmod/crypto"
	"github.com/onnwee/ytmod/db"
	"github.com/onnwee/ytmod/moderation"
	"github.com/onnwee/ytmod/oauth"
	"github.com/onnwee/ytmod/server"
	"github.com/onnwee/ytmod/telemetry"
	"github.com/onnwee/ytmod/youtubeapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	setupLogging()

	if err := run(); err != nil {
		slog.Error("moderator stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

// setupLogging configures the default logger from LOG_LEVEL and LOG_FORMAT.
// Logs go to stderr; stdout carries the session banner and per-message verdicts.
func setupLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	telemetry.Init()

	// Optional; requires OTEL_EXPORTER_OTLP_ENDPOINT
	shutdownTracing, err := telemetry.InitTracing(cfg.AppName, "1.0.0")
	if err != nil {
		return fmt.Errorf("tracing initialization failed: %w", err)
	}
	defer shutdownTracing()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sealer *crypto.Sealer
	if cfg.EncryptionKey != "" {
		if sealer, err = crypto.NewSealer(cfg.EncryptionKey); err != nil {
			return fmt.Errorf("token encryption: %w", err)
		}
	}
	store, err := oauth.NewFileTokenStore(cfg.AppName, cfg.TokensDir, sealer)
	if err != nil {
		return err
	}
	auth, err := youtubeapi.NewAuthenticator(cfg, store)
	if err != nil {
		return err
	}
	yt, err := auth.Client(ctx)
	if err != nil {
		return fmt.Errorf("youtube client: %w", err)
	}

	session, err := chat.DiscoverSession(ctx, yt)
	if err != nil {
		return err
	}
	fmt.Println("Selecting stream:")
	fmt.Println(session.Title)
	fmt.Println(session.Description)
	fmt.Println("Link: " + session.WatchURL())

	var database *sql.DB
	var audit moderation.AuditRecorder
	if cfg.DBDsn != "" {
		if database, err = openAuditDB(ctx, cfg.DBDsn); err != nil {
			return err
		}
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
		audit = &db.AuditStore{DB: database}
	} else {
		slog.Info("audit store disabled (DB_DSN not set)", slog.String("component", "db"))
	}

	mod := &moderation.Moderator{
		Session: session,
		Classifier: &moderation.ToxicityClassifier{
			BaseURL:    moderation.ToxicityEndpoint(cfg.ToxicHost, cfg.ToxicPort),
			HTTPClient: telemetry.HTTPClient(nil, cfg.ToxicTimeout),
		},
		Actor:  moderation.NewExecutor(yt),
		Reason: cfg.Reason,
		Out:    os.Stdout,
		Audit:  audit,
	}

	var opts []chat.Option
	if cfg.HasPollInterval {
		opts = append(opts, chat.WithFixedInterval(cfg.PollInterval))
	}
	poller := chat.NewPoller(chat.NewFetcher(yt), session, mod.Handle, opts...)

	startPprof()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// A fatal fetch error cancels gctx, which also stops the HTTP server.
		err := poller.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if cfg.HTTPAddr != "" {
		h := server.NewHandlers(database, session.LiveChatID, 0)
		g.Go(func() error {
			return server.Start(gctx, h, cfg.HTTPAddr)
		})
	}
	err = g.Wait()
	slog.Info("shutting down")
	return err
}

func openAuditDB(ctx context.Context, dsn string) (*sql.DB, error) {
	database, err := db.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(database); err != nil {
		slog.Warn("versioned migrations failed, attempting fallback to embedded SQL",
			slog.Any("err", err),
			slog.String("component", "db_migrate"))
		if err := db.Migrate(ctx, database); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("failed to migrate db (both versioned and embedded SQL failed): %w", err)
		}
	} else if v, dirty, err := db.GetMigrationVersion(database); err == nil {
		slog.Info("versioned migrations completed successfully",
			slog.Uint64("version", uint64(v)),
			slog.Bool("dirty", dirty),
			slog.String("component", "db_migrate"))
	}
	return database, nil
}

func startPprof() {
	if os.Getenv("ENABLE_PPROF") != "1" {
		return
	}
	pprofAddr := os.Getenv("PPROF_ADDR")
	if pprofAddr == "" {
		pprofAddr = "localhost:6060"
	}
	go func() {
		slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
		srv := &http.Server{
			Addr:              pprofAddr,
			Handler:           nil, // default mux exposes /debug/pprof
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		if err := srv.ListenAndServe(); err != nil {
			slog.Error("pprof server error", slog.Any("err", err))
		}
	}()
}
