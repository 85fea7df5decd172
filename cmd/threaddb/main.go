package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"threaddb/internal/expiry"
	"threaddb/pkg/api"
	"threaddb/pkg/audit"
	"threaddb/pkg/auth"
	"threaddb/pkg/banner"
	"threaddb/pkg/config"
	"threaddb/pkg/logger"
	"threaddb/pkg/shutdown"
	"threaddb/pkg/state"
	"threaddb/pkg/store"
	"threaddb/pkg/telemetry"
	"threaddb/pkg/utils"
	"threaddb/pkg/validation"
)

// build metadata, set via ldflags at release time
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load(".env")
	addrVal, dbVal, cfgVal, setFlags := config.ParseCommandFlags()

	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])
	cfg, envUsed, err := config.LoadEffective(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// explicit flags win over env and file
	addr := cfg.Addr()
	if setFlags["addr"] {
		addr = addrVal
	}
	dbPath := dbVal
	if !setFlags["db"] && cfg.Storage.DBPath != "" {
		dbPath = cfg.Storage.DBPath
	}

	logger.InitWithLevel(cfg.Logging.Level, cfg.Logging.Format)
	defer logger.Sync()

	validation.SetLimits(validation.Limits{
		MaxBodyLen: cfg.Limits.MaxBodyLen,
		MaxNameLen: cfg.Limits.MaxNameLen,
		MaxMembers: cfg.Limits.MaxMembers,
	})

	if err := state.EnsureStateDirs(dbPath); err != nil {
		shutdown.Abort("prepare state directories", err, dbPath)
	}
	if err := store.Open(state.PathsVar.Store); err != nil {
		shutdown.Abort("open thread store", err, dbPath)
	}
	if err := audit.Init(state.PathsVar.Audit); err != nil {
		shutdown.Abort("open audit journal", err, dbPath)
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	stopExpiry, err := expiry.Start(ctx, expiry.Options{
		Enabled:    cfg.Expiry.Enabled,
		Cron:       cfg.Expiry.Cron,
		RequestTTL: cfg.RequestTTL(),
	})
	if err != nil {
		shutdown.Abort("start expiry sweeper", err, dbPath)
	}
	defer stopExpiry()

	// config sources summary for the banner
	var srcs []string
	if len(setFlags) > 0 {
		srcs = append(srcs, "flags")
	}
	if envUsed {
		srcs = append(srcs, "env")
	}
	if _, err := config.Load(cfgPath); err == nil {
		srcs = append(srcs, "config")
	}
	verStr := version
	if commit != "none" {
		verStr += " (" + commit + ")"
	}
	if buildDate != "unknown" {
		verStr += " @ " + buildDate
	}
	banner.Print(cfg, addr, dbPath, strings.Join(srcs, ", "), verStr)

	mux := http.NewServeMux()
	mux.Handle("/", api.Handler(cfg.Identity.LocalID))

	// Readiness probe: unlike /healthz this fails until the store is open.
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !store.Ready() {
			utils.JSONError(w, http.StatusServiceUnavailable, "store not ready")
			return
		}
		_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	// Swagger UI at /docs, backed by the document served at /openapi.yaml.
	mux.Handle("/docs/", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))
	mux.Handle("/openapi.yaml", http.FileServer(http.Dir("./docs")))
	mux.Handle("/metrics", promhttp.Handler())

	secCfg := auth.SecConfig{
		AllowedOrigins: cfg.Security.CORS.AllowedOrigins,
		RPS:            cfg.Security.RateLimit.RPS,
		Burst:          cfg.Security.RateLimit.Burst,
		IPWhitelist:    cfg.Security.IPWhitelist,
		Keys:           cfg.APIKeySet(),
		AllowUnauth:    cfg.Security.APIKeys.AllowUnauth,
	}
	wrapped := telemetry.Middleware(auth.Middleware(secCfg)(mux))

	srv := &http.Server{
		Addr:              addr,
		Handler:           wrapped,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		cert, key := cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile
		if cert != "" && key != "" {
			errc <- srv.ListenAndServeTLS(cert, key)
		} else {
			errc <- srv.ListenAndServe()
		}
	}()

	select {
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			shutdown.Abort("http server", err, dbPath)
		}
	case <-ctx.Done():
		logger.Log.Info("shutdown_started")
		shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shCancel()
		if err := srv.Shutdown(shCtx); err != nil {
			logger.Log.Error("http_shutdown_error", zap.Error(err))
		}
	}

	stopExpiry()
	if err := audit.Close(); err != nil {
		logger.Log.Error("audit_close_error", zap.Error(err))
	}
	if err := store.Close(); err != nil {
		logger.Log.Error("store_close_error", zap.Error(err))
	}
	logger.Log.Info("shutdown_complete")
}
