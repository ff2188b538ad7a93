package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"vpfs.org/internal/audit"
	"vpfs.org/internal/auth"
	"vpfs.org/internal/config"
	"vpfs.org/internal/fleet"
	"vpfs.org/internal/httpapi"
	"vpfs.org/internal/obs"
	"vpfs.org/internal/store"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	log := obs.Logger()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if err := obs.SetLevel(cfg.Log.Level); err != nil {
		log.WithError(err).Fatal("log level")
	}
	if cfg.App.Version != "dev" {
		version = cfg.App.Version
	}
	if cfg.App.Commit != "unknown" {
		commit = cfg.App.Commit
	}
	obs.Init()
	obs.InitBuildInfo(version, commit)

	db, err := store.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		log.WithError(err).Fatal("open db")
	}
	defer db.Close()

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	if err := store.Migrate(bootCtx, db, cfg.DB.Driver); err != nil {
		log.WithError(err).Fatal("migrate")
	}

	tokens, err := auth.NewTokens(cfg.Auth.JWTSecret, auth.WithTokenTTL(cfg.Auth.TokenTTL))
	if err != nil {
		log.WithError(err).Fatal("token issuer")
	}
	svc := auth.NewService(auth.NewSQLUsers(db), tokens,
		auth.WithLoginLimit(cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginWindow))
	created, err := svc.EnsureAdmin(bootCtx, cfg.Seed.AdminPassword)
	if err != nil {
		log.WithError(err).Fatal("seed admin")
	}
	cancelBoot()
	if created {
		_ = audit.LogEvent(context.Background(), "seed.admin_created", logrus.Fields{"username": auth.AdminUsername})
	}

	logs := audit.NewSQLStore(db)
	recorder := audit.NewRecorder(logs, audit.WithWriteTimeout(cfg.Audit.WriteTimeout))
	api := httpapi.New(httpapi.Deps{
		DB:       db,
		Auth:     svc,
		Aircraft: store.NewRecords(db, fleet.Aircraft),
		Pilots:   store.NewRecords(db, fleet.Pilot),
		Audit:    audit.NewEngine(logs),
		Recorder: recorder,
	}, httpapi.Options{
		Version:        version,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		SecureCookies:  cfg.SecureCookies(),
		TrustProxy:     cfg.HTTP.TrustProxy,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := httpapi.NewHealthServer(httpapi.ReadyProbe{DB: db})
	grpcServer := grpc.NewServer()
	health.Register(grpcServer)
	go health.Run(ctx, 10*time.Second)

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		log.WithError(err).Fatal("grpc listen")
	}
	go func() {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.WithError(err).Error("grpc serve")
		}
	}()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen")
		}
	}()
	log.WithFields(logrus.Fields{
		"version": version,
		"http":    cfg.HTTP.Addr,
		"grpc":    cfg.GRPC.Addr,
		"driver":  cfg.DB.Driver,
		"env":     cfg.App.Env,
	}).Info("vpfs-api started")

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	health.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	grpcServer.GracefulStop()
	recorder.Wait()
	log.Info("stopped")
}
