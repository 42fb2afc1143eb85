package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/SWORDIntel/Z-FORGE/internal/config"
	"github.com/SWORDIntel/Z-FORGE/internal/discovery"
	"github.com/SWORDIntel/Z-FORGE/internal/server"
	"github.com/SWORDIntel/Z-FORGE/internal/zfs"
	"github.com/SWORDIntel/Z-FORGE/pkg/shell"
)

func main() {
	cfg := config.Load(os.Getenv("ZFORGE_CONFIG"))
	log := server.Logger(cfg)

	backend := zfs.NewCLI(shell.Exec{}, *log)
	engine := discovery.NewEngine(backend, discovery.NewClassifier(backend, *log), *log)
	srv := server.New(cfg, engine, *log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("initial pool discovery failed")
	}
	if _, err := srv.StartRediscovery(ctx); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.RediscoverCron).Msg("invalid rediscovery schedule")
	}

	httpSrv := &http.Server{Addr: cfg.Bind, Handler: srv.Router()}
	go func() {
		<-ctx.Done()
		_ = httpSrv.Shutdown(context.Background())
	}()

	log.Info().Str("addr", cfg.Bind).Msg("zforged listening")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server exited")
	}
}
