package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/bingo-backend/internal/config"
	"github.com/DoyleJ11/bingo-backend/internal/game"
	"github.com/DoyleJ11/bingo-backend/internal/httpapi"
	"github.com/DoyleJ11/bingo-backend/internal/logger"
	"github.com/DoyleJ11/bingo-backend/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	zlog, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		log.Fatal(err)
	}
	os.Exit(serve(cfg, zlog))
}

// serve runs the server and flushes the logger before handing back an exit
// code, since os.Exit skips deferred calls.
func serve(cfg *config.Config, zlog *zap.Logger) int {
	err := run(cfg, zlog)
	if err != nil {
		zlog.Error("server stopped", zap.Error(err))
	}
	_ = zlog.Sync()
	if err != nil {
		return 1
	}
	return 0
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := game.NewService(st, zlog, game.Options{
		MinPlayers:   cfg.Game.MinPlayers,
		CodeAttempts: cfg.Game.CodeAttempts,
	})

	// Build the router *with* the service injected
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           httpapi.SetupRoutes(svc, zlog),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zlog.Info("listening", zap.String("addr", cfg.Server.Addr), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		zlog.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(cfg config.StoreConfig) (store.Store, error) {
	if cfg.Driver == "memory" {
		// outlives the signal context so in-flight requests can finish
		return store.NewMemory(context.Background()), nil
	}
	g, err := store.OpenGorm(cfg.Driver, cfg.DSN, cfg.LogMode)
	if err != nil {
		return nil, err
	}
	return g, nil
}
