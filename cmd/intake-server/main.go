package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"orderintake/internal/catalog"
	"orderintake/internal/config"
	"orderintake/internal/logger"
	"orderintake/internal/pipeline"
	"orderintake/internal/server"
	"orderintake/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	lg, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer lg.Sync()

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	store, err := buildCatalogStore(db, cfg, lg)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	intake := pipeline.NewIntakeService(cfg, store)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.New(cfg, lg, intake, store).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		lg.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	lg.Info("server stopped")
	return nil
}

func buildCatalogStore(db *storage.DB, cfg config.Config, lg *zap.Logger) (*catalog.Store, error) {
	products, err := db.ListProducts()
	if err != nil {
		return nil, err
	}
	source := "database"
	if len(products) == 0 {
		products, err = catalog.LoadCSV(cfg.CatalogCSVPath)
		if err != nil {
			return nil, err
		}
		source = "csv"
	}

	store, err := catalog.NewStore(products)
	if err != nil {
		return nil, err
	}
	lg.Info("catalog loaded", zap.String("source", source), zap.Int("products", len(products)))
	return store, nil
}
