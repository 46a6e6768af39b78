package main

import (
	"context"
	"errors"
	nethttp "net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/PeterUlb/layeringtst/internal/db"
	"github.com/PeterUlb/layeringtst/internal/repository"
	"github.com/PeterUlb/layeringtst/internal/server/handler/http"
	"github.com/PeterUlb/layeringtst/internal/service"
)

func newServeCmd(a *app) *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Starts the registration HTTP API. Usage:

	userreg serve --address 127.0.0.1:8080 --migrate
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printBuildInfo(cmd)
			return a.serve(cmd.Context(), migrateFirst)
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func (a *app) serve(ctx context.Context, migrateFirst bool) error {
	log := a.log

	if migrateFirst {
		if err := db.Migrate(a.cfg.DB, db.Up, log); err != nil {
			return err
		}
	}

	// Initialize PostgreSQL connection pool.
	pool, err := db.Open(ctx, a.cfg.DB)
	if err != nil {
		log.Error("cannot init database", zap.Error(err))
		return err
	}
	defer func() {
		if err := pool.Close(); err != nil {
			log.Warn("close pool", zap.Error(err))
		}
	}()

	db.StartStatsReporter(ctx, pool, a.cfg.DB.StatsInterval, log)

	userRepo := repository.NewPostgresUserRepository(log)
	registration := service.NewRegistrationService(userRepo, log)
	userHandler := &http.UserHandler{Service: registration, Pool: pool, Log: log.Named("handler.user")}
	router := http.NewRouter(userHandler, log)

	server := &nethttp.Server{
		Addr:              a.cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", zap.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, nethttp.ErrServerClosed) {
			return nil
		}
		log.Error("HTTP server failed", zap.Error(err))
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
