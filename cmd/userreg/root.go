package main

import (
	"cmp"
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/PeterUlb/layeringtst/internal/config"
	"github.com/PeterUlb/layeringtst/internal/db"
	"github.com/PeterUlb/layeringtst/internal/logger"
	"github.com/PeterUlb/layeringtst/internal/repository"
	"github.com/PeterUlb/layeringtst/internal/service"
)

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "userreg",
		Short:        "Username registration backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newVersionCmd(),
		newServeCmd(a),
		newMigrateCmd(a),
		newRegisterCmd(a),
		newSeedCmd(a),
		newLookupCmd(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	l := logger.New()
	if err := l.Init(cfg.Log.Level); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	a.cfg = cfg
	a.log = l.Log
	return nil
}

// withService opens a short-lived pool, borrows one connection and hands it
// to fn together with a ready registration service.
func (a *app) withService(ctx context.Context, fn func(*service.RegistrationService, *db.Conn) error) error {
	pool, err := db.Open(ctx, a.cfg.DB)
	if err != nil {
		return err
	}
	defer func() {
		if err := pool.Close(); err != nil {
			a.log.Warn("close pool", zap.Error(err))
		}
	}()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	svc := service.NewRegistrationService(repository.NewPostgresUserRepository(a.log), a.log)
	return fn(svc, conn)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build metadata",
		Args:  cobra.NoArgs,
		// Overrides the root hook: printing the version needs no configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			printBuildInfo(cmd)
		},
	}
}

func printBuildInfo(cmd *cobra.Command) {
	cmd.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	cmd.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))
}
