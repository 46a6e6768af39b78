package main

import (
	"github.com/spf13/cobra"

	"github.com/PeterUlb/layeringtst/internal/db"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	for _, dir := range []db.Direction{db.Up, db.Down} {
		cmd.AddCommand(&cobra.Command{
			Use:   string(dir),
			Short: "Apply all " + string(dir) + " migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return db.Migrate(a.cfg.DB, dir, a.log)
			},
		})
	}
	return cmd
}
