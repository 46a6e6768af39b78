package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/PeterUlb/layeringtst/internal/db"
	"github.com/PeterUlb/layeringtst/internal/service"
)

func newRegisterCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "register <username>",
		Short: "Register a single username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			return a.withService(cmd.Context(), func(svc *service.RegistrationService, conn *db.Conn) error {
				n, err := svc.RegisterUser(cmd.Context(), conn, username)
				if errors.Is(err, service.ErrUsernameAlreadyExists) {
					return fmt.Errorf("%q: %w", username, service.ErrUsernameAlreadyExists)
				}
				if err != nil {
					return err
				}
				cmd.Printf("registered %q (%d row)\n", username, n)
				return nil
			})
		},
	}
}

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <amount>",
		Short: "Register amount generated usernames in one transaction",
		Args: cobra.MatchAll(cobra.ExactArgs(1), func(cmd *cobra.Command, args []string) error {
			_, err := parseAmount(args[0])
			return err
		}),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, _ := parseAmount(args[0])
			return a.withService(cmd.Context(), func(svc *service.RegistrationService, conn *db.Conn) error {
				n, err := svc.RegisterUsers(cmd.Context(), conn, amount)
				if err != nil {
					return err
				}
				cmd.Printf("registered %d users\n", n)
				return nil
			})
		},
	}
}

func newLookupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <username>",
		Short: "Look up a registered username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			return a.withService(cmd.Context(), func(svc *service.RegistrationService, conn *db.Conn) error {
				user, err := svc.GetUser(cmd.Context(), conn, username)
				if err != nil {
					return err
				}
				if user == nil {
					return fmt.Errorf("user %q not found", username)
				}
				cmd.Printf("%d\t%s\n", user.ID, user.Username)
				return nil
			})
		},
	}
}

func parseAmount(s string) (uint64, error) {
	amount, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: must be a non-negative integer", s)
	}
	return amount, nil
}
