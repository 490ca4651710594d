package main

import (
	"fmt"

	"catalog_system/internal/accounts"
	"catalog_system/internal/domain"

	"github.com/spf13/cobra"
)

// catalogctl seed-users
var seedUsersCmd = &cobra.Command{
	Use:   "seed-users",
	Short: "Create or reset the demo accounts, one per role",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, database, err := bootDB()
		if err != nil {
			return err
		}
		for _, seed := range accounts.DefaultSeeds {
			if _, err := accounts.Upsert(cmd.Context(), database, seed); err != nil {
				return fmt.Errorf("seed %s: %w", seed.Username, err)
			}
			fmt.Printf("%-8s %s\n", seed.Username, seed.Role)
		}
		return nil
	},
}

// catalogctl set-role <username> <role>
var setRoleCmd = &cobra.Command{
	Use:   "set-role <username> <role>",
	Short: "Assign a role to an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := domain.ParseRole(args[1])
		if err != nil {
			return err
		}
		_, database, err := bootDB()
		if err != nil {
			return err
		}
		if _, err := accounts.SetRoleByUsername(cmd.Context(), database, args[0], role); err != nil {
			return err
		}
		fmt.Printf("%s is now %s\n", args[0], role)
		return nil
	},
}
