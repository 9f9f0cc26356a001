package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/flashdeck/internal/auth"
	"github.com/sakif/flashdeck/internal/service"
)

var (
	createUsername string
	createPassword string
	createAdmin    bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts without running the server",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	Long:  "Create an account. This is the only way to create the first admin.",
	Args:  cobra.NoArgs,
	RunE:  runUserCreate,
}

func init() {
	userCreateCmd.Flags().StringVar(&createUsername, "username", "", "Username (required)")
	userCreateCmd.Flags().StringVar(&createPassword, "password", "", "Password (required)")
	userCreateCmd.Flags().BoolVar(&createAdmin, "admin", false, "Grant admin rights")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg.Log)

	store, err := openStore(cmd.Context(), cfg.Database, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	// No tokens are issued here, so no signing secret is needed.
	users := service.NewUserService(store, auth.NewPasswordService(cfg.Auth.BcryptCost), nil, logger)
	user, err := users.Create(cmd.Context(), createUsername, createPassword, createAdmin)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created user %q (id: %s, admin: %t)\n", user.Username, user.ID, user.Admin)
	return nil
}
