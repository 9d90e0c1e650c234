package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stephly/internal/auth"
	"stephly/internal/services"
)

var (
	flagName     string
	flagEmail    string
	flagPassword string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user and print a session token",
	RunE:  runUserCreate,
}

func init() {
	userCreateCmd.Flags().StringVar(&flagName, "name", "", "Display name")
	userCreateCmd.Flags().StringVar(&flagEmail, "email", "", "Email address (required)")
	userCreateCmd.Flags().StringVar(&flagPassword, "password", "", "Password, at least 8 characters (required)")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}

func runUserCreate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	users := services.NewUserService(e.store, auth.NewIssuer(e.cfg.JWTSecret, e.cfg.JWTTTL), e.logger)
	sess, err := users.SignUp(ctx, flagName, flagEmail, flagPassword)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created user %d (%s)\n", sess.User.ID, sess.User.Email)
	fmt.Fprintf(out, "Token: %s\n", sess.Token)
	fmt.Fprintf(out, "Expires: %s\n", sess.ExpiresAt.Format("2006-01-02 15:04"))
	return nil
}
