package auth

import (
	"errors"
	"fmt"

	"github.com/crucial707/itam/cmd/cli/client"
	"github.com/crucial707/itam/cmd/cli/config"
	"github.com/crucial707/itam/cmd/cli/output"
	"github.com/crucial707/itam/internal/models"
	"github.com/spf13/cobra"
)

// Commands returns login and logout.
func Commands() []*cobra.Command {
	return []*cobra.Command{loginCmd(), logoutCmd()}
}

type tokenResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// loginCmd authenticates and stores the token for later commands.
func loginCmd() *cobra.Command {
	var username, email, password, role string
	var signup bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in through the gateway",
		Long:  "Authenticate against the credential service and store the bearer token for subsequent commands.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" && email == "" {
				return errors.New("--username or --email is required")
			}
			if password == "" {
				return errors.New("--password is required")
			}

			c, err := client.New(false)
			if err != nil {
				return err
			}

			var resp tokenResponse
			if signup {
				body := map[string]string{"username": username, "email": email, "password": password, "role": role}
				err = c.Do(cmd.Context(), "POST", "/auth/signup", body, &resp)
			} else {
				body := map[string]string{"username": username, "email": email, "password": password}
				err = c.Do(cmd.Context(), "POST", "/auth/login", body, &resp)
			}
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if resp.Token == "" {
				return errors.New("login succeeded but no token returned")
			}
			if err := config.SaveToken(resp.Token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			if output.WantJSON(cmd) {
				return output.PrintJSON(cmd.OutOrStdout(), resp.User)
			}
			if resp.User != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s).\n", resp.User.Username, resp.User.Role)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Login successful. Token stored locally.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "username to authenticate as")
	cmd.Flags().StringVar(&email, "email", "", "email to authenticate as (alternative to --username)")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().BoolVar(&signup, "signup", false, "create the account before logging in")
	cmd.Flags().StringVar(&role, "role", "", "role for --signup (admin or employee)")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ClearToken(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}
