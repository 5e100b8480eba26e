package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/taskpulse/internal/auth"
)

// prompter reads answers line by line from in, asking on out.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.ErrOrStderr()}
}

// ask returns value when set, otherwise prompts for it.
func (p *prompter) ask(label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLoginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long: `Sign in with username and password. Missing values are read from
standard input, so the password does not have to appear in shell history.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd)
			var err error
			if username, err = p.ask("Username", username); err != nil {
				return err
			}
			if password, err = p.ask("Password", password); err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				user, err := a.auth.Login(ctx, auth.Credentials{Username: strings.TrimSpace(username), Password: password})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", user.Username)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (prompted when empty)")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when empty)")
	return cmd
}

func newSignupCmd() *cobra.Command {
	var username, password, confirm string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd)
			var err error
			if username, err = p.ask("Username", username); err != nil {
				return err
			}
			if password, err = p.ask("Password", password); err != nil {
				return err
			}
			if confirm, err = p.ask("Confirm password", confirm); err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				user, err := a.auth.Signup(ctx, auth.Registration{
					Username:        strings.TrimSpace(username),
					Password:        password,
					ConfirmPassword: confirm,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Account created. Logged in as %s\n", user.Username)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (prompted when empty)")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when empty)")
	cmd.Flags().StringVar(&confirm, "confirm-password", "", "Password confirmation (prompted when empty)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.auth.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				user, err := a.auth.CurrentUser(ctx)
				if err != nil {
					return err
				}
				if user == nil {
					return errNotLoggedIn
				}
				fmt.Fprintln(cmd.OutOrStdout(), user.Username)
				return nil
			})
		},
	}
}
