// ABOUTME: Account and conversation subcommands of the zeeking CLI
// ABOUTME: Each command runs one controller operation and prints the result

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/2389/zeeking/internal/auth"
	"github.com/2389/zeeking/internal/client"
	"github.com/2389/zeeking/internal/conversation"
)

// displayError carries the text shown to the user for err.
type displayError struct {
	msg string
	err error
}

func (e *displayError) Error() string { return e.msg }
func (e *displayError) Unwrap() error { return e.err }

// friendly replaces err's text with what the user should see.
func friendly(err error) error {
	if err == nil {
		return nil
	}

	var authErr *auth.AuthError
	var opErr *conversation.OpError
	switch {
	case errors.As(err, &authErr):
		return &displayError{msg: authErr.Message, err: err}
	case errors.Is(err, client.ErrAuthExpired):
		return &displayError{msg: client.AuthExpiredMessage, err: err}
	case errors.As(err, &opErr):
		return &displayError{msg: opErr.Message(), err: err}
	}

	var netErr *client.NetworkError
	var apiErr *client.APIError
	if errors.As(err, &netErr) || errors.As(err, &apiErr) {
		return &displayError{msg: client.UserMessage(err, err.Error()), err: err}
	}
	return err
}

func newLoginCmd(c *cli) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := c.valueOr(email, "Email: ")
			if err != nil {
				return err
			}
			password, err := c.readPassword("Password: ")
			if err != nil {
				return err
			}

			if err := c.ctl.Login(cmd.Context(), auth.Credentials{Email: email, Password: password}); err != nil {
				return friendly(err)
			}
			c.success("Logged in as %s", email)
			c.dim("%s", c.ctl.Usage())
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func newRegisterCmd(c *cli) *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := c.valueOr(name, "Full name: ")
			if err != nil {
				return err
			}
			email, err := c.valueOr(email, "Email: ")
			if err != nil {
				return err
			}
			password, err := c.readPassword("Password: ")
			if err != nil {
				return err
			}
			confirm, err := c.readPassword("Confirm password: ")
			if err != nil {
				return err
			}

			msg, err := c.ctl.Register(cmd.Context(), auth.Profile{
				FullName:        name,
				Email:           email,
				Password:        password,
				ConfirmPassword: confirm,
			})
			if err != nil {
				return friendly(err)
			}
			c.success("%s", msg)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "full name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.ctl.Logout(cmd.Context())
		},
	}
}

func newForgotPasswordCmd(c *cli) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a one-time password and set a new password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			email, err := c.valueOr(email, "Email: ")
			if err != nil {
				return err
			}

			req, err := c.ctl.ForgotPassword(ctx, email)
			if err != nil {
				return friendly(err)
			}
			c.success("%s", req.Message)
			if req.OTP != "" {
				c.dim("Development OTP: %s", req.OTP)
			}

			otp, err := c.valueOr("", "OTP: ")
			if err != nil {
				return err
			}
			if err := c.ctl.VerifyOTP(ctx, email, otp); err != nil {
				return friendly(err)
			}
			return c.resetPassword(cmd, email, otp)
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func newResetPasswordCmd(c *cli) *cobra.Command {
	var email, otp string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with a one-time password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := c.valueOr(email, "Email: ")
			if err != nil {
				return err
			}
			otp, err := c.valueOr(otp, "OTP: ")
			if err != nil {
				return err
			}
			return c.resetPassword(cmd, email, otp)
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVar(&otp, "otp", "", "one-time password from the email")
	return cmd
}

func (c *cli) resetPassword(cmd *cobra.Command, email, otp string) error {
	password, err := c.readPassword("New password: ")
	if err != nil {
		return err
	}
	confirm, err := c.readPassword("Confirm new password: ")
	if err != nil {
		return err
	}

	msg, err := c.ctl.ResetPassword(cmd.Context(), auth.Reset{
		Email:           email,
		OTP:             otp,
		NewPassword:     password,
		ConfirmPassword: confirm,
	})
	if err != nil {
		return friendly(err)
	}
	c.success("%s", msg)
	return nil
}

func newStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show token usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(); err != nil {
				return err
			}
			snap, err := c.ctl.RefreshUsage(cmd.Context())
			if err != nil {
				return friendly(err)
			}
			fmt.Fprintln(c.out, snap.Daily())
			fmt.Fprintln(c.out, snap.Total())
			return nil
		},
	}
}

func newChatsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List, show and delete saved conversations",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(); err != nil {
				return err
			}
			summaries, err := c.ctl.RefreshConversations(cmd.Context())
			if err != nil {
				return friendly(err)
			}
			c.printSummaries(summaries)
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(); err != nil {
				return err
			}
			return friendly(c.ctl.Export(cmd.Context(), c.out, "", conversation.ID(args[0])))
		},
	}

	var yes bool
	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(); err != nil {
				return err
			}
			ctx := cmd.Context()
			if yes {
				ctx = withoutConfirm(ctx)
			}
			ok, err := c.ctl.Delete(ctx, conversation.ID(args[0]))
			if err != nil {
				return friendly(err)
			}
			if ok {
				c.success("Deleted chat %s", args[0])
			}
			return nil
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	cmd.AddCommand(list, show, del)
	return cmd
}

func (c *cli) printSummaries(summaries []conversation.Summary) {
	if len(summaries) == 0 {
		c.dim("(no chats yet)")
		return
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tMESSAGES\tUPDATED")
	for _, s := range summaries {
		updated := "-"
		if !s.UpdatedAt.IsZero() {
			updated = s.UpdatedAt.Local().Format("Jan 02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.ID, truncate(s.Title, 40), s.MessageCount, updated)
	}
	w.Flush()
}

func newExportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "export <id> <file>",
		Short: "Write a conversation to a .html or .txt file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(); err != nil {
				return err
			}
			return c.exportTo(cmd.Context(), conversation.ID(args[0]), args[1])
		},
	}
}

func (c *cli) exportTo(ctx context.Context, id conversation.ID, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := c.ctl.Export(ctx, f, path, id); err != nil {
		_ = f.Close()
		return friendly(err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	c.success("Saved %s", path)
	return nil
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
