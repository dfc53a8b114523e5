package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yildizm/AttendSum/internal/apiclient"
	"github.com/yildizm/AttendSum/internal/session"
)

func newLoginCommand() *cobra.Command {
	var (
		email         string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		Long: `Sign in to the attendance service. The password is read without echo from
the terminal, or from stdin with --password-stdin. The token is stored in
session.token_file and picked up by every other attendsum process.`,
		Example: `  attendsum login --email principal@district12.org
  echo "$PASSWORD" | attendsum login --email principal@district12.org --password-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())

			if email == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Email: ")
				line, err := in.ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read email: %w", err)
				}
				email = strings.TrimSpace(line)
			}

			password, err := readPassword(cmd, in, passwordStdin)
			if err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			a.session.SetLoginSurface(true)
			defer a.session.SetLoginSurface(false)

			resp, err := a.client.Login(cmd.Context(), apiclient.Credentials{Email: email, Password: password})
			if err != nil {
				return fmt.Errorf("login failed: %s", apiclient.Message(err))
			}
			if err := a.session.SetToken(resp.Token); err != nil {
				return fmt.Errorf("failed to store token: %w", err)
			}

			name := resp.User.Name
			if name == "" {
				name = resp.User.Email
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Signed in as %s\n", GetEmoji("success"), name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

// readPassword reads without echo from a terminal, or one line otherwise
func readPassword(cmd *cobra.Command, in *bufio.Reader, fromStdin bool) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && !fromStdin && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.session.Clear(); err != nil {
				return fmt.Errorf("failed to clear token: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Signed out\n", GetEmoji("door"))
			return nil
		},
	}
}

func newWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.session.Authenticated() {
				return fmt.Errorf("not signed in, run attendsum login")
			}

			user, err := a.client.Me(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load account: %s", apiclient.Message(err))
			}
			claims, claimsErr := a.session.Claims()

			if wantJSON() {
				out := map[string]any{"user": user}
				if claimsErr == nil {
					out["claims"] = claims
				}
				return writeJSON(cmd, out)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s\n", GetEmoji("key"), user.Email)
			if user.Name != "" {
				fmt.Fprintf(w, "   Name: %s\n", user.Name)
			}
			if user.Role != "" {
				fmt.Fprintf(w, "   Role: %s\n", user.Role)
			}
			if claimsErr == nil {
				writeClaims(w, claims, time.Now())
			} else if isVerbose() {
				a.log.Debug("token claims unavailable: %v", claimsErr)
			}
			return nil
		},
	}
}

func writeClaims(w io.Writer, c session.Claims, now time.Time) {
	if !c.IssuedAt.IsZero() {
		fmt.Fprintf(w, "   Issued: %s\n", c.IssuedAt.Format(GetGlobalConfig().Output.TimestampFormat))
	}
	if c.ExpiresAt.IsZero() {
		return
	}
	if c.Expired(now) {
		fmt.Fprintf(w, "   %s Token expired %s ago\n", GetEmoji("warning"), now.Sub(c.ExpiresAt).Round(time.Minute))
		return
	}
	fmt.Fprintf(w, "   Expires in %s\n", c.ExpiresAt.Sub(now).Round(time.Minute))
}

func newTokenCommand() *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect or set the session token directly",
	}

	tokenCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			token := a.session.Token()
			if token == "" {
				return fmt.Errorf("no token stored in %s", a.store.Path())
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	})

	tokenCmd.AddCommand(&cobra.Command{
		Use:   "set <token>",
		Short: "Store a token obtained elsewhere",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			token := strings.TrimSpace(args[0])
			if token == "" {
				return fmt.Errorf("empty token")
			}
			if err := a.session.SetToken(token); err != nil {
				return fmt.Errorf("failed to store token: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Token stored in %s\n", GetEmoji("success"), a.store.Path())
			return nil
		},
	})

	tokenCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.session.Clear(); err != nil {
				return fmt.Errorf("failed to clear token: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Token cleared\n", GetEmoji("success"))
			return nil
		},
	})

	return tokenCmd
}
