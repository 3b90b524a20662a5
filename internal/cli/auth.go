package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	errs "github.com/matzehuels/devscout/pkg/errors"
	"github.com/matzehuels/devscout/pkg/integrations/github"
	"github.com/matzehuels/devscout/pkg/session"
)

// loginTimeout bounds the whole device flow, including the user's wait.
const loginTimeout = 5 * time.Minute

// githubCommand creates the github command with subcommands.
func (c *CLI) githubCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "github",
		Short: "Sign in to GitHub for higher profile lookup limits",
		Long: `Authenticate with GitHub so profile enrichment runs against the
authenticated rate limit (5000 requests per hour instead of 60).

Login uses the device flow and needs an OAuth App client ID in
` + github.ClientIDEnv + `. A personal access token can be stored instead
with 'devscout github login --with-token < token.txt'.

The session is stored in ~/.config/devscout/sessions/`,
	}

	cmd.AddCommand(c.githubLoginCommand())
	cmd.AddCommand(c.githubLogoutCommand())
	cmd.AddCommand(c.githubWhoamiCommand())

	return cmd
}

func (c *CLI) githubLoginCommand() *cobra.Command {
	var withToken bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with GitHub",
		Long: `Start the GitHub device authorization flow.

You'll be given a code to enter at https://github.com/login/device.
With --with-token a personal access token is read from stdin instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sessions, err := openSessions()
			if err != nil {
				return err
			}
			if existing, _ := sessions.GetSession(ctx); existing != nil {
				printInfo("Already logged in as @%s", existing.Login)
				printDetail("Run 'devscout github logout' first to re-authenticate")
				return nil
			}

			var token string
			if withToken {
				token, err = readToken(cmd.InOrStdin())
			} else {
				token, err = c.deviceFlow(ctx)
			}
			if err != nil {
				return err
			}

			sess, err := storeLogin(ctx, sessions, token)
			if err != nil {
				return err
			}
			printSuccess("Logged in as @%s", sess.Login)
			c.Logger.Debug("session saved", "path", sessions.Path(), "expires", sess.ExpiresAt)
			return nil
		},
	}

	cmd.Flags().BoolVar(&withToken, "with-token", false, "read a personal access token from stdin")

	return cmd
}

func (c *CLI) githubLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored GitHub credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := openSessions()
			if err != nil {
				return err
			}
			if err := sessions.DeleteSession(cmd.Context()); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
			printSuccess("Logged out")
			return nil
		},
	}
}

func (c *CLI) githubWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the currently authenticated GitHub user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sessions, err := openSessions()
			if err != nil {
				return err
			}
			sess, err := sessions.GetSession(ctx)
			if err != nil {
				return err
			}
			if sess == nil {
				return errNotLoggedIn
			}

			ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			spinner := newSpinnerWithContext(ctx, "Verifying session...")
			spinner.Start()
			user, err := github.NewClient(sess.AccessToken).Viewer(ctx)
			if err != nil {
				spinner.StopWithError("Session invalid")
				return fmt.Errorf("verify session: %w", err)
			}
			spinner.Stop()

			printSuccess("GitHub Session")
			printKeyValue("Username", "@"+user.Login)
			for _, kv := range []struct {
				key string
				val *string
			}{{"Name", user.Name}, {"Email", user.Email}} {
				if kv.val != nil && *kv.val != "" {
					printKeyValue(kv.key, *kv.val)
				}
			}
			printKeyValue("Logged in", sess.CreatedAt.Format("Jan 2, 2006"))
			printKeyValue("Expires", sess.ExpiresAt.Format("Jan 2, 2006"))
			printFile(sessions.Path())
			return nil
		},
	}
}

func openSessions() (*session.CLIStore, error) {
	st, err := session.NewCLIStore("")
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return st, nil
}

// storeLogin resolves the token's owner and saves it as the CLI session.
func storeLogin(ctx context.Context, sessions *session.CLIStore, token string) (*session.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	user, err := github.NewClient(token).Viewer(ctx)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	sess, err := session.New(token, user.Login, session.DefaultTTL)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := sessions.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// readToken takes the first non-blank line of r.
func readToken(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if tok := strings.TrimSpace(sc.Text()); tok != "" {
			return tok, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return "", errs.New(errs.ErrCodeInvalidInput, "no token on stdin")
}

// deviceFlow walks the user through GitHub's device authorization and
// returns the granted access token.
func (c *CLI) deviceFlow(ctx context.Context) (string, error) {
	clientID := github.ClientIDFromEnv()
	if clientID == "" {
		printNextStep("Or store a personal access token", "devscout github login --with-token")
		return "", errs.New(errs.ErrCodeInvalidConfig, "%s is not set; device login needs an OAuth App client ID", github.ClientIDEnv)
	}
	oauth := github.NewOAuthClient(github.OAuthConfig{ClientID: clientID})

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	dc, err := oauth.RequestDeviceCode(ctx)
	if err != nil {
		return "", fmt.Errorf("request device code: %w", err)
	}

	printNewline()
	fmt.Fprintln(stdout, StyleTitle.Render("GitHub Device Authorization"))
	printNewline()
	printKeyValue("Code", StyleNumber.Render(dc.UserCode))
	printKeyValue("URL", StyleLink.Render(dc.VerificationURI))
	printNewline()
	if err := openBrowser(dc.VerificationURI); err != nil {
		c.Logger.Debug("open browser", "err", err)
		printDetail("Copy the URL above and paste it in your browser")
	} else {
		printDetail("Opening browser...")
	}
	printInline("Waiting for authorization...")

	tok, err := oauth.PollForToken(ctx, dc.DeviceCode, time.Duration(dc.Interval)*time.Second)
	printNewline()
	if err != nil {
		return "", fmt.Errorf("authorization failed: %w", err)
	}
	return tok.AccessToken, nil
}

// openBrowser launches the platform URL handler for http(s) URLs only.
func openBrowser(rawURL string) error {
	if err := errs.ValidateURL(rawURL); err != nil {
		return err
	}

	var name string
	var args []string
	switch runtime.GOOS {
	case "darwin":
		name = "open"
	case "linux", "freebsd", "openbsd":
		name = "xdg-open"
	case "windows":
		name, args = "rundll32", []string{"url.dll,FileProtocolHandler"}
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return exec.Command(name, append(args, rawURL)...).Start()
}
