package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/devscout/pkg/candidate"
	errs "github.com/matzehuels/devscout/pkg/errors"
)

// profileCommand creates the profile command.
func (c *CLI) profileCommand() *cobra.Command {
	var refresh, noCache bool

	cmd := &cobra.Command{
		Use:   "profile <username>",
		Short: "Show the GitHub profile for a username",
		Long: `Look up a GitHub profile the same way search enrichment does.

Profiles are cached for the configured freshness window (24h by default).
Use --refresh to drop the cached entry first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runProfile(cmd.Context(), args[0], refresh, noCache)
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore the cached profile")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "skip the profile cache")

	return cmd
}

func (c *CLI) runProfile(ctx context.Context, username string, refresh, noCache bool) error {
	if err := errs.ValidateUsername(username); err != nil {
		return err
	}

	svc, err := c.newServices(ctx, noCache)
	if err != nil {
		return err
	}
	defer svc.Close()

	if refresh {
		if err := svc.profiles.Invalidate(ctx, username); err != nil {
			c.Logger.Debug("invalidate failed", "username", username, "err", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	spinner := newSpinnerWithContext(ctx, "Fetching profile...")
	spinner.Start()
	p, err := svc.profiles.Get(ctx, username)
	spinner.Stop()
	if err != nil {
		if errs.IsRateLimit(err) {
			printWarning("%s", errs.UserMessage(err))
			printNextStep("Sign in for higher GitHub limits", "devscout github login")
		}
		return err
	}
	if p == nil {
		printInfo("No GitHub profile found for %s", username)
		return nil
	}

	printProfile(p)
	return nil
}

func printProfile(p *candidate.Profile) {
	printSuccess("@%s", p.Login)
	optional := func(key string, v *string) {
		if v != nil && *v != "" {
			printKeyValue(key, *v)
		}
	}
	count := func(key string, n *int) {
		if n != nil {
			printKeyValue(key, StyleNumber.Render(strconv.Itoa(*n)))
		}
	}

	optional("Name", p.Name)
	optional("Company", p.Company)
	optional("Location", p.Location)
	optional("Bio", p.Bio)
	optional("Blog", p.Blog)
	if p.TwitterUsername != nil && *p.TwitterUsername != "" {
		printKeyValue("Twitter", "@"+*p.TwitterUsername)
	}
	count("Repos", p.PublicRepos)
	count("Followers", p.Followers)
	count("Following", p.Following)
	if p.HTMLURL != nil {
		printKeyValue("Profile", StyleLink.Render(*p.HTMLURL))
	} else {
		printKeyValue("Profile", StyleLink.Render(fmt.Sprintf("https://github.com/%s", p.Login)))
	}
}
