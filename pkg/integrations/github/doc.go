// Package github provides an HTTP client for the GitHub API.
//
// # Overview
//
// Three concerns live here:
//
//   - [Client.FetchUser]: public profile of an account, used to enrich
//     candidates with followers, location, bio and company
//   - [Client.SearchRepositories]: repository search sorted by stars, used
//     as the PyPI stand-in (with a language:python qualifier) and as a
//     direct GitHub source
//   - [OAuthClient]: device-flow login for the CLI
//
// # Usage
//
//	client := github.NewClient(token)
//	user, err := client.FetchUser(ctx, "octocat")
//	if errors.Is(err, integrations.ErrNotFound) {
//	    // account does not exist
//	}
//
// # Authentication
//
// A token is optional but matters a great deal: unauthenticated clients get
// 60 requests per hour, authenticated ones 5000. A 403 or 429 surfaces as
// *errors.RateLimitError so callers can tell the user to sign in.
package github
