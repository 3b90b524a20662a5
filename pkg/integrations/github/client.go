package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	errs "github.com/matzehuels/devscout/pkg/errors"
	"github.com/matzehuels/devscout/pkg/integrations"
)

// DefaultBaseURL is the public GitHub REST API.
const DefaultBaseURL = "https://api.github.com"

// Client provides access to the GitHub REST API for profile enrichment and
// repository search. Requests are authenticated when a token is supplied.
type Client struct {
	*integrations.Client
	baseURL string
	token   string
}

// NewClient creates a GitHub API client against [DefaultBaseURL].
// Pass an empty string for token to use unauthenticated requests (lower rate limits).
func NewClient(token string) *Client {
	return New(DefaultBaseURL, token)
}

// New creates a GitHub API client against baseURL.
func New(baseURL, token string) *Client {
	headers := map[string]string{"Accept": "application/vnd.github.v3+json"}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return &Client{
		Client:  integrations.NewClient(headers),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
	}
}

// Authenticated reports whether requests carry a token.
func (c *Client) Authenticated() bool { return c.token != "" }

// FetchUser retrieves the public profile for login. A missing account
// returns an error matching [integrations.ErrNotFound]; quota exhaustion
// returns *errors.RateLimitError.
func (c *Client) FetchUser(ctx context.Context, login string) (*User, error) {
	if err := errs.ValidateUsername(login); err != nil {
		return nil, err
	}
	var u User
	if err := c.Get(ctx, c.baseURL+"/users/"+url.PathEscape(login), &u); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return nil, fmt.Errorf("github user %s: %w", login, err)
		}
		return nil, err
	}
	return &u, nil
}

// Viewer retrieves the account the token belongs to.
func (c *Client) Viewer(ctx context.Context) (*User, error) {
	if !c.Authenticated() {
		return nil, errs.New(errs.ErrCodeUnauthorized, "not signed in to GitHub")
	}
	var u User
	if err := c.Get(ctx, c.baseURL+"/user", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// RepoQuery parameterizes a repository search.
type RepoQuery struct {
	Text     string // free-text terms
	Language string // optional language: qualifier
	PerPage  int
	Page     int // 1-based
}

// SearchRepositories runs one page of a repository search sorted by stars.
func (c *Client) SearchRepositories(ctx context.Context, q RepoQuery) ([]RepoItem, error) {
	var data repoSearchResponse
	if err := c.Get(ctx, c.SearchURL(q), &data); err != nil {
		return nil, err
	}
	return data.Items, nil
}

// SearchURL builds the request URL for [Client.SearchRepositories].
func (c *Client) SearchURL(q RepoQuery) string {
	text := strings.TrimSpace(q.Text)
	if q.Language != "" {
		text += " language:" + q.Language
	}
	params := url.Values{}
	params.Set("q", strings.TrimSpace(text))
	params.Set("sort", "stars")
	params.Set("order", "desc")
	params.Set("per_page", strconv.Itoa(max(q.PerPage, 1)))
	params.Set("page", strconv.Itoa(max(q.Page, 1)))
	return c.baseURL + "/search/repositories?" + params.Encode()
}
