package github

// User is a GitHub account as returned by /users/{login} and /user.
// Nullable fields are pointers so an undisclosed value stays distinct from
// an empty one.
type User struct {
	ID              int64   `json:"id"`
	Login           string  `json:"login"`
	Name            *string `json:"name"`
	AvatarURL       *string `json:"avatar_url"`
	HTMLURL         *string `json:"html_url"`
	Company         *string `json:"company"`
	Blog            *string `json:"blog"`
	Location        *string `json:"location"`
	Email           *string `json:"email"`
	Bio             *string `json:"bio"`
	TwitterUsername *string `json:"twitter_username"`
	Type            string  `json:"type"`
	PublicRepos     *int    `json:"public_repos"`
	PublicGists     *int    `json:"public_gists"`
	Followers       *int    `json:"followers"`
	Following       *int    `json:"following"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// RepoItem is one hit of /search/repositories.
type RepoItem struct {
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	HTMLURL     string `json:"html_url"`
	Homepage    string `json:"homepage"`
	Stars       int    `json:"stargazers_count"`
	Language    string `json:"language"`
	UpdatedAt   string `json:"updated_at"`
	Owner       Owner  `json:"owner"`
}

// Owner is the account owning a repository.
type Owner struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	Type      string `json:"type"` // "User" or "Organization"
}

type repoSearchResponse struct {
	TotalCount int        `json:"total_count"`
	Items      []RepoItem `json:"items"`
}

// OAuthConfig holds OAuth configuration for the device flow.
type OAuthConfig struct {
	ClientID string
	Scopes   []string

	// BaseURL overrides https://github.com for tests.
	BaseURL string
}

// OAuthToken represents an OAuth access token response.
type OAuthToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}
