package npm

// SearchResponse is the body of GET /-/v1/search.
type SearchResponse struct {
	Objects []SearchObject `json:"objects"`
	Total   int            `json:"total"`
	Time    string         `json:"time"`
}

// SearchObject is one search hit.
type SearchObject struct {
	Package     Package `json:"package"`
	Score       Score   `json:"score"`
	SearchScore float64 `json:"searchScore"`
}

// Package is the package summary embedded in a search hit.
type Package struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Date        string   `json:"date"` // RFC 3339, may be empty
	Links       Links    `json:"links"`
	Author      *Author  `json:"author"`
	Publisher   *User    `json:"publisher"`
	Maintainers []User   `json:"maintainers"`
}

// Links are the URLs npm publishes for a package.
type Links struct {
	NPM        string `json:"npm"`
	Homepage   string `json:"homepage"`
	Repository string `json:"repository"`
	Bugs       string `json:"bugs"`
}

// Author is the free-form author field of package.json.
type Author struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	URL   string `json:"url"`
}

// User is an npm account.
type User struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Score is npm's score triple plus the final blended value.
type Score struct {
	Final  float64     `json:"final"`
	Detail ScoreDetail `json:"detail"`
}

// ScoreDetail holds the per-dimension scores in [0,1].
type ScoreDetail struct {
	Quality     float64 `json:"quality"`
	Popularity  float64 `json:"popularity"`
	Maintenance float64 `json:"maintenance"`
}
