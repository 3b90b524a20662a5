package errors

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// maxQueryLength bounds a free-text skill query.
const maxQueryLength = 256

// ValidateQuery validates a free-text skill query for safety.
//
// An empty or whitespace-only query is valid: the discovery pipeline treats
// it as a no-op rather than an error. Rejected inputs:
//   - More than 256 characters
//   - Control characters or null bytes
func ValidateQuery(q string) error {
	if len(q) > maxQueryLength {
		return New(ErrCodeInvalidInput, "query too long (max %d characters)", maxQueryLength)
	}
	for _, r := range q {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "query contains invalid control characters")
		}
	}
	return nil
}

// githubLoginRegex matches GitHub account names: alphanumerics separated by
// single hyphens, no leading or trailing hyphen.
var githubLoginRegex = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9]|-[A-Za-z0-9])*$`)

// ValidateUsername validates a GitHub login before it is placed in a URL path.
func ValidateUsername(login string) error {
	if login == "" {
		return New(ErrCodeInvalidInput, "username cannot be empty")
	}
	if len(login) > 39 {
		return New(ErrCodeInvalidInput, "username too long (max 39 characters)")
	}
	if !githubLoginRegex.MatchString(login) {
		return New(ErrCodeInvalidInput, "invalid GitHub username: %q", login)
	}
	return nil
}

// npmPackageNameRegex matches valid npm package names.
var npmPackageNameRegex = regexp.MustCompile(`^(@[a-z0-9-~][a-z0-9-._~]*/)?[a-z0-9-~][a-z0-9-._~]*$`)

// ValidateNpmPackageName checks an npm package name, scoped or not, against
// the registry's naming rules.
func ValidateNpmPackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "package name cannot be empty")
	}
	if len(name) > 214 {
		return New(ErrCodeInvalidInput, "package name too long (max 214 characters)")
	}

	// npm names must be lowercase
	if strings.ToLower(name) != name {
		return New(ErrCodeInvalidInput, "npm package names must be lowercase: %q", name)
	}

	if !npmPackageNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid npm package name: %q", name)
	}

	return nil
}

// ValidateURL accepts only absolute http(s) URLs with a host. It guards
// every URL handed to the platform opener.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid URL")
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return New(ErrCodeInvalidInput, "refusing %q URL: only http and https are allowed", u.Scheme)
	}
	if u.Host == "" {
		return New(ErrCodeInvalidInput, "URL has no host: %q", rawURL)
	}
	return nil
}
