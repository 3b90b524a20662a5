package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/matzehuels/devscout/pkg/httputil"
)

// ClientIDEnv names the environment variable holding the OAuth App client
// ID used for device-flow login. The device flow needs no client secret.
const ClientIDEnv = "DEVSCOUT_GITHUB_CLIENT_ID"

// Device-flow error codes returned while polling.
var (
	ErrAuthorizationPending = errors.New("authorization_pending")
	ErrSlowDown             = errors.New("slow_down")
	ErrExpiredToken         = errors.New("expired_token")
	ErrAccessDenied         = errors.New("access_denied")
)

// ClientIDFromEnv returns the configured OAuth client ID, or "".
func ClientIDFromEnv() string {
	return strings.TrimSpace(os.Getenv(ClientIDEnv))
}

// OAuthClient handles the GitHub device authorization flow.
type OAuthClient struct {
	config     OAuthConfig
	httpClient *http.Client
	baseURL    string
}

// NewOAuthClient creates a new OAuth client. Scopes default to read:user,
// which is all profile lookups need.
func NewOAuthClient(config OAuthConfig) *OAuthClient {
	if len(config.Scopes) == 0 {
		config.Scopes = []string{"read:user"}
	}
	base := config.BaseURL
	if base == "" {
		base = "https://github.com"
	}
	return &OAuthClient{
		config:     config,
		httpClient: httputil.NewClient(30 * time.Second),
		baseURL:    strings.TrimSuffix(base, "/"),
	}
}

// DeviceCodeResponse contains the response from requesting a device code.
type DeviceCodeResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

// RequestDeviceCode initiates the device authorization flow.
// The user must visit the VerificationURI and enter the UserCode.
func (c *OAuthClient) RequestDeviceCode(ctx context.Context) (*DeviceCodeResponse, error) {
	data := url.Values{
		"client_id": {c.config.ClientID},
		"scope":     {strings.Join(c.config.Scopes, " ")},
	}
	var result DeviceCodeResponse
	if err := c.post(ctx, "/login/device/code", data, &result); err != nil {
		return nil, err
	}
	if result.DeviceCode == "" {
		return nil, errors.New("github returned no device code; check the OAuth client ID")
	}
	return &result, nil
}

// PollForToken polls GitHub for the access token after user authorization,
// honoring the server-provided interval and slow_down responses.
func (c *OAuthClient) PollForToken(ctx context.Context, deviceCode string, interval time.Duration) (*OAuthToken, error) {
	if interval < 5*time.Second {
		interval = 5 * time.Second
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		token, err := c.checkDeviceToken(ctx, deviceCode)
		switch {
		case err == nil:
			return token, nil
		case errors.Is(err, ErrAuthorizationPending):
		case errors.Is(err, ErrSlowDown):
			interval += 5 * time.Second
		default:
			return nil, err
		}
		timer.Reset(interval)
	}
}

func (c *OAuthClient) checkDeviceToken(ctx context.Context, deviceCode string) (*OAuthToken, error) {
	data := url.Values{
		"client_id":   {c.config.ClientID},
		"device_code": {deviceCode},
		"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
	}

	var result struct {
		OAuthToken
		Error     string `json:"error"`
		ErrorDesc string `json:"error_description"`
	}
	if err := c.post(ctx, "/login/oauth/access_token", data, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, deviceError(result.Error, result.ErrorDesc)
	}
	return &result.OAuthToken, nil
}

func deviceError(code, desc string) error {
	for _, e := range []error{ErrAuthorizationPending, ErrSlowDown, ErrExpiredToken, ErrAccessDenied} {
		if e.Error() == code {
			return e
		}
	}
	return fmt.Errorf("%s: %s", code, desc)
}

func (c *OAuthClient) post(ctx context.Context, path string, data url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github oauth: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
