package npm

import (
	"context"
	"net/url"
	"strconv"

	"github.com/matzehuels/devscout/pkg/integrations"
	"github.com/matzehuels/devscout/pkg/rank"
)

// DefaultBaseURL is the public npm registry.
const DefaultBaseURL = "https://registry.npmjs.org"

// Client queries the npm search endpoint.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a client against baseURL, or [DefaultBaseURL] when empty.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		Client:  integrations.NewClient(map[string]string{"Accept": "application/json"}),
		baseURL: baseURL,
	}
}

// Search runs one page of a registry search. size and from map to the
// endpoint's page size and offset. Errors follow the integrations taxonomy.
func (c *Client) Search(ctx context.Context, text string, size, from int, w rank.Weights) ([]SearchObject, error) {
	var data SearchResponse
	if err := c.Get(ctx, c.SearchURL(text, size, from, w), &data); err != nil {
		return nil, err
	}
	return data.Objects, nil
}

// SearchURL builds the request URL for [Client.Search].
func (c *Client) SearchURL(text string, size, from int, w rank.Weights) string {
	q := url.Values{}
	q.Set("text", text)
	q.Set("size", strconv.Itoa(size))
	q.Set("from", strconv.Itoa(from))
	q.Set("quality", formatWeight(w.Quality))
	q.Set("popularity", formatWeight(w.Popularity))
	q.Set("maintenance", formatWeight(w.Maintenance))
	return c.baseURL + "/-/v1/search?" + q.Encode()
}

func formatWeight(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
