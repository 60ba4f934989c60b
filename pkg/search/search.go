package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultEndpoint is the Pexels photo search API.
const DefaultEndpoint = "https://api.pexels.com/v1/search"

// Candidate is one image search hit.
type Candidate struct {
	ID        string
	SourceURL string // original resolution
}

// FetchError reports a failed search call. StatusCode is 0 for transport or decode failures.
type FetchError struct {
	Query      string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("search %q: HTTP %d", e.Query, e.StatusCode)
	}
	return fmt.Sprintf("search %q: %v", e.Query, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PexelsClient queries the Pexels search API.
type PexelsClient struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

// NewPexelsClient builds a client; an empty endpoint means DefaultEndpoint.
func NewPexelsClient(endpoint, apiKey string, timeout time.Duration) *PexelsClient {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PexelsClient{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type pexelsResponse struct {
	Photos []struct {
		ID  json.Number `json:"id"`
		Src struct {
			Original string `json:"original"`
		} `json:"src"`
	} `json:"photos"`
}

// Search returns up to count candidates in the order Pexels ranks them.
func (c *PexelsClient) Search(ctx context.Context, query string, count int) ([]Candidate, error) {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return nil, &FetchError{Query: query, Err: err}
	}
	q := u.Query()
	q.Set("query", query)
	q.Set("per_page", strconv.Itoa(count))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &FetchError{Query: query, Err: err}
	}
	req.Header.Set("Authorization", c.APIKey)
	req.Header.Set("User-Agent", "wordmedia-cli")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, &FetchError{Query: query, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Query: query, StatusCode: resp.StatusCode}
	}

	var body pexelsResponse
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, &FetchError{Query: query, Err: fmt.Errorf("decode response: %w", err)}
	}

	out := make([]Candidate, 0, len(body.Photos))
	for _, p := range body.Photos {
		if strings.TrimSpace(p.Src.Original) == "" {
			continue
		}
		out = append(out, Candidate{ID: p.ID.String(), SourceURL: p.Src.Original})
	}
	return out, nil
}
