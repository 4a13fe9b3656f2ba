// Package catalog wraps the printing catalog REST API and selects the
// single printing a scan most plausibly shows.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cardscan/internal/metrics"
	"cardscan/internal/services"
)

const (
	defaultBaseURL     = "https://api.scryfall.com"
	defaultUserAgent   = "cardscan/dev"
	defaultHTTPTimeout = 45 * time.Second
	defaultPageCap     = 20
)

// Config describes the catalog client configuration.
type Config struct {
	BaseURL    string
	UserAgent  string
	PageCap    int
	HTTPClient *http.Client
}

// Client wraps the catalog REST API.
type Client struct {
	baseURL   *url.URL
	userAgent string
	pageCap   int
	http      *http.Client
}

// Printing is one published version of a named card.
type Printing struct {
	Name            string
	Set             string
	SetName         string
	CollectorNumber string
	Finishes        []string
	Lang            string
	Promo           bool
	ReleasedAt      string
	SetType         string
	Layout          string
	ImageURL        string
	PriceUSD        string
	PriceUSDFoil    string
	PrintsSearchURI string
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse base url: %w", err)
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	pageCap := cfg.PageCap
	if pageCap <= 0 {
		pageCap = defaultPageCap
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		pageCap:   pageCap,
		http:      client,
	}, nil
}

// NamedFuzzy resolves a possibly misspelled card name to its canonical
// printing via the catalog's fuzzy lookup.
func (c *Client) NamedFuzzy(ctx context.Context, name string) (*Printing, error) {
	endpoint := c.baseURL.JoinPath("cards", "named")
	params := url.Values{}
	params.Set("fuzzy", name)
	endpoint.RawQuery = params.Encode()

	var payload cardPayload
	if err := c.getJSON(ctx, endpoint.String(), &payload); err != nil {
		return nil, err
	}
	printing := payload.toPrinting()
	return &printing, nil
}

// BySetAndNumber fetches the exact printing for a set code and
// collector number.
func (c *Client) BySetAndNumber(ctx context.Context, setCode, number string) (*Printing, error) {
	endpoint := c.baseURL.JoinPath("cards", strings.ToLower(setCode), number)

	var payload cardPayload
	if err := c.getJSON(ctx, endpoint.String(), &payload); err != nil {
		return nil, err
	}
	printing := payload.toPrinting()
	return &printing, nil
}

// SearchExact searches for an exact name within a set and returns the
// first page of results.
func (c *Client) SearchExact(ctx context.Context, name, setCode string) ([]Printing, error) {
	endpoint := c.baseURL.JoinPath("cards", "search")
	params := url.Values{}
	params.Set("q", fmt.Sprintf("!%q set:%s", name, strings.ToLower(setCode)))
	endpoint.RawQuery = params.Encode()

	var payload listPayload
	if err := c.getJSON(ctx, endpoint.String(), &payload); err != nil {
		return nil, err
	}
	printings := make([]Printing, 0, len(payload.Data))
	for _, entry := range payload.Data {
		printings = append(printings, entry.toPrinting())
	}
	return printings, nil
}

// Prints follows a prints search URI through its continuation cursors,
// bounded by the page cap, and returns every printing found. A failure
// mid-pagination aborts the whole fetch.
func (c *Client) Prints(ctx context.Context, searchURI string) ([]Printing, error) {
	var all []Printing
	next := searchURI
	for pages := 0; next != "" && pages < c.pageCap; pages++ {
		var payload listPayload
		if err := c.getJSON(ctx, next, &payload); err != nil {
			return nil, err
		}
		metrics.CatalogPages.Inc()
		for _, entry := range payload.Data {
			all = append(all, entry.toPrinting())
		}
		if !payload.HasMore {
			break
		}
		next = payload.NextPage
	}
	return all, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return services.Wrap(services.ErrCatalogNoMatch, "catalog", "lookup", "no printing found", nil)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("catalog: lookup failed (%s): %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("catalog: decode response: %w", err)
	}
	return nil
}

type cardPayload struct {
	Name            string   `json:"name"`
	Set             string   `json:"set"`
	SetName         string   `json:"set_name"`
	CollectorNumber string   `json:"collector_number"`
	Finishes        []string `json:"finishes"`
	Lang            string   `json:"lang"`
	Promo           bool     `json:"promo"`
	ReleasedAt      string   `json:"released_at"`
	SetType         string   `json:"set_type"`
	Layout          string   `json:"layout"`
	PrintsSearchURI string   `json:"prints_search_uri"`
	ImageURIs       struct {
		Normal string `json:"normal"`
	} `json:"image_uris"`
	CardFaces []struct {
		ImageURIs struct {
			Normal string `json:"normal"`
		} `json:"image_uris"`
	} `json:"card_faces"`
	Prices struct {
		USD     string `json:"usd"`
		USDFoil string `json:"usd_foil"`
	} `json:"prices"`
}

func (p cardPayload) toPrinting() Printing {
	image := p.ImageURIs.Normal
	if image == "" && len(p.CardFaces) > 0 {
		image = p.CardFaces[0].ImageURIs.Normal
	}
	return Printing{
		Name:            p.Name,
		Set:             p.Set,
		SetName:         p.SetName,
		CollectorNumber: p.CollectorNumber,
		Finishes:        p.Finishes,
		Lang:            p.Lang,
		Promo:           p.Promo,
		ReleasedAt:      p.ReleasedAt,
		SetType:         p.SetType,
		Layout:          p.Layout,
		ImageURL:        image,
		PriceUSD:        p.Prices.USD,
		PriceUSDFoil:    p.Prices.USDFoil,
		PrintsSearchURI: p.PrintsSearchURI,
	}
}

type listPayload struct {
	Data     []cardPayload `json:"data"`
	HasMore  bool          `json:"has_more"`
	NextPage string        `json:"next_page"`
}
