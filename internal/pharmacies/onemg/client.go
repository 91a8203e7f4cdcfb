// Package onemg implements the Tata 1mg pharmacy source.
package onemg

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/pharmalens/price-compare-service/internal/domain"
	"github.com/pharmalens/price-compare-service/internal/pharmacies"
)

const (
	// SourceID is the stable identifier of this source.
	SourceID = "1mg"

	// DefaultBaseURL is the 1mg storefront.
	DefaultBaseURL = "https://www.1mg.com"

	// DefaultRateLimit is the default requests per second.
	DefaultRateLimit = 2.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 4

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 15 * time.Second

	deliveryDays = 2

	sourceName = "1mg"
)

// Config contains configuration options for the 1mg client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64
	BurstSize  int
	MaxResults int
	Enabled    bool
}

// Client implements pharmacies.Source for 1mg. Products come from the
// PRELOADED_STATE blob on the search page.
type Client struct {
	httpClient *pharmacies.HTTPClient
	config     Config
}

var _ pharmacies.Source = (*Client)(nil)

// NewClient creates a 1mg client. If httpClient is nil one is built from cfg.
func NewClient(cfg Config, httpClient *pharmacies.HTTPClient) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = DefaultBurstSize
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = pharmacies.DefaultMaxResults
	}

	if httpClient == nil {
		httpClient = pharmacies.NewHTTPClient(pharmacies.HTTPClientConfig{
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			BurstSize: cfg.BurstSize,
		})
	}

	return &Client{httpClient: httpClient, config: cfg}
}

// Search fetches the 1mg search page for the query.
func (c *Client) Search(ctx context.Context, q domain.Query) ([]domain.PriceOffer, error) {
	searchURL := c.config.BaseURL + "/search/all?name=" + url.QueryEscape(q.SearchTerm())

	page, err := c.httpClient.FetchPage(ctx, sourceName, searchURL)
	if err != nil {
		return nil, err
	}

	raw, err := pharmacies.PreloadedState(page)
	if err != nil {
		return nil, err
	}
	products, err := decodeProducts(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding PRELOADED_STATE: %w", err)
	}

	products = pharmacies.Truncate(products, c.config.MaxResults)
	offers := make([]domain.PriceOffer, 0, len(products))
	for _, p := range products {
		if o, ok := c.convertToOffer(p); ok {
			offers = append(offers, o)
		}
	}
	return offers, nil
}

// ID returns the source identifier.
func (c *Client) ID() string { return SourceID }

// Name returns the human-readable name for this source.
func (c *Client) Name() string { return sourceName }

// IsEnabled returns whether this source is currently enabled.
func (c *Client) IsEnabled() bool { return c.config.Enabled }

func (c *Client) convertToOffer(p Product) (domain.PriceOffer, bool) {
	mrp := p.Price.Float()
	offer, ok := pharmacies.NewOffer(p.Name, p.DiscountedPrice.Float(), mrp)
	if !ok {
		return domain.PriceOffer{}, false
	}

	offer.URL = pharmacies.ResolveURL(c.config.BaseURL, p.URL, c.config.BaseURL)
	if p.PackSizeLabel != "" {
		offer.PackSize = p.PackSizeLabel
	}
	offer.InStock = pharmacies.BoolOr(p.Available, true)
	offer.DeliveryDays = pharmacies.DeliveryDays(deliveryDays)
	offer.ImageURL = string(p.Image)
	offer.Manufacturer = string(p.Manufacturer)
	return offer, true
}
