// Package netmeds implements the Netmeds pharmacy source.
package netmeds

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
	SourceID = "netmeds"

	// DefaultBaseURL is the Netmeds storefront.
	DefaultBaseURL = "https://www.netmeds.com"

	// DefaultRateLimit is the default requests per second.
	DefaultRateLimit = 2.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 4

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 15 * time.Second

	deliveryDays = 3

	sourceName = "Netmeds"
)

// Config contains configuration options for the Netmeds client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64
	BurstSize  int
	MaxResults int
	Enabled    bool
}

// Client implements pharmacies.Source for Netmeds.
type Client struct {
	httpClient *pharmacies.HTTPClient
	config     Config
}

var _ pharmacies.Source = (*Client)(nil)

// NewClient creates a Netmeds client. If httpClient is nil one is built from cfg.
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

// Search fetches the Netmeds catalog search page for the query.
func (c *Client) Search(ctx context.Context, q domain.Query) ([]domain.PriceOffer, error) {
	searchURL := c.config.BaseURL + "/catalogsearch/result/" + url.PathEscape(q.SearchTerm()) + "/all"

	page, err := c.httpClient.FetchPage(ctx, sourceName, searchURL)
	if err != nil {
		return nil, err
	}

	raw, err := pharmacies.InitialState(page)
	if err != nil {
		return nil, err
	}
	items, err := decodeItems(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding __INITIAL_STATE__: %w", err)
	}

	items = pharmacies.Truncate(items, c.config.MaxResults)
	offers := make([]domain.PriceOffer, 0, len(items))
	for _, it := range items {
		if o, ok := c.convertToOffer(it); ok {
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

func (c *Client) convertToOffer(it Item) (domain.PriceOffer, bool) {
	var price, mrp float64
	if it.Price.Ranged {
		mrp = it.Price.Marked
		price = it.Price.Effective
	} else {
		price = pharmacies.FirstPositive(it.FinalPrice, pharmacies.Number(it.Price.Flat))
		mrp = it.MRP.Float()
	}

	offer, ok := pharmacies.NewOffer(pharmacies.FirstNonEmpty(it.Name, it.ProductName), price, mrp)
	if !ok {
		return domain.PriceOffer{}, false
	}

	offer.URL = pharmacies.ResolveURL(c.config.BaseURL, pharmacies.FirstNonEmpty(it.Slug, it.URLKey), c.config.BaseURL)
	if it.PackSize != "" {
		offer.PackSize = it.PackSize
	}
	offer.InStock = pharmacies.BoolOr(it.IsInStock, true)
	offer.DeliveryDays = pharmacies.DeliveryDays(deliveryDays)
	offer.ImageURL = pharmacies.FirstNonEmpty(it.Image, it.Thumbnail)
	offer.Manufacturer = string(it.Manufacturer)
	return offer, true
}
