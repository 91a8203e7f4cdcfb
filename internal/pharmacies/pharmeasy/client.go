// Package pharmeasy implements the PharmEasy pharmacy source.
package pharmeasy

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
	SourceID = "pharmeasy"

	// DefaultBaseURL is the PharmEasy storefront.
	DefaultBaseURL = "https://pharmeasy.in"

	// DefaultRateLimit is the default requests per second.
	DefaultRateLimit = 2.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 4

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// deliveryDays is PharmEasy's typical delivery estimate.
	deliveryDays = 1

	sourceName = "PharmEasy"
)

// Config contains configuration options for the PharmEasy client.
type Config struct {
	// BaseURL defaults to DefaultBaseURL if empty.
	BaseURL string

	// Timeout defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// RateLimit defaults to DefaultRateLimit if zero.
	RateLimit float64

	// BurstSize defaults to DefaultBurstSize if zero.
	BurstSize int

	// MaxResults defaults to pharmacies.DefaultMaxResults if zero.
	MaxResults int

	Enabled bool
}

// Client implements pharmacies.Source for PharmEasy. Search results are
// read from the Next.js page state of the search page.
type Client struct {
	httpClient *pharmacies.HTTPClient
	config     Config
}

// Compile-time check that Client implements pharmacies.Source.
var _ pharmacies.Source = (*Client)(nil)

// NewClient creates a new PharmEasy client with the given configuration.
// If httpClient is nil, a new one will be created with the configuration settings.
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

	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// Search fetches the PharmEasy search page for the query.
func (c *Client) Search(ctx context.Context, q domain.Query) ([]domain.PriceOffer, error) {
	searchURL := c.searchURL(q)

	page, err := c.httpClient.FetchPage(ctx, sourceName, searchURL)
	if err != nil {
		return nil, err
	}

	raw, err := pharmacies.NextData(page)
	if err != nil {
		return nil, err
	}
	props, err := decodeNextData(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding __NEXT_DATA__: %w", err)
	}

	products := pharmacies.Truncate(props.products(), c.config.MaxResults)
	offers := make([]domain.PriceOffer, 0, len(products))
	for _, p := range products {
		if o, ok := c.convertToOffer(p, searchURL); ok {
			offers = append(offers, o)
		}
	}
	return offers, nil
}

// ID returns the source identifier.
func (c *Client) ID() string {
	return SourceID
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is currently enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) searchURL(q domain.Query) string {
	return c.config.BaseURL + "/search/all?name=" + url.QueryEscape(q.SearchTerm())
}

func (c *Client) convertToOffer(p Product, fallbackURL string) (domain.PriceOffer, bool) {
	mrp := pharmacies.FirstPositive(p.MRPDecimal, p.MRP)
	price := pharmacies.FirstPositive(p.SalePriceDecimal, p.SalePrice, p.Price)

	offer, ok := pharmacies.NewOffer(pharmacies.FirstNonEmpty(p.Name, p.ProductName), price, mrp)
	if !ok {
		return domain.PriceOffer{}, false
	}

	if d := p.DiscountPercent.Float(); d > 0 {
		offer.DiscountPercent = &d
	}

	offer.URL = fallbackURL
	if slug := pharmacies.FirstNonEmpty(p.Slug, p.ProductSlug); slug != "" {
		offer.URL = c.config.BaseURL + "/online-medicine-order/" + slug
	}
	if pack := pharmacies.FirstNonEmpty(p.PackDesc, p.PackSize); pack != "" {
		offer.PackSize = pack
	}
	offer.InStock = pharmacies.BoolOr(p.IsInStock, true)
	offer.DeliveryDays = pharmacies.DeliveryDays(deliveryDays)
	offer.ImageURL = string(p.Image)
	offer.Manufacturer = string(p.Manufacturer)
	return offer, true
}
