// Package apollo implements the Apollo Pharmacy source.
package apollo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pharmalens/price-compare-service/internal/domain"
	"github.com/pharmalens/price-compare-service/internal/pharmacies"
)

const (
	// SourceID is the stable identifier of this source.
	SourceID = "apollo"

	// DefaultBaseURL is the Apollo Pharmacy storefront.
	DefaultBaseURL = "https://www.apollopharmacy.in"

	// DefaultRateLimit is the default requests per second.
	DefaultRateLimit = 2.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 4

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 10 * time.Second

	deliveryDays = 2

	sourceName = "Apollo"
)

// Config contains configuration options for the Apollo client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64
	BurstSize  int
	MaxResults int
	Enabled    bool
}

// Client implements pharmacies.Source for Apollo Pharmacy.
//
// Apollo renders most of its search page on the client. Products are read
// from __NEXT_DATA__ when present; otherwise the page's build id is used
// to request the Next.js data route for the same search.
type Client struct {
	httpClient *pharmacies.HTTPClient
	config     Config
}

var _ pharmacies.Source = (*Client)(nil)

// NewClient creates an Apollo client. If httpClient is nil one is built from cfg.
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

// Search fetches the Apollo search page for the query.
func (c *Client) Search(ctx context.Context, q domain.Query) ([]domain.PriceOffer, error) {
	term := url.PathEscape(q.SearchTerm())
	searchURL := c.config.BaseURL + "/search-medicines/" + term

	page, err := c.httpClient.FetchPage(ctx, sourceName, searchURL)
	if err != nil {
		return nil, err
	}

	var products []Product
	raw, nextErr := pharmacies.NextData(page)
	if nextErr == nil {
		var nd nextData
		if err := json.Unmarshal(raw, &nd); err != nil {
			return nil, fmt.Errorf("decoding __NEXT_DATA__: %w", err)
		}
		products = findProducts(nd.Props.PageProps)
	}

	if len(products) == 0 {
		buildID := pharmacies.BuildID(page)
		if buildID == "" {
			if nextErr != nil {
				return nil, nextErr
			}
			return []domain.PriceOffer{}, nil
		}
		products, err = c.fetchDataRoute(ctx, buildID, term)
		if err != nil {
			return nil, err
		}
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

// fetchDataRoute requests /_next/data/{buildID}/search-medicines/{term}.json.
// A 404 means the build rotated; it is reported as no match.
func (c *Client) fetchDataRoute(ctx context.Context, buildID, term string) ([]Product, error) {
	dataURL := fmt.Sprintf("%s/_next/data/%s/search-medicines/%s.json", c.config.BaseURL, url.PathEscape(buildID), term)

	body, err := c.httpClient.FetchPage(ctx, sourceName, dataURL)
	if err != nil {
		var apiErr *domain.ExternalAPIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			return nil, nil
		}
		return nil, err
	}

	var route nextDataRoute
	if err := json.Unmarshal(body, &route); err != nil {
		return nil, fmt.Errorf("decoding data route: %w", err)
	}
	return findProducts(route.PageProps), nil
}

// ID returns the source identifier.
func (c *Client) ID() string { return SourceID }

// Name returns the human-readable name for this source.
func (c *Client) Name() string { return sourceName }

// IsEnabled returns whether this source is currently enabled.
func (c *Client) IsEnabled() bool { return c.config.Enabled }

func (c *Client) convertToOffer(p Product) (domain.PriceOffer, bool) {
	price := pharmacies.FirstPositive(p.Price, p.SalePrice, p.SellingPrice, p.FinalPrice)
	mrp := pharmacies.FirstPositive(p.MRP, p.OriginalPrice)

	offer, ok := pharmacies.NewOffer(pharmacies.FirstNonEmpty(p.Name, p.ProductName, p.Title), price, mrp)
	if !ok {
		return domain.PriceOffer{}, false
	}

	offer.URL = c.productURL(pharmacies.FirstNonEmpty(p.Slug, p.URLKey, p.URL))
	if p.PackSize != "" {
		offer.PackSize = p.PackSize
	}
	offer.InStock = pharmacies.BoolOr(p.InStock, true)
	offer.DeliveryDays = pharmacies.DeliveryDays(deliveryDays)
	offer.ImageURL = pharmacies.FirstNonEmpty(p.Image, p.ImageURL)
	offer.Manufacturer = string(p.Manufacturer)
	return offer, true
}

func (c *Client) productURL(slug string) string {
	switch {
	case slug == "":
		return c.config.BaseURL
	case strings.HasPrefix(slug, "http"):
		return slug
	default:
		return c.config.BaseURL + "/otc/" + strings.TrimPrefix(slug, "/")
	}
}
