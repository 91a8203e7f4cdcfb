package pharmeasy

import (
	"encoding/json"

	"github.com/pharmalens/price-compare-service/internal/pharmacies"
)

// nextData is the subset of the search page's __NEXT_DATA__ we read.
type nextData struct {
	Props struct {
		PageProps pageProps `json:"pageProps"`
	} `json:"props"`
}

type pageProps struct {
	SearchResults  []Product `json:"searchResults"`
	ProductListing struct {
		Products []Product `json:"products"`
	} `json:"productListing"`
	Products []Product `json:"products"`
}

// products returns the first non-empty product list the page carries.
func (p pageProps) products() []Product {
	switch {
	case len(p.SearchResults) > 0:
		return p.SearchResults
	case len(p.ProductListing.Products) > 0:
		return p.ProductListing.Products
	default:
		return p.Products
	}
}

// Product is a PharmEasy search result entry.
type Product struct {
	Name             string            `json:"name"`
	ProductName      string            `json:"productName"`
	MRPDecimal       pharmacies.Number `json:"mrpDecimal"`
	MRP              pharmacies.Number `json:"mrp"`
	SalePriceDecimal pharmacies.Number `json:"salePriceDecimal"`
	SalePrice        pharmacies.Number `json:"salePrice"`
	Price            pharmacies.Number `json:"price"`
	DiscountPercent  pharmacies.Number `json:"discountPercent"`
	Slug             string            `json:"slug"`
	ProductSlug      string            `json:"productSlug"`
	PackDesc         string            `json:"packDesc"`
	PackSize         string            `json:"packSize"`
	IsInStock        *bool             `json:"isInStock"`
	Image            pharmacies.Text   `json:"image"`
	Manufacturer     pharmacies.Text   `json:"manufacturer"`
}

func decodeNextData(raw []byte) (pageProps, error) {
	var nd nextData
	if err := json.Unmarshal(raw, &nd); err != nil {
		return pageProps{}, err
	}
	return nd.Props.PageProps, nil
}
