package apollo

import (
	"encoding/json"

	"github.com/pharmalens/price-compare-service/internal/pharmacies"
)

// productKeys are the pageProps keys that have carried search results.
var productKeys = []string{"products", "searchResults", "items", "data", "medicines"}

// nestedKeys are checked when a product key holds an object.
var nestedKeys = []string{"products", "items", "results"}

type nextData struct {
	Props struct {
		PageProps map[string]json.RawMessage `json:"pageProps"`
	} `json:"props"`
}

type nextDataRoute struct {
	PageProps map[string]json.RawMessage `json:"pageProps"`
}

// Product is an Apollo search result entry.
type Product struct {
	Name          string            `json:"name"`
	ProductName   string            `json:"productName"`
	Title         string            `json:"title"`
	Price         pharmacies.Number `json:"price"`
	SalePrice     pharmacies.Number `json:"salePrice"`
	SellingPrice  pharmacies.Number `json:"sellingPrice"`
	FinalPrice    pharmacies.Number `json:"finalPrice"`
	MRP           pharmacies.Number `json:"mrp"`
	OriginalPrice pharmacies.Number `json:"originalPrice"`
	Slug          string            `json:"slug"`
	URLKey        string            `json:"urlKey"`
	URL           string            `json:"url"`
	PackSize      string            `json:"packSize"`
	InStock       *bool             `json:"inStock"`
	Image         pharmacies.Text   `json:"image"`
	ImageURL      pharmacies.Text   `json:"imageUrl"`
	Manufacturer  pharmacies.Text   `json:"manufacturer"`
}

// findProducts walks the known keys and returns the first non-empty list.
func findProducts(props map[string]json.RawMessage) []Product {
	for _, key := range productKeys {
		raw, ok := props[key]
		if !ok {
			continue
		}
		if list := decodeList(raw); len(list) > 0 {
			return list
		}
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(raw, &nested); err != nil {
			continue
		}
		for _, sub := range nestedKeys {
			if list := decodeList(nested[sub]); len(list) > 0 {
				return list
			}
		}
	}
	return nil
}

func decodeList(raw json.RawMessage) []Product {
	if len(raw) == 0 || raw[0] != '[' {
		return nil
	}
	var list []Product
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	return list
}
