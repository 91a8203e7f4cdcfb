package netmeds

import (
	"bytes"
	"encoding/json"

	"github.com/pharmalens/price-compare-service/internal/pharmacies"
)

// initialState is the subset of window.__INITIAL_STATE__ we read. The
// product list has lived under three different keys over time.
type initialState struct {
	ProductListingPage listingPage `json:"productListingPage"`
	CatalogListingPage listingPage `json:"catalogListingPage"`
	SearchPage         struct {
		Products []Item `json:"products"`
	} `json:"searchPage"`
}

type listingPage struct {
	ProductLists struct {
		Items []Item `json:"items"`
	} `json:"productlists"`
}

func (s initialState) items() []Item {
	switch {
	case len(s.ProductListingPage.ProductLists.Items) > 0:
		return s.ProductListingPage.ProductLists.Items
	case len(s.CatalogListingPage.ProductLists.Items) > 0:
		return s.CatalogListingPage.ProductLists.Items
	default:
		return s.SearchPage.Products
	}
}

// Item is a Netmeds product entry.
type Item struct {
	Name         string            `json:"name"`
	ProductName  string            `json:"productName"`
	Price        Price             `json:"price"`
	FinalPrice   pharmacies.Number `json:"final_price"`
	MRP          pharmacies.Number `json:"mrp"`
	Slug         string            `json:"slug"`
	URLKey       string            `json:"url_key"`
	PackSize     string            `json:"pack_size"`
	IsInStock    *bool             `json:"is_in_stock"`
	Image        pharmacies.Text   `json:"image"`
	Thumbnail    pharmacies.Text   `json:"thumbnail"`
	Manufacturer pharmacies.Text   `json:"manufacturer"`
}

// Price is either a plain number or a range object with marked (MRP) and
// effective (selling) prices.
type Price struct {
	Flat      float64
	Marked    float64
	Effective float64
	Ranged    bool
}

type priceRange struct {
	Min pharmacies.Number `json:"min"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var r struct {
			Marked    priceRange `json:"marked"`
			Effective priceRange `json:"effective"`
		}
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		*p = Price{Marked: r.Marked.Min.Float(), Effective: r.Effective.Min.Float(), Ranged: true}
		return nil
	}

	var n pharmacies.Number
	if err := n.UnmarshalJSON(data); err != nil {
		return err
	}
	*p = Price{Flat: n.Float()}
	return nil
}

func decodeItems(raw []byte) ([]Item, error) {
	var state initialState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, err
	}
	return state.items(), nil
}
