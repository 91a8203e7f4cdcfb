package onemg

import (
	"encoding/json"

	"github.com/pharmalens/price-compare-service/internal/pharmacies"
)

// preloadedState is the subset of window.PRELOADED_STATE we read.
type preloadedState struct {
	SearchPage struct {
		ProductList []json.RawMessage `json:"productList"`
	} `json:"searchPage"`
}

// productGroup is one productList entry. 1mg groups products under
// "data"; older pages put the products directly in the list.
type productGroup struct {
	Data []Product `json:"data"`
}

// Product is a 1mg search result entry. Price is the MRP and
// DiscountedPrice the selling price.
type Product struct {
	Name            string            `json:"name"`
	Price           pharmacies.Number `json:"price"`
	DiscountedPrice pharmacies.Number `json:"discountedPrice"`
	URL             string            `json:"url"`
	PackSizeLabel   string            `json:"packSizeLabel"`
	Available       *bool             `json:"available"`
	Image           pharmacies.Text   `json:"image"`
	Manufacturer    pharmacies.Text   `json:"manufacturer"`
}

func decodeProducts(raw []byte) ([]Product, error) {
	var state preloadedState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, err
	}
	if len(state.SearchPage.ProductList) == 0 {
		return nil, nil
	}

	first := state.SearchPage.ProductList[0]
	var group productGroup
	if err := json.Unmarshal(first, &group); err == nil {
		return group.Data, nil
	}
	var list []Product
	if err := json.Unmarshal(first, &list); err != nil {
		return nil, err
	}
	return list, nil
}
