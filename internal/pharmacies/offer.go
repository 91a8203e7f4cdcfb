package pharmacies

import (
	"strings"

	"github.com/pharmalens/price-compare-service/internal/domain"
)

// DefaultMaxResults is how many products a source keeps from one page.
const DefaultMaxResults = 5

// NewOffer applies the pricing rules shared by every source. price falls
// back to mrp when missing; non-positive prices are rejected; mrp is kept
// only when it is above the payable price.
func NewOffer(productName string, price, mrp float64) (domain.PriceOffer, bool) {
	productName = strings.TrimSpace(productName)
	if productName == "" {
		return domain.PriceOffer{}, false
	}
	if price <= 0 {
		price = mrp
	}
	if price <= 0 {
		return domain.PriceOffer{}, false
	}

	o := domain.PriceOffer{
		ProductName: productName,
		Price:       price,
		PackSize:    domain.DefaultPackSize,
		InStock:     true,
	}
	if mrp > price {
		m := mrp
		o.OriginalPrice = &m
		o.DiscountPercent = domain.DiscountPercent(mrp, price)
	}
	return o, true
}

// DeliveryDays returns a pointer for the offer's DeliveryDays field.
func DeliveryDays(days int) *int {
	return &days
}

// ResolveURL joins a site-relative link onto base. Absolute links are
// returned unchanged and empty links resolve to fallback.
func ResolveURL(base, link, fallback string) string {
	link = strings.TrimSpace(link)
	switch {
	case link == "":
		return fallback
	case strings.HasPrefix(link, "http://"), strings.HasPrefix(link, "https://"):
		return link
	case strings.HasPrefix(link, "/"):
		return strings.TrimSuffix(base, "/") + link
	default:
		return strings.TrimSuffix(base, "/") + "/" + link
	}
}

// Truncate keeps at most n items.
func Truncate[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
