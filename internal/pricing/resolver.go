// Package pricing resolves unit prices from a variant's price table given a
// currency, customer segment, and quantity. Resolution is a pure function;
// absence of a price is a typed result, never a zero price.
package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/domain"
)

// ErrNoPrice means the variant cannot be purchased in the requested
// currency/segment context. Callers must not coerce this into a free price.
var ErrNoPrice = errors.New("no price available")

// Quote is a resolved price for one cart line.
type Quote struct {
	UnitPrice       int64   `json:"unit_price"`
	BasePrice       int64   `json:"base_price"`
	Savings         int64   `json:"savings"`          // (base − unit) × quantity
	DiscountPercent float64 `json:"discount_percent"` // rounded to 2 decimals
}

// Resolve picks the applicable unit price for the given context. Segment
// resolution falls back one level, B2B → B2C, when the currency exists but
// has no B2B bucket; a missing B2C bucket does not fall back further. With
// quantity above one, the best-matching tier (highest minimum quantity not
// exceeding the requested quantity) replaces the base price.
func Resolve(table domain.PriceTable, currency string, segment domain.Segment, quantity int) (Quote, error) {
	if quantity < 1 {
		return Quote{}, fmt.Errorf("resolve price: quantity must be at least 1, got %d", quantity)
	}

	segments, ok := table[currency]
	if !ok {
		return Quote{}, fmt.Errorf("currency %s: %w", currency, ErrNoPrice)
	}

	bucket, ok := segments[segment]
	if !ok && segment == domain.SegmentB2B {
		bucket, ok = segments[domain.SegmentB2C]
	}
	if !ok {
		return Quote{}, fmt.Errorf("currency %s segment %s: %w", currency, segment, ErrNoPrice)
	}

	unit := bucket.Base
	if quantity > 1 {
		// Tiers are sorted ascending by minimum quantity; the last tier the
		// quantity reaches wins.
		for _, tier := range bucket.Tiers {
			if tier.MinQuantity > quantity {
				break
			}
			unit = tier.Price
		}
	}

	quote := Quote{
		UnitPrice: unit,
		BasePrice: bucket.Base,
	}
	if unit < bucket.Base {
		quote.Savings = (bucket.Base - unit) * int64(quantity)
		total := bucket.Base * int64(quantity)
		quote.DiscountPercent = math.Round(float64(quote.Savings)/float64(total)*100*100) / 100
	}

	return quote, nil
}
