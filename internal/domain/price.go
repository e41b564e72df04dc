package domain

import (
	"encoding/json"
	"fmt"
)

// Segment classifies the customer for price-bucket selection.
type Segment string

const (
	SegmentB2C Segment = "b2c"
	SegmentB2B Segment = "b2b"
)

// ParseSegment validates a segment string.
func ParseSegment(s string) (Segment, error) {
	switch Segment(s) {
	case SegmentB2C, SegmentB2B:
		return Segment(s), nil
	default:
		return "", fmt.Errorf("unknown segment %q", s)
	}
}

// PriceTier is a quantity threshold at which a discounted unit price applies.
type PriceTier struct {
	MinQuantity int   `json:"min"`
	Price       int64 `json:"price"`
}

// PriceBucket holds the base unit price and its quantity tiers for one
// currency/segment pair. Tiers are sorted ascending by MinQuantity.
type PriceBucket struct {
	Base  int64       `json:"base"`
	Tiers []PriceTier `json:"tiers,omitempty"`
}

// PriceTable maps currency → segment → price bucket. Construct through
// ParsePriceTable so malformed catalog data is rejected at the boundary.
type PriceTable map[string]map[Segment]PriceBucket

// Bucket returns the bucket for a currency/segment pair, without fallback.
func (t PriceTable) Bucket(currency string, segment Segment) (PriceBucket, bool) {
	segments, ok := t[currency]
	if !ok {
		return PriceBucket{}, false
	}
	bucket, ok := segments[segment]
	return bucket, ok
}

// ParsePriceTable decodes and validates a JSON price table. It rejects
// unknown segments, non-positive prices, and tiers that are unsorted or
// duplicated by minimum quantity.
func ParsePriceTable(raw []byte) (PriceTable, error) {
	var decoded map[string]map[string]PriceBucket
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode price table: %w", err)
	}

	table := make(PriceTable, len(decoded))
	for currency, segments := range decoded {
		if len(currency) != 3 {
			return nil, fmt.Errorf("price table: invalid currency code %q", currency)
		}
		table[currency] = make(map[Segment]PriceBucket, len(segments))
		for rawSegment, bucket := range segments {
			segment, err := ParseSegment(rawSegment)
			if err != nil {
				return nil, fmt.Errorf("price table %s: %w", currency, err)
			}
			if err := validateBucket(bucket); err != nil {
				return nil, fmt.Errorf("price table %s/%s: %w", currency, segment, err)
			}
			table[currency][segment] = bucket
		}
	}

	return table, nil
}

func validateBucket(b PriceBucket) error {
	if b.Base <= 0 {
		return fmt.Errorf("base price must be positive, got %d", b.Base)
	}
	prevMin := 1
	for i, tier := range b.Tiers {
		if tier.MinQuantity <= prevMin {
			return fmt.Errorf("tier %d: min quantity %d not strictly ascending", i, tier.MinQuantity)
		}
		if tier.Price <= 0 {
			return fmt.Errorf("tier %d: price must be positive, got %d", i, tier.Price)
		}
		prevMin = tier.MinQuantity
	}
	return nil
}
