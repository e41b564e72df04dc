package domain

import "time"

// Stock status classification.
const (
	StockStatusOut = "out_of_stock"
	StockStatusLow = "low_stock"
	StockStatusIn  = "in_stock"
)

// ProductVariant is a sellable unit: a SKU with stock counters and a price
// table. The price table is stored as JSONB and parsed through
// ParsePriceTable when loaded.
type ProductVariant struct {
	ID                string            `json:"id"`
	ProductID         string            `json:"product_id"`
	SiteID            string            `json:"site_id"`
	SKU               string            `json:"sku"`
	Name              string            `json:"name"`
	ImageURL          string            `json:"image_url,omitempty"`
	WeightGrams       int               `json:"weight_grams"`
	Attributes        map[string]string `json:"attributes,omitempty"`
	Stock             int               `json:"stock"`
	SafetyStock       int               `json:"safety_stock"`
	LowStockThreshold int               `json:"low_stock_threshold"`
	Prices            PriceTable        `json:"prices"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Available returns the sellable quantity: stock minus the safety buffer,
// floored at zero.
func (v *ProductVariant) Available() int {
	return max(0, v.Stock-v.SafetyStock)
}

// StockStatus classifies availability against the low-stock threshold.
func (v *ProductVariant) StockStatus() string {
	available := v.Available()
	switch {
	case available == 0:
		return StockStatusOut
	case available <= v.LowStockThreshold:
		return StockStatusLow
	default:
		return StockStatusIn
	}
}

// ProductSnapshot is the frozen product data captured at add-to-cart and
// carried verbatim into order items for display resilience.
type ProductSnapshot struct {
	Name        string            `json:"name"`
	SKU         string            `json:"sku"`
	Image       string            `json:"image,omitempty"`
	WeightGrams int               `json:"weight"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// Snapshot captures the variant's display data at this instant.
func (v *ProductVariant) Snapshot() ProductSnapshot {
	attrs := make(map[string]string, len(v.Attributes))
	for k, val := range v.Attributes {
		attrs[k] = val
	}
	return ProductSnapshot{
		Name:        v.Name,
		SKU:         v.SKU,
		Image:       v.ImageURL,
		WeightGrams: v.WeightGrams,
		Attributes:  attrs,
	}
}
