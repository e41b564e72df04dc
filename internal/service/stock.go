package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/domain"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/repository"
	apperrors "github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/errors"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/pagination"
)

// StockService serves availability reads and ops-driven stock adjustments.
// Order-driven stock movements never go through here; they live inside the
// freeze and cancellation transactions.
type StockService struct {
	stock    repository.StockRepository
	variants repository.VariantRepository
	logger   *slog.Logger
}

// NewStockService creates a stock service.
func NewStockService(stock repository.StockRepository, variants repository.VariantRepository, logger *slog.Logger) *StockService {
	return &StockService{stock: stock, variants: variants, logger: logger}
}

// Availability is the customer-facing view of one variant's stock. Raw
// counters stay internal; only the sellable quantity and its classification
// are exposed.
type Availability struct {
	VariantID string `json:"variant_id"`
	SKU       string `json:"sku"`
	Available int    `json:"available"`
	Status    string `json:"status"`
}

// GetAvailability returns the sellable quantity and status for one variant.
func (s *StockService) GetAvailability(ctx context.Context, siteID, variantID string) (*Availability, error) {
	variant, err := s.variants.GetByID(ctx, siteID, variantID)
	if err != nil {
		return nil, err
	}
	return &Availability{
		VariantID: variant.ID,
		SKU:       variant.SKU,
		Available: variant.Available(),
		Status:    variant.StockStatus(),
	}, nil
}

// IsAvailable reports whether the variant has at least quantity sellable
// units.
func (s *StockService) IsAvailable(ctx context.Context, siteID, variantID string, quantity int) (bool, error) {
	if quantity < 1 {
		return false, apperrors.InvalidInput("quantity must be at least 1")
	}
	variant, err := s.variants.GetByID(ctx, siteID, variantID)
	if err != nil {
		return false, err
	}
	return variant.Available() >= quantity, nil
}

// ListLowStock returns variants at or below their low-stock threshold,
// most depleted first.
func (s *StockService) ListLowStock(ctx context.Context, siteID string, params pagination.Params) (pagination.Result[domain.ProductVariant], error) {
	variants, total, err := s.stock.ListLowStock(ctx, siteID, params.PerPage, params.Offset)
	if err != nil {
		return pagination.Result[domain.ProductVariant]{}, fmt.Errorf("list low stock: %w", err)
	}
	return pagination.NewResult(variants, total, params), nil
}

// Adjust applies a manual stock correction. Positive quantities add stock,
// negative quantities remove it; a removal that would oversell fails with
// Conflict.
func (s *StockService) Adjust(ctx context.Context, siteID, variantID string, quantity int) (*Availability, error) {
	if quantity == 0 {
		return nil, apperrors.InvalidInput("adjustment quantity must not be zero")
	}

	// Existence check scoped to the site before touching counters.
	variant, err := s.variants.GetByID(ctx, siteID, variantID)
	if err != nil {
		return nil, err
	}

	if quantity > 0 {
		err = s.stock.Increment(ctx, variantID, quantity, "adjustment")
	} else {
		var ok bool
		ok, err = s.stock.Decrement(ctx, variantID, -quantity, "adjustment")
		if err == nil && !ok {
			return nil, apperrors.Conflict(fmt.Sprintf(
				"cannot remove %d from %s: %d available", -quantity, variant.SKU, variant.Available()))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("adjust stock: %w", err)
	}

	s.logger.InfoContext(ctx, "stock adjusted",
		slog.String("variant_id", variantID),
		slog.Int("quantity", quantity),
	)
	return s.GetAvailability(ctx, siteID, variantID)
}
