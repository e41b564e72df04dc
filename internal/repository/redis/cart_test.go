package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/domain"
	apperrors "github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/errors"
)

func setupTestRedis(t *testing.T) (*CartRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCartRepository(client, 24*time.Hour), mr
}

func sampleCart() *domain.Cart {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.Cart{
		ID:       "cart-001",
		SiteID:   "site-1",
		UserID:   "user-001",
		Currency: "EUR",
		Locale:   "fr",
		Segment:  domain.SegmentB2C,
		Items: []domain.CartItem{
			{
				VariantID: "var-1",
				ProductID: "prod-1",
				Quantity:  2,
				UnitPrice: 1990,
				BasePrice: 1990,
				Snapshot:  domain.ProductSnapshot{Name: "Widget", SKU: "WDG-1"},
				AddedAt:   now,
			},
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
}

func TestCartRepository_GetByUser(t *testing.T) {
	repo, mr := setupTestRedis(t)

	cart := sampleCart()
	data, err := json.Marshal(cart)
	require.NoError(t, err)
	require.NoError(t, mr.Set("cart:user:site-1:user-001", string(data)))

	got, err := repo.GetByUser(context.Background(), "site-1", "user-001")
	require.NoError(t, err)
	assert.Equal(t, cart.ID, got.ID)
	assert.Equal(t, cart.Currency, got.Currency)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "var-1", got.Items[0].VariantID)
	assert.Equal(t, int64(1990), got.Items[0].UnitPrice)
}

func TestCartRepository_GetByUser_NotFound(t *testing.T) {
	repo, _ := setupTestRedis(t)

	got, err := repo.GetByUser(context.Background(), "site-1", "nobody")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCartRepository_GetByGuest(t *testing.T) {
	repo, _ := setupTestRedis(t)

	cart := sampleCart()
	cart.UserID = ""
	cart.GuestToken = "tok-123"
	require.NoError(t, repo.Save(context.Background(), cart))

	got, err := repo.GetByGuest(context.Background(), "site-1", "tok-123")
	require.NoError(t, err)
	assert.Equal(t, cart.ID, got.ID)
	assert.Equal(t, "tok-123", got.GuestToken)
}

func TestCartRepository_Get_InvalidJSON(t *testing.T) {
	repo, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("cart:user:site-1:user-bad", "{{nope"))

	_, err := repo.GetByUser(context.Background(), "site-1", "user-bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal cart")
}

func TestCartRepository_Save_TTL(t *testing.T) {
	repo, mr := setupTestRedis(t)

	require.NoError(t, repo.Save(context.Background(), sampleCart()))

	ttl := mr.TTL("cart:user:site-1:user-001")
	assert.True(t, ttl > 23*time.Hour, "expected TTL > 23h, got %v", ttl)
	assert.True(t, ttl <= 24*time.Hour, "expected TTL <= 24h, got %v", ttl)
}

func TestCartRepository_SaveIfVersion_Success(t *testing.T) {
	repo, _ := setupTestRedis(t)

	cart := sampleCart()
	require.NoError(t, repo.Save(context.Background(), cart))

	cart.Items = append(cart.Items, domain.CartItem{
		VariantID: "var-2",
		ProductID: "prod-2",
		Quantity:  1,
		UnitPrice: 4500,
	})

	ok, err := repo.SaveIfVersion(context.Background(), cart, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, cart.Version)

	got, err := repo.GetByUser(context.Background(), "site-1", "user-001")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Len(t, got.Items, 2)
}

func TestCartRepository_SaveIfVersion_Mismatch(t *testing.T) {
	repo, _ := setupTestRedis(t)

	cart := sampleCart()
	require.NoError(t, repo.Save(context.Background(), cart))

	ok, err := repo.SaveIfVersion(context.Background(), cart, 99)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetByUser(context.Background(), "site-1", "user-001")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	assert.Len(t, got.Items, 1)
}

func TestCartRepository_SaveIfVersion_NewCart(t *testing.T) {
	repo, _ := setupTestRedis(t)

	cart := sampleCart()
	cart.Version = 0

	ok, err := repo.SaveIfVersion(context.Background(), cart, 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, cart.Version)
}

func TestCartRepository_SaveIfVersion_NewCartButKeyExists(t *testing.T) {
	repo, _ := setupTestRedis(t)

	cart := sampleCart()
	require.NoError(t, repo.Save(context.Background(), cart))

	// Another request thinks the cart is new; the stored version is 1.
	fresh := sampleCart()
	ok, err := repo.SaveIfVersion(context.Background(), fresh, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCartRepository_Delete(t *testing.T) {
	repo, mr := setupTestRedis(t)

	cart := sampleCart()
	require.NoError(t, repo.Save(context.Background(), cart))
	require.True(t, mr.Exists("cart:user:site-1:user-001"))

	require.NoError(t, repo.Delete(context.Background(), cart))
	assert.False(t, mr.Exists("cart:user:site-1:user-001"))
}
