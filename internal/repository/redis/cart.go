// Package redis stores carts as JSON blobs with a TTL matching the cart
// lifetime. Optimistic concurrency uses a version-compare-and-set Lua script
// so concurrent mutations of the same cart cannot lose updates.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/domain"
	apperrors "github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/errors"
)

// saveIfVersionScript compares the stored cart's version against the
// expected one before overwriting. Expected version 0 matches an absent key,
// so first saves go through the same path.
var saveIfVersionScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
local expected = tonumber(ARGV[1])
if current then
	local decoded = cjson.decode(current)
	local version = tonumber(decoded.version) or 0
	if version ~= expected then
		return 0
	end
elseif expected ~= 0 then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// CartRepository implements repository.CartRepository on Redis.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository creates a Redis-backed cart repository. ttl is the cart
// lifetime, refreshed on every save.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{client: client, ttl: ttl}
}

func userKey(siteID, userID string) string {
	return fmt.Sprintf("cart:user:%s:%s", siteID, userID)
}

func guestKey(siteID, guestToken string) string {
	return fmt.Sprintf("cart:guest:%s:%s", siteID, guestToken)
}

func cartKey(cart *domain.Cart) string {
	if cart.UserID != "" {
		return userKey(cart.SiteID, cart.UserID)
	}
	return guestKey(cart.SiteID, cart.GuestToken)
}

// GetByUser retrieves the cart owned by an authenticated user.
func (r *CartRepository) GetByUser(ctx context.Context, siteID, userID string) (*domain.Cart, error) {
	return r.get(ctx, userKey(siteID, userID), userID)
}

// GetByGuest retrieves the cart owned by an anonymous guest token.
func (r *CartRepository) GetByGuest(ctx context.Context, siteID, guestToken string) (*domain.Cart, error) {
	return r.get(ctx, guestKey(siteID, guestToken), guestToken)
}

func (r *CartRepository) get(ctx context.Context, key, owner string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("cart", owner)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}

	return &cart, nil
}

// Save persists the cart unconditionally with a fresh TTL.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	if err := r.client.Set(ctx, cartKey(cart), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}

	return nil
}

// SaveIfVersion persists the cart only if the stored version still equals
// expectedVersion. On success the cart's version becomes expectedVersion+1.
func (r *CartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error) {
	next := *cart
	next.Version = expectedVersion + 1

	data, err := json.Marshal(&next)
	if err != nil {
		return false, fmt.Errorf("marshal cart: %w", err)
	}

	res, err := saveIfVersionScript.Run(ctx, r.client,
		[]string{cartKey(cart)},
		expectedVersion, string(data), r.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis cas cart: %w", err)
	}
	if res != 1 {
		return false, nil
	}

	cart.Version = next.Version
	return true, nil
}

// Delete removes the cart's key.
func (r *CartRepository) Delete(ctx context.Context, cart *domain.Cart) error {
	if err := r.client.Del(ctx, cartKey(cart)).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}
