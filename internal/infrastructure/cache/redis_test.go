package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bimakw/chain-portfolio/internal/domain/entities"
)

func setupRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisCacheFromClient(client, zap.NewNop()), mr
}

func testSnapshot() *entities.PortfolioSnapshot {
	return entities.NewPortfolioSnapshot(entities.ChainEthereum, "0xabc", 1.5, 2000, []entities.TokenHolding{
		entities.NewTokenHolding("USDC", "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", 250, 6, 1),
	}, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))
}

func TestRedisCache_BalanceFreshness(t *testing.T) {
	c, mr := setupRedisCache(t)
	ctx := context.Background()
	snapshot := testSnapshot()

	require.NoError(t, c.PutBalance(ctx, "addrX", entities.ChainEthereum, snapshot, 30*time.Second))

	mr.FastForward(29 * time.Second)
	got, found, err := c.GetBalance(ctx, "addrX", entities.ChainEthereum)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, snapshot, got)

	mr.FastForward(2 * time.Second)
	got, found, err = c.GetBalance(ctx, "addrX", entities.ChainEthereum)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestRedisCache_MissIsNotAnError(t *testing.T) {
	c, _ := setupRedisCache(t)

	got, found, err := c.GetBalance(context.Background(), "unknown", entities.ChainSolana)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestRedisCache_KeysAreChainScoped(t *testing.T) {
	c, mr := setupRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.PutBalance(ctx, "0xABC", entities.ChainEthereum, testSnapshot(), time.Minute))

	assert.True(t, mr.Exists("portfolio:balance:ethereum:0xabc"))

	_, found, err := c.GetBalance(ctx, "0xabc", entities.ChainEthereum)
	require.NoError(t, err)
	assert.True(t, found, "ethereum keys are case-insensitive")

	_, found, err = c.GetBalance(ctx, "0xabc", entities.ChainSolana)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCache_PriceAndMetadata(t *testing.T) {
	c, mr := setupRedisCache(t)
	ctx := context.Background()

	change := -1.5
	require.NoError(t, c.PutPrice(ctx, "mint", entities.ChainSolana, &entities.PriceQuote{PriceUSD: 142.3, Change24h: &change}, time.Minute))

	quote, found, err := c.GetPrice(ctx, "mint", entities.ChainSolana)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 142.3, quote.PriceUSD)
	require.NotNil(t, quote.Change24h)
	assert.Equal(t, -1.5, *quote.Change24h)

	logo := "https://example.com/logo.png"
	require.NoError(t, c.PutMetadata(ctx, "mint", entities.ChainSolana, &entities.TokenMetadata{LogoURI: &logo}, time.Hour))

	meta, found, err := c.GetMetadata(ctx, "mint", entities.ChainSolana)
	require.NoError(t, err)
	require.True(t, found)
	assert.Nil(t, meta.Name)
	require.NotNil(t, meta.LogoURI)
	assert.Equal(t, logo, *meta.LogoURI)

	mr.FastForward(2 * time.Minute)
	_, found, err = c.GetPrice(ctx, "mint", entities.ChainSolana)
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = c.GetMetadata(ctx, "mint", entities.ChainSolana)
	require.NoError(t, err)
	assert.True(t, found, "namespaces expire independently")
}

func TestRedisCache_StorageErrorsAreNotMisses(t *testing.T) {
	c, mr := setupRedisCache(t)
	ctx := context.Background()

	t.Run("corrupt value", func(t *testing.T) {
		require.NoError(t, mr.Set(Key(NamespaceBalance, entities.ChainEthereum, "0xbad"), "{not json"))

		_, found, err := c.GetBalance(ctx, "0xbad", entities.ChainEthereum)
		assert.Error(t, err)
		assert.False(t, found)
	})

	t.Run("server unavailable", func(t *testing.T) {
		mr.Close()

		_, found, err := c.GetBalance(ctx, "0xabc", entities.ChainEthereum)
		assert.Error(t, err)
		assert.False(t, found)

		err = c.PutBalance(ctx, "0xabc", entities.ChainEthereum, testSnapshot(), time.Minute)
		assert.Error(t, err)
	})
}

func TestRedisCache_RejectsNonPositiveTTL(t *testing.T) {
	c, _ := setupRedisCache(t)

	err := c.PutBalance(context.Background(), "0xabc", entities.ChainEthereum, testSnapshot(), 0)
	assert.Error(t, err)
}
