package market

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bimakw/chain-portfolio/internal/config"
	"github.com/bimakw/chain-portfolio/internal/domain/entities"
	"github.com/bimakw/chain-portfolio/internal/domain/repositories"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNoMarket is returned when no priced pair trades the requested token
var ErrNoMarket = errors.New("no market for token")

// Ensure DexScreenerClient implements both provider interfaces
var (
	_ repositories.PriceProvider    = (*DexScreenerClient)(nil)
	_ repositories.MetadataProvider = (*DexScreenerClient)(nil)
)

// DexScreenerClient serves prices and display metadata from the DexScreener API
type DexScreenerClient struct {
	client  *fasthttp.Client
	baseURL string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewDexScreenerClient creates a new DexScreener client
func NewDexScreenerClient(cfg config.PriceConfig, logger *zap.Logger) *DexScreenerClient {
	return &DexScreenerClient{
		client:  &fasthttp.Client{},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.RequestTimeout,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		logger:  logger.Named("dexscreener"),
	}
}

// TokenPairs returns every pair DexScreener lists for a token
func (c *DexScreenerClient) TokenPairs(ctx context.Context, chain entities.Chain, tokenID string) ([]PairData, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	requestURL := fmt.Sprintf("%s/tokens/v1/%s/%s", c.baseURL, chain, tokenID)

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, fmt.Errorf("failed to execute request to %s: %w", requestURL, err)
		}
	} else {
		if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
			return nil, fmt.Errorf("failed to execute request to %s: %w", requestURL, err)
		}
	}

	body := resp.Body()
	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Warn("DexScreener request failed",
			zap.String("url", requestURL),
			zap.Int("status_code", resp.StatusCode()),
			zap.ByteString("body", body),
		)
		return nil, fmt.Errorf("dexscreener request to %s failed with status %d", requestURL, resp.StatusCode())
	}

	var envelope pairsEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Pairs != nil {
		return envelope.Pairs, nil
	}

	var pairs []PairData
	if err := json.Unmarshal(body, &pairs); err != nil {
		return nil, fmt.Errorf("failed to decode dexscreener response: %w", err)
	}

	return pairs, nil
}

// BestPair picks the most liquid priced pair whose base token is tokenID
func (c *DexScreenerClient) BestPair(ctx context.Context, chain entities.Chain, tokenID string) (*PairData, error) {
	pairs, err := c.TokenPairs(ctx, chain, tokenID)
	if err != nil {
		return nil, err
	}

	best := selectBestPair(pairs, chain, tokenID)
	if best == nil {
		return nil, fmt.Errorf("%w: %s on %s", ErrNoMarket, tokenID, chain)
	}

	return best, nil
}

// PriceOf returns the USD price and 24h change of the best pair
func (c *DexScreenerClient) PriceOf(ctx context.Context, tokenID string, chain entities.Chain) (*entities.PriceQuote, error) {
	pair, err := c.BestPair(ctx, chain, tokenID)
	if err != nil {
		return nil, err
	}

	price, _ := strconv.ParseFloat(pair.PriceUsd, 64)
	quote := &entities.PriceQuote{PriceUSD: price}
	if pair.PriceChange != nil && pair.PriceChange.H24 != nil {
		change := *pair.PriceChange.H24
		quote.Change24h = &change
	}

	return quote, nil
}

// MetadataOf returns the base token name and image of the best pair
func (c *DexScreenerClient) MetadataOf(ctx context.Context, tokenID string, chain entities.Chain) (*entities.TokenMetadata, error) {
	pair, err := c.BestPair(ctx, chain, tokenID)
	if err != nil {
		return nil, err
	}

	meta := &entities.TokenMetadata{Name: entities.StringPtr(pair.BaseToken.Name)}
	if pair.Info != nil {
		meta.LogoURI = entities.StringPtr(pair.Info.ImageURL)
	}

	return meta, nil
}

func selectBestPair(pairs []PairData, chain entities.Chain, tokenID string) *PairData {
	want := chain.NormalizeAddress(tokenID)

	var best *PairData
	for i := range pairs {
		pair := &pairs[i]
		if chain.NormalizeAddress(pair.BaseToken.Address) != want {
			continue
		}
		price, err := strconv.ParseFloat(pair.PriceUsd, 64)
		if err != nil || price <= 0 {
			continue
		}
		if best == nil || pair.liquidityUSD() > best.liquidityUSD() {
			best = pair
		}
	}

	return best
}
