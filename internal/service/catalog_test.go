package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BasmalaAyman4/storefront-gateway/internal/config"
	"github.com/BasmalaAyman4/storefront-gateway/internal/locale"
	"github.com/BasmalaAyman4/storefront-gateway/internal/models"
	"github.com/BasmalaAyman4/storefront-gateway/internal/upstream"
)

type fakeEntry struct {
	value []byte
	ttl   time.Duration
	tags  []string
}

type fakeCache struct {
	mu     sync.Mutex
	data   map[string]fakeEntry
	getErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]fakeEntry)}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	e, ok := c.data[key]
	if !ok {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = fakeEntry{value: value, ttl: ttl, tags: tags}
	return nil
}

func (c *fakeCache) DeleteByTag(ctx context.Context, tag string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.data {
		for _, have := range e.tags {
			if have == tag {
				delete(c.data, key)
				break
			}
		}
	}
	return nil
}

func (c *fakeCache) Close() error { return nil }

func (c *fakeCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

type fakeCatalogUpstream struct {
	mu            sync.Mutex
	homeCalls     int
	productCalls  int
	bundleCalls   int
	searchCalls   int
	categoryCalls int
	bannerCalls   int

	home       *models.HomeFeed
	product    *models.Product
	productErr error
	bundle     *models.ProductBundle
	search     *models.SearchResult
	categories []models.Category
	banners    []models.Banner
}

func (f *fakeCatalogUpstream) HomeFeed(ctx context.Context, loc locale.Locale) (*models.HomeFeed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.homeCalls++
	return f.home, nil
}

func (f *fakeCatalogUpstream) ProductByID(ctx context.Context, id string, loc locale.Locale) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.productCalls++
	if f.productErr != nil {
		return nil, f.productErr
	}
	out := *f.product
	return &out, nil
}

func (f *fakeCatalogUpstream) ProductBundle(ctx context.Context, id string, loc locale.Locale) (*models.ProductBundle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bundleCalls++
	return f.bundle, nil
}

func (f *fakeCatalogUpstream) Search(ctx context.Context, req models.SearchRequest, loc locale.Locale) (*models.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	return f.search, nil
}

func (f *fakeCatalogUpstream) Categories(ctx context.Context, loc locale.Locale) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categoryCalls++
	return f.categories, nil
}

func (f *fakeCatalogUpstream) Banners(ctx context.Context, loc locale.Locale) ([]models.Banner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bannerCalls++
	return f.banners, nil
}

func validProduct(id string) *models.Product {
	return &models.Product{
		ID:    id,
		Name:  "Ceramic Mug",
		Price: decimal.NewFromInt(120),
	}
}

func newTestCatalogService(up *fakeCatalogUpstream, store *fakeCache) *CatalogService {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &config.CacheConfig{
		SearchTTL:   time.Minute,
		HomeTTL:     5 * time.Minute,
		ProductTTL:  10 * time.Minute,
		CategoryTTL: time.Hour,
		BannerTTL:   5 * time.Minute,
	}
	return NewCatalogService(up, store, cfg, logger)
}

func TestProductServedFromCache(t *testing.T) {
	up := &fakeCatalogUpstream{product: validProduct("p1")}
	store := newFakeCache()
	svc := newTestCatalogService(up, store)
	ctx := context.Background()

	first, err := svc.Product(ctx, "p1", locale.English)
	require.NoError(t, err)

	second, err := svc.Product(ctx, "p1", locale.English)
	require.NoError(t, err)

	assert.Equal(t, 1, up.productCalls, "second read must come from the cache")
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.Price.Equal(second.Price))
}

func TestProductCacheKeyedByLocale(t *testing.T) {
	up := &fakeCatalogUpstream{product: validProduct("p1")}
	store := newFakeCache()
	svc := newTestCatalogService(up, store)
	ctx := context.Background()

	_, err := svc.Product(ctx, "p1", locale.Arabic)
	require.NoError(t, err)
	_, err = svc.Product(ctx, "p1", locale.English)
	require.NoError(t, err)

	assert.Equal(t, 2, up.productCalls)
	assert.Equal(t, 2, store.size())
}

func TestProductUsesProductTTLTier(t *testing.T) {
	up := &fakeCatalogUpstream{product: validProduct("p1")}
	store := newFakeCache()
	svc := newTestCatalogService(up, store)

	_, err := svc.Product(context.Background(), "p1", locale.English)
	require.NoError(t, err)

	entry, ok := store.data["catalog:product:en:p1"]
	require.True(t, ok)
	assert.Equal(t, 10*time.Minute, entry.ttl)
	assert.Contains(t, entry.tags, "products")
	assert.Contains(t, entry.tags, "product:p1")
}

func TestMalformedProductNeverCached(t *testing.T) {
	up := &fakeCatalogUpstream{product: &models.Product{ID: "p1", Price: decimal.NewFromInt(10)}}
	store := newFakeCache()
	svc := newTestCatalogService(up, store)
	ctx := context.Background()

	_, err := svc.Product(ctx, "p1", locale.English)
	assert.ErrorIs(t, err, upstream.ErrInvalidResponse)
	assert.Equal(t, 0, store.size())

	// The bad payload must not poison later reads either.
	_, err = svc.Product(ctx, "p1", locale.English)
	assert.ErrorIs(t, err, upstream.ErrInvalidResponse)
	assert.Equal(t, 2, up.productCalls)
}

func TestNegativePriceRejected(t *testing.T) {
	bad := validProduct("p1")
	bad.Price = decimal.NewFromInt(-5)
	up := &fakeCatalogUpstream{product: bad}
	store := newFakeCache()
	svc := newTestCatalogService(up, store)

	_, err := svc.Product(context.Background(), "p1", locale.English)
	assert.ErrorIs(t, err, upstream.ErrInvalidResponse)
	assert.Equal(t, 0, store.size())
}

func TestInvalidateTagForcesRefetch(t *testing.T) {
	up := &fakeCatalogUpstream{product: validProduct("p1")}
	store := newFakeCache()
	svc := newTestCatalogService(up, store)
	ctx := context.Background()

	_, err := svc.Product(ctx, "p1", locale.English)
	require.NoError(t, err)

	require.NoError(t, svc.InvalidateTag(ctx, "product:p1"))

	_, err = svc.Product(ctx, "p1", locale.English)
	require.NoError(t, err)
	assert.Equal(t, 2, up.productCalls)
}

func TestSearchUsesSearchTTLTier(t *testing.T) {
	up := &fakeCatalogUpstream{search: &models.SearchResult{
		Items: []models.Product{*validProduct("p1")},
		Total: 1,
	}}
	store := newFakeCache()
	svc := newTestCatalogService(up, store)
	ctx := context.Background()

	req := models.SearchRequest{Query: "mug", Page: 1, PageSize: 20}
	_, err := svc.Search(ctx, req, locale.English)
	require.NoError(t, err)

	require.Equal(t, 1, store.size())
	for key, entry := range store.data {
		assert.Contains(t, key, "catalog:search:en:")
		assert.Contains(t, key, "mug")
		assert.Equal(t, time.Minute, entry.ttl)
	}

	// The identical request is answered from the cache.
	_, err = svc.Search(ctx, req, locale.English)
	require.NoError(t, err)
	assert.Equal(t, 1, up.searchCalls)

	// A different query is a different key.
	_, err = svc.Search(ctx, models.SearchRequest{Query: "plate", Page: 1, PageSize: 20}, locale.English)
	require.NoError(t, err)
	assert.Equal(t, 2, up.searchCalls)
}

func TestHomeValidatesSectionProducts(t *testing.T) {
	up := &fakeCatalogUpstream{home: &models.HomeFeed{
		Sections: []models.HomeSection{
			{Title: "Deals", Products: []models.Product{{ID: "p1"}}},
		},
	}}
	store := newFakeCache()
	svc := newTestCatalogService(up, store)

	_, err := svc.Home(context.Background(), locale.English)
	assert.ErrorIs(t, err, upstream.ErrInvalidResponse)
	assert.Equal(t, 0, store.size())
}

func TestBundleValidatesRelatedProducts(t *testing.T) {
	up := &fakeCatalogUpstream{bundle: &models.ProductBundle{
		Product: *validProduct("p1"),
		Related: []models.Product{{ID: "p2", Price: decimal.NewFromInt(3)}},
	}}
	store := newFakeCache()
	svc := newTestCatalogService(up, store)

	_, err := svc.Bundle(context.Background(), "p1", locale.English)
	assert.ErrorIs(t, err, upstream.ErrInvalidResponse)
	assert.Equal(t, 0, store.size())
}

func TestCacheReadFailureFallsBackToFetch(t *testing.T) {
	up := &fakeCatalogUpstream{product: validProduct("p1")}
	store := newFakeCache()
	store.getErr = errors.New("connection refused")
	svc := newTestCatalogService(up, store)

	got, err := svc.Product(context.Background(), "p1", locale.English)
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, 1, up.productCalls)
}

func TestFetchErrorPropagates(t *testing.T) {
	up := &fakeCatalogUpstream{productErr: &upstream.StatusError{Status: 502, Message: "bad gateway"}}
	store := newFakeCache()
	svc := newTestCatalogService(up, store)

	_, err := svc.Product(context.Background(), "p1", locale.English)
	require.Error(t, err)

	var statusErr *upstream.StatusError
	assert.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 0, store.size())
}

func TestCategoriesCachedWholeList(t *testing.T) {
	up := &fakeCatalogUpstream{categories: []models.Category{{ID: "c1", Name: "Kitchen"}}}
	store := newFakeCache()
	svc := newTestCatalogService(up, store)
	ctx := context.Background()

	first, err := svc.Categories(ctx, locale.English)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.Categories(ctx, locale.English)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, up.categoryCalls)

	entry, ok := store.data["catalog:categories:en"]
	require.True(t, ok)
	assert.Equal(t, time.Hour, entry.ttl)
}
