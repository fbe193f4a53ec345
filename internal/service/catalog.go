package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/BasmalaAyman4/storefront-gateway/internal/cache"
	"github.com/BasmalaAyman4/storefront-gateway/internal/config"
	"github.com/BasmalaAyman4/storefront-gateway/internal/locale"
	"github.com/BasmalaAyman4/storefront-gateway/internal/models"
	"github.com/BasmalaAyman4/storefront-gateway/internal/upstream"
)

// catalogUpstream is the slice of the upstream client the catalog reads
// through.
type catalogUpstream interface {
	HomeFeed(ctx context.Context, loc locale.Locale) (*models.HomeFeed, error)
	ProductByID(ctx context.Context, id string, loc locale.Locale) (*models.Product, error)
	ProductBundle(ctx context.Context, id string, loc locale.Locale) (*models.ProductBundle, error)
	Search(ctx context.Context, req models.SearchRequest, loc locale.Locale) (*models.SearchResult, error)
	Categories(ctx context.Context, loc locale.Locale) ([]models.Category, error)
	Banners(ctx context.Context, loc locale.Locale) ([]models.Banner, error)
}

// CatalogService serves storefront content through the cache. Every key
// embeds the locale so the two languages never share an entry, and a
// fetch error is always surfaced rather than papered over with stale
// data.
type CatalogService struct {
	upstream catalogUpstream
	cache    cache.Cache
	ttl      config.CacheConfig
	validate *validator.Validate
	logger   *logrus.Logger
}

func NewCatalogService(client catalogUpstream, store cache.Cache, cfg *config.CacheConfig, logger *logrus.Logger) *CatalogService {
	return &CatalogService{
		upstream: client,
		cache:    store,
		ttl:      *cfg,
		validate: validator.New(),
		logger:   logger,
	}
}

func (s *CatalogService) Home(ctx context.Context, loc locale.Locale) (*models.HomeFeed, error) {
	key := fmt.Sprintf("catalog:home:%s", loc)
	return fetchCached(ctx, s, key, s.ttl.HomeTTL, []string{"home"},
		func(ctx context.Context) (*models.HomeFeed, error) {
			return s.upstream.HomeFeed(ctx, loc)
		},
		func(feed *models.HomeFeed) error {
			for _, section := range feed.Sections {
				for i := range section.Products {
					if err := s.checkProduct(&section.Products[i]); err != nil {
						return err
					}
				}
			}
			return nil
		})
}

func (s *CatalogService) Product(ctx context.Context, id string, loc locale.Locale) (*models.Product, error) {
	key := fmt.Sprintf("catalog:product:%s:%s", loc, id)
	tags := []string{"products", "product:" + id}
	return fetchCached(ctx, s, key, s.ttl.ProductTTL, tags,
		func(ctx context.Context) (*models.Product, error) {
			return s.upstream.ProductByID(ctx, id, loc)
		},
		s.checkProduct)
}

func (s *CatalogService) Bundle(ctx context.Context, id string, loc locale.Locale) (*models.ProductBundle, error) {
	key := fmt.Sprintf("catalog:bundle:%s:%s", loc, id)
	tags := []string{"products", "product:" + id}
	return fetchCached(ctx, s, key, s.ttl.ProductTTL, tags,
		func(ctx context.Context) (*models.ProductBundle, error) {
			return s.upstream.ProductBundle(ctx, id, loc)
		},
		func(bundle *models.ProductBundle) error {
			if err := s.checkProduct(&bundle.Product); err != nil {
				return err
			}
			for i := range bundle.Related {
				if err := s.checkProduct(&bundle.Related[i]); err != nil {
					return err
				}
			}
			return nil
		})
}

func (s *CatalogService) Search(ctx context.Context, req models.SearchRequest, loc locale.Locale) (*models.SearchResult, error) {
	params, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}
	key := fmt.Sprintf("catalog:search:%s:%s", loc, params)
	return fetchCached(ctx, s, key, s.ttl.SearchTTL, []string{"search", "products"},
		func(ctx context.Context) (*models.SearchResult, error) {
			return s.upstream.Search(ctx, req, loc)
		},
		func(result *models.SearchResult) error {
			for i := range result.Items {
				if err := s.checkProduct(&result.Items[i]); err != nil {
					return err
				}
			}
			return nil
		})
}

func (s *CatalogService) Categories(ctx context.Context, loc locale.Locale) ([]models.Category, error) {
	key := fmt.Sprintf("catalog:categories:%s", loc)
	return fetchCached(ctx, s, key, s.ttl.CategoryTTL, []string{"categories"},
		func(ctx context.Context) ([]models.Category, error) {
			return s.upstream.Categories(ctx, loc)
		},
		nil)
}

func (s *CatalogService) Banners(ctx context.Context, loc locale.Locale) ([]models.Banner, error) {
	key := fmt.Sprintf("catalog:banners:%s", loc)
	return fetchCached(ctx, s, key, s.ttl.BannerTTL, []string{"banners"},
		func(ctx context.Context) ([]models.Banner, error) {
			return s.upstream.Banners(ctx, loc)
		},
		nil)
}

// InvalidateTag drops every cached document carrying the tag.
func (s *CatalogService) InvalidateTag(ctx context.Context, tag string) error {
	if err := s.cache.DeleteByTag(ctx, tag); err != nil {
		s.logger.WithError(err).WithField("tag", tag).Error("Failed to invalidate cache tag")
		return fmt.Errorf("failed to invalidate cache tag: %w", err)
	}
	return nil
}

// checkProduct rejects product payloads missing the fields the storefront
// renders. A payload that fails here is treated as an invalid response
// and never cached.
func (s *CatalogService) checkProduct(p *models.Product) error {
	if err := s.validate.Struct(p); err != nil {
		return fmt.Errorf("%w: product %q: %v", upstream.ErrInvalidResponse, p.ID, err)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: product %q has a negative price", upstream.ErrInvalidResponse, p.ID)
	}
	return nil
}

// fetchCached returns the cached document under key when fresh, otherwise
// fetches, checks, caches and returns it. Cache failures degrade to a
// fetch; fetch and check failures propagate and nothing is cached.
func fetchCached[T any](ctx context.Context, s *CatalogService, key string, ttl time.Duration, tags []string, fetch func(context.Context) (T, error), check func(T) error) (T, error) {
	var zero T

	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Cache read failed")
	} else if ok {
		var out T
		if err := json.Unmarshal(raw, &out); err == nil {
			return out, nil
		}
		s.logger.WithField("key", key).Warn("Dropping undecodable cache entry")
	}

	value, err := fetch(ctx)
	if err != nil {
		return zero, err
	}
	if check != nil {
		if err := check(value); err != nil {
			return zero, err
		}
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return zero, fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}
	if err := s.cache.Set(ctx, key, raw, ttl, tags...); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Cache write failed")
	}

	return value, nil
}
