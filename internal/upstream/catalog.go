package upstream

import (
	"context"
	"net/http"
	"net/url"

	"github.com/BasmalaAyman4/storefront-gateway/internal/locale"
	"github.com/BasmalaAyman4/storefront-gateway/internal/models"
)

func (c *Client) HomeFeed(ctx context.Context, loc locale.Locale) (*models.HomeFeed, error) {
	var feed models.HomeFeed
	_, err := c.Do(ctx, Request{
		Method:  http.MethodGet,
		Path:    "/home",
		Locale:  loc,
		Retries: c.cfg.MaxRetries,
		Out:     &feed,
	})
	if err != nil {
		return nil, err
	}
	return &feed, nil
}

func (c *Client) ProductByID(ctx context.Context, id string, loc locale.Locale) (*models.Product, error) {
	var product models.Product
	_, err := c.Do(ctx, Request{
		Method:  http.MethodGet,
		Path:    "/products/" + url.PathEscape(id),
		Locale:  loc,
		Retries: c.cfg.MaxRetries,
		Out:     &product,
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) ProductBundle(ctx context.Context, id string, loc locale.Locale) (*models.ProductBundle, error) {
	var bundle models.ProductBundle
	_, err := c.Do(ctx, Request{
		Method:  http.MethodGet,
		Path:    "/products/" + url.PathEscape(id) + "/bundle",
		Locale:  loc,
		Retries: c.cfg.MaxRetries,
		Out:     &bundle,
	})
	if err != nil {
		return nil, err
	}
	return &bundle, nil
}

func (c *Client) Search(ctx context.Context, req models.SearchRequest, loc locale.Locale) (*models.SearchResult, error) {
	var result models.SearchResult
	_, err := c.Do(ctx, Request{
		Method:  http.MethodPost,
		Path:    "/products/search",
		Body:    req,
		Locale:  loc,
		Retries: c.cfg.MaxRetries,
		Out:     &result,
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Categories(ctx context.Context, loc locale.Locale) ([]models.Category, error) {
	var categories []models.Category
	_, err := c.Do(ctx, Request{
		Method:  http.MethodGet,
		Path:    "/categories",
		Locale:  loc,
		Retries: c.cfg.MaxRetries,
		Out:     &categories,
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) Banners(ctx context.Context, loc locale.Locale) ([]models.Banner, error) {
	var banners []models.Banner
	_, err := c.Do(ctx, Request{
		Method:  http.MethodGet,
		Path:    "/banners",
		Locale:  loc,
		Retries: c.cfg.MaxRetries,
		Out:     &banners,
	})
	if err != nil {
		return nil, err
	}
	return banners, nil
}
