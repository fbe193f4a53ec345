package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/BasmalaAyman4/storefront-gateway/internal/middleware"
	"github.com/BasmalaAyman4/storefront-gateway/internal/models"
	"github.com/BasmalaAyman4/storefront-gateway/internal/service"
)

type CatalogHandlers struct {
	catalog *service.CatalogService
	logger  *logrus.Logger
}

func NewCatalogHandlers(catalog *service.CatalogService, logger *logrus.Logger) *CatalogHandlers {
	return &CatalogHandlers{
		catalog: catalog,
		logger:  logger,
	}
}

// Home handles GET /api/v1/home.
func (h *CatalogHandlers) Home(w http.ResponseWriter, r *http.Request) {
	feed, err := h.catalog.Home(r.Context(), middleware.LocaleFrom(r.Context()))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, feed)
}

// Product handles GET /api/v1/products/{id}.
func (h *CatalogHandlers) Product(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Product ID is required")
		return
	}

	product, err := h.catalog.Product(r.Context(), id, middleware.LocaleFrom(r.Context()))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, product)
}

// Bundle handles GET /api/v1/products/{id}/bundle.
func (h *CatalogHandlers) Bundle(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Product ID is required")
		return
	}

	bundle, err := h.catalog.Bundle(r.Context(), id, middleware.LocaleFrom(r.Context()))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, bundle)
}

// Search handles POST /api/v1/search.
func (h *CatalogHandlers) Search(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 20
	}

	result, err := h.catalog.Search(r.Context(), req, middleware.LocaleFrom(r.Context()))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// Categories handles GET /api/v1/categories.
func (h *CatalogHandlers) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context(), middleware.LocaleFrom(r.Context()))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, categories)
}

// Banners handles GET /api/v1/banners.
func (h *CatalogHandlers) Banners(w http.ResponseWriter, r *http.Request) {
	banners, err := h.catalog.Banners(r.Context(), middleware.LocaleFrom(r.Context()))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, banners)
}

type InvalidateCacheRequest struct {
	Tag string `json:"tag"`
}

type InvalidateCacheResponse struct {
	Message string `json:"message"`
}

// InvalidateCache handles POST /internal/cache/invalidate. It is mounted
// outside the public API surface.
func (h *CatalogHandlers) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	var req InvalidateCacheRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if req.Tag == "" {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Tag is required")
		return
	}

	if err := h.catalog.InvalidateTag(r.Context(), req.Tag); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, InvalidateCacheResponse{Message: "Cache invalidated"})
}
