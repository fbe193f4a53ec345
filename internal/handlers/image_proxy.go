package handlers

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/BasmalaAyman4/storefront-gateway/internal/config"
)

// ImageProxyHandler streams product imagery from allow-listed origins so
// the storefront can serve everything from one host. Proxied bodies get a
// long-lived immutable cache header because image URLs are versioned
// upstream.
type ImageProxyHandler struct {
	cfg    config.ImageProxyConfig
	client *http.Client
	logger *logrus.Logger
}

func NewImageProxyHandler(cfg config.ImageProxyConfig, logger *logrus.Logger) *ImageProxyHandler {
	return &ImageProxyHandler{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// Proxy handles GET /images?url=...
func (h *ImageProxyHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		respondWithError(w, http.StatusBadRequest, "MISSING_URL", "Query parameter url is required")
		return
	}

	target, err := url.Parse(raw)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
		respondWithError(w, http.StatusBadRequest, "INVALID_URL", "URL must be absolute http or https")
		return
	}

	if !h.allowedOrigin(target.Hostname()) {
		respondWithError(w, http.StatusForbidden, "ORIGIN_NOT_ALLOWED", "Image origin is not allow-listed")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_URL", "URL must be absolute http or https")
		return
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.WithError(err).WithField("host", target.Hostname()).Warn("Image fetch failed")
		respondWithError(w, http.StatusBadGateway, "UPSTREAM_UNREACHABLE", "Could not fetch the image")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respondWithError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Image origin returned an error")
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		respondWithError(w, http.StatusBadRequest, "NOT_AN_IMAGE", "The URL does not point to an image")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, io.LimitReader(resp.Body, h.cfg.MaxBodyBytes)); err != nil {
		h.logger.WithError(err).Debug("Image stream interrupted")
	}
}

// allowedOrigin matches the host exactly or as a subdomain of an
// allow-listed entry.
func (h *ImageProxyHandler) allowedOrigin(host string) bool {
	host = strings.ToLower(host)
	for _, allowed := range h.cfg.AllowedHosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed == "" {
			continue
		}
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}
