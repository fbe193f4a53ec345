package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BasmalaAyman4/storefront-gateway/internal/locale"
)

func resolveLocale(t *testing.T, target string, header string) locale.Locale {
	t.Helper()

	var got locale.Locale
	handler := LocaleMiddleware(locale.English)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LocaleFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, target, nil)
	if header != "" {
		req.Header.Set("Accept-Language", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	return got
}

func TestLocaleFromQueryParameter(t *testing.T) {
	assert.Equal(t, locale.Arabic, resolveLocale(t, "/api/v1/home?lang=ar", ""))
	assert.Equal(t, locale.English, resolveLocale(t, "/api/v1/home?lang=en", ""))
}

func TestLocaleFromAcceptLanguageHeader(t *testing.T) {
	assert.Equal(t, locale.Arabic, resolveLocale(t, "/api/v1/home", "ar-EG,ar;q=0.9,en;q=0.8"))
	assert.Equal(t, locale.English, resolveLocale(t, "/api/v1/home", "en-US"))
}

func TestLocaleQueryWinsOverHeader(t *testing.T) {
	assert.Equal(t, locale.Arabic, resolveLocale(t, "/api/v1/home?lang=ar", "en-US"))
}

func TestLocaleFallsBackOnUnsupported(t *testing.T) {
	assert.Equal(t, locale.English, resolveLocale(t, "/api/v1/home", "fr-FR,fr;q=0.9"))
	assert.Equal(t, locale.English, resolveLocale(t, "/api/v1/home", ""))
}

func TestLocaleFromBareContext(t *testing.T) {
	assert.Equal(t, locale.English, LocaleFrom(context.Background()))
}
