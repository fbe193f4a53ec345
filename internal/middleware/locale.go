package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/BasmalaAyman4/storefront-gateway/internal/locale"
)

type localeKey struct{}

// LocaleMiddleware resolves the request locale from the lang query
// parameter, then the Accept-Language header, and attaches it to the
// request context. Unsupported languages fall back silently.
func LocaleMiddleware(fallback locale.Locale) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.URL.Query().Get("lang")
			if raw == "" {
				raw = firstLanguageTag(r.Header.Get("Accept-Language"))
			}

			loc, _ := locale.Parse(raw, fallback)
			ctx := context.WithValue(r.Context(), localeKey{}, loc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LocaleFrom returns the locale attached by LocaleMiddleware, defaulting
// to English when the middleware did not run.
func LocaleFrom(ctx context.Context) locale.Locale {
	if loc, ok := ctx.Value(localeKey{}).(locale.Locale); ok {
		return loc
	}
	return locale.English
}

func firstLanguageTag(header string) string {
	if header == "" {
		return ""
	}
	tag := header
	if i := strings.IndexAny(tag, ",;"); i >= 0 {
		tag = tag[:i]
	}
	return strings.TrimSpace(tag)
}
