package locale

import "fmt"

// Locale identifies one of the two storefront languages.
type Locale string

const (
	Arabic  Locale = "ar"
	English Locale = "en"
)

// LangCode returns the upstream langCode header value for the locale.
func (l Locale) LangCode() string {
	if l == Arabic {
		return "1"
	}
	return "2"
}

func (l Locale) String() string {
	return string(l)
}

// Parse converts a raw language tag into a supported Locale. Region
// subtags are tolerated ("ar-EG" maps to Arabic). Empty input falls
// back to the default locale.
func Parse(raw string, fallback Locale) (Locale, error) {
	switch {
	case raw == "":
		return fallback, nil
	case raw == "ar" || len(raw) > 2 && raw[:3] == "ar-":
		return Arabic, nil
	case raw == "en" || len(raw) > 2 && raw[:3] == "en-":
		return English, nil
	default:
		return fallback, fmt.Errorf("locale: unsupported language %q", raw)
	}
}
