package upstream

import "regexp"

// secretFields matches JSON string fields whose values are credential
// material. Field names are matched whole, case-insensitively.
var secretFields = regexp.MustCompile(`(?i)("(?:password|new_password|old_password|access_token|refresh_token|token|otp|code|authorization|secret)"\s*:\s*)"(?:[^"\\]|\\.)*"`)

const redactedPlaceholder = `"[REDACTED]"`

// RedactSecrets replaces credential-bearing JSON field values with a
// placeholder. Every request or response body must pass through here
// before reaching a log sink.
func RedactSecrets(body []byte) string {
	return secretFields.ReplaceAllString(string(body), "${1}"+redactedPlaceholder)
}
