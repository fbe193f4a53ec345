package upstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactSecrets(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "password field",
			input: `{"mobile":"0100000000","password":"Passw0rd!"}`,
			want:  `{"mobile":"0100000000","password":"[REDACTED]"}`,
		},
		{
			name:  "access token field",
			input: `{"user_id":"u1","access_token":"T1"}`,
			want:  `{"user_id":"u1","access_token":"[REDACTED]"}`,
		},
		{
			name:  "otp code field",
			input: `{"flow_id":"f1","code":"123456"}`,
			want:  `{"flow_id":"f1","code":"[REDACTED]"}`,
		},
		{
			name:  "case insensitive",
			input: `{"Password":"hunter2"}`,
			want:  `{"Password":"[REDACTED]"}`,
		},
		{
			name:  "value with escaped quote",
			input: `{"token":"a\"b","next":"keep"}`,
			want:  `{"token":"[REDACTED]","next":"keep"}`,
		},
		{
			name:  "multiple secrets in one body",
			input: `{"password":"a","refresh_token":"b"}`,
			want:  `{"password":"[REDACTED]","refresh_token":"[REDACTED]"}`,
		},
		{
			name:  "similar field names untouched",
			input: `{"error_code":"E42","token_count":"3"}`,
			want:  `{"error_code":"E42","token_count":"3"}`,
		},
		{
			name:  "no secrets",
			input: `{"query":"milk","page":1}`,
			want:  `{"query":"milk","page":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactSecrets([]byte(tt.input)))
		})
	}
}
