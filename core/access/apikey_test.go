package access

import (
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateAPIKey(t *testing.T) {
	format := regexp.MustCompile(`^ak_[a-zA-Z0-9]{32}$`)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		key := GenerateAPIKey()
		assert.Regexp(t, format, key)
		assert.False(t, seen[key], "keys must not repeat")
		seen[key] = true
	}
}

func TestAuthorized(t *testing.T) {
	key := GenerateAPIKey()

	request := func(header string) *http.Request {
		r, _ := http.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set(APIKeyHeader, header)
		}
		return r
	}

	assert.True(t, Authorized(request(key), key))
	assert.False(t, Authorized(request("ak_wrong"), key))
	assert.False(t, Authorized(request(""), key))
	// a route without a configured key can never be authorized
	assert.False(t, Authorized(request(key), ""))
	assert.False(t, Authorized(request(""), ""))
}
