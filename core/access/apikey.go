/*Package access provides utilities for access control.

Routes of a collection can be marked private in their route settings.
A private route demands the operation's API key in the X-API-Key
request header.
*/
package access

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"net/http"
)

// APIKeyHeader is the request header carrying the key for private routes.
const APIKeyHeader = "X-API-Key"

const apiKeyPrefix = "ak_"
const apiKeyLength = 32
const apiKeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateAPIKey returns a fresh random key of the form ak_<32 chars>.
func GenerateAPIKey() string {
	key := make([]byte, apiKeyLength)
	max := big.NewInt(int64(len(apiKeyAlphabet)))
	for i := range key {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err) // crypto/rand failure is not recoverable
		}
		key[i] = apiKeyAlphabet[n.Int64()]
	}
	return apiKeyPrefix + string(key)
}

// Authorized reports whether the request carries the expected API key.
// An empty expected key means the route owner never generated one; such
// a route cannot be satisfied and is effectively locked.
func Authorized(r *http.Request, expectedKey string) bool {
	if expectedKey == "" {
		return false
	}
	provided := r.Header.Get(APIKeyHeader)
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expectedKey)) == 1
}
