// Package crypto provides HMAC request signing and encrypted key material
// handling for the exchange REST API.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HMACAuth holds the API credentials for signed exchange requests.
type HMACAuth struct {
	Key    string // API key, sent in the X-MBX-APIKEY header
	Secret string // API secret, the HMAC-SHA256 signing key
}

// SignQuery computes the hex-encoded HMAC-SHA256 signature of the canonical
// query string, which signed endpoints expect as the trailing `signature`
// parameter.
func (h *HMACAuth) SignQuery(query string) string {
	mac := hmac.New(sha256.New, []byte(h.Secret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

// String returns a redacted representation suitable for logging.
func (h *HMACAuth) String() string {
	redact := func(s string) string {
		if len(s) <= 4 {
			return "****"
		}
		return s[:4] + "****"
	}
	return fmt.Sprintf("HMACAuth{key=%s, secret=%s}", redact(h.Key), redact(h.Secret))
}
