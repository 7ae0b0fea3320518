package linepay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Signature is the base64 value sent in X-LINE-Authorization.
type Signature string

func (s Signature) String() string { return string(s) }

// Sign computes base64(HMAC-SHA256(secret, secret+apiPath+body+nonce)).
// The body must be the exact bytes that go on the wire.
func Sign(channelSecret, apiPath string, body []byte, nonce string) (Signature, error) {
	if channelSecret == "" {
		return "", ErrMisconfiguredCredentials
	}

	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write([]byte(channelSecret))
	mac.Write([]byte(apiPath))
	mac.Write(body)
	mac.Write([]byte(nonce))

	return Signature(base64.StdEncoding.EncodeToString(mac.Sum(nil))), nil
}

// Verify recomputes the signature and compares it in constant time.
func Verify(channelSecret, apiPath string, body []byte, nonce string, sig Signature) bool {
	expected, err := Sign(channelSecret, apiPath, body, nonce)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(sig))
}
