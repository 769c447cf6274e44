package reconciler

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// verifySignature recomputes the keyed hash over the raw payload bytes
// and compares in constant time. A missing or non-hex signature is a
// mismatch.
func verifySignature(secret, rawPayload []byte, signature string) bool {
	if signature == "" {
		return false
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, secret)
	mac.Write(rawPayload)
	return hmac.Equal(provided, mac.Sum(nil))
}
