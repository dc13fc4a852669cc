package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// SignatureHeader is the canonical header carrying the provider's HMAC
// signature. Lookup through http.Header.Get is case-insensitive, so the
// provider's casing variants all resolve here.
const SignatureHeader = "X-Whop-Signature"

// Verifier authenticates webhook payloads against the shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier. Returns ErrMissingSecret on an empty
// secret rather than silently accepting everything.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify checks the signature header against an HMAC-SHA256 digest of the
// raw request body. The comparison is constant time; a length mismatch
// does not short-circuit because hmac.Equal compares fixed-size digests.
func (v *Verifier) Verify(body []byte, headers http.Header) error {
	signature := headers.Get(SignatureHeader)
	if signature == "" {
		signature = headers.Get("Webhook-Signature")
	}
	if signature == "" {
		return ErrMissingSignature
	}
	// Some provider SDK versions prefix the hex digest.
	signature = strings.TrimPrefix(signature, "sha256=")

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return ErrSignatureInvalid
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return ErrSignatureInvalid
	}
	return nil
}

// Sign computes the hex signature for a body. Used by tests and by tooling
// that replays captured events.
func (v *Verifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
