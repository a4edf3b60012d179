package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

type VerifyResult int

const (
	// VerifyUnverifiable means either the secret or the signature is absent.
	VerifyUnverifiable VerifyResult = iota
	VerifyValid
	VerifyInvalid
)

func (r VerifyResult) String() string {
	switch r {
	case VerifyValid:
		return "valid"
	case VerifyInvalid:
		return "invalid"
	default:
		return "unverifiable"
	}
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) Verifier {
	return Verifier{secret: []byte(secret)}
}

// Verify checks a hex encoded HMAC-SHA256 of the raw body.
func (v Verifier) Verify(body []byte, signature string) VerifyResult {
	signature = strings.TrimSpace(signature)
	if len(v.secret) == 0 || signature == "" {
		return VerifyUnverifiable
	}

	got, err := hex.DecodeString(signature)
	if err != nil {
		return VerifyInvalid
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), got) {
		return VerifyInvalid
	}
	return VerifyValid
}

// Sign returns the signature Verify accepts for body.
func (v Verifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
