package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// AuthorizationHeader is the request header carrying the webhook signature.
const AuthorizationHeader = "X-Fomopay-Authorization"

const (
	scheme          = "FOMOPAY1-HMAC-SHA256"
	expectedVersion = "1.1"
)

// Authorization is the parsed form of the signature header.
type Authorization struct {
	Version    string
	Credential string
	Nonce      string
	Timestamp  string
	Signature  string
}

var (
	ErrBadScheme     = errors.New("payment: unexpected authorization scheme")
	ErrBadVersion    = errors.New("payment: unsupported signature version")
	ErrBadCredential = errors.New("payment: credential mismatch")
	ErrMissingParts  = errors.New("payment: incomplete authorization header")
	ErrBadSignature  = errors.New("payment: signature mismatch")
	ErrNotConfigured = errors.New("payment: verifier missing merchant credentials")
)

// ParseAuthorization splits the header into its scheme and key=value pairs.
// Malformed segments are skipped rather than failing the parse; missing
// required fields surface later as ErrMissingParts.
func ParseAuthorization(header string) (Authorization, error) {
	var auth Authorization
	header = strings.TrimSpace(header)
	if header == "" {
		return auth, ErrMissingParts
	}
	name, rest, found := strings.Cut(header, " ")
	if !found || name != scheme {
		return auth, ErrBadScheme
	}
	for _, seg := range strings.Split(rest, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(seg), "=")
		if !ok {
			continue
		}
		switch key {
		case "Version":
			auth.Version = value
		case "Credential":
			auth.Credential = value
		case "Nonce":
			auth.Nonce = value
		case "Timestamp":
			auth.Timestamp = value
		case "Signature":
			auth.Signature = value
		}
	}
	return auth, nil
}

// Verifier checks webhook signatures against the merchant's pre-shared key.
type Verifier struct {
	MID string
	PSK string
}

// Sign computes the expected signature over body, timestamp and nonce.
func (v Verifier) Sign(body []byte, timestamp, nonce string) string {
	mac := hmac.New(sha256.New, []byte(v.PSK))
	mac.Write(body)
	mac.Write([]byte(timestamp))
	mac.Write([]byte(nonce))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify validates the authorization header against the raw request body.
// It is a pure function of its inputs; transport concerns such as the
// always-200 acknowledgment live in the handler.
func (v Verifier) Verify(header string, body []byte) error {
	if v.MID == "" || v.PSK == "" {
		return ErrNotConfigured
	}
	auth, err := ParseAuthorization(header)
	if err != nil {
		return err
	}
	if auth.Version != expectedVersion {
		return ErrBadVersion
	}
	if auth.Credential != v.MID {
		return ErrBadCredential
	}
	if auth.Nonce == "" || auth.Timestamp == "" || auth.Signature == "" {
		return ErrMissingParts
	}
	// The supplied signature must match the lowercase hex digest exactly;
	// uppercase hex is not accepted.
	want := v.Sign(body, auth.Timestamp, auth.Nonce)
	if !hmac.Equal([]byte(want), []byte(auth.Signature)) {
		return ErrBadSignature
	}
	return nil
}
