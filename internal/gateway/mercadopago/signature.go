package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	headerSignature = "x-signature"
	headerRequestID = "x-request-id"
)

// ts=<digits>,v1=<hex>, possibly embedded in a larger header value.
var signaturePattern = regexp.MustCompile(`ts=(\d+),v1=([a-f0-9]+)`)

// SignatureProof is the verification material extracted from the
// delivery headers. Both the hash and the companion request id must be
// present, or the notification counts as unverifiable.
type SignatureProof struct {
	Timestamp int64
	Hash      string
	RequestID string
}

func parseSignatureProof(headers map[string]string) (SignatureProof, error) {
	sig := headers[headerSignature]
	reqID := headers[headerRequestID]
	if sig == "" || reqID == "" {
		return SignatureProof{}, fmt.Errorf("missing %s or %s header", headerSignature, headerRequestID)
	}

	m := signaturePattern.FindStringSubmatch(strings.ToLower(sig))
	if m == nil {
		return SignatureProof{}, fmt.Errorf("malformed signature header %q", sig)
	}
	ts, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return SignatureProof{}, fmt.Errorf("malformed signature timestamp %q", m[1])
	}
	return SignatureProof{Timestamp: ts, Hash: m[2], RequestID: reqID}, nil
}

// signatureManifest is the canonical v1 manifest the processor signs.
// Deployed webhook secrets were provisioned against exactly this shape;
// changing it silently invalidates every configured secret.
func signatureManifest(paymentID, requestID string, ts int64) string {
	return fmt.Sprintf("id:%s;request-id:%s;ts:%d;", paymentID, requestID, ts)
}

// verifySignature recomputes the expected HMAC-SHA256 over the manifest
// and compares it in constant time.
func verifySignature(secret, paymentID string, proof SignatureProof) error {
	manifest := signatureManifest(paymentID, proof.RequestID, proof.Timestamp)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(proof.Hash)) {
		return fmt.Errorf("signature mismatch for payment %s", paymentID)
	}
	return nil
}
