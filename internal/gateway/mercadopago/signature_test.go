package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signManifest(secret, paymentID, requestID string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "id:%s;request-id:%s;ts:%d;", paymentID, requestID, ts)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestParseSignatureProof(t *testing.T) {
	headers := map[string]string{
		"x-signature":  "ts=1700000000,v1=deadbeef",
		"x-request-id": "req-1",
	}
	proof, err := parseSignatureProof(headers)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), proof.Timestamp)
	assert.Equal(t, "deadbeef", proof.Hash)
	assert.Equal(t, "req-1", proof.RequestID)
}

func TestParseSignatureProofMissingHeaders(t *testing.T) {
	_, err := parseSignatureProof(map[string]string{"x-signature": "ts=1,v1=ab"})
	assert.Error(t, err, "missing request id")

	_, err = parseSignatureProof(map[string]string{"x-request-id": "req-1"})
	assert.Error(t, err, "missing signature")
}

func TestParseSignatureProofMalformed(t *testing.T) {
	headers := map[string]string{
		"x-signature":  "v1=deadbeef",
		"x-request-id": "req-1",
	}
	_, err := parseSignatureProof(headers)
	assert.Error(t, err)
}

func TestVerifySignatureValid(t *testing.T) {
	const secret = "whsec_test"
	proof := SignatureProof{
		Timestamp: 1700000000,
		RequestID: "req-1",
		Hash:      signManifest(secret, "999", "req-1", 1700000000),
	}
	assert.NoError(t, verifySignature(secret, "999", proof))
}

func TestVerifySignatureWrongSecret(t *testing.T) {
	proof := SignatureProof{
		Timestamp: 1700000000,
		RequestID: "req-1",
		Hash:      "deadbeef",
	}
	assert.Error(t, verifySignature("whsec_other", "999", proof))
}

func TestVerifySignatureManifestMismatch(t *testing.T) {
	const secret = "whsec_test"
	// Signed over a bare ;-joined manifest instead of the labeled one;
	// must not verify.
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s;%s;%d", "999", "req-1", int64(1700000000))
	proof := SignatureProof{
		Timestamp: 1700000000,
		RequestID: "req-1",
		Hash:      hex.EncodeToString(mac.Sum(nil)),
	}
	assert.Error(t, verifySignature(secret, "999", proof))
}

func TestVerifySignatureTamperedPaymentID(t *testing.T) {
	const secret = "whsec_test"
	proof := SignatureProof{
		Timestamp: 1700000000,
		RequestID: "req-1",
		Hash:      signManifest(secret, "999", "req-1", 1700000000),
	}
	assert.Error(t, verifySignature(secret, "1000", proof))
}
