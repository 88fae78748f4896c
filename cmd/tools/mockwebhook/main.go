// mockwebhook signs and sends a synthetic Mercado Pago payment
// notification against a running instance, for webhook testing without
// the real processor.
package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

type webhookPayload struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

func main() {
	url := flag.String("url", "http://localhost:8080/ipn/mercadopago", "Webhook URL")
	secret := flag.String("secret", os.Getenv("MP_SECRET_KEY"), "Webhook secret (empty sends unsigned)")
	paymentID := flag.String("payment-id", "", "Payment id (default: random numeric-looking id)")
	eventType := flag.String("type", "payment", "Notification type field")
	requestID := flag.String("request-id", uuid.NewString(), "X-Request-Id header value")
	dryRun := flag.Bool("dry-run", false, "Only print signature header, don't send")

	flag.Parse()

	pid := *paymentID
	if pid == "" {
		pid = fmt.Sprintf("%d", time.Now().UnixNano()%1_000_000_000)
	}

	payload := webhookPayload{Type: *eventType, Action: "payment.updated"}
	payload.Data.ID = pid

	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling payload: %v\n", err)
		os.Exit(1)
	}

	ts := time.Now().Unix()
	var sigHeader string
	if *secret != "" {
		sigHeader = fmt.Sprintf("ts=%d,v1=%s", ts, computeSig(*secret, pid, *requestID, ts))
		fmt.Printf("X-Signature: %s\n", sigHeader)
		fmt.Printf("X-Request-Id: %s\n", *requestID)
	} else {
		fmt.Println("No secret provided; sending unsigned notification")
	}
	fmt.Printf("Body: %s\n", string(body))

	if *dryRun {
		fmt.Println("\n[DRY RUN] Not sending request")
		return
	}

	fmt.Printf("\nSending to %s...\n", *url)
	req, err := http.NewRequest(http.MethodPost, *url, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating request: %v\n", err)
		os.Exit(1)
	}

	req.Header.Set("Content-Type", "application/json")
	if sigHeader != "" {
		req.Header.Set("X-Signature", sigHeader)
		req.Header.Set("X-Request-Id", *requestID)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %d\n", resp.StatusCode)
	fmt.Printf("Response: %s\n", string(respBody))

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}

// computeSig mirrors the processor's v1 manifest:
// id:<paymentID>;request-id:<requestID>;ts:<ts>;
func computeSig(secret, paymentID, requestID string, ts int64) string {
	m := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(m, "id:%s;request-id:%s;ts:%d;", paymentID, requestID, ts)
	return hex.EncodeToString(m.Sum(nil))
}
