package mercadopago

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const lookupTimeout = 15 * time.Second

type RemoteStatus string

const (
	StatusApproved RemoteStatus = "approved"
	StatusPending  RemoteStatus = "pending"
	StatusRejected RemoteStatus = "rejected"
	StatusUnknown  RemoteStatus = "unknown"
)

// RemotePayment is the authoritative payment state fetched from the
// processor. It is always fetched fresh and overrides anything carried
// in the notification body.
type RemotePayment struct {
	ID                string
	Status            RemoteStatus
	Amount            float64
	Currency          string
	ExternalReference string
}

type paymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	TransactionAmount float64     `json:"transaction_amount"`
	CurrencyID        string      `json:"currency_id"`
	ExternalReference string      `json:"external_reference"`
}

// fetchPayment calls GET /v1/payments/{id}. Any transport or decode
// failure is a returned error; the caller relies on the processor's
// retry schedule rather than retrying locally.
func (g *Gateway) fetchPayment(ctx context.Context, paymentID string) (RemotePayment, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/v1/payments/%s", g.cfg.BaseURL, paymentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return RemotePayment{}, err
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.AccessToken)
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.httpc.Do(req)
	if err != nil {
		return RemotePayment{}, fmt.Errorf("payment lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return RemotePayment{}, fmt.Errorf("payment lookup: unexpected status %d", resp.StatusCode)
	}

	var pr paymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return RemotePayment{}, fmt.Errorf("payment lookup: decode: %w", err)
	}

	return RemotePayment{
		ID:                pr.ID.String(),
		Status:            mapStatus(pr.Status),
		Amount:            pr.TransactionAmount,
		Currency:          pr.CurrencyID,
		ExternalReference: pr.ExternalReference,
	}, nil
}

func mapStatus(s string) RemoteStatus {
	switch s {
	case "approved":
		return StatusApproved
	case "pending", "in_process", "authorized", "in_mediation":
		return StatusPending
	case "rejected", "cancelled", "refunded", "charged_back":
		return StatusRejected
	default:
		return StatusUnknown
	}
}
