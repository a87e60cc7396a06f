package payment

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoTxRef is returned when no transaction reference can be extracted
// from a webhook payload. No lookup happens in that case.
var ErrNoTxRef = errors.New("webhook payload has no transaction reference")

type Outcome int

const (
	OutcomeFailure Outcome = iota
	OutcomeSuccess
)

// Notification is the normalized form of a provider webhook payload.
type Notification struct {
	TxRef     string
	Outcome   Outcome
	RawStatus string
}

type webhookPayload struct {
	TxRef     string `json:"tx_ref"`
	TxRefAlt  string `json:"txRef"`
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Data      *struct {
		TxRef     string `json:"tx_ref"`
		TxRefAlt  string `json:"txRef"`
		Reference string `json:"reference"`
		Status    string `json:"status"`
	} `json:"data"`
}

// ParseWebhook normalizes the provider's webhook dialects into a
// {reference, outcome} pair. Chapa sends both flat and data-nested shapes
// with varying field names and status casings; any status outside the
// known success tokens is treated as a failure (fail closed).
func ParseWebhook(body []byte) (Notification, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return Notification{}, ErrNoTxRef
	}

	ref := firstNonEmpty(p.TxRef, p.TxRefAlt, p.Reference)
	status := p.Status
	if p.Data != nil {
		ref = firstNonEmpty(ref, p.Data.TxRef, p.Data.TxRefAlt, p.Data.Reference)
		status = firstNonEmpty(status, p.Data.Status)
	}

	if ref == "" {
		return Notification{}, ErrNoTxRef
	}

	n := Notification{TxRef: ref, RawStatus: status}
	if successStatus(status) {
		n.Outcome = OutcomeSuccess
	}
	return n, nil
}

func successStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success", "successful", "completed":
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
