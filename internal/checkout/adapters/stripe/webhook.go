package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
)

const defaultTolerance = 5 * time.Minute

// WebhookVerifier checks the Stripe-Signature header against the raw payload
// and parses the event envelope. The header carries a timestamp and one or
// more v1 signatures: "t=<unix>,v1=<hex hmac>".
type WebhookVerifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{
		secret:    []byte(secret),
		tolerance: defaultTolerance,
		now:       time.Now,
	}
}

type eventEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID            string `json:"id"`
			PaymentIntent string `json:"payment_intent"`
		} `json:"object"`
	} `json:"data"`
}

// Verify validates the signature and returns the parsed event. The intent id
// comes from the event object itself for payment_intent.* events, and from
// the charge's payment_intent reference for charge.* events.
func (v *WebhookVerifier) Verify(payload []byte, signatureHeader string) (*domain.WebhookEvent, error) {
	timestamp, signatures, err := parseSignatureHeader(signatureHeader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	if age := v.now().Sub(time.Unix(timestamp, 0)); age > v.tolerance || age < -v.tolerance {
		return nil, fmt.Errorf("%w: timestamp outside tolerance", domain.ErrInvalidSignature)
	}

	expected := computeSignature(v.secret, timestamp, payload)
	if !matchesAny(expected, signatures) {
		return nil, domain.ErrInvalidSignature
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, domain.Validationf("malformed event payload: %v", err)
	}

	event := &domain.WebhookEvent{
		ID:   envelope.ID,
		Type: envelope.Type,
	}
	if strings.HasPrefix(envelope.Type, "charge.") {
		event.IntentID = envelope.Data.Object.PaymentIntent
	} else {
		event.IntentID = envelope.Data.Object.ID
	}

	return event, nil
}

func parseSignatureHeader(header string) (timestamp int64, signatures [][]byte, err error) {
	if header == "" {
		return 0, nil, fmt.Errorf("empty signature header")
	}

	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp, err = strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("bad timestamp")
			}
		case "v1":
			sig, err := hex.DecodeString(value)
			if err != nil {
				continue
			}
			signatures = append(signatures, sig)
		}
	}

	if timestamp == 0 {
		return 0, nil, fmt.Errorf("missing timestamp")
	}
	if len(signatures) == 0 {
		return 0, nil, fmt.Errorf("no v1 signature")
	}

	return timestamp, signatures, nil
}

func computeSignature(secret []byte, timestamp int64, payload []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	return mac.Sum(nil)
}

func matchesAny(expected []byte, candidates [][]byte) bool {
	for _, candidate := range candidates {
		if hmac.Equal(expected, candidate) {
			return true
		}
	}
	return false
}
