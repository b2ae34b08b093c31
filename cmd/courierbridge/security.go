package main

import (
	"crypto/hmac"
	"fmt"
	"io"
	"net/http"
	"os"
)

const (
	signatureHeader = "X-Webhook-Signature"
	maxWebhookBody  = 1 << 20
)

// verifySignature reads the request body and checks the shared-secret
// signature header with a constant-time compare. An empty configured
// secret disables the check outside production.
func verifySignature(r *http.Request, secret string) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	if secret == "" {
		if os.Getenv("COURIERBRIDGE_ENV") == "production" {
			return nil, fmt.Errorf("webhook secret is required in production mode")
		}
		return body, nil
	}

	header := r.Header.Get(signatureHeader)
	if header == "" {
		return nil, fmt.Errorf("missing signature header: %s", signatureHeader)
	}

	if !hmac.Equal([]byte(header), []byte(secret)) {
		return nil, fmt.Errorf("signature mismatch")
	}

	return body, nil
}
