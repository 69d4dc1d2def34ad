// Package payment drives the hosted-checkout flow: session creation, status
// polling and the commit that writes the confirmed payment to the ledger.
package payment

import (
	"context"
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Status of a hosted checkout session.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusError   Status = "error"
)

// CheckoutSession identifies a hosted payment page.
type CheckoutSession struct {
	ID  string
	URL string
}

// Gateway is the interface to the hosted payment provider.
type Gateway interface {
	// CreateSession opens a hosted checkout page for the given amount in
	// minor units.
	CreateSession(ctx context.Context, amountCents int64, currency, description string) (CheckoutSession, error)

	// GetStatus retrieves the current payment status of a session.
	GetStatus(ctx context.Context, sessionID string) (Status, error)
}

// QRCodePNG renders a payload as a base64 PNG data URI for the kiosk
// dialog.
func QRCodePNG(payload string) (string, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, 250)
	if err != nil {
		return "", fmt.Errorf("failed to render qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
