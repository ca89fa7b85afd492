// Tablemates - Social Dinner Event Booking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

/*
client.go - Payment Boundary

The payment flow brackets a hosted checkout overlay that this code never
implements: the server creates a gateway order, the overlay collects the
payment and hands back three opaque fields, and the server verifies the
gateway signature. Nothing here trusts the overlay's result; success is
only what the verify endpoint confirms.
*/
package payments

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tomtom215/tablemates/internal/logging"
	"github.com/tomtom215/tablemates/internal/models"
	"github.com/tomtom215/tablemates/internal/transport"
)

const (
	msgOrderFailed  = "Failed to start payment"
	msgVerifyFailed = "Payment verification failed"
)

// Order is the gateway order the server created for an event booking.
// Amount is in the currency's minor unit.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Completion carries the fields the hosted overlay returns after the
// user pays. All three are opaque here; the server checks the signature.
type Completion struct {
	PaymentID string `json:"razorpay_payment_id"`
	OrderID   string `json:"razorpay_order_id"`
	Signature string `json:"razorpay_signature"`
}

// Options is the descriptor handed to the hosted checkout overlay.
type Options struct {
	Key         string `json:"key"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	OrderID     string `json:"order_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Prefill     struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"prefill"`
}

// Client talks to the server-side payment endpoints.
type Client struct {
	api   *transport.Client
	keyID string

	lastErr string
}

// New creates a payment client. keyID is the gateway's public key from
// configuration.
func New(api *transport.Client, keyID string) *Client {
	return &Client{api: api, keyID: keyID}
}

// LastError returns the message from the last failed operation, or "".
func (c *Client) LastError() string {
	return c.lastErr
}

// CreateOrder asks the server for a gateway order covering the event's
// booking fee.
func (c *Client) CreateOrder(ctx context.Context, eventID string) (*Order, error) {
	c.lastErr = ""

	var env models.DataEnvelope[Order]
	err := c.api.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/payments/create-order",
		Route:  "/payments/create-order",
		Body:   map[string]string{"eventId": eventID},
		Out:    &env,
	})
	if err != nil {
		c.lastErr = transport.UserMessage(err, msgOrderFailed)
		return nil, fmt.Errorf("create payment order for event %s: %w", eventID, err)
	}

	logging.Debug().Str("order_id", env.Data.ID).Int64("amount", env.Data.Amount).Msg("Payment order created")
	order := env.Data
	return &order, nil
}

// CheckoutOptions builds the overlay descriptor for an order: the
// configured gateway key plus the user's name and email prefilled.
func (c *Client) CheckoutOptions(order *Order, eventTitle string, user *models.User) Options {
	opts := Options{
		Key:         c.keyID,
		Amount:      order.Amount,
		Currency:    order.Currency,
		OrderID:     order.ID,
		Name:        "Tablemates",
		Description: "Booking for " + eventTitle,
	}
	if user != nil {
		opts.Prefill.Name = user.Name
		opts.Prefill.Email = user.Email
	}
	return opts
}

// Verify posts the overlay's completion fields for server-side signature
// verification. It returns nil only when the server confirms the
// payment; any other outcome is a failure.
func (c *Client) Verify(ctx context.Context, completion Completion) error {
	c.lastErr = ""

	err := c.api.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/payments/verify",
		Route:  "/payments/verify",
		Body:   completion,
	})
	if err != nil {
		c.lastErr = transport.UserMessage(err, msgVerifyFailed)
		return fmt.Errorf("verify payment %s: %w", completion.PaymentID, err)
	}

	logging.Info().Str("order_id", completion.OrderID).Msg("Payment verified")
	return nil
}
