// Tablemates - Social Dinner Event Booking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package payments

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tablemates/internal/models"
	"github.com/tomtom215/tablemates/internal/transport"
)

func newClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(transport.New(transport.Config{BaseURL: srv.URL}), "rzp_test_key")
}

func TestCreateOrder(t *testing.T) {
	mux := http.NewServeMux()
	var body map[string]string
	mux.HandleFunc("/payments/create-order", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		json.Unmarshal(b, &body)
		io.WriteString(w, `{"data":{"id":"order_9","amount":50000,"currency":"INR"}}`)
	})
	c := newClient(t, mux)

	order, err := c.CreateOrder(context.Background(), "e1")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if body["eventId"] != "e1" {
		t.Errorf("request eventId = %q, want e1", body["eventId"])
	}
	if order.ID != "order_9" || order.Amount != 50000 || order.Currency != "INR" {
		t.Errorf("order = %+v, want server values", order)
	}
}

func TestCreateOrderFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/payments/create-order", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		io.WriteString(w, `{"message":"Event is free"}`)
	})
	c := newClient(t, mux)

	if _, err := c.CreateOrder(context.Background(), "e1"); err == nil {
		t.Fatal("expected error")
	}
	if c.LastError() != "Event is free" {
		t.Errorf("LastError = %q, want server message", c.LastError())
	}
}

func TestCheckoutOptions(t *testing.T) {
	c := New(nil, "rzp_test_key")
	order := &Order{ID: "order_9", Amount: 50000, Currency: "INR"}
	user := &models.User{Name: "Ada", Email: "ada@example.com"}

	opts := c.CheckoutOptions(order, "Mystery Dinner", user)
	if opts.Key != "rzp_test_key" {
		t.Errorf("Key = %q, want configured gateway key", opts.Key)
	}
	if opts.OrderID != "order_9" || opts.Amount != 50000 || opts.Currency != "INR" {
		t.Errorf("order fields = %+v, want copied from order", opts)
	}
	if opts.Prefill.Name != "Ada" || opts.Prefill.Email != "ada@example.com" {
		t.Errorf("prefill = %+v, want user identity", opts.Prefill)
	}
	if opts.Description != "Booking for Mystery Dinner" {
		t.Errorf("Description = %q", opts.Description)
	}
}

func TestCheckoutOptionsWithoutUser(t *testing.T) {
	c := New(nil, "k")
	opts := c.CheckoutOptions(&Order{ID: "o"}, "Dinner", nil)
	if opts.Prefill.Name != "" || opts.Prefill.Email != "" {
		t.Error("nil user must leave the prefill empty")
	}
}

func TestVerifyPostsGatewayFields(t *testing.T) {
	mux := http.NewServeMux()
	var body map[string]string
	mux.HandleFunc("/payments/verify", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		json.Unmarshal(b, &body)
		io.WriteString(w, `{"data":{"verified":true}}`)
	})
	c := newClient(t, mux)

	err := c.Verify(context.Background(), Completion{PaymentID: "pay_1", OrderID: "order_9", Signature: "sig"})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	want := map[string]string{
		"razorpay_payment_id": "pay_1",
		"razorpay_order_id":   "order_9",
		"razorpay_signature":  "sig",
	}
	for k, v := range want {
		if body[k] != v {
			t.Errorf("body[%s] = %q, want %q", k, body[k], v)
		}
	}
}

func TestVerifyFailsWithoutConfirmation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/payments/verify", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"message":"Invalid signature"}`)
	})
	c := newClient(t, mux)

	err := c.Verify(context.Background(), Completion{PaymentID: "pay_1", OrderID: "order_9", Signature: "forged"})
	if err == nil {
		t.Fatal("verification must fail unless the server confirms")
	}
	if c.LastError() != "Invalid signature" {
		t.Errorf("LastError = %q, want server message", c.LastError())
	}
}
