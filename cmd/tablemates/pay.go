// Tablemates - Social Dinner Event Booking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/tablemates/internal/payments"
)

var payCmd = &cobra.Command{
	Use:   "pay <event-id>",
	Short: "Pay the booking fee for an event",
	Long: "Creates a gateway order for the event and prints the checkout " +
		"descriptor to hand to the hosted payment page. After the payment " +
		"completes there, paste back the three fields it returns; the booking " +
		"is confirmed only when the server verifies the gateway signature.",
	Args: cobra.ExactArgs(1),
	RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
		if err := a.restore(ctx); err != nil {
			return err
		}

		ev, err := a.events.Refresh(ctx, args[0])
		if err != nil {
			return fmt.Errorf("%s", a.events.LastError())
		}

		order, err := a.payments.CreateOrder(ctx, ev.ID)
		if err != nil {
			return fmt.Errorf("%s", a.payments.LastError())
		}

		opts := a.payments.CheckoutOptions(order, ev.Title, a.session.User())
		encoded, err := json.MarshalIndent(opts, "", "  ")
		if err != nil {
			return fmt.Errorf("encode checkout options: %w", err)
		}
		fmt.Printf("Order %s: %d %s\n", order.ID, order.Amount, order.Currency)
		fmt.Printf("Checkout descriptor:\n%s\n\n", encoded)

		completion, err := readCompletion(os.Stdin)
		if err != nil {
			return err
		}
		if err := a.payments.Verify(ctx, completion); err != nil {
			return fmt.Errorf("%s", a.payments.LastError())
		}
		fmt.Println("Payment verified; booking confirmed")
		return nil
	}),
}

// readCompletion prompts for the three fields the hosted checkout hands
// back after a successful payment.
func readCompletion(in *os.File) (payments.Completion, error) {
	var c payments.Completion
	r := bufio.NewReader(in)

	prompts := []struct {
		label string
		dst   *string
	}{
		{"payment id", &c.PaymentID},
		{"order id", &c.OrderID},
		{"signature", &c.Signature},
	}
	for _, p := range prompts {
		fmt.Printf("Gateway %s: ", p.label)
		line, err := r.ReadString('\n')
		if err != nil {
			return c, fmt.Errorf("read %s: %w", p.label, err)
		}
		*p.dst = strings.TrimSpace(line)
		if *p.dst == "" {
			return c, fmt.Errorf("gateway %s is required", p.label)
		}
	}
	return c, nil
}

func init() {
	rootCmd.AddCommand(payCmd)
}
