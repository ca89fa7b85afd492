// Tablemates - Social Dinner Event Booking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

/*
app.go - Composition Root

Every command builds the same object graph: configuration, logging, the
persisted token store, the transport client, and the session store and
repositories on top of it. The transport's credential source and 401
hook both point at the session store, so an expired token observed on
any request invalidates the session exactly once.
*/
package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/tablemates/internal/config"
	"github.com/tomtom215/tablemates/internal/events"
	"github.com/tomtom215/tablemates/internal/icebreakers"
	"github.com/tomtom215/tablemates/internal/logging"
	"github.com/tomtom215/tablemates/internal/payments"
	"github.com/tomtom215/tablemates/internal/session"
	"github.com/tomtom215/tablemates/internal/transport"
)

type app struct {
	cfg         *config.Config
	tokens      *session.BadgerTokenStore
	session     *session.Store
	events      *events.Repository
	icebreakers *icebreakers.Repository
	payments    *payments.Client
}

// newApp wires the full component graph. Callers must Close it.
func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Timestamp: true})

	tokens, err := session.OpenTokenStore(cfg.Session.TokenPath)
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}

	api := transport.New(transport.Config{
		BaseURL:        cfg.API.BaseURL,
		Timeout:        cfg.API.Timeout,
		RateLimit:      cfg.API.RateLimit,
		RateBurst:      cfg.API.RateBurst,
		BreakerEnabled: cfg.API.BreakerEnabled,
	})

	sess := session.New(api, tokens)
	api.SetTokenSource(sess.Token)
	api.SetUnauthorizedHandler(sess.Invalidate)

	return &app{
		cfg:         cfg,
		tokens:      tokens,
		session:     sess,
		events:      events.New(api, sess, events.WithRetry(cfg.API.RetryAttempts, cfg.API.RetryDelay)),
		icebreakers: icebreakers.New(api),
		payments:    payments.New(api, cfg.Payment.KeyID),
	}, nil
}

// restore resolves the persisted credential into a session and requires
// the result to be authenticated.
func (a *app) restore(ctx context.Context) error {
	if err := a.session.Restore(ctx); err != nil {
		return err
	}
	if !a.session.IsAuthenticated() {
		if msg := a.session.LastError(); msg != "" {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("not signed in; run `tablemates login` first")
	}
	return nil
}

func (a *app) Close() {
	if err := a.tokens.Close(); err != nil {
		logging.Warn().Err(err).Msg("Token store close failed")
	}
}

// runWithApp adapts a command body to cobra's RunE, handling graph
// construction and teardown.
func runWithApp(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd.Context(), a, args)
	}
}
