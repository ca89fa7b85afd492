// Tablemates - Social Dinner Event Booking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "tablemates",
	Short: "Tablemates - social dinner event booking client",
	Long: "Tablemates is a command-line client for the Tablemates booking API: " +
		"sign in, browse and manage dinner events, curate icebreakers, and pay " +
		"for bookings through the hosted checkout.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./tablemates.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
