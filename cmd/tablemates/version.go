// Tablemates - Social Dinner Event Booking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of Tablemates",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tablemates v%s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
