// Tablemates - Social Dinner Event Booking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tomtom215/tablemates/internal/icebreakers"
)

var icebreakersCmd = &cobra.Command{
	Use:   "icebreakers",
	Short: "Curate conversation starters and attach them to events",
}

var icebreakersListCmd = &cobra.Command{
	Use:   "list",
	Short: "Fetch and list all icebreakers",
	RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
		if err := a.restore(ctx); err != nil {
			return err
		}
		if err := a.icebreakers.FetchAll(ctx); err != nil {
			return fmt.Errorf("%s", a.icebreakers.LastError())
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCATEGORY\tQUESTION")
		for _, ib := range a.icebreakers.Icebreakers() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ib.ID, ib.Category, ib.Question)
		}
		w.Flush()
		return nil
	}),
}

var icebreakersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an icebreaker",
}

func icebreakersCreateRunE() func(*cobra.Command, []string) error {
	return runWithApp(func(ctx context.Context, a *app, args []string) error {
		if err := a.restore(ctx); err != nil {
			return err
		}
		in := inputFromFlags(icebreakersCreateCmd)
		ib, err := a.icebreakers.Create(ctx, in)
		if err != nil {
			return fmt.Errorf("%s", a.icebreakers.LastError())
		}
		fmt.Printf("Created icebreaker %s\n", ib.ID)
		return nil
	})
}

var icebreakersUpdateCmd = &cobra.Command{
	Use:   "update <icebreaker-id>",
	Short: "Update an icebreaker",
	Args:  cobra.ExactArgs(1),
}

func icebreakersUpdateRunE() func(*cobra.Command, []string) error {
	return runWithApp(func(ctx context.Context, a *app, args []string) error {
		if err := a.restore(ctx); err != nil {
			return err
		}
		in := inputFromFlags(icebreakersUpdateCmd)
		if _, err := a.icebreakers.Update(ctx, args[0], in); err != nil {
			return fmt.Errorf("%s", a.icebreakers.LastError())
		}
		fmt.Println("Icebreaker updated")
		return nil
	})
}

var icebreakersDeleteCmd = &cobra.Command{
	Use:   "delete <icebreaker-id>",
	Short: "Delete an icebreaker",
	Args:  cobra.ExactArgs(1),
	RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
		if err := a.restore(ctx); err != nil {
			return err
		}
		if err := a.icebreakers.Delete(ctx, args[0]); err != nil {
			return fmt.Errorf("%s", a.icebreakers.LastError())
		}
		fmt.Println("Icebreaker deleted")
		return nil
	}),
}

var icebreakersAttachCmd = &cobra.Command{
	Use:   "attach <event-id> <icebreaker-id>",
	Short: "Attach an icebreaker to an event",
	Args:  cobra.ExactArgs(2),
	RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
		if err := a.restore(ctx); err != nil {
			return err
		}
		if err := a.icebreakers.AttachToEvent(ctx, args[0], args[1]); err != nil {
			return fmt.Errorf("%s", a.icebreakers.LastError())
		}
		// The relation changed on the server only; re-fetch to show it.
		ev, err := a.events.Refresh(ctx, args[0])
		if err != nil {
			return fmt.Errorf("%s", a.events.LastError())
		}
		fmt.Printf("Attached; %q now has %d icebreaker(s)\n", ev.Title, len(ev.Icebreakers))
		return nil
	}),
}

var icebreakersDetachCmd = &cobra.Command{
	Use:   "detach <event-id> <icebreaker-id>",
	Short: "Detach an icebreaker from an event",
	Args:  cobra.ExactArgs(2),
	RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
		if err := a.restore(ctx); err != nil {
			return err
		}
		if err := a.icebreakers.DetachFromEvent(ctx, args[0], args[1]); err != nil {
			return fmt.Errorf("%s", a.icebreakers.LastError())
		}
		ev, err := a.events.Refresh(ctx, args[0])
		if err != nil {
			return fmt.Errorf("%s", a.events.LastError())
		}
		fmt.Printf("Detached; %q now has %d icebreaker(s)\n", ev.Title, len(ev.Icebreakers))
		return nil
	}),
}

func inputFromFlags(cmd *cobra.Command) icebreakers.IcebreakerInput {
	var in icebreakers.IcebreakerInput
	in.Question, _ = cmd.Flags().GetString("question")
	in.Category, _ = cmd.Flags().GetString("category")
	return in
}

func init() {
	icebreakersCreateCmd.RunE = icebreakersCreateRunE()
	icebreakersUpdateCmd.RunE = icebreakersUpdateRunE()

	for _, cmd := range []*cobra.Command{icebreakersCreateCmd, icebreakersUpdateCmd} {
		cmd.Flags().String("question", "", "the question to ask")
		cmd.Flags().String("category", "", "category (e.g. food, travel)")
	}

	icebreakersCmd.AddCommand(icebreakersListCmd, icebreakersCreateCmd,
		icebreakersUpdateCmd, icebreakersDeleteCmd,
		icebreakersAttachCmd, icebreakersDetachCmd)
	rootCmd.AddCommand(icebreakersCmd)
}
