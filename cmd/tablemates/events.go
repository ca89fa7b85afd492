// Tablemates - Social Dinner Event Booking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/tablemates/internal/events"
	"github.com/tomtom215/tablemates/internal/models"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Browse and manage dinner events",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Fetch and list all events",
	RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
		if err := a.restore(ctx); err != nil {
			return err
		}
		if err := a.events.FetchAll(ctx); err != nil {
			return fmt.Errorf("%s", a.events.LastError())
		}
		printEvents(a.events.Events())
		return nil
	}),
}

var eventsMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List events you created or joined",
	RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
		if err := a.restore(ctx); err != nil {
			return err
		}
		if err := a.events.FetchAll(ctx); err != nil {
			return fmt.Errorf("%s", a.events.LastError())
		}
		printEvents(a.events.MyEvents())
		return nil
	}),
}

var eventsShowCmd = &cobra.Command{
	Use:   "show <event-id>",
	Short: "Show one event in full",
	Args:  cobra.ExactArgs(1),
	RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
		if err := a.restore(ctx); err != nil {
			return err
		}
		ev, err := a.events.Refresh(ctx, args[0])
		if err != nil {
			return fmt.Errorf("%s", a.events.LastError())
		}
		printEventDetail(ev)
		return nil
	}),
}

var eventsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new event (pending until approved)",
}

func eventsCreateRunE() func(*cobra.Command, []string) error {
	return runWithApp(func(ctx context.Context, a *app, args []string) error {
		if err := a.restore(ctx); err != nil {
			return err
		}

		in, err := createInputFromFlags(eventsCreateCmd)
		if err != nil {
			return err
		}
		ev, err := a.events.Create(ctx, in)
		if err != nil {
			return fmt.Errorf("%s", a.events.LastError())
		}
		fmt.Printf("Created %q (%s), status %s\n", ev.Title, ev.ID, ev.Status)
		return nil
	})
}

var eventsUpdateCmd = &cobra.Command{
	Use:   "update <event-id>",
	Short: "Update event fields; unset flags are left unchanged",
	Args: cobra.ExactArgs(1),
}

func eventsUpdateRunE() func(*cobra.Command, []string) error {
	return runWithApp(func(ctx context.Context, a *app, args []string) error {
		if err := a.restore(ctx); err != nil {
			return err
		}

		in, err := updateInputFromFlags(eventsUpdateCmd)
		if err != nil {
			return err
		}
		ev, err := a.events.Update(ctx, args[0], in)
		if err != nil {
			return fmt.Errorf("%s", a.events.LastError())
		}
		fmt.Printf("Updated %q\n", ev.Title)
		return nil
	})
}

var eventsDeleteCmd = &cobra.Command{
	Use:   "delete <event-id>",
	Short: "Delete an event",
	Args:  cobra.ExactArgs(1),
	RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
		if err := a.restore(ctx); err != nil {
			return err
		}
		if err := a.events.Delete(ctx, args[0]); err != nil {
			return fmt.Errorf("%s", a.events.LastError())
		}
		fmt.Println("Event deleted")
		return nil
	}),
}

var eventsJoinCmd = &cobra.Command{
	Use:   "join <event-id>",
	Short: "Join an approved event with spare capacity",
	Args:  cobra.ExactArgs(1),
	RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
		if err := a.restore(ctx); err != nil {
			return err
		}
		// Populate the cache first so the local gates see current state.
		if err := a.events.FetchAll(ctx); err != nil {
			return fmt.Errorf("%s", a.events.LastError())
		}
		ev, err := a.events.Join(ctx, args[0])
		if err != nil {
			return fmt.Errorf("%s", a.events.LastError())
		}
		fmt.Printf("Joined %q (%d/%d seats taken)\n", ev.Title, len(ev.Participants), ev.MaxParticipants)
		return nil
	}),
}

var eventsLeaveCmd = &cobra.Command{
	Use:   "leave <event-id>",
	Short: "Leave an event you joined",
	Args:  cobra.ExactArgs(1),
	RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
		if err := a.restore(ctx); err != nil {
			return err
		}
		ev, err := a.events.Leave(ctx, args[0])
		if err != nil {
			return fmt.Errorf("%s", a.events.LastError())
		}
		fmt.Printf("Left %q\n", ev.Title)
		return nil
	}),
}

var eventsApproveCmd = &cobra.Command{
	Use:   "approve <event-id>",
	Short: "Approve a pending event (admin only)",
	Args:  cobra.ExactArgs(1),
	RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
		if err := a.restore(ctx); err != nil {
			return err
		}
		ev, err := a.events.Approve(ctx, args[0])
		if err != nil {
			return fmt.Errorf("%s", a.events.LastError())
		}
		fmt.Printf("Approved %q\n", ev.Title)
		return nil
	}),
}

var eventsRejectCmd = &cobra.Command{
	Use:   "reject <event-id>",
	Short: "Reject a pending event with a reason (admin only)",
	Args: cobra.ExactArgs(1),
}

func eventsRejectRunE() func(*cobra.Command, []string) error {
	return runWithApp(func(ctx context.Context, a *app, args []string) error {
		if err := a.restore(ctx); err != nil {
			return err
		}
		reason, _ := eventsRejectCmd.Flags().GetString("reason")
		ev, err := a.events.Reject(ctx, args[0], reason)
		if err != nil {
			return fmt.Errorf("%s", a.events.LastError())
		}
		fmt.Printf("Rejected %q\n", ev.Title)
		return nil
	})
}

func createInputFromFlags(cmd *cobra.Command) (events.CreateEventInput, error) {
	var in events.CreateEventInput
	in.Title, _ = cmd.Flags().GetString("title")
	in.Description, _ = cmd.Flags().GetString("description")
	in.Location, _ = cmd.Flags().GetString("location")
	in.MaxParticipants, _ = cmd.Flags().GetInt("capacity")

	var err error
	if in.EventDate, err = parseFlagTime(cmd, "date"); err != nil {
		return in, err
	}
	if in.RevealDate, err = parseFlagTime(cmd, "reveal"); err != nil {
		return in, err
	}

	if path, _ := cmd.Flags().GetString("image"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return in, fmt.Errorf("read image: %w", err)
		}
		in.Image = &events.ImageAttachment{
			Filename: filepath.Base(path),
			Size:     int64(len(data)),
			Data:     data,
		}
	}
	return in, nil
}

func updateInputFromFlags(cmd *cobra.Command) (events.UpdateEventInput, error) {
	var in events.UpdateEventInput
	if cmd.Flags().Changed("title") {
		v, _ := cmd.Flags().GetString("title")
		in.Title = &v
	}
	if cmd.Flags().Changed("description") {
		v, _ := cmd.Flags().GetString("description")
		in.Description = &v
	}
	if cmd.Flags().Changed("location") {
		v, _ := cmd.Flags().GetString("location")
		in.Location = &v
	}
	if cmd.Flags().Changed("capacity") {
		v, _ := cmd.Flags().GetInt("capacity")
		in.MaxParticipants = &v
	}
	if cmd.Flags().Changed("date") {
		t, err := parseFlagTime(cmd, "date")
		if err != nil {
			return in, err
		}
		in.EventDate = &t
	}
	if cmd.Flags().Changed("reveal") {
		t, err := parseFlagTime(cmd, "reveal")
		if err != nil {
			return in, err
		}
		in.RevealDate = &t
	}
	return in, nil
}

func parseFlagTime(cmd *cobra.Command, name string) (time.Time, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be RFC3339 (e.g. 2026-09-20T19:00:00Z): %w", name, err)
	}
	return t, nil
}

func printEvents(evs []models.Event) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tDATE\tLOCATION\tSEATS\tSTATUS")
	for _, ev := range evs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%s\n",
			ev.ID, ev.Title, ev.EventDate.Format("2006-01-02 15:04"),
			ev.Location, len(ev.Participants), ev.MaxParticipants, ev.Status)
	}
	w.Flush()
}

func printEventDetail(ev *models.Event) {
	fmt.Printf("%s (%s)\n", ev.Title, ev.ID)
	fmt.Printf("  status:       %s\n", ev.Status)
	fmt.Printf("  date:         %s\n", ev.EventDate.Format(time.RFC3339))
	fmt.Printf("  reveal:       %s\n", ev.RevealDate.Format(time.RFC3339))
	fmt.Printf("  location:     %s\n", ev.Location)
	fmt.Printf("  seats:        %d/%d\n", len(ev.Participants), ev.MaxParticipants)
	fmt.Printf("  description:  %s\n", ev.Description)
	if len(ev.Icebreakers) > 0 {
		fmt.Println("  icebreakers:")
		for _, ib := range ev.Icebreakers {
			if ib.Expanded() {
				fmt.Printf("    - %s (%s)\n", ib.Icebreaker.Question, ib.Key())
			} else {
				fmt.Printf("    - %s\n", ib.Key())
			}
		}
	}
	if len(ev.Participants) > 0 {
		fmt.Println("  participants:")
		for _, p := range ev.Participants {
			if p.Expanded() {
				fmt.Printf("    - %s (%s)\n", p.User.Name, p.Key())
			} else {
				fmt.Printf("    - %s\n", p.Key())
			}
		}
	}
}

func init() {
	eventsCreateCmd.RunE = eventsCreateRunE()
	eventsUpdateCmd.RunE = eventsUpdateRunE()
	eventsRejectCmd.RunE = eventsRejectRunE()

	for _, cmd := range []*cobra.Command{eventsCreateCmd, eventsUpdateCmd} {
		cmd.Flags().String("title", "", "event title")
		cmd.Flags().String("description", "", "event description")
		cmd.Flags().String("date", "", "event date, RFC3339")
		cmd.Flags().String("reveal", "", "participant reveal date, RFC3339")
		cmd.Flags().String("location", "", "venue")
		cmd.Flags().Int("capacity", 0, "max participants (2-100)")
	}
	eventsCreateCmd.Flags().String("image", "", "path to an event image (jpg, png, webp)")
	eventsRejectCmd.Flags().String("reason", "", "rejection reason (required)")

	eventsCmd.AddCommand(eventsListCmd, eventsMineCmd, eventsShowCmd,
		eventsCreateCmd, eventsUpdateCmd, eventsDeleteCmd,
		eventsJoinCmd, eventsLeaveCmd, eventsApproveCmd, eventsRejectCmd)
	rootCmd.AddCommand(eventsCmd)
}
