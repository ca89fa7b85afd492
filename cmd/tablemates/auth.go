// Tablemates - Social Dinner Event Booking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/tablemates/internal/models"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and persist the credential token",
}

func loginRunE() func(*cobra.Command, []string) error {
	return runWithApp(func(ctx context.Context, a *app, args []string) error {
		email, _ := loginCmd.Flags().GetString("email")
		password, _ := loginCmd.Flags().GetString("password")

		if err := a.session.Login(ctx, models.Credentials{Email: email, Password: password}); err != nil {
			return fmt.Errorf("%s", a.session.LastError())
		}
		u := a.session.User()
		fmt.Printf("Signed in as %s <%s>\n", u.Name, u.Email)
		return nil
	})
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
}

func registerRunE() func(*cobra.Command, []string) error {
	return runWithApp(func(ctx context.Context, a *app, args []string) error {
		var reg models.Registration
		reg.Name, _ = registerCmd.Flags().GetString("name")
		reg.Email, _ = registerCmd.Flags().GetString("email")
		reg.Password, _ = registerCmd.Flags().GetString("password")
		reg.Bio, _ = registerCmd.Flags().GetString("bio")
		reg.City, _ = registerCmd.Flags().GetString("city")

		if err := a.session.Register(ctx, reg); err != nil {
			return fmt.Errorf("%s", a.session.LastError())
		}
		fmt.Printf("Account created; signed in as %s\n", a.session.User().Email)
		return nil
	})
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the local session and stored token",
	RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
		a.session.Logout()
		fmt.Println("Signed out")
		return nil
	}),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current identity",
	RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
		if err := a.restore(ctx); err != nil {
			return err
		}
		u := a.session.User()
		fmt.Printf("%s <%s> role=%s\n", u.Name, u.Email, u.Role)
		if u.City != "" {
			fmt.Printf("city: %s\n", u.City)
		}
		if exp := a.session.ExpiresAt(); !exp.IsZero() {
			fmt.Printf("token expires: %s\n", exp.Format(time.RFC3339))
		}
		return nil
	}),
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the signed-in profile",
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update profile fields; unset flags are left unchanged",
}

func profileUpdateRunE() func(*cobra.Command, []string) error {
	return runWithApp(func(ctx context.Context, a *app, args []string) error {
		if err := a.restore(ctx); err != nil {
			return err
		}

		var patch models.ProfilePatch
		patch.Name, _ = profileUpdateCmd.Flags().GetString("name")
		patch.Email, _ = profileUpdateCmd.Flags().GetString("email")
		patch.Password, _ = profileUpdateCmd.Flags().GetString("password")
		patch.Bio, _ = profileUpdateCmd.Flags().GetString("bio")
		patch.City, _ = profileUpdateCmd.Flags().GetString("city")
		patch.Photo, _ = profileUpdateCmd.Flags().GetString("photo")

		u, err := a.session.UpdateProfile(ctx, patch)
		if err != nil {
			return fmt.Errorf("%s", a.session.LastError())
		}
		fmt.Printf("Profile updated: %s <%s>\n", u.Name, u.Email)
		return nil
	})
}

func init() {
	loginCmd.RunE = loginRunE()
	registerCmd.RunE = registerRunE()
	profileUpdateCmd.RunE = profileUpdateRunE()

	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password")
	loginCmd.MarkFlagRequired("email")
	loginCmd.MarkFlagRequired("password")

	registerCmd.Flags().String("name", "", "display name")
	registerCmd.Flags().String("email", "", "account email")
	registerCmd.Flags().String("password", "", "account password")
	registerCmd.Flags().String("bio", "", "short bio")
	registerCmd.Flags().String("city", "", "home city")
	registerCmd.MarkFlagRequired("name")
	registerCmd.MarkFlagRequired("email")
	registerCmd.MarkFlagRequired("password")

	profileUpdateCmd.Flags().String("name", "", "display name")
	profileUpdateCmd.Flags().String("email", "", "account email")
	profileUpdateCmd.Flags().String("password", "", "new password")
	profileUpdateCmd.Flags().String("bio", "", "short bio")
	profileUpdateCmd.Flags().String("city", "", "home city")
	profileUpdateCmd.Flags().String("photo", "", "photo URL")

	profileCmd.AddCommand(profileUpdateCmd)
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd, profileCmd)
}
