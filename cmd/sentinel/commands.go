package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/app"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/auth/session"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/location"
	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/realtime"
)

func (c *cli) loginCmd() *cobra.Command {
	var email, password string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and persist the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := readPassword(cmd, password, passwordStdin)
			if err != nil {
				return err
			}
			a, err := c.start(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.Sessions().Login(cmd.Context(), email, pw); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), a.Status())
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	var reg session.Registration
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := readPassword(cmd, reg.Password, passwordStdin)
			if err != nil {
				return err
			}
			reg.Password = pw

			a, err := c.start(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Sessions().Register(cmd.Context(), reg)
			if err != nil {
				return err
			}
			out := a.Status()
			out.Message = res.Message
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	f := cmd.Flags()
	f.StringVar(&reg.Name, "name", "", "display name")
	f.StringVar(&reg.Email, "email", "", "account email")
	f.StringVar(&reg.Password, "password", "", "account password")
	f.BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	f.StringVar(&reg.Profile.BoatLicenseID, "boat-license", "", "boat license id")
	f.StringVar(&reg.Profile.Experience, "experience", "", "years at sea")
	f.StringVar(&reg.Profile.Port, "port", "", "home port")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and wipe stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.start(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Sessions().Logout(cmd.Context())
		},
	}
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the restored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.start(cmd.Context(), app.WithoutConnect())
			if err != nil {
				return err
			}
			defer a.Close()
			return printJSON(cmd.OutOrStdout(), a.Status())
		},
	}
}

func (c *cli) sosCmd() *cobra.Command {
	var message string
	var lat, lon float64
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "sos",
		Short: "Send an SOS alert over the realtime connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.start(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Sessions().State() != session.StateActive {
				return errors.New("not logged in")
			}

			waitCtx, cancel := context.WithTimeout(cmd.Context(), wait)
			err = a.Connection().WaitForState(waitCtx, realtime.StateOpen)
			cancel()
			if err != nil {
				return fmt.Errorf("realtime connection not open after %s (state=%s)", wait, a.Connection().State())
			}

			f := cmd.Flags()
			if f.Changed("lat") != f.Changed("lon") {
				return errors.New("--lat and --lon go together")
			}
			if f.Changed("lat") {
				rec, err := a.Alerts().SendAlert(cmd.Context(), message, &location.Point{Latitude: lat, Longitude: lon})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rec)
			}
			rec, err := a.Alerts().SendCurrent(cmd.Context(), message)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&message, "message", "m", "", "alert text")
	f.Float64Var(&lat, "lat", 0, "latitude (default: SENTINEL_LOCATION)")
	f.Float64Var(&lon, "lon", 0, "longitude (default: SENTINEL_LOCATION)")
	f.DurationVar(&wait, "wait", 15*time.Second, "how long to wait for the connection to open")
	return cmd
}

func (c *cli) forgotPasswordCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password reset code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.start(cmd.Context(), app.WithoutConnect())
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Sessions().ForgotPassword(cmd.Context(), email)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func (c *cli) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep the session connected and serve the control API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				c.cfg.ControlAddr = addr
			}
			a, err := c.start(cmd.Context())
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "control API listen address (default: SENTINEL_CONTROL_ADDR)")
	return cmd
}
