package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prakhar362/Ocean-Sentinal/cmd/internal/app"
)

// cli carries state shared by every subcommand.
type cli struct {
	envFile string

	logLevel   string
	logFormat  string
	backend    string
	apiBaseURL string
	wsURL      string

	cfg app.Config
	log *slog.Logger
}

func buildRootCmd() *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:           "sentinel",
		Short:         "Ocean Sentinel client",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&c.envFile, "env-file", envOr("SENTINEL_ENV_FILE", ".env"), "dotenv file loaded before the environment is read")
	flags.StringVar(&c.logLevel, "log-level", "", "debug|info|warn|error (default: SENTINEL_LOG_LEVEL)")
	flags.StringVar(&c.logFormat, "log-format", "", "json|pretty (default: SENTINEL_LOG_FORMAT)")
	flags.StringVar(&c.backend, "credential-backend", "", "memory|file|sqlite|redis|postgres (default: SENTINEL_CREDENTIAL_BACKEND)")
	flags.StringVar(&c.apiBaseURL, "api-url", "", "auth API base URL (default: SENTINEL_API_BASE_URL)")
	flags.StringVar(&c.wsURL, "ws-url", "", "realtime endpoint (default: SENTINEL_WS_URL)")

	cmd.AddCommand(
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.statusCmd(),
		c.sosCmd(),
		c.forgotPasswordCmd(),
		c.serveCmd(),
	)
	return cmd
}

func (c *cli) load(cmd *cobra.Command) error {
	if err := app.LoadEnvFile(c.envFile); err != nil {
		return err
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = c.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = c.logFormat
	}
	if flags.Changed("credential-backend") {
		cfg.Credential.Backend = c.backend
	}
	if flags.Changed("api-url") {
		cfg.API.BaseURL = c.apiBaseURL
	}
	if flags.Changed("ws-url") {
		cfg.Realtime.URL = c.wsURL
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.cfg = cfg
	c.log = app.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	return nil
}

// start builds the App and restores the persisted session. The caller must
// Close the App.
func (c *cli) start(ctx context.Context, opts ...app.Option) (*app.App, error) {
	a, err := app.New(ctx, c.cfg, c.log, opts...)
	if err != nil {
		return nil, err
	}
	if err := a.Start(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readPassword returns the flag value, or the first line of stdin when
// fromStdin is set.
func readPassword(cmd *cobra.Command, flagValue string, fromStdin bool) (string, error) {
	if !fromStdin {
		if flagValue == "" {
			return "", errors.New("password required: use --password or --password-stdin")
		}
		return flagValue, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("empty password on stdin")
	}
	return pw, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
