package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/webauth/internal/app"
	"github.com/aussiebroadwan/webauth/internal/bridge"
	"github.com/aussiebroadwan/webauth/pkg/identity"
	"github.com/aussiebroadwan/webauth/pkg/slogx"
)

type options struct {
	configPath string
	scopes     []string
	loginHint  string
	store      string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "webauth-token",
		Short:         "Obtain OAuth2 access tokens through a browser sign-in",
		SilenceUsage: true,
		Long: `webauth-token runs the OAuth2 implicit or authorization code flow for the
provider described by a JSON config file and prints the resulting token as JSON.

Token store, master key and surface settings are read from the same WEBAUTH_*
environment variables as the bridge daemon.`,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "provider config JSON file")
	root.PersistentFlags().StringSliceVar(&opts.scopes, "scopes", nil, "scopes to request, overriding the config")
	root.PersistentFlags().StringVar(&opts.loginHint, "login-hint", "", "login_hint forwarded to the provider")
	root.PersistentFlags().StringVar(&opts.store, "store", "", "token store (memory, sqlite, file, keyring), overrides WEBAUTH_STORE")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	root.AddCommand(newGetCmd(opts))
	root.AddCommand(newFlowCmd(opts))
	root.AddCommand(newPurgeCmd(opts))
	return root
}

func newGetCmd(opts *options) *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print a cached token, signing in when needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTokenOp(cmd.Context(), cmd.OutOrStdout(), opts, interactive, (*bridge.Bridge).GetToken)
		},
	}
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", true, "allow showing the sign-in page")
	return cmd
}

func newFlowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "flow",
		Short: "Always sign in and print the new token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTokenOp(cmd.Context(), cmd.OutOrStdout(), opts, true, (*bridge.Bridge).LaunchWebFlow)
		},
	}
}

func newPurgeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired tokens from the token store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := newApp(opts)
			if err != nil {
				return err
			}
			defer application.Close()

			removed, err := application.PurgeExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired token(s)\n", removed)
			return nil
		},
	}
}

type tokenOp func(*bridge.Bridge, context.Context, bridge.Request) (*identity.TokenInfo, error)

func runTokenOp(ctx context.Context, out io.Writer, opts *options, interactive bool, op tokenOp) error {
	cfg, err := readProviderConfig(opts.configPath)
	if err != nil {
		return err
	}

	application, err := newApp(opts)
	if err != nil {
		return err
	}
	defer application.Close()

	token, err := op(application.Bridge(), ctx, bridge.Request{
		Config: cfg,
		Options: identity.AuthRequestOptions{
			Interactive: interactive,
			Scopes:      opts.scopes,
			LoginHint:   opts.loginHint,
		},
	})
	if err != nil {
		return err
	}
	if token == nil {
		return fmt.Errorf("no token available without signing in, retry with --interactive")
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(token)
}

func newApp(opts *options) (*app.Application, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	if opts.store != "" {
		cfg.Store = opts.store
	}

	logger := slogx.New(slogx.Config{
		Service: "webauth-token",
		Version: app.BuildVersion,
		Env:     cfg.Env,
		Level:   opts.logLevel,
		Format:  "text",
		Output:  os.Stderr,
	})
	return app.New(cfg, app.WithLogger(logger))
}

func readProviderConfig(path string) (identity.OAuthConfig, error) {
	if path == "" {
		return identity.OAuthConfig{}, fmt.Errorf("--config is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return identity.OAuthConfig{}, fmt.Errorf("read provider config: %w", err)
	}

	var cfg identity.OAuthConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return identity.OAuthConfig{}, fmt.Errorf("parse provider config %s: %w", path, err)
	}
	return cfg, nil
}
