// Command servermon-ctl reports to and queries a running servermon-server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"servermon/internal/client"
	"servermon/internal/shared"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	serverURL  string
}

// clientConfig loads the settings file, falling back to defaults when it is
// absent. --server wins over the file.
func (o *rootOptions) clientConfig() (*shared.ClientConfig, error) {
	cfg, err := shared.LoadClientConfig(o.configPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = shared.DefaultClientConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", o.configPath, err)
	}
	if o.serverURL != "" {
		cfg.ServerURL = o.serverURL
	}
	return cfg, nil
}

func (o *rootOptions) client() (*client.Client, error) {
	cfg, err := o.clientConfig()
	if err != nil {
		return nil, err
	}
	return client.New(cfg), nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:          "servermon-ctl",
		Short:        "servermon-ctl talks to a servermon server",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "./servermon-ctl.json", "path to client config json")
	rootCmd.PersistentFlags().StringVar(&opts.serverURL, "server", "", "server base URL (overrides config)")

	rootCmd.AddCommand(
		newReportCmd(opts),
		newGetCmd(opts),
		newServersCmd(opts),
		newConfigCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number of servermon-ctl",
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "servermon-ctl version %s\n", Version)
				return err
			},
		},
	)
	return rootCmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
