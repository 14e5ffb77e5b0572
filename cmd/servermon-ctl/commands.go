package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"servermon/internal/client"
	"servermon/internal/shared"

	"github.com/spf13/cobra"
)

func newReportCmd(opts *rootOptions) *cobra.Command {
	var (
		name, ip, status  string
		cpu, memory, disk float64
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Send one health report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			rep := shared.AgentReport{
				ServerName:    &name,
				ServerIP:      &ip,
				NetworkStatus: &status,
				CPUUsage:      &cpu,
				MemoryUsage:   &memory,
				DiskUsage:     &disk,
			}
			if err := c.Report(commandContext(cmd), rep); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "reported %s (%s)\n", ip, status)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", hostname(), "server name")
	f.StringVar(&ip, "ip", "", "server address")
	f.StringVar(&status, "status", "up", "network status")
	f.Float64Var(&cpu, "cpu", 0, "cpu usage percent")
	f.Float64Var(&memory, "memory", 0, "memory usage percent")
	f.Float64Var(&disk, "disk", 0, "disk usage percent")
	_ = cmd.MarkFlagRequired("ip")
	return cmd
}

func newGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one record by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			rec, err := c.Get(commandContext(cmd), id)
			if errors.Is(err, client.ErrNotFound) {
				return fmt.Errorf("no record with id %d", id)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
}

func newServersCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "servers",
		Short: "List the latest state of every server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			list, err := c.Servers(commandContext(cmd))
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), list)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tADDRESS\tNETWORK\tCPU\tMEM\tDISK")
			for _, s := range list {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.1f\t%.1f\t%.1f\n",
					s.ID, s.ServerName, s.ServerIP, s.NetworkStatus, s.CPUUsage, s.MemoryUsage, s.DiskUsage)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the client config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default client config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(opts.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", opts.configPath)
			}
			cfg := shared.DefaultClientConfig()
			if opts.serverURL != "" {
				cfg.ServerURL = opts.serverURL
			}
			if err := shared.SaveClientConfig(opts.configPath, cfg); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", opts.configPath)
			return err
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective client config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.clientConfig()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cfg)
		},
	}

	cfgCmd.AddCommand(initCmd, showCmd)
	return cfgCmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
