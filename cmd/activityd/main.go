package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nomis52/goactivity/buildinfo"
	"github.com/nomis52/goactivity/server"
	serverconfig "github.com/nomis52/goactivity/server/config"
)

type Args struct {
	ConfigPath string
	ListenAddr string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var args Args

	root := &cobra.Command{
		Use:   "activityd",
		Short: "In-memory activity tracker with a JSON HTTP API",
		Example: "  activityd --config /etc/activityd/config.yaml\n" +
			"  activityd -l 127.0.0.1:3000\n" +
			"  activityd validate -c config.yaml",
		Version:       buildinfo.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), args)
		},
	}
	root.PersistentFlags().StringVarP(&args.ConfigPath, "config", "c", "", "Path to server config file (defaults apply when empty)")
	root.Flags().StringVarP(&args.ListenAddr, "listen", "l", "", "Listen address, overrides the config file")

	root.AddCommand(newValidateCommand(&args))
	root.AddCommand(newVersionCommand())
	return root
}

func newValidateCommand(args *Args) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a config file and print it with defaults applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if args.ConfigPath == "" {
				return fmt.Errorf("config flag (-c or --config) is required")
			}
			cfg, err := serverconfig.LoadConfig(args.ConfigPath)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(cfg.Redacted())
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.Get().String())
		},
	}
}

func serve(parent context.Context, args Args) error {
	var opts []server.Option
	if args.ListenAddr != "" {
		opts = append(opts, server.WithListenAddr(args.ListenAddr))
	}

	srv, err := server.New(args.ConfigPath, opts...)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			srv.Logger().Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return srv.Run(ctx)
}
