// Command breaknet is the tunnel client binary: it loads a ClientConfig,
// builds the TLS connector, and runs the reconnect supervisor of spec.md
// §4.5 until SIGINT/SIGTERM.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github/sabouaram/breaknet/internal/client"
	"github/sabouaram/breaknet/internal/config"
	"github/sabouaram/breaknet/internal/log"
	"github/sabouaram/breaknet/internal/tlsconf"
	"github/sabouaram/breaknet/runner/startStop"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		typeOfConfig int
		jsonFile     string
		base64Config string
		caFile       string
	)

	cmd := &cobra.Command{
		Use:   "breaknet",
		Short: "reverse-tunnel client",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(typeOfConfig, jsonFile, base64Config, caFile)
		},
	}

	cmd.Flags().IntVarP(&typeOfConfig, "type-of-config", "t", 1, "config source: 1=json file, 2=base64 string")
	cmd.Flags().StringVarP(&jsonFile, "json-file-config", "j", "config.json", "path to the JSON config file")
	cmd.Flags().StringVarP(&base64Config, "base64-config", "b", "", "base64-encoded JSON config")
	cmd.Flags().StringVar(&caFile, "ca-file", "server.pem", "root CA PEM trusted for the control server")

	return cmd
}

func run(typeOfConfig int, jsonFile, base64Config, caFile string) error {
	logger := log.New()

	root, err := config.Load(typeOfConfig, jsonFile, base64Config, logger)
	if err != nil {
		logger.Error("configuration error", log.Fields{"error": err.Error()})
		return err
	}

	if root.Client == nil {
		logger.Error("configuration does not contain a client section", log.Fields{})
		return os.ErrInvalid
	}

	tlsCfg, err := tlsconf.Client(caFile)
	if err != nil {
		logger.Error("TLS init error", log.Fields{"error": err.Error()})
		return err
	}

	cli := client.New(root.Client, tlsCfg, logger)

	runner := startStop.New(func(ctx context.Context) error {
		cli.Run(ctx)
		return nil
	}, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runner.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("shutting down", log.Fields{})
	return runner.Stop(context.Background())
}
