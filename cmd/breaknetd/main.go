// Command breaknetd is the tunnel server binary: it loads a ServerConfig,
// builds the TLS acceptor, and runs the control-channel accept loop of
// spec.md §4.4 until SIGINT/SIGTERM.
package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github/sabouaram/breaknet/internal/config"
	"github/sabouaram/breaknet/internal/log"
	"github/sabouaram/breaknet/internal/server"
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
		certFile     string
		keyFile      string
	)

	cmd := &cobra.Command{
		Use:   "breaknetd",
		Short: "reverse-tunnel control server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(typeOfConfig, jsonFile, base64Config, certFile, keyFile)
		},
	}

	cmd.Flags().IntVarP(&typeOfConfig, "type-of-config", "t", 1, "config source: 1=json file, 2=base64 string")
	cmd.Flags().StringVarP(&jsonFile, "json-file-config", "j", "config.json", "path to the JSON config file")
	cmd.Flags().StringVarP(&base64Config, "base64-config", "b", "", "base64-encoded JSON config")
	cmd.Flags().StringVar(&certFile, "cert-file", "server.pem", "X.509 certificate chain PEM")
	cmd.Flags().StringVar(&keyFile, "key-file", "server.key", "PKCS#8 private key PEM")

	return cmd
}

func run(typeOfConfig int, jsonFile, base64Config, certFile, keyFile string) error {
	logger := log.New()

	root, err := config.Load(typeOfConfig, jsonFile, base64Config, logger)
	if err != nil {
		logger.Error("configuration error", log.Fields{"error": err.Error()})
		return err
	}

	if root.Server == nil {
		logger.Error("configuration does not contain a server section", log.Fields{})
		return os.ErrInvalid
	}

	tlsCfg, err := tlsconf.Server(certFile, keyFile)
	if err != nil {
		logger.Error("TLS init error", log.Fields{"error": err.Error()})
		return err
	}

	srv := server.New(root.Server, tlsCfg, logger)

	runner := startStop.New(func(ctx context.Context) error {
		ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(int(root.Server.Port))))
		if err != nil {
			return err
		}
		logger.Info("listening for control connections", log.Fields{"port": root.Server.Port})
		return srv.Serve(ctx, ln)
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
