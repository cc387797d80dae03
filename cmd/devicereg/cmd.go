package main

import (
	"fmt"
	"os"

	"github.com/anoideaopen/devicereg/core"
	"github.com/anoideaopen/devicereg/core/logger"
	"github.com/anoideaopen/devicereg/device"
	"github.com/anoideaopen/devicereg/version"
	"github.com/spf13/cobra"
)

// startFlags maps the start command flags to the environment variables the
// chaincode runtime reads. A flag that is set wins over the environment.
var startFlags = []struct {
	name  string
	env   string
	usage string
}{
	{name: "mode", env: "CHAINCODE_EXEC_MODE", usage: "'server' to run as an external chaincode service"},
	{name: "ccid", env: "CHAINCODE_ID", usage: "chaincode package id, required in server mode"},
	{name: "port", env: "CHAINCODE_SERVER_PORT", usage: "listen port in server mode"},
	{name: "keepalive", env: "CHAINCODE_SERVER_KEEPALIVE", usage: "idle connection ping interval in server mode, e.g. 30s"},
	{name: "tls-key-file", env: "CHAINCODE_TLS_KEY_FILE", usage: "TLS private key file"},
	{name: "tls-cert-file", env: "CHAINCODE_TLS_CERT_FILE", usage: "TLS certificate file"},
	{name: "tls-client-ca-file", env: "CHAINCODE_TLS_CLIENT_CA_CERTS_FILE", usage: "client CA bundle file"},
	{name: "log-level", env: "CORE_CHAINCODE_LOGGING_LEVEL", usage: "logrus level"},
	{name: "log-format", env: "CORE_CHAINCODE_LOGGING_FORMAT", usage: "'json' or text"},
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "devicereg",
		Short:         "Medical equipment repair registry chaincode",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newStartCmd(), newVersionCmd())

	return root
}

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Connect to the peer or serve as an external chaincode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := applyFlagsToEnv(cmd); err != nil {
				return err
			}

			logger.Logger().Warningf("start devicereg %s", version.Version())

			cc, err := core.NewCC(device.NewContract())
			if err != nil {
				return fmt.Errorf("creating chaincode: %w", err)
			}

			return cc.Start()
		},
	}

	for _, f := range startFlags {
		cmd.Flags().String(f.name, "", fmt.Sprintf("%s (env %s)", f.usage, f.env))
	}

	return cmd
}

func applyFlagsToEnv(cmd *cobra.Command) error {
	for _, f := range startFlags {
		if !cmd.Flags().Changed(f.name) {
			continue
		}

		v, err := cmd.Flags().GetString(f.name)
		if err != nil {
			return err
		}

		if err = os.Setenv(f.env, v); err != nil {
			return fmt.Errorf("setting %s: %w", f.env, err)
		}
	}

	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("devicereg %s\n", version.Version())
			cmd.Printf("chaincode id: %s\n", version.CoreChaincodeIDName())
		},
	}
}
