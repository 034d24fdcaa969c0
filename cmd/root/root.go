package root

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"infra-cli/internal/config"
	"infra-cli/internal/logger"

	"github.com/spf13/cobra"
)

var (
	ConfigFile string
	Verbose    bool
)

var (
	SoftwareVer   = ""
	BuildTime     = ""
	BuildTag      = ""
	BuildCommitId = ""
)

var RootCmd = &cobra.Command{
	Use:   "infra",
	Short: "Ephemeral development environment manager",
	Long: `infra provisions and tears down ephemeral development environments.
It talks to the provisioning backend and exposes local services through an ngrok tunnel.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(ConfigFile)
		if err != nil {
			return err
		}
		logger.InitLogger(&cfg.Log, Verbose)
		return nil
	},
}

// SignalContext is cancelled by SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&ConfigFile, "config", "c", "", "Config file (default ./infra.yaml or ~/.infra/infra.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "v", false, "Print debug logs to stderr")
}
