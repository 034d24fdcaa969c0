package tunnel

import (
	"infra-cli/cmd/root"
	"infra-cli/internal/config"
	"infra-cli/services"

	"github.com/spf13/cobra"
)

var tunnelCmd = &cobra.Command{
	Use:   "tunnel",
	Short: "Tunnel operations (start/stop, status etc.)",
	Long:  `Manage the ngrok agent exposing a local port to the provisioned environments`,
}

const tunnelExample = `  # expose local port 3000 and keep the agent running in the background
  infra tunnel start --port 3000 --detach

  # print the public address
  infra tunnel endpoint

  # stop the agent started above
  infra tunnel stop`

// newManager builds a tunnel manager from the loaded configuration.
func newManager(port int, detachOnDemand bool) *services.TunnelManager {
	cfg := config.App()
	opts := services.OptionsFromConfig(&cfg.Tunnel)
	if port > 0 {
		opts.Port = port
	}
	opts.DetachOnDemand = detachOnDemand
	return services.NewTunnelManager(opts)
}

func init() {
	root.RootCmd.AddCommand(tunnelCmd)

	tunnelCmd.Example = tunnelExample
}
