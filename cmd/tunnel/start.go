package tunnel

import (
	"fmt"

	"infra-cli/cmd/root"
	"infra-cli/internal/config"
	"infra-cli/internal/logger"
	"infra-cli/services"

	"github.com/spf13/cobra"
)

var (
	startPort      int
	startAuthtoken string
	startDetach    bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the tunnel agent and wait until it is ready",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startTunnel()
	},
}

/**
 * Launch the agent, print the public address, then hold or detach
 * @returns {error} Install, crash or timeout error
 * @description
 * - Without --detach the agent is stopped on Ctrl+C
 * - With --detach the agent keeps running and "infra tunnel stop" stops it
 */
func startTunnel() error {
	ctx, stop := root.SignalContext()
	defer stop()

	tm := newManager(startPort, startDetach)
	token := startAuthtoken
	if token == "" {
		token = config.App().Tunnel.Authtoken
	}

	tun, err := tm.Launch(ctx, services.LaunchRequest{
		Port:      tm.Options().Port,
		Authtoken: token,
		Detached:  startDetach,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Tunnel started (PID: %d, local port: %d)\n", tun.Pid, tun.LocalPort)

	if addr, err := tm.PublicAddress(ctx); err == nil {
		fmt.Printf("Public address: %s\n", addr)
	} else {
		logger.Warnf("Public address not available yet: %v", err)
		fmt.Printf("Public address not available yet: %v\n", err)
	}

	if startDetach {
		fmt.Printf("Agent output: %s\n", tm.Options().LogFile)
		return nil
	}
	fmt.Println("Press Ctrl+C to stop the tunnel.")
	<-ctx.Done()
	if err := tm.Terminate(); err != nil {
		return fmt.Errorf("failed to stop tunnel: %w", err)
	}
	fmt.Println("Tunnel stopped.")
	return nil
}

func init() {
	startCmd.Flags().SortFlags = false
	startCmd.Flags().IntVarP(&startPort, "port", "p", 0, "Local port (default NGROK_PORT or 8000)")
	startCmd.Flags().StringVar(&startAuthtoken, "authtoken", "", "Agent auth token (default NGROK_AUTHTOKEN)")
	startCmd.Flags().BoolVarP(&startDetach, "detach", "d", false, "Keep the agent running after this command exits")

	tunnelCmd.AddCommand(startCmd)
}
