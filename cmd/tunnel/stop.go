package tunnel

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stopAll bool

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the tunnel agent started by this tool",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tm := newManager(0, false)
		rec, err := tm.StopRecorded(stopAll)
		if err != nil {
			return fmt.Errorf("failed to stop tunnel: %w", err)
		}
		switch {
		case rec != nil:
			fmt.Printf("Stopped tunnel (PID: %d, local port: %d)\n", rec.Pid, rec.LocalPort)
		case stopAll:
			fmt.Printf("Stopped all %s processes\n", tm.Options().Binary)
		default:
			fmt.Println("No recorded tunnel")
		}
		return nil
	},
}

func init() {
	stopCmd.Flags().BoolVar(&stopAll, "all", false, "Also kill every process with the agent's name")

	tunnelCmd.AddCommand(stopCmd)
}
