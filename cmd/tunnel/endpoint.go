package tunnel

import (
	"fmt"

	"infra-cli/cmd/root"

	"github.com/spf13/cobra"
)

var endpointCmd = &cobra.Command{
	Use:   "endpoint",
	Short: "Print the public address, starting the agent if needed",
	Long: `Print the public address of the first tunnel without its scheme.
When the agent is not running it is started in the background.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := root.SignalContext()
		defer stop()

		addr, err := newManager(0, true).PublicAddress(ctx)
		if err != nil {
			return err
		}
		fmt.Println(addr)
		return nil
	},
}

func init() {
	tunnelCmd.AddCommand(endpointCmd)
}
