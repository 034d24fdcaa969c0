package env

import (
	"infra-cli/cmd/root"
	"infra-cli/internal/config"

	"github.com/spf13/cobra"
)

var (
	destroyEnvironment string
	destroyYes         bool
)

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Destroy an ephemeral environment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.App()
		if err := config.Require(map[string]string{"TERRAFORM_DESTROY_ENDPOINT": cfg.Backend.Destroy()}); err != nil {
			return err
		}

		ctx, stop := root.SignalContext()
		defer stop()

		o, backend := newOrchestrator(ctx, cfg)
		defer backend.Close()
		defer pushMetrics(cfg)

		_, err := o.Destroy(ctx, cfg.Developer, destroyEnvironment, destroyYes)
		return err
	},
}

func init() {
	destroyCmd.Flags().SortFlags = false
	destroyCmd.Flags().StringVarP(&destroyEnvironment, "environment", "e", "", "Environment name")
	destroyCmd.Flags().BoolVarP(&destroyYes, "yes", "y", false, "Skip the confirmation")
	destroyCmd.Example = `  infra destroy -e dev-alice-42`

	root.RootCmd.AddCommand(destroyCmd)
}
