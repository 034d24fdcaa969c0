package env

import (
	"infra-cli/cmd/root"
	"infra-cli/internal/config"
	"infra-cli/internal/models"
	"infra-cli/services"

	"github.com/spf13/cobra"
)

var (
	backendEnvironment string
	backendServices    string
	backendEphemeral   bool
	backendYes         bool
)

var createBackendCmd = &cobra.Command{
	Use:   "create-backend",
	Short: "Deploy services into an ephemeral or stable environment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return createBackend()
	},
}

func createBackend() error {
	cfg := config.App()
	if err := config.Require(map[string]string{
		"TERRAFORM_ENDPOINT_BASE":                cfg.Backend.Base(),
		"TERRAFORM_CREATE_EPHIMERAL_ENDPOINT":    cfg.Backend.EphemeralEndpoint,
		"TERRAFORM_CREATE_NO_EPHIMERAL_ENDPOINT": cfg.Backend.StableEndpoint,
	}); err != nil {
		return err
	}

	ctx, stop := root.SignalContext()
	defer stop()

	o, backend := newOrchestrator(ctx, cfg)
	defer backend.Close()
	defer pushMetrics(cfg)

	_, err := o.Run(ctx, services.RunOptions{
		Variant:     models.VariantBackend,
		Developer:   cfg.Developer,
		Environment: backendEnvironment,
		Services:    backendServices,
		Ephemeral:   backendEphemeral,
		Yes:         backendYes,
	})
	return err
}

const createBackendExample = `  # interactive
  infra create-backend

  # deploy two services into the stable "staging" environment
  infra create-backend -e staging -s api,worker

  # ephemeral environment
  infra create-backend -e pr-1234 -s api --is-ephemeral --yes`

func init() {
	createBackendCmd.Flags().SortFlags = false
	createBackendCmd.Flags().StringVarP(&backendEnvironment, "environment", "e", "", "Environment name")
	createBackendCmd.Flags().StringVarP(&backendServices, "services", "s", "", "Comma-separated services to deploy")
	createBackendCmd.Flags().BoolVar(&backendEphemeral, "is-ephemeral", false, "Create an ephemeral environment")
	createBackendCmd.Flags().BoolVarP(&backendYes, "yes", "y", false, "Skip the review confirmation")
	createBackendCmd.Example = createBackendExample

	root.RootCmd.AddCommand(createBackendCmd)
}
