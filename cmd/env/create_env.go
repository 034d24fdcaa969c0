package env

import (
	"infra-cli/cmd/root"
	"infra-cli/internal/config"
	"infra-cli/internal/models"
	"infra-cli/services"

	"github.com/spf13/cobra"
)

var (
	envServices      string
	envBranch        string
	envPort          int
	envYes           bool
	envListen        string
	envDestroyOnExit bool
)

var createEnvCmd = &cobra.Command{
	Use:   "create-env",
	Short: "Deploy a branch while running some services locally",
	Long: `Deploy a branch into an ephemeral environment. The selected services run on this
machine and are exposed to the environment through an ngrok tunnel. The command holds the
session until Ctrl+C, then stops the tunnel.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return createEnv()
	},
}

func createEnv() error {
	cfg := config.App()
	if err := config.Require(map[string]string{
		"TERRAFORM_ENDPOINT": cfg.Backend.Endpoint,
		"DEVELOPER":          cfg.Developer,
	}); err != nil {
		return err
	}
	if envPort > 0 {
		cfg.Tunnel.Port = envPort
	}

	ctx, stop := root.SignalContext()
	defer stop()

	o, backend := newOrchestrator(ctx, cfg)
	defer backend.Close()
	defer pushMetrics(cfg)

	listen := envListen
	if listen == "" {
		listen = cfg.Server.Address
	}
	startStatusServer(ctx, cfg, listen, o.Session())

	_, err := o.Run(ctx, services.RunOptions{
		Variant:       models.VariantBranch,
		Developer:     cfg.Developer,
		Services:      envServices,
		Branch:        envBranch,
		Yes:           envYes,
		Hold:          true,
		DestroyOnExit: envDestroyOnExit,
	})
	return err
}

const createEnvExample = `  # choose services and branch interactively
  infra create-env

  # automatic mode
  infra create-env --services api,worker --branch feature-x --yes`

func init() {
	createEnvCmd.Flags().SortFlags = false
	createEnvCmd.Flags().StringVarP(&envServices, "services", "s", "", "Comma-separated services run locally")
	createEnvCmd.Flags().StringVarP(&envBranch, "branch", "b", "", "Branch to deploy")
	createEnvCmd.Flags().IntVarP(&envPort, "port", "p", 0, "Local port exposed by the tunnel (default NGROK_PORT or 8000)")
	createEnvCmd.Flags().BoolVarP(&envYes, "yes", "y", false, "Skip the review confirmation")
	createEnvCmd.Flags().StringVar(&envListen, "listen", "", "Serve the session status API on this address")
	createEnvCmd.Flags().BoolVar(&envDestroyOnExit, "destroy-on-exit", false, "Destroy the environment when the session ends")
	createEnvCmd.Example = createEnvExample

	root.RootCmd.AddCommand(createEnvCmd)
}
