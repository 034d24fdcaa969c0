package tunnel

import (
	"fmt"

	"infra-cli/cmd/root"
	"infra-cli/internal/config"
	"infra-cli/services"

	"github.com/spf13/cobra"
)

var installForce bool

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Locate or download the agent executable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := root.SignalContext()
		defer stop()

		cfg := config.App().Tunnel
		installer := services.NewInstaller(cfg.InstallDir, cfg.Binary)
		if installForce {
			url, err := services.ResolveDownloadURL(installer.Platform.OS, installer.Platform.Arch)
			if err != nil {
				return err
			}
			path, err := installer.Install(ctx, url)
			if err != nil {
				return err
			}
			fmt.Printf("Installed %s from %s\n", path, url)
			return nil
		}

		ref, err := services.NewExecutableLocator(cfg.Binary, installer).Resolve(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s)\n", ref.Path, ref.Source)
		return nil
	},
}

func init() {
	installCmd.Flags().BoolVarP(&installForce, "force", "f", false, "Download even when a copy exists")

	tunnelCmd.AddCommand(installCmd)
}
