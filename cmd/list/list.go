package list

import (
	"context"
	"fmt"
	"os"

	"infra-cli/cmd/root"
	"infra-cli/internal/config"
	"infra-cli/internal/utils"
	"infra-cli/services"

	"github.com/iancoleman/orderedmap"
	"github.com/spf13/cobra"
)

var listOutput string

var listCmd = &cobra.Command{
	Use:       "list {branches|services|environments}",
	Short:     "List the values the backend accepts",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"branches", "services", "environments"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.App()
		if err := config.Require(map[string]string{"TERRAFORM_ENDPOINT_BASE": cfg.Backend.Base()}); err != nil {
			return err
		}
		ctx, stop := root.SignalContext()
		defer stop()

		backend := services.NewBackendClient(cfg.Backend)
		defer backend.Close()
		return listValues(ctx, backend, args[0])
	},
}

type lister interface {
	ListBranches(ctx context.Context) ([]string, error)
	ListServices(ctx context.Context) ([]string, error)
	ListStableEnvironments(ctx context.Context) ([]string, error)
}

/**
 *	Fields displayed in list format
 */
type Value_Columns struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

func listValues(ctx context.Context, backend lister, kind string) error {
	var names []string
	var err error
	switch kind {
	case "branches":
		names, err = backend.ListBranches(ctx)
	case "services":
		names, err = backend.ListServices(ctx)
	case "environments":
		names, err = backend.ListStableEnvironments(ctx)
	default:
		return fmt.Errorf("unknown list kind: %s", kind)
	}
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Printf("No %s found\n", kind)
		return nil
	}

	var dataList []*orderedmap.OrderedMap
	for _, name := range names {
		row, err := utils.StructToOrderedMap(Value_Columns{Kind: kind, Name: name})
		if err != nil {
			return err
		}
		dataList = append(dataList, row)
	}
	return utils.PrintFormat(os.Stdout, listOutput, dataList)
}

func init() {
	listCmd.Flags().StringVarP(&listOutput, "output", "o", utils.FormatTable, "Output format: table, json or yaml")
	listCmd.Example = `  infra list branches
  infra list services -o json`

	root.RootCmd.AddCommand(listCmd)
}
