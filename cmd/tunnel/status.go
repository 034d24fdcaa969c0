package tunnel

import (
	"context"
	"fmt"
	"os"
	"time"

	"infra-cli/internal/utils"

	"github.com/iancoleman/orderedmap"
	"github.com/spf13/cobra"
)

var statusOutput string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the tunnels reported by the agent",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return showStatus(ctx)
	},
}

/**
 *	Fields displayed in list format
 */
type Tunnel_Columns struct {
	Name      string `json:"name"`
	PublicURL string `json:"public_url"`
	Proto     string `json:"proto"`
	Addr      string `json:"addr"`
	Pid       int    `json:"pid"`
	Healthy   string `json:"healthy"`
}

func showStatus(ctx context.Context) error {
	tm := newManager(0, false)
	rec, _ := tm.Recorded()

	snap, err := tm.Snapshot(ctx)
	if err != nil {
		if rec != nil {
			fmt.Printf("Tunnel agent is not answering (recorded PID: %d): %v\n", rec.Pid, err)
		} else {
			fmt.Println("Tunnel agent is not running")
		}
		return nil
	}
	if len(snap.Tunnels) == 0 {
		fmt.Println("No active tunnels")
		return nil
	}

	var dataList []*orderedmap.OrderedMap
	for _, t := range snap.Tunnels {
		row := Tunnel_Columns{
			Name:      t.Name,
			PublicURL: t.PublicURL,
			Proto:     t.Proto,
			Addr:      t.Config.Addr,
			Healthy:   "N",
		}
		if rec != nil {
			row.Pid = rec.Pid
			if running, err := utils.IsProcessRunning(rec.Pid); err == nil && running {
				row.Healthy = "Y"
			}
		}
		recordMap, err := utils.StructToOrderedMap(row)
		if err != nil {
			return err
		}
		dataList = append(dataList, recordMap)
	}
	return utils.PrintFormat(os.Stdout, statusOutput, dataList)
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", utils.FormatTable, "Output format: table, json or yaml")

	tunnelCmd.AddCommand(statusCmd)
}
