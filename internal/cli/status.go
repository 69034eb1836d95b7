package cli

import (
	"fmt"

	"github.com/dwctl-io/dwctl/internal/state"
	"github.com/dwctl-io/dwctl/internal/topology"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List the resources of the persisted topology",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	topo, err := state.NewManager(statePath).Read()
	if err != nil {
		return err
	}
	if topo.Empty() {
		fmt.Println("No provisioned topology.")
		return nil
	}
	printTopology(topo)
	return nil
}

func printTopology(topo *topology.Topology) {
	fmt.Printf("%d resources (in creation order):\n", topo.Len())
	for _, d := range topo.Resources {
		line := fmt.Sprintf("  %s", d.Addr())
		if d.ID != "" {
			line += fmt.Sprintf("  id=%s", d.ID)
		}
		if d.Endpoint != "" {
			line += fmt.Sprintf("  endpoint=%s", d.Endpoint)
		}
		fmt.Println(line)
	}
}
