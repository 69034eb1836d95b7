package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dwctl-io/dwctl/internal/config"
	"github.com/dwctl-io/dwctl/internal/orchestrator"
	"github.com/dwctl-io/dwctl/internal/state"
	"github.com/dwctl-io/dwctl/internal/warehouse"
	"github.com/dwctl-io/dwctl/providers/aws"
	"github.com/spf13/cobra"
)

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Tear down a previously provisioned topology",
	Long: `Deletes every resource recorded in the persisted topology, in reverse
creation order. Resources that fail to delete (typically because the
provider still sees a dependency) are retried; whatever survives the
retry budget is reported for manual cleanup.`,
	RunE: runDown,
}

func runDown(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}

	stateMgr := state.NewManager(statePath)
	if err := stateMgr.Lock(); err != nil {
		return err
	}
	defer stateMgr.Unlock()

	topo, err := stateMgr.Read()
	if err != nil {
		return err
	}
	if topo.Empty() {
		fmt.Println("Nothing to delete: no persisted topology found.")
		return nil
	}

	fmt.Print("Connecting to AWS... ")
	client, err := aws.New(ctx, settings)
	if err != nil {
		fmt.Println("FAILED")
		return err
	}
	fmt.Println("OK")

	bp := warehouse.Build(client, settings, warehouse.DefaultPaths())
	orch := orchestrator.Restore(bp.Steps, topo,
		orchestrator.WithRetryClassifier(aws.IsRetryableDelete))

	fmt.Printf("Deleting %d resources in reverse creation order...\n", topo.Len())
	return teardown(ctx, orch, stateMgr)
}
