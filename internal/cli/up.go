package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dwctl-io/dwctl/internal/config"
	"github.com/dwctl-io/dwctl/internal/orchestrator"
	"github.com/dwctl-io/dwctl/internal/state"
	"github.com/dwctl-io/dwctl/internal/warehouse"
	"github.com/dwctl-io/dwctl/providers/aws"
	"github.com/spf13/cobra"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Provision the data-warehouse topology and open a session",
	Long: `Creates every resource of the data-warehouse topology in dependency
order, waits for the database instance to become available, then opens an
interactive session for staging datasets.

If any step fails, or the process is interrupted, everything created so
far is deleted again in reverse order.`,
	RunE: runUp,
}

func runUp(cmd *cobra.Command, args []string) error {
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

	existing, err := stateMgr.Read()
	if err != nil {
		return err
	}
	if !existing.Empty() {
		return fmt.Errorf("a provisioned topology already exists (%d resources); run 'dwctl down' first", existing.Len())
	}

	fmt.Print("Connecting to AWS... ")
	client, err := aws.New(ctx, settings)
	if err != nil {
		fmt.Println("FAILED")
		return err
	}
	fmt.Println("OK")

	bp := warehouse.Build(client, settings, warehouse.DefaultPaths())
	orch := orchestrator.New(bp.Steps,
		orchestrator.WithUploader(bp.RawBucket),
		orchestrator.WithReadyHook(bp.ReadyHook),
		orchestrator.WithRetryClassifier(aws.IsRetryableDelete),
	)

	fmt.Println("Provisioning data-warehouse topology (the database instance takes several minutes)...")
	if err := orch.Provision(ctx); err != nil {
		// A failed rollback leaves resources behind; persist them so
		// 'dwctl down' can finish the job.
		if !orch.Topology().Empty() {
			if werr := stateMgr.Write(orch.Topology()); werr != nil {
				return fmt.Errorf("%w (and failed to persist remaining topology: %v)", err, werr)
			}
			return fmt.Errorf("%w\nremaining resources were saved; run 'dwctl down' to retry their deletion", err)
		}
		return err
	}

	if err := stateMgr.Write(orch.Topology()); err != nil {
		return err
	}
	fmt.Printf("Topology ready: %d resources provisioned.\n\n", orch.Topology().Len())

	return runSession(ctx, orch, stateMgr, os.Stdin)
}
