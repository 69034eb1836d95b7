package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dwctl-io/dwctl/internal/fetch"
	"github.com/dwctl-io/dwctl/internal/orchestrator"
	"github.com/dwctl-io/dwctl/internal/state"
	"github.com/dwctl-io/dwctl/internal/warehouse"
)

const sessionHelp = `Commands:
  upload [path]   Stage a CSV into the raw-data bucket. Without a path the
                  EEA greenhouse-gas projections dataset is downloaded first.
  delete          Tear down every resource of the topology, then exit.
  status          List the provisioned resources.
  help            Show this help.
  exit            Leave the session; resources keep running (and billing).`

// runSession drives the interactive loop on a READY topology. It returns when
// the user deletes the topology, exits, or the context is cancelled. in is
// stdin outside of tests.
func runSession(ctx context.Context, orch *orchestrator.Orchestrator, stateMgr *state.Manager, in io.Reader) error {
	fmt.Println(sessionHelp)

	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	for {
		fmt.Print("dwctl> ")
		var line string
		var open bool
		select {
		case <-ctx.Done():
			// Interrupt during the session tears everything down, same as
			// an interrupt during provisioning.
			fmt.Println("\nInterrupted; tearing down the topology...")
			return teardown(ctx, orch, stateMgr)
		case line, open = <-lines:
			if !open {
				return persistAndExit(orch, stateMgr)
			}
		}

		cmd, arg := splitCommand(line)
		switch cmd {
		case "":
			continue
		case "help":
			fmt.Println(sessionHelp)
		case "status":
			printTopology(orch.Topology())
		case "upload":
			if err := upload(ctx, orch, arg); err != nil {
				fmt.Printf("upload failed: %v\n", err)
				continue
			}
			fmt.Println("Dataset staged. The ETL pipeline now runs in the background;")
			fmt.Println("results land in the warehouse database when it completes.")
		case "delete":
			return teardown(ctx, orch, stateMgr)
		case "exit":
			return persistAndExit(orch, stateMgr)
		default:
			fmt.Printf("unknown command %q; type 'help' for the command list\n", cmd)
		}
	}
}

func splitCommand(line string) (cmd, arg string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", ""
	}
	return strings.ToLower(fields[0]), strings.Join(fields[1:], " ")
}

func upload(ctx context.Context, orch *orchestrator.Orchestrator, path string) error {
	if path == "" {
		fmt.Println("No file given; downloading the EEA projections dataset...")
		downloaded, err := fetch.NewDownloader().Download(".")
		if err != nil {
			return err
		}
		path = downloaded
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	return orch.Upload(ctx, path, warehouse.DataObjectKey)
}

func teardown(ctx context.Context, orch *orchestrator.Orchestrator, stateMgr *state.Manager) error {
	// Teardown proceeds even when the trigger was an interrupt.
	cleanupCtx := context.WithoutCancel(ctx)
	if err := orch.Delete(cleanupCtx); err != nil {
		if werr := stateMgr.Write(orch.Topology()); werr != nil {
			return fmt.Errorf("%w (and failed to persist remaining topology: %v)", err, werr)
		}
		return fmt.Errorf("%w\nremaining resources were saved; run 'dwctl down' to retry their deletion", err)
	}
	if err := stateMgr.Clear(); err != nil {
		return err
	}
	fmt.Println("Teardown complete. All resources have been deleted.")
	return nil
}

func persistAndExit(orch *orchestrator.Orchestrator, stateMgr *state.Manager) error {
	if err := stateMgr.Write(orch.Topology()); err != nil {
		return err
	}
	fmt.Println("Session closed. The topology keeps running (and accruing cost);")
	fmt.Println("run 'dwctl down' when you are done with it.")
	return nil
}
