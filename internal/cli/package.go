package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dwctl-io/dwctl/internal/packaging"
	"github.com/spf13/cobra"
)

var packageOutDir string

var packageCmd = &cobra.Command{
	Use:   "package <binary>...",
	Short: "Zip built Lambda handler binaries into deployment archives",
	Long: `Wraps each handler binary as a provided.al2023 deployment archive: a
zip holding the binary as an executable named bootstrap. The archives land
in the output directory under <binary-name>.zip, where 'dwctl up' expects
them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPackage,
}

func init() {
	packageCmd.Flags().StringVarP(&packageOutDir, "out", "o", "dist", "Directory the archives are written to")
	rootCmd.AddCommand(packageCmd)
}

func runPackage(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(packageOutDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", packageOutDir, err)
	}
	for _, binary := range args {
		zipPath := filepath.Join(packageOutDir, filepath.Base(binary)+".zip")
		if err := packaging.BuildFunctionArchive(binary, zipPath); err != nil {
			return err
		}
		fmt.Println(zipPath)
	}
	return nil
}
