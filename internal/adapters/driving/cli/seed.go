package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed [file]",
	Short: "Load reference data",
	Long: `Replaces the vocabulary and historical work items with the contents of
a YAML seed file. Without a file the built-in sample data is loaded.

The replacement is atomic: an invalid file leaves the current data untouched.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	if referenceService == nil {
		return errors.New("reference service not configured")
	}

	var path string
	if len(args) > 0 {
		path = args[0]
	}

	data, err := referenceService.Reseed(commandContext(cmd), path)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	terms := 0
	for _, t := range data.Terms {
		terms += len(t)
	}
	source := path
	if source == "" {
		source = "built-in seed"
	}
	cmd.Printf("Loaded %d terms and %d records from %s\n", terms, len(data.Records), source)
	return nil
}
