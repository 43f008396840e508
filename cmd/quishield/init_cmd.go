package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quishield/quishield/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default scoring policy to quishield.yaml",
	Long: `Creates quishield.yaml in the working directory with the built-in
scoring policy (severity weights, banding cutoffs, confidence zones,
allowlist and lure keyword sets) so it can be tuned locally.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "quishield.yaml"
		if policyFile != "" {
			path = policyFile
		}

		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("policy file already exists at %s, use --force to overwrite", path)
		}

		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("Created %s with the default scoring policy\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing policy file")
	rootCmd.AddCommand(initCmd)
}
