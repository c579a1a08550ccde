package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahouse2/co-counsel-nexus-sub001/internal/config"
)

var initPath string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long:  "Write a commented .nexus.yaml starter configuration to the current directory.",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVar(&initPath, "path", ".nexus.yaml", "where to write the config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	if err := config.WriteStarter(initPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", initPath)
	fmt.Fprintln(cmd.OutOrStdout(), "Edit the swarms section to wire worker commands, then run 'nexus serve'.")
	return nil
}
