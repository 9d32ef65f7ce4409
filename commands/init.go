package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/envergo/moulinette/config"
)

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a starter moulinette.yaml in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(config.ProjectFile); err == nil {
				return fmt.Errorf("%s already exists", config.ProjectFile)
			}
			if err := config.DefaultConfig().SaveToFile(config.ProjectFile); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", config.ProjectFile)
			return nil
		},
	}
}
