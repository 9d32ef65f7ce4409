package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/envergo/moulinette/moulinette"
)

func newCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the department configs",
		Long: `Check loads every department config and reports validation errors:
unknown evaluators, overlapping criterion validity windows within a
regulation, and overlapping config windows within a department.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogging(cfg)

			configs, err := moulinette.LoadConfigDir(cfg.Departments.Dir, cfg.Departments.Glob)
			if err != nil {
				return err
			}

			now := time.Now()
			active := 0
			for _, dc := range configs.Configs {
				if dc.ValidAt(now) {
					active++
				}
			}
			fmt.Printf("OK: %d configs loaded, %d valid today\n", len(configs.Configs), active)
			return nil
		},
	}
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("moulinette version %s\n", Version)
		},
	}
}
