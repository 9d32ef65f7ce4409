package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/envergo/moulinette/hedges"
	"github.com/envergo/moulinette/moulinette"
)

// evaluationFile is the on-disk request format of the evaluate command,
// mirroring the HTTP request body.
type evaluationFile struct {
	Variant string            `json:"variant"`
	Values  map[string]string `json:"values"`
	Hedges  json.RawMessage   `json:"hedges,omitempty"`
	Date    string            `json:"date,omitempty"`
}

func newEvaluateCommand() *cobra.Command {
	var (
		inputPath string
		date      string
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run one evaluation and print the result as JSON",
		Long: `Evaluate reads a project description from a JSON file (or stdin
with -), runs the evaluation and prints the result tree on stdout.

The file carries the variant ("amenagement" or "haie"), the form values,
and for hedge projects the hedge records.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogging(cfg)

			var data []byte
			if inputPath == "-" {
				data, err = io.ReadAll(os.Stdin)
			} else {
				data, err = os.ReadFile(inputPath)
			}
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			var req evaluationFile
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("parse input: %w", err)
			}

			in := moulinette.Input{
				Variant: req.Variant,
				Values:  req.Values,
			}
			if date != "" {
				req.Date = date
			}
			if req.Date != "" {
				d, err := time.Parse("2006-01-02", req.Date)
				if err != nil {
					return fmt.Errorf("parse date: %w", err)
				}
				in.Date = d
			}
			if len(req.Hedges) > 0 {
				hs, err := hedges.ParseSet(req.Hedges)
				if err != nil {
					return err
				}
				in.Hedges = hs
			}

			index, departments, configs, err := loadEngineData(cfg, logger)
			if err != nil {
				return err
			}
			engine := moulinette.New(index, departments, configs, moulinette.WithLogger(logger))

			out, err := engine.Evaluate(in)
			if err != nil {
				return err
			}

			result := struct {
				Evaluation *moulinette.Output `json:"evaluation"`
				Plantation any                `json:"plantation,omitempty"`
			}{Evaluation: out}

			if in.Hedges != nil && len(in.Hedges.ToPlant()) > 0 {
				plantEval := newPlantationEvaluator(cfg, logger)
				plantRes, err := plantEval.Evaluate(cmd.Context(), out, in.Hedges, req.Values["reimplantation"])
				if err != nil {
					return err
				}
				result.Plantation = plantRes
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "-", "Input JSON file (- for stdin)")
	cmd.Flags().StringVar(&date, "date", "", "Evaluation date (YYYY-MM-DD, defaults to today)")
	return cmd
}
