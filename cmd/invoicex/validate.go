package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/record"
	"github.com/joseph-ayodele/invoice-extractor/internal/validate"
)

func newValidateCmd(_ *common.Config) *cobra.Command {
	var jsonPath, textPath, outDir string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Re-validate an existing JSON record against its text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(jsonPath)
			if err != nil {
				return err
			}
			defer f.Close()
			rec, err := record.Decode(f)
			if err != nil {
				return fmt.Errorf("read %s: %w", jsonPath, err)
			}
			text, err := os.ReadFile(textPath)
			if err != nil {
				return err
			}

			report := validate.Check(rec, string(text))
			if outDir == "" {
				fmt.Fprintln(cmd.OutOrStdout(), report.String())
				return nil
			}
			base := strings.TrimSuffix(filepath.Base(jsonPath), filepath.Ext(jsonPath))
			path, err := validate.WriteReport(outDir, base, report)
			if err != nil {
				return err
			}
			total, missing := report.Counts()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d values, %d not found\n", path, total, missing)
			return nil
		},
	}
	cmd.Flags().StringVar(&jsonPath, "json", "", "record JSON file")
	cmd.Flags().StringVar(&textPath, "text", "", "extracted text file")
	cmd.Flags().StringVar(&outDir, "out", "", "write <name>.txt here instead of printing")
	_ = cmd.MarkFlagRequired("json")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}
