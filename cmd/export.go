package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"todoweb/internal/result"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write all todos to a json, csv or pdf file",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		b, err := result.NewExporter(a.st).Export(cmd.Context(), exportFormat)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		if err := os.WriteFile(exportOut, b, 0o644); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported -> %s\n", exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "export format: json|csv|pdf")
	exportCmd.Flags().StringVar(&exportOut, "out", "todos.json", "export output path")
}
