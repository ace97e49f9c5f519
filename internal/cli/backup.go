package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/miniaturedb/pkg/sqlite"
)

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Export the catalog as JSONL files",
		Long:  "Write one JSONL file per catalog table and a manifest.json into dir.\nUsers, sessions and settings are not exported.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _, err := openBackend()
			if err != nil {
				return err
			}
			defer b.Detach()

			m, err := b.Export(cmd.Context(), args[0])
			if err != nil {
				return sysError("export: %w", err)
			}
			return printManifest(cmd, "Exported", m)
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Replace the catalog with JSONL files",
		Long: "Load the JSONL files written by export, replacing every catalog table in\n" +
			"one transaction. Malformed lines are skipped; a dangling reference aborts\n" +
			"the import and leaves the catalog unchanged.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _, err := openBackend()
			if err != nil {
				return err
			}
			defer b.Detach()

			m, err := b.Import(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			return printManifest(cmd, "Imported", m)
		},
	}
}

func printManifest(cmd *cobra.Command, verb string, m *sqlite.Manifest) error {
	out := cmd.OutOrStdout()
	if flags.jsonMode {
		return json.NewEncoder(out).Encode(m)
	}
	tables := make([]string, 0, len(m.Tables))
	for t := range m.Tables {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	rows := make([][]string, 0, len(tables))
	for _, t := range tables {
		rows = append(rows, []string{t, fmt.Sprint(m.Tables[t])})
	}
	fmt.Fprintf(out, "%s batch %s\n", verb, m.BatchID)
	fmt.Fprintln(out, renderTable([]string{"TABLE", "ROWS"}, rows))
	if m.Skipped > 0 {
		fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("%d malformed lines skipped", m.Skipped)))
	}
	return nil
}
