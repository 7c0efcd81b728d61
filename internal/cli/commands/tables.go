package commands

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gpbraun/mdfluids/internal/cli/ui"
	"github.com/gpbraun/mdfluids/internal/persistence"
	"github.com/gpbraun/mdfluids/pkg/api"
)

func newTablesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Manage archived property tables",
	}
	cmd.AddCommand(newTablesListCommand(a))
	cmd.AddCommand(newTablesShowCommand(a))
	cmd.AddCommand(newTablesExportCommand(a))
	cmd.AddCommand(newTablesDeleteCommand(a))
	return cmd
}

// withArchive opens the archive for the duration of fn.
func (a *app) withArchive(cmd *cobra.Command, fn func(store persistence.TableStore) error) error {
	p, err := a.openArchive(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			a.logger.Warn("archive_close_failed", zap.Error(err))
		}
	}()
	return fn(p.Tables)
}

func newTablesListCommand(a *app) *cobra.Command {
	var composition string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withArchive(cmd, func(store persistence.TableStore) error {
				tables, err := store.ListTables(cmd.Context(), persistence.TableFilter{Composition: composition})
				if err != nil {
					return err
				}
				if len(tables) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No tables archived.")
					return nil
				}

				out := ui.NewTable(cmd.OutOrStdout(),
					[]string{"ID", "COMPOSITION", "STATE", "ROWS", "PROPERTIES", "CREATED"},
					&ui.TableOptions{NoColor: a.noColor, Aligns: []ui.Align{3: ui.AlignRight}})
				for _, t := range tables {
					out.AddRow(t.ID, t.Composition, t.StateProps[0]+","+t.StateProps[1],
						strconv.Itoa(t.Rows()), strings.Join(t.Props, ","),
						t.CreatedAt.UTC().Format(time.RFC3339))
				}
				out.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&composition, "composition", "", "only tables for this composition")
	return cmd
}

func newTablesShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show an archived table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withArchive(cmd, func(store persistence.TableStore) error {
				t, err := store.GetTable(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				kv := ui.NewKeyValueTable(w, a.noColor)
				kv.AddRow("ID", t.ID)
				kv.AddRow("Composition", t.Composition)
				kv.AddRow("Created", t.CreatedAt.UTC().Format(time.RFC3339))
				kv.AddRow("Rows", strconv.Itoa(t.Rows()))
				kv.Render()
				fmt.Fprintln(w)

				headers := tableHeader(t)
				aligns := make([]ui.Align, len(headers))
				for i := range aligns {
					aligns[i] = ui.AlignRight
				}
				out := ui.NewTable(w, headers, &ui.TableOptions{NoColor: a.noColor, Aligns: aligns})
				for i := range t.Cells {
					out.AddRow(tableRecord(t, i)...)
				}
				out.Render()
				return nil
			})
		},
	}
}

func newTablesExportCommand(a *app) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export ID",
		Short: "Export an archived table as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withArchive(cmd, func(store persistence.TableStore) error {
				t, err := store.GetTable(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				if outPath == "" {
					return writeCSV(cmd.OutOrStdout(), t)
				}
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				if err := writeCSV(f, t); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %d rows to %s\n", color.GreenString("Exported"), t.Rows(), outPath)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newTablesDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an archived table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withArchive(cmd, func(store persistence.TableStore) error {
				if err := store.DeleteTable(cmd.Context(), args[0]); err != nil {
					return err
				}
				a.logger.Info("table_deleted", zap.String("table_id", args[0]))
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("Deleted"), args[0])
				return nil
			})
		},
	}
}

func tableHeader(t *api.Table) []string {
	return append([]string{t.StateProps[0], t.StateProps[1]}, t.Props...)
}

func tableRecord(t *api.Table, row int) []string {
	rec := make([]string, 0, 2+len(t.Props))
	rec = append(rec, formatFloat(t.Inputs[row][0]), formatFloat(t.Inputs[row][1]))
	for _, cell := range t.Cells[row] {
		rec = append(rec, formatCell(cell))
	}
	return rec
}

func writeCSV(w io.Writer, t *api.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tableHeader(t)); err != nil {
		return err
	}
	for i := range t.Cells {
		if err := cw.Write(tableRecord(t, i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// formatCell renders a table cell; vectors are space separated in brackets.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return formatFloat(x)
	case []float64:
		parts := make([]string, len(x))
		for i, f := range x {
			parts[i] = formatFloat(f)
		}
		return "[" + strings.Join(parts, " ") + "]"
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
