package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"photowall/internal/wall"
)

func newWallCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "wall",
		Short: "Show the cells currently on the wall",
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows []wall.RowSnapshot
			if err := ctx.apiGet("/api/wall", &rows); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			for _, row := range rows {
				fmt.Fprintf(out, "Row %s\n", row.ID)
				tableRows := make([][]string, 0, len(row.Cells))
				for i, cell := range row.Cells {
					tableRows = append(tableRows, []string{
						fmt.Sprintf("%d", i),
						cell.File,
						orDash(cell.StackedFile),
						fmt.Sprintf("%d", cell.Columns),
						cellState(cell),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "File", "Stacked", "Cols", "State"},
					tableRows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit raw JSON")
	return cmd
}

func cellState(cell wall.CellSnapshot) string {
	switch {
	case cell.LoadFailed:
		return "load failed"
	case !cell.Visible:
		return "hidden"
	case cell.Panorama:
		return "panorama"
	case cell.Clone:
		return "clone"
	default:
		return "visible"
	}
}
