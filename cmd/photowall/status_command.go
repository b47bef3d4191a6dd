package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"photowall/internal/daemon"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and slideshow status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var st daemon.Status
			if err := ctx.apiGet("/api/status", &st); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}

			colorize := shouldColorize(out)
			fmt.Fprintln(out, statusBadge(st.Running, colorize))
			fmt.Fprintln(out)

			rows := [][]string{
				{"Album", orDash(st.Engine.Album)},
				{"Started", formatStarted(st.Engine.StartedAt)},
				{"Reloads", fmt.Sprintf("%d", st.Engine.Reloads)},
				{"Transitions", fmt.Sprintf("%d", st.Engine.Transition.Transitions)},
				{"Prefetch", formatPrefetch(st)},
				{"Album server", orDash(st.AlbumServer)},
				{"Lock file", st.LockFilePath},
			}
			for orientation, count := range st.Engine.StoreCounts {
				rows = append(rows, []string{"Store " + orientation, fmt.Sprintf("%d", count)})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Field", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit raw JSON")
	return cmd
}

func statusBadge(running bool, colorize bool) string {
	if running {
		label := "photowalld: running"
		if colorize {
			return ansiGreen + label + ansiReset
		}
		return label
	}
	label := "photowalld: stopped"
	if colorize {
		return ansiYellow + label + ansiReset
	}
	return label
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatStarted(at time.Time) string {
	if at.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%s (%s ago)", at.Format(time.RFC3339), time.Since(at).Round(time.Second))
}

func formatPrefetch(st daemon.Status) string {
	tr := st.Engine.Transition
	switch {
	case tr.PrefetchComplete:
		return fmt.Sprintf("ready (%d photos)", tr.PrefetchedPhotos)
	case tr.PrefetchStarted:
		return "in flight"
	default:
		return "idle"
	}
}
