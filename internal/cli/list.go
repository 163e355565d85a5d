package cli

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/fastkill/fastkill/internal/cliutil"
	"github.com/fastkill/fastkill/internal/config"
	"github.com/fastkill/fastkill/internal/procs"
)

func newListCmd(ctx *context) *cobra.Command {
	var (
		sortFlag   string
		filterFlag string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print a one-shot snapshot of your processes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}

			snap, err := takeSnapshot(cmd, ctx, cfg, sortFlag)
			if err != nil {
				return err
			}

			records := snap.Records
			if filterFlag != "" {
				re, err := regexp.Compile(filterFlag)
				if err != nil {
					return &exitError{code: 1, message: fmt.Sprintf("invalid filter: %v", err)}
				}
				filtered := records[:0:0]
				for _, rec := range records {
					if re.MatchString(rec.Name) || re.MatchString(rec.Cmdline) {
						filtered = append(filtered, rec)
					}
				}
				records = filtered
			}

			if asJSON {
				snap.Records = records
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(snapshotReport(snap))
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderListTable(records))
			return nil
		},
	}

	cmd.Flags().StringVar(&sortFlag, "sort", "", "sort mode: rss, cpu, name or pid (default from config)")
	cmd.Flags().StringVar(&filterFlag, "filter", "", "regex matched against name and command line")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the snapshot as JSON")

	return cmd
}

// takeSnapshot builds a provider honoring a --sort override and takes
// one snapshot.
func takeSnapshot(cmd *cobra.Command, ctx *context, cfg *config.Config, sortFlag string) (*procs.Snapshot, error) {
	provider := ctx.snapshotProvider(cfg)
	if sortFlag != "" {
		mode, err := procs.ParseSortMode(sortFlag)
		if err != nil {
			return nil, &exitError{code: 1, message: err.Error()}
		}
		if sortable, ok := provider.(interface{ SetSortMode(procs.SortMode) }); ok {
			sortable.SetSortMode(mode)
		}
	}
	return provider.Snapshot(cmd.Context())
}

func renderListTable(records []procs.Record) string {
	headers := []string{"PID", "NAME", "USER", "RSS", "CPU%", "TIME", "CONTAINER", "COMMAND"}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			fmt.Sprintf("%d", rec.PID),
			rec.Name,
			rec.User,
			cliutil.FormatBytes(rec.RSS),
			fmt.Sprintf("%.1f", rec.CPUPercent),
			cliutil.FormatCPUTime(rec.CPUTime),
			rec.Container,
			cliutil.Truncate(cliutil.RedactSecrets(rec.Cmdline), 60),
		})
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	cellStyle := lipgloss.NewStyle().PaddingRight(1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	return t.Render()
}
