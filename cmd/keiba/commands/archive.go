package commands

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/annko/keiba-bot-go/internal/util"
)

func (c *cli) archiveCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Store every race of a date in Postgres and mail the digest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.env.Archiver == nil {
				return fmt.Errorf("archive requires POSTGRES_ENABLED=true")
			}
			d := util.NowJST().AddDate(0, 0, -1)
			if date != "" {
				parsed, err := util.ParseDate(date)
				if err != nil {
					return err
				}
				d = parsed
			}

			summary, err := c.env.Archiver.ArchiveAndNotify(cmd.Context(), d)
			if err != nil {
				return err
			}

			var rows []table.Row
			for _, id := range summary.Archived {
				rows = append(rows, table.Row{id, "archived", ""})
			}
			for _, id := range summary.Skipped {
				rows = append(rows, table.Row{id, "skipped", ""})
			}
			failed := make([]string, 0, len(summary.Failures))
			for id := range summary.Failures {
				failed = append(failed, id)
			}
			sort.Strings(failed)
			for _, id := range failed {
				rows = append(rows, table.Row{id, "failed", summary.Failures[id]})
			}
			return c.render(cmd, summary, table.Row{"race_id", "結果", "エラー"}, rows)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "race date YYYY-MM-DD (defaults to yesterday)")
	return cmd
}
