package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/annko/keiba-bot-go/internal/util"
)

func (c *cli) idsCmd() *cobra.Command {
	var date, month string
	var year int
	cmd := &cobra.Command{
		Use:   "ids",
		Short: "List race ids held on a date, in a month or in a year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var (
				ids []string
				err error
			)
			switch {
			case date != "":
				d, perr := util.ParseDate(date)
				if perr != nil {
					return perr
				}
				ids, err = c.env.Races.RaceIDsByDate(ctx, d)
			case month != "":
				m, perr := time.ParseInLocation("2006-01", month, util.JST())
				if perr != nil {
					return fmt.Errorf("--month must be YYYY-MM: %w", perr)
				}
				ids, err = c.env.Races.RaceIDsByMonth(ctx, m.Year(), m.Month())
			case year != 0:
				ids, err = c.env.Races.RaceIDsByYear(ctx, year)
			default:
				return fmt.Errorf("one of --date, --month or --year is required")
			}
			if err != nil {
				return err
			}

			rows := make([]table.Row, 0, len(ids))
			for _, id := range ids {
				rows = append(rows, table.Row{id})
			}
			return c.render(cmd, ids, table.Row{"race_id"}, rows)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "race date YYYY-MM-DD")
	cmd.Flags().StringVar(&month, "month", "", "month YYYY-MM")
	cmd.Flags().IntVar(&year, "year", 0, "year")
	cmd.MarkFlagsMutuallyExclusive("date", "month", "year")
	return cmd
}

func (c *cli) horseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "horse",
		Short: "Horse pages from db.netkeiba.com",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "results <horse_id>",
			Short: "Past performances",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				res, err := c.env.Races.HorseResults(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				header := make(table.Row, 0, len(res.Columns))
				for _, col := range res.Columns {
					header = append(header, col)
				}
				rows := make([]table.Row, 0, len(res.Records))
				for _, rec := range res.Records {
					row := make(table.Row, 0, len(res.Columns))
					for _, col := range res.Columns {
						row = append(row, rec.Fields[col])
					}
					rows = append(rows, row)
				}
				return c.render(cmd, res, header, rows)
			},
		},
		&cobra.Command{
			Use:   "pedigree <horse_id>",
			Short: "Five-generation pedigree",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ancestors, err := c.env.Races.Pedigree(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(ancestors))
				for _, a := range ancestors {
					rows = append(rows, table.Row{a.Generation, a.Position, a.Name, a.HorseID})
				}
				return c.render(cmd, ancestors, table.Row{"世代", "位置", "馬名", "horse_id"}, rows)
			},
		},
		&cobra.Command{
			Use:   "profile <horse_id>",
			Short: "Sex and birthday",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := c.env.Races.HorseProfile(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return c.render(cmd, p, table.Row{"horse_id", "性別", "生年月日"},
					[]table.Row{{p.HorseID, p.Sex, p.Birthday}})
			},
		},
	)
	return cmd
}
