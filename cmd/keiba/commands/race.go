package commands

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/server"
	"github.com/annko/keiba-bot-go/internal/util"
)

// raceFlags identifies a race by id argument, by racecourse+date or by
// racecourse+meeting+day.
type raceFlags struct {
	racecourse string
	date       string
	year       int
	meeting    int
	day        int
	race       int
}

func (f *raceFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.racecourse, "racecourse", "", "racecourse name, e.g. 京都")
	cmd.Flags().StringVar(&f.date, "date", "", "race date YYYY-MM-DD")
	cmd.Flags().IntVar(&f.year, "year", 0, "year (defaults to the current year)")
	cmd.Flags().IntVar(&f.meeting, "meeting", 0, "meeting number (開催回)")
	cmd.Flags().IntVar(&f.day, "day", 0, "day of the meeting (N日目)")
	cmd.Flags().IntVar(&f.race, "race", 0, "race number 1-12")
}

func (f *raceFlags) resolve(ctx context.Context, races server.RaceAPI, args []string) (domain.RaceID, error) {
	if len(args) > 0 {
		return domain.ParseRaceID(args[0])
	}
	if f.racecourse == "" || f.race == 0 {
		return domain.RaceID{}, fmt.Errorf("give a race id or --racecourse and --race")
	}
	if f.date != "" {
		date, err := util.ParseDate(f.date)
		if err != nil {
			return domain.RaceID{}, err
		}
		return races.ResolveByDate(ctx, date, f.racecourse, f.race)
	}
	return races.Resolve(ctx, domain.RaceQuery{
		Racecourse: f.racecourse,
		Year:       f.year,
		Meeting:    f.meeting,
		Day:        f.day,
		Race:       f.race,
	})
}

// raceCmd builds a command that resolves one race and runs fn on it.
func (c *cli) raceCmd(use, short string, fn func(cmd *cobra.Command, id domain.RaceID) error) *cobra.Command {
	flags := &raceFlags{}
	cmd := &cobra.Command{
		Use:   use + " [race_id]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := flags.resolve(cmd.Context(), c.env.Races, args)
			if err != nil {
				return err
			}
			return fn(cmd, id)
		},
	}
	flags.bind(cmd)
	return cmd
}

func (c *cli) resultCmd() *cobra.Command {
	return c.raceCmd("result", "Finishing order from race.netkeiba.com", func(cmd *cobra.Command, id domain.RaceID) error {
		entries, err := c.env.Races.ResultByID(cmd.Context(), id)
		if err != nil {
			return err
		}
		rows := make([]table.Row, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, table.Row{e.Rank, e.Waku, e.HorseNum, e.Name, e.Age, e.Weight, e.Jockey, e.Time, e.Sa, e.Ninki, e.Odds})
		}
		return c.render(cmd, entries, table.Row{"着順", "枠", "馬番", "馬名", "性齢", "斤量", "騎手", "タイム", "着差", "人気", "単勝"}, rows)
	})
}

func (c *cli) infoCmd() *cobra.Command {
	return c.raceCmd("info", "Race conditions from db.netkeiba.com", func(cmd *cobra.Command, id domain.RaceID) error {
		info, err := c.env.Races.Info(cmd.Context(), id)
		if err != nil {
			return err
		}
		rows := []table.Row{
			{"race_id", info.RaceID},
			{"レース名", info.RaceName},
			{"グレード", info.Grade},
			{"開催", fmt.Sprintf("%s %dR", id.Label(), info.RaceNum)},
			{"日付", info.Date},
			{"コース", fmt.Sprintf("%s%dm %s", info.Surface, info.Distance, info.Direction)},
			{"天候", info.Weather},
			{"馬場", info.Going},
			{"発走", info.PostTime},
			{"条件", info.Class},
			{"重量", info.WeightCondition},
		}
		return c.render(cmd, info, table.Row{"項目", "値"}, rows)
	})
}

func (c *cli) payoutsCmd() *cobra.Command {
	return c.raceCmd("payouts", "Payout table", func(cmd *cobra.Command, id domain.RaceID) error {
		payouts, err := c.env.Races.Payouts(cmd.Context(), id)
		if err != nil {
			return err
		}
		rows := make([]table.Row, 0, len(payouts))
		for _, p := range payouts {
			rows = append(rows, table.Row{p.BetType, p.Combination, p.Payout, p.Popularity})
		}
		return c.render(cmd, payouts, table.Row{"券種", "組番", "払戻", "人気"}, rows)
	})
}

func (c *cli) cornersCmd() *cobra.Command {
	return c.raceCmd("corners", "Corner passing order", func(cmd *cobra.Command, id domain.RaceID) error {
		corners, err := c.env.Races.Corners(cmd.Context(), id)
		if err != nil {
			return err
		}
		rows := make([]table.Row, 0, len(corners))
		for _, cp := range corners {
			rows = append(rows, table.Row{cp.Corner, cp.Order})
		}
		return c.render(cmd, corners, table.Row{"コーナー", "通過順"}, rows)
	})
}

func (c *cli) lapsCmd() *cobra.Command {
	return c.raceCmd("laps", "Lap times and pace", func(cmd *cobra.Command, id domain.RaceID) error {
		laps, err := c.env.Races.Laps(cmd.Context(), id)
		if err != nil {
			return err
		}
		rows := make([]table.Row, 0, len(laps))
		for _, l := range laps {
			rows = append(rows, table.Row{l.Distance, l.Lap, l.Pace})
		}
		return c.render(cmd, laps, table.Row{"距離", "ラップ", "ペース"}, rows)
	})
}

func (c *cli) databaseCmd() *cobra.Command {
	return c.raceCmd("database", "Full db.netkeiba.com result table", func(cmd *cobra.Command, id domain.RaceID) error {
		db, err := c.env.Races.Database(cmd.Context(), id)
		if err != nil {
			return err
		}
		rows := make([]table.Row, 0, len(db.Rows))
		for _, r := range db.Rows {
			rows = append(rows, table.Row{r.Rank, r.HorseNum, r.HorseName, r.SexAge, r.Jockey, r.Time, r.Last3F, r.WinOdds, r.Popularity, r.HorseWeight, r.HorseID})
		}
		return c.render(cmd, db, table.Row{"着順", "馬番", "馬名", "性齢", "騎手", "タイム", "上り", "単勝", "人気", "馬体重", "horse_id"}, rows)
	})
}

func (c *cli) umabashiraCmd() *cobra.Command {
	var full bool
	cmd := c.raceCmd("umabashira", "jiro8 umabashira indices", func(cmd *cobra.Command, id domain.RaceID) error {
		if full {
			grid, err := c.env.Races.UmabashiraGrid(cmd.Context(), id)
			if err != nil {
				return err
			}
			header := make(table.Row, 0, len(grid.Header))
			for _, h := range grid.Header {
				header = append(header, h)
			}
			rows := make([]table.Row, 0, len(grid.Rows))
			for _, r := range grid.Rows {
				row := make(table.Row, 0, len(r))
				for _, cell := range r {
					row = append(row, cell)
				}
				rows = append(rows, row)
			}
			return c.render(cmd, grid, header, rows)
		}

		index, err := c.env.Races.Umabashira(cmd.Context(), id)
		if err != nil {
			return err
		}
		rows := make([]table.Row, 0, len(index))
		for _, u := range index {
			rows = append(rows, table.Row{u.HorseNum, u.PaceStyle3F, u.CornerOrder, u.LeadIndex, u.PaceIndex, u.Last3FIndex, u.SpeedIndex, u.PaperIndex, u.AdjustedSPIndex})
		}
		return c.render(cmd, index, table.Row{"馬番", "脚質3F", "通過", "先行", "ペース", "上り", "スピード", "紙", "補正SP"}, rows)
	})
	cmd.Flags().BoolVar(&full, "full", false, "print every row of the page")
	return cmd
}

func (c *cli) oddsCmd() *cobra.Command {
	var betType, source string
	cmd := c.raceCmd("odds", "Live odds by bet type", func(cmd *cobra.Command, id domain.RaceID) error {
		if betType == "all" {
			set, err := c.env.Races.AllOdds(cmd.Context(), id, source)
			if err != nil {
				return err
			}
			var rows []table.Row
			for _, bet := range domain.BetTypes() {
				for _, r := range set[bet.SetKey()] {
					rows = append(rows, table.Row{bet.Label(), r.Combination(), oddsCell(r)})
				}
			}
			return c.render(cmd, set, table.Row{"券種", "組番", "オッズ"}, rows)
		}

		bet, err := domain.ParseBetType(betType)
		if err != nil {
			return err
		}
		oddsRows, err := c.env.Races.Odds(cmd.Context(), id, bet, source)
		if err != nil {
			return err
		}
		rows := make([]table.Row, 0, len(oddsRows))
		for _, r := range oddsRows {
			rows = append(rows, table.Row{r.Combination(), oddsCell(r)})
		}
		return c.render(cmd, oddsRows, table.Row{"組番", bet.Label()}, rows)
	})
	cmd.Flags().StringVar(&betType, "type", string(domain.BetWin), "bet type (tansho, umaren, ... or all)")
	cmd.Flags().StringVar(&source, "source", "netkeiba", "odds source: netkeiba or jra")
	return cmd
}

func (c *cli) resolveCmd() *cobra.Command {
	return c.raceCmd("resolve", "Print the race id for a racecourse, date and race", func(cmd *cobra.Command, id domain.RaceID) error {
		return c.render(cmd, map[string]string{"race_id": id.String(), "label": id.Label()},
			table.Row{"race_id", "開催"}, []table.Row{{id.String(), fmt.Sprintf("%s %dR", id.Label(), id.Race)}})
	})
}

func oddsCell(r domain.OddsRow) string {
	if r.Odds == 0 && r.Raw != "" {
		return r.Raw
	}
	return fmt.Sprintf("%.1f", r.Odds)
}
