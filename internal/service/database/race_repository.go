package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/util"
)

const (
	upsertInfoQuery = `
		INSERT INTO race_info (race_id, race_name, grade, racecourse, meeting, day, race_num,
		                       surface, direction, distance, weather, going, post_time,
		                       race_date, class, weight_condition)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (race_id) DO UPDATE SET
			race_name = EXCLUDED.race_name, grade = EXCLUDED.grade,
			surface = EXCLUDED.surface, direction = EXCLUDED.direction,
			distance = EXCLUDED.distance, weather = EXCLUDED.weather, going = EXCLUDED.going,
			post_time = EXCLUDED.post_time, race_date = EXCLUDED.race_date,
			class = EXCLUDED.class, weight_condition = EXCLUDED.weight_condition,
			archived_at = NOW()
	`

	upsertResultQuery = `
		INSERT INTO race_results (race_id, horse_num, rank, waku, horse_name, sex_age, burden,
		                          jockey, time, margin, last_3f, win_odds, popularity,
		                          horse_weight, prize, horse_id, jockey_id, trainer_id, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (race_id, horse_num) DO UPDATE SET
			rank = EXCLUDED.rank, time = EXCLUDED.time, margin = EXCLUDED.margin,
			last_3f = EXCLUDED.last_3f, win_odds = EXCLUDED.win_odds,
			popularity = EXCLUDED.popularity, prize = EXCLUDED.prize
	`

	upsertPayoutQuery = `
		INSERT INTO race_payouts (race_id, bet_type, combination, payout, amount, popularity)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (race_id, bet_type, combination) DO UPDATE SET
			payout = EXCLUDED.payout, amount = EXCLUDED.amount, popularity = EXCLUDED.popularity
	`
)

// RaceRepository stores scraped race database pages.
type RaceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewRaceRepository(postgres *PostgresService, logger *zap.Logger) *RaceRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RaceRepository{
		db:     postgres.GetDB(),
		logger: logger,
	}
}

// SaveRace writes info, results and payouts of one race in a single transaction.
func (r *RaceRepository) SaveRace(ctx context.Context, race *domain.RaceDatabase) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	info := race.Info
	if _, err := tx.ExecContext(ctx, upsertInfoQuery,
		info.RaceID, info.RaceName, info.Grade, info.Racecourse, info.Meeting, info.Day, info.RaceNum,
		info.Surface, info.Direction, info.Distance, info.Weather, info.Going, info.PostTime,
		raceDate(info), info.Class, info.WeightCondition,
	); err != nil {
		return fmt.Errorf("failed to upsert race_info %s: %w", info.RaceID, err)
	}

	for _, row := range race.Rows {
		if _, err := tx.ExecContext(ctx, upsertResultQuery,
			info.RaceID, row.HorseNum, row.Rank, row.Waku, row.HorseName, row.SexAge, row.Burden,
			row.Jockey, row.Time, row.Margin, row.Last3F, row.WinOdds, row.Popularity,
			row.HorseWeight, row.Prize, row.HorseID, row.JockeyID, row.TrainerID, row.OwnerID,
		); err != nil {
			return fmt.Errorf("failed to upsert result %s/%s: %w", info.RaceID, row.HorseNum, err)
		}
	}

	for _, p := range race.Payouts {
		if _, err := tx.ExecContext(ctx, upsertPayoutQuery,
			info.RaceID, p.BetType, p.Combination, p.Payout, p.Amount, p.Popularity,
		); err != nil {
			return fmt.Errorf("failed to upsert payout %s/%s: %w", info.RaceID, p.BetType, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit race %s: %w", info.RaceID, err)
	}

	r.logger.Debug("Race archived",
		zap.String("race_id", info.RaceID),
		zap.Int("rows", len(race.Rows)),
		zap.Int("payouts", len(race.Payouts)),
	)
	return nil
}

// HasRace reports whether the race is already archived.
func (r *RaceRepository) HasRace(ctx context.Context, raceID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM race_info WHERE race_id = $1)`, raceID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check race %s: %w", raceID, err)
	}
	return exists, nil
}

// Results loads the archived rows of a race ordered by horse number.
func (r *RaceRepository) Results(ctx context.Context, raceID string) ([]domain.DatabaseRow, error) {
	query := `
		SELECT horse_num, rank, waku, horse_name, sex_age, burden, jockey, time, margin,
		       last_3f, win_odds, popularity, horse_weight, prize,
		       horse_id, jockey_id, trainer_id, owner_id
		FROM race_results
		WHERE race_id = $1
		ORDER BY horse_num::INTEGER
	`

	rows, err := r.db.QueryContext(ctx, query, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results of %s: %w", raceID, err)
	}
	defer rows.Close()

	var out []domain.DatabaseRow
	for rows.Next() {
		row := domain.DatabaseRow{RaceID: raceID}
		if err := rows.Scan(
			&row.HorseNum, &row.Rank, &row.Waku, &row.HorseName, &row.SexAge, &row.Burden,
			&row.Jockey, &row.Time, &row.Margin, &row.Last3F, &row.WinOdds, &row.Popularity,
			&row.HorseWeight, &row.Prize, &row.HorseID, &row.JockeyID, &row.TrainerID, &row.OwnerID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func raceDate(info domain.RaceInfo) sql.NullTime {
	if info.Year == 0 || info.Month == 0 || info.DayOfMonth == 0 {
		return sql.NullTime{}
	}
	return sql.NullTime{
		Time:  time.Date(info.Year, time.Month(info.Month), info.DayOfMonth, 0, 0, 0, 0, util.JST()),
		Valid: true,
	}
}
