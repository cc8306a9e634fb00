package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/util"
	"github.com/annko/keiba-bot-go/pkg/errors"
)

// paramString reads a string param. Numbers coming from the JSON parser are accepted.
func paramString(params map[string]any, key string) string {
	switch v := params[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

// paramInt reads an integer param; JSON numbers arrive as float64.
func paramInt(params map[string]any, key string) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		return util.Atoi(strings.TrimSuffix(util.Normalize(v), "r"), 0)
	default:
		return 0
	}
}

// resolveRace turns the params of a race command into an identifier. Accepted shapes
// are race_id, racecourse+date+race and racecourse+meeting+day+race (year optional).
func resolveRace(ctx context.Context, races RaceService, params map[string]any) (domain.RaceID, error) {
	if raw := paramString(params, "race_id"); raw != "" {
		return domain.ParseRaceID(raw)
	}

	racecourse := paramString(params, "racecourse")
	race := paramInt(params, "race")
	if racecourse == "" || race == 0 {
		return domain.RaceID{}, errors.NewValidationError("racecourse and race are required", "params", params)
	}

	if raw := paramString(params, "date"); raw != "" {
		date, err := util.ParseDate(raw)
		if err != nil {
			return domain.RaceID{}, errors.NewValidationError("invalid date", "date", raw)
		}
		return races.ResolveByDate(ctx, date, racecourse, race)
	}

	meeting := paramInt(params, "meeting")
	day := paramInt(params, "day")
	if meeting == 0 || day == 0 {
		return domain.RaceID{}, errors.NewValidationError("date or meeting and day are required", "params", params)
	}
	return races.Resolve(ctx, domain.RaceQuery{
		Racecourse: racecourse,
		Year:       paramInt(params, "year"),
		Meeting:    meeting,
		Day:        day,
		Race:       race,
	})
}

// userMessage maps a pipeline error to the reply shown in chat.
func userMessage(err error) string {
	switch {
	case errors.IsValidation(err):
		return "入力内容を確認してください。"
	case errors.IsNotFound(err):
		return "データが見つかりませんでした。"
	default:
		return "データ取得に失敗しました。"
	}
}
