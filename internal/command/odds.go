package command

import (
	"context"

	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/internal/domain"
)

type OddsCommand struct {
	deps *Dependencies
}

func NewOddsCommand(deps *Dependencies) *OddsCommand {
	return &OddsCommand{deps: deps}
}

func (c *OddsCommand) Name() string {
	return "odds"
}

func (c *OddsCommand) Description() string {
	return "券種別のオッズを表示します"
}

func (c *OddsCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext, params map[string]any) error {
	bet := domain.BetWin
	if raw := paramString(params, "bet_type"); raw != "" {
		parsed, err := domain.ParseBetType(raw)
		if err != nil {
			return c.deps.SendError(cmdCtx, "券種が分かりません: "+raw)
		}
		bet = parsed
	}

	id, err := resolveRace(ctx, c.deps.Races, params)
	if err != nil {
		return c.deps.SendError(cmdCtx, userMessage(err))
	}

	rows, err := c.deps.Races.Odds(ctx, id, bet, c.deps.OddsSource)
	if err != nil {
		c.deps.logger().Warn("Odds fetch failed",
			zap.String("race_id", id.String()),
			zap.String("bet_type", bet.String()),
			zap.Error(err),
		)
		return c.deps.SendError(cmdCtx, userMessage(err))
	}

	return c.deps.SendMessage(cmdCtx, c.deps.Formatter.FormatOdds(id, bet, rows))
}
