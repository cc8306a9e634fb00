package command

import (
	"context"

	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/internal/domain"
)

type PayoutCommand struct {
	deps *Dependencies
}

func NewPayoutCommand(deps *Dependencies) *PayoutCommand {
	return &PayoutCommand{deps: deps}
}

func (c *PayoutCommand) Name() string {
	return "payout"
}

func (c *PayoutCommand) Description() string {
	return "払戻金を表示します"
}

func (c *PayoutCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext, params map[string]any) error {
	id, err := resolveRace(ctx, c.deps.Races, params)
	if err != nil {
		return c.deps.SendError(cmdCtx, userMessage(err))
	}

	payouts, err := c.deps.Races.Payouts(ctx, id)
	if err != nil {
		c.deps.logger().Warn("Payout fetch failed", zap.String("race_id", id.String()), zap.Error(err))
		return c.deps.SendError(cmdCtx, userMessage(err))
	}

	return c.deps.SendMessage(cmdCtx, c.deps.Formatter.FormatPayouts(id, payouts))
}
