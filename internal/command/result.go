package command

import (
	"context"

	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/internal/adapter"
	"github.com/annko/keiba-bot-go/internal/domain"
)

type ResultCommand struct {
	deps *Dependencies
}

func NewResultCommand(deps *Dependencies) *ResultCommand {
	return &ResultCommand{deps: deps}
}

func (c *ResultCommand) Name() string {
	return "result"
}

func (c *ResultCommand) Description() string {
	return "レース結果を表示します"
}

// Execute replies with the finishing order. Any failure yields the single fixed
// failure reply.
func (c *ResultCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext, params map[string]any) error {
	id, err := resolveRace(ctx, c.deps.Races, params)
	if err != nil {
		c.deps.logger().Warn("Result lookup failed", zap.Any("params", params), zap.Error(err))
		return c.deps.SendMessage(cmdCtx, adapter.MsgResultFailed)
	}

	entries, err := c.deps.Races.ResultByID(ctx, id)
	if err != nil {
		c.deps.logger().Warn("Result fetch failed", zap.String("race_id", id.String()), zap.Error(err))
		return c.deps.SendMessage(cmdCtx, adapter.MsgResultFailed)
	}

	return c.deps.SendMessage(cmdCtx, c.deps.Formatter.FormatResult(entries))
}
