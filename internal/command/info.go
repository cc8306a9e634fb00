package command

import (
	"context"

	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/internal/domain"
)

type InfoCommand struct {
	deps *Dependencies
}

func NewInfoCommand(deps *Dependencies) *InfoCommand {
	return &InfoCommand{deps: deps}
}

func (c *InfoCommand) Name() string {
	return "info"
}

func (c *InfoCommand) Description() string {
	return "レース条件を表示します"
}

func (c *InfoCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext, params map[string]any) error {
	id, err := resolveRace(ctx, c.deps.Races, params)
	if err != nil {
		return c.deps.SendError(cmdCtx, userMessage(err))
	}

	info, err := c.deps.Races.Info(ctx, id)
	if err != nil {
		c.deps.logger().Warn("Race info fetch failed", zap.String("race_id", id.String()), zap.Error(err))
		return c.deps.SendError(cmdCtx, userMessage(err))
	}

	return c.deps.SendMessage(cmdCtx, c.deps.Formatter.FormatInfo(id, info))
}
