package command

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/internal/domain"
)

const minConfidence = 0.5

type AskCommand struct {
	deps *Dependencies
}

func NewAskCommand(deps *Dependencies) *AskCommand {
	return &AskCommand{deps: deps}
}

func (c *AskCommand) Name() string {
	return "ask"
}

func (c *AskCommand) Description() string {
	return "自然文の質問をコマンドに変換します"
}

func (c *AskCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext, params map[string]any) error {
	if c.deps == nil || c.deps.SendMessage == nil || c.deps.SendError == nil {
		return fmt.Errorf("message callbacks not configured")
	}
	if cmdCtx == nil {
		return fmt.Errorf("command context is nil")
	}

	// Without a parser free text only gets the usage hint.
	if c.deps.Parser == nil || c.deps.ExecuteCommand == nil {
		return c.deps.SendMessage(cmdCtx, c.deps.Formatter.FormatUnknown())
	}

	rawQuestion, _ := params["question"].(string)
	question := strings.TrimSpace(rawQuestion)
	if question == "" {
		return c.deps.SendMessage(cmdCtx, c.deps.Formatter.FormatUnknown())
	}

	logger := c.deps.logger()
	logger.Info("Processing natural language question", zap.String("question", question))

	result, metadata, err := c.deps.Parser.Parse(ctx, question)
	if err != nil {
		logger.Warn("Question parse failed", zap.String("question", question), zap.Error(err))
		return c.deps.SendError(cmdCtx, "質問を処理できませんでした。しばらくしてから再度お試しください。")
	}

	if result == nil || result.Confidence < minConfidence {
		if result != nil {
			logger.Warn("Skipping low-confidence command",
				zap.String("question", question),
				zap.String("command", result.Command.String()),
				zap.Float64("confidence", result.Confidence),
			)
		}
		return c.deps.SendMessage(cmdCtx, c.deps.Formatter.FormatUnknown())
	}

	switch result.Command {
	case domain.CommandUnknown, domain.CommandAsk:
		return c.deps.SendMessage(cmdCtx, c.deps.Formatter.FormatUnknown())
	}

	forwardParams := make(map[string]any, len(result.Params))
	for k, v := range result.Params {
		forwardParams[k] = v
	}

	if metadata != nil {
		logger.Info("Natural language query processed",
			zap.String("command", result.Command.String()),
			zap.String("provider", metadata.Provider),
			zap.String("model", metadata.Model),
			zap.Bool("used_fallback", metadata.UsedFallback),
		)
	}

	return c.deps.ExecuteCommand(ctx, cmdCtx, result.Command, forwardParams)
}
