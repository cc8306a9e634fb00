package command

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/internal/adapter"
	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/service/ai"
)

type Command interface {
	Name() string
	Description() string
	Execute(ctx context.Context, cmdCtx *domain.CommandContext, params map[string]any) error
}

// RaceService is the part of race.Service the chat commands use.
type RaceService interface {
	Resolve(ctx context.Context, q domain.RaceQuery) (domain.RaceID, error)
	ResolveByDate(ctx context.Context, date time.Time, racecourse string, raceNum int) (domain.RaceID, error)
	ResultByID(ctx context.Context, id domain.RaceID) ([]domain.ResultEntry, error)
	Info(ctx context.Context, id domain.RaceID) (*domain.RaceInfo, error)
	Payouts(ctx context.Context, id domain.RaceID) ([]domain.Payout, error)
	Odds(ctx context.Context, id domain.RaceID, bet domain.BetType, source string) ([]domain.OddsRow, error)
}

type QuestionParser interface {
	Parse(ctx context.Context, query string) (*domain.ParseResult, *ai.GenerateMetadata, error)
}

type Dependencies struct {
	Races          RaceService
	Parser         QuestionParser
	OddsSource     string
	Formatter      *adapter.ResponseFormatter
	SendMessage    func(cmdCtx *domain.CommandContext, message string) error
	SendError      func(cmdCtx *domain.CommandContext, message string) error
	ExecuteCommand func(ctx context.Context, cmdCtx *domain.CommandContext, cmdType domain.CommandType, params map[string]any) error
	Logger         *zap.Logger
}

func (d *Dependencies) logger() *zap.Logger {
	if d == nil || d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}
