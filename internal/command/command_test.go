package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/annko/keiba-bot-go/internal/adapter"
	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/service/ai"
	"github.com/annko/keiba-bot-go/pkg/errors"
)

var kyoto11 = domain.RaceID{Year: 2024, Racecourse: 8, Meeting: 4, Day: 5, Race: 11}

type fakeRaces struct {
	resolved []domain.RaceQuery
	byDate   []time.Time
	results  []domain.ResultEntry
	err      error
	oddsBet  domain.BetType
	oddsSrc  string
}

func (f *fakeRaces) Resolve(_ context.Context, q domain.RaceQuery) (domain.RaceID, error) {
	f.resolved = append(f.resolved, q)
	if _, ok := domain.RacecourseByName(q.Racecourse); !ok {
		return domain.RaceID{}, errors.NewValidationError("unknown racecourse", "racecourse", q.Racecourse)
	}
	return kyoto11, nil
}

func (f *fakeRaces) ResolveByDate(_ context.Context, date time.Time, _ string, _ int) (domain.RaceID, error) {
	f.byDate = append(f.byDate, date)
	return kyoto11, f.err
}

func (f *fakeRaces) ResultByID(_ context.Context, _ domain.RaceID) ([]domain.ResultEntry, error) {
	return f.results, f.err
}

func (f *fakeRaces) Info(_ context.Context, _ domain.RaceID) (*domain.RaceInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.RaceInfo{RaceName: "秋華賞", RaceNum: 11, Surface: "芝", Distance: 2000}, nil
}

func (f *fakeRaces) Payouts(_ context.Context, _ domain.RaceID) ([]domain.Payout, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Payout{{BetType: "単勝", Combination: "7", Payout: "390"}}, nil
}

func (f *fakeRaces) Odds(_ context.Context, _ domain.RaceID, bet domain.BetType, source string) ([]domain.OddsRow, error) {
	f.oddsBet, f.oddsSrc = bet, source
	return []domain.OddsRow{{First: 7, Odds: 3.9}}, f.err
}

type fakeParser struct {
	result *domain.ParseResult
	err    error
	calls  []string
}

func (f *fakeParser) Parse(_ context.Context, query string) (*domain.ParseResult, *ai.GenerateMetadata, error) {
	f.calls = append(f.calls, query)
	return f.result, &ai.GenerateMetadata{Provider: "gemini"}, f.err
}

type harness struct {
	deps     *Dependencies
	registry *Registry
	races    *fakeRaces
	messages []string
	errors   []string
}

func newHarness(parser QuestionParser) *harness {
	h := &harness{races: &fakeRaces{}}
	h.deps = &Dependencies{
		Races:      h.races,
		Parser:     parser,
		OddsSource: "jra",
		Formatter:  adapter.NewResponseFormatter("", parser != nil),
		SendMessage: func(_ *domain.CommandContext, message string) error {
			h.messages = append(h.messages, message)
			return nil
		},
		SendError: func(_ *domain.CommandContext, message string) error {
			h.errors = append(h.errors, message)
			return nil
		},
	}
	h.registry = NewDefaultRegistry(h.deps)
	dispatcher := NewSequentialDispatcher(h.registry, nil)
	h.deps.ExecuteCommand = func(ctx context.Context, cmdCtx *domain.CommandContext, cmdType domain.CommandType, params map[string]any) error {
		_, err := dispatcher.Publish(ctx, cmdCtx, CommandEvent{Type: cmdType, Params: params})
		return err
	}
	return h
}

func (h *harness) run(t *testing.T, cmdType domain.CommandType, params map[string]any) {
	t.Helper()
	cmdCtx := domain.NewCommandContext(domain.SourceLine, "room", "", "user", "", false)
	require.NoError(t, h.deps.ExecuteCommand(context.Background(), cmdCtx, cmdType, params))
}

func TestRegistryNames(t *testing.T) {
	h := newHarness(nil)
	require.Equal(t, []string{"ask", "help", "info", "odds", "payout", "result"}, h.registry.Names())
	require.Equal(t, 6, h.registry.Count())

	err := h.registry.Execute(context.Background(), nil, "alarm", nil)
	require.ErrorIs(t, err, ErrUnknownCommand)
}

func TestDispatcherSkipsUnknownAndClonesParams(t *testing.T) {
	h := newHarness(nil)
	params := map[string]any{"race_id": "202408040511"}
	dispatcher := NewSequentialDispatcher(h.registry, func(cmdType domain.CommandType, p map[string]any) (string, map[string]any) {
		p["mutated"] = true
		return cmdType.String(), p
	})

	n, err := dispatcher.Publish(context.Background(), &domain.CommandContext{},
		CommandEvent{Type: domain.CommandUnknown},
		CommandEvent{Type: domain.CommandHelp, Params: params},
	)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NotContains(t, params, "mutated")
}

func TestResultCommandMeetingForm(t *testing.T) {
	h := newHarness(nil)
	h.races.results = []domain.ResultEntry{{Rank: "1", Name: "チェルヴィニア", Ninki: "1", Odds: "2.3"}}

	h.run(t, domain.CommandResult, map[string]any{"racecourse": "京都", "meeting": 4, "day": 5, "race": 11})
	require.Equal(t, []string{"1: チェルヴィニア (人気: 1, オッズ: 2.3)"}, h.messages)
	require.Equal(t, 0, h.races.resolved[0].Year)
}

func TestResultCommandFailureReply(t *testing.T) {
	h := newHarness(nil)
	h.run(t, domain.CommandResult, map[string]any{"racecourse": "大井", "meeting": 4, "day": 5, "race": 11})

	h.races.err = errors.NewNotFoundError("no result", "race_result")
	h.run(t, domain.CommandResult, map[string]any{"race_id": "202408040511"})

	require.Equal(t, []string{adapter.MsgResultFailed, adapter.MsgResultFailed}, h.messages)
}

func TestResultCommandDateFormFromJSONParams(t *testing.T) {
	h := newHarness(nil)
	h.races.results = []domain.ResultEntry{{Rank: "1", Name: "A"}}

	// numbers decoded from model JSON are float64
	h.run(t, domain.CommandResult, map[string]any{"racecourse": "京都", "date": "2024-10-13", "race": float64(11)})
	require.Len(t, h.races.byDate, 1)
	require.Equal(t, "2024-10-13", h.races.byDate[0].Format("2006-01-02"))
}

func TestOddsCommand(t *testing.T) {
	h := newHarness(nil)
	h.run(t, domain.CommandOdds, map[string]any{"race_id": "202408040511", "bet_type": "単勝"})
	require.Equal(t, domain.BetWin, h.races.oddsBet)
	require.Equal(t, "jra", h.races.oddsSrc)
	require.Contains(t, h.messages[0], "7: 3.9")

	h.run(t, domain.CommandOdds, map[string]any{"race_id": "202408040511", "bet_type": "WIN5"})
	require.Equal(t, []string{"券種が分かりません: WIN5"}, h.errors)
}

func TestPayoutAndInfoErrors(t *testing.T) {
	h := newHarness(nil)
	h.run(t, domain.CommandPayout, map[string]any{"race_id": "202408040511"})
	h.run(t, domain.CommandInfo, map[string]any{"race_id": "202408040511"})
	require.Len(t, h.messages, 2)
	require.Contains(t, h.messages[1], "秋華賞")

	h.run(t, domain.CommandInfo, map[string]any{"race_id": "2024"})
	h.races.err = errors.NewNotFoundError("gone", "race_database")
	h.run(t, domain.CommandPayout, map[string]any{"race_id": "202408040511"})
	require.Equal(t, []string{"入力内容を確認してください。", "データが見つかりませんでした。"}, h.errors)
}

func TestAskCommandDelegates(t *testing.T) {
	parser := &fakeParser{result: &domain.ParseResult{
		Command:    domain.CommandPayout,
		Params:     map[string]any{"race_id": "202408040511"},
		Confidence: 0.9,
	}}
	h := newHarness(parser)

	h.run(t, domain.CommandAsk, map[string]any{"question": "秋華賞の払戻は？"})
	require.Equal(t, []string{"秋華賞の払戻は？"}, parser.calls)
	require.Len(t, h.messages, 1)
	require.Contains(t, h.messages[0], "単勝 7: 390円")
}

func TestAskCommandLowConfidenceAndDisabled(t *testing.T) {
	parser := &fakeParser{result: &domain.ParseResult{Command: domain.CommandResult, Confidence: 0.2}}
	h := newHarness(parser)
	h.run(t, domain.CommandAsk, map[string]any{"question": "なにか"})
	require.Equal(t, []string{h.deps.Formatter.FormatUnknown()}, h.messages)

	disabled := newHarness(nil)
	disabled.run(t, domain.CommandAsk, map[string]any{"question": "なにか"})
	require.Equal(t, []string{disabled.deps.Formatter.FormatUnknown()}, disabled.messages)
}

func TestAskCommandParserFailureHidesCause(t *testing.T) {
	parser := &fakeParser{err: errors.NewServiceError("gemini quota exceeded", "ai", "generate", nil)}
	h := newHarness(parser)
	h.run(t, domain.CommandAsk, map[string]any{"question": "京都11Rの結果"})
	require.Len(t, h.errors, 1)
	require.NotContains(t, h.errors[0], "quota")
}
