package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/util"
)

type stubProvider struct {
	name    string
	text    string
	err     error
	calls   int
	prompts []string
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Generate(_ context.Context, prompt string, _ ModelPreset, opts *GenerateOptions) (ProviderResult, error) {
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return ProviderResult{}, s.err
	}
	return ProviderResult{Text: s.text, Model: s.name + "-model"}, nil
}

func (s *stubProvider) Ping(context.Context) bool { return s.err == nil }

func TestGenerateJSONStripsFence(t *testing.T) {
	primary := &stubProvider{name: "Gemini", text: "```json\n{\"command\":\"result\"}\n```"}
	mm := NewModelManagerWithProviders(primary, nil, nil)

	var out domain.ParseResult
	meta, err := mm.GenerateJSON(context.Background(), "q", PresetPrecise, &out, nil)
	require.NoError(t, err)
	require.Equal(t, domain.CommandResult, out.Command)
	require.Equal(t, "Gemini", meta.Provider)
	require.False(t, meta.UsedFallback)
}

func TestGenerateJSONFallsBack(t *testing.T) {
	primary := &stubProvider{name: "Gemini", err: errors.New("503 Service Unavailable")}
	fallback := &stubProvider{name: "OpenAI", text: `{"command":"odds"}`}
	mm := NewModelManagerWithProviders(primary, fallback, nil)

	var out domain.ParseResult
	meta, err := mm.GenerateJSON(context.Background(), "q", PresetPrecise, &out, nil)
	require.NoError(t, err)
	require.True(t, meta.UsedFallback)
	require.Equal(t, domain.CommandOdds, out.Command)
}

func TestCircuitOpensAfterRepeatedOutages(t *testing.T) {
	primary := &stubProvider{name: "Gemini", err: errors.New("500 internal")}
	mm := NewModelManagerWithProviders(primary, nil, nil)

	var out domain.ParseResult
	for i := 0; i < 5; i++ {
		_, err := mm.GenerateJSON(context.Background(), "q", PresetPrecise, &out, nil)
		require.Error(t, err)
	}
	require.Equal(t, util.CircuitStateOpen, mm.GetCircuitStatus().State)

	_, err := mm.GenerateJSON(context.Background(), "q", PresetPrecise, &out, nil)
	require.ErrorContains(t, err, "一時的に利用できません")
	require.Equal(t, 5, primary.calls)

	mm.ResetCircuit()
	require.Equal(t, util.CircuitStateClosed, mm.GetCircuitStatus().State)
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	primary := &stubProvider{name: "Gemini", err: errors.New("400 bad request")}
	mm := NewModelManagerWithProviders(primary, nil, nil)

	var out domain.ParseResult
	for i := 0; i < 6; i++ {
		_, _ = mm.GenerateJSON(context.Background(), "q", PresetPrecise, &out, nil)
	}
	require.Equal(t, util.CircuitStateClosed, mm.GetCircuitStatus().State)
}

func TestFailureClassification(t *testing.T) {
	require.True(t, isServiceFailure(errors.New(`{"error":{"code":503}}`)))
	require.True(t, isServiceFailure(errors.New("context deadline exceeded")))
	require.True(t, isRateLimitError(errors.New("429 Too Many Requests")))
	require.False(t, isServiceFailure(errors.New("invalid api key")))
	require.False(t, isServiceFailure(nil))
}

func TestQueryParser(t *testing.T) {
	primary := &stubProvider{name: "Gemini", text: `{"command":"result","params":{"racecourse":"京都","date":"2024-10-13","race":11},"confidence":0.95}`}
	p := NewQueryParser(NewModelManagerWithProviders(primary, nil, nil), nil)
	p.now = func() time.Time { return time.Date(2024, 10, 13, 12, 0, 0, 0, util.JST()) }

	res, meta, err := p.Parse(context.Background(), "京都の11レースの結果は？")
	require.NoError(t, err)
	require.Equal(t, domain.CommandResult, res.Command)
	require.Equal(t, "京都", res.Params["racecourse"])
	require.EqualValues(t, 11, res.Params["race"])
	require.Equal(t, "Gemini", meta.Provider)
	require.True(t, strings.Contains(primary.prompts[0], "Today in Japan: 2024-10-13"))
	require.True(t, strings.Contains(primary.prompts[0], "- tansho 単勝: 1 horse"))

	_, _, err = p.Parse(context.Background(), "京都の11レースの結果は？")
	require.NoError(t, err)
	require.Equal(t, 1, primary.calls, "identical questions are cached")
}

func TestQueryParserRejectsUnknownCommands(t *testing.T) {
	primary := &stubProvider{name: "Gemini", text: `{"command":"ask"}`}
	p := NewQueryParser(NewModelManagerWithProviders(primary, nil, nil), nil)

	res, _, err := p.Parse(context.Background(), "今日の天気は？")
	require.NoError(t, err)
	require.Equal(t, domain.CommandUnknown, res.Command)
	require.NotNil(t, res.Params)

	_, _, err = p.Parse(context.Background(), "   ")
	require.Error(t, err)
}
