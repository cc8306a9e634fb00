package adapter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/annko/keiba-bot-go/internal/domain"
)

func TestParseMessageCSV(t *testing.T) {
	ma := NewMessageAdapter("!")

	cmd := ma.ParseMessage("京都,05,06,11")
	require.Equal(t, domain.CommandResult, cmd.Type)
	require.Empty(t, cmd.Error)
	require.False(t, cmd.Prefixed)
	require.Equal(t, map[string]any{"racecourse": "京都", "meeting": 5, "day": 6, "race": 11}, cmd.Params)

	cmd = ma.ParseMessage("!東京，０２，０１，１１Ｒ")
	require.True(t, cmd.Prefixed)
	require.Equal(t, map[string]any{"racecourse": "東京", "meeting": 2, "day": 1, "race": 11}, cmd.Params)
}

func TestParseMessageCSVWrongArity(t *testing.T) {
	ma := NewMessageAdapter("")

	for _, input := range []string{"京都,05,06", "京都,05,06,11,12", "京都,aa,06,11"} {
		cmd := ma.ParseMessage(input)
		require.Equal(t, domain.CommandResult, cmd.Type, input)
		require.Equal(t, MsgInvalidFormat, cmd.Error, input)
	}
}

func TestParseMessageResultForms(t *testing.T) {
	ma := NewMessageAdapter("!")

	cmd := ma.ParseMessage("!結果 京都 2024/10/13 11R")
	require.Equal(t, domain.CommandResult, cmd.Type)
	require.Equal(t, map[string]any{"racecourse": "京都", "date": "2024-10-13", "race": 11}, cmd.Params)

	cmd = ma.ParseMessage("結果 202408040511")
	require.Equal(t, map[string]any{"race_id": "202408040511"}, cmd.Params)

	cmd = ma.ParseMessage("result 京都 4 5 11")
	require.Equal(t, map[string]any{"racecourse": "京都", "meeting": 4, "day": 5, "race": 11}, cmd.Params)

	cmd = ma.ParseMessage("結果 2024")
	require.Equal(t, domain.CommandResult, cmd.Type)
	require.Contains(t, cmd.Error, "結果 京都 2024-10-13 11")
}

func TestParseMessageOdds(t *testing.T) {
	ma := NewMessageAdapter("")

	cmd := ma.ParseMessage("オッズ 202408040511 3連単")
	require.Equal(t, domain.CommandOdds, cmd.Type)
	require.Equal(t, "202408040511", cmd.Params["race_id"])
	require.Equal(t, "sanrentan", cmd.Params["bet_type"])

	cmd = ma.ParseMessage("odds 202408040511")
	require.Equal(t, "tansho", cmd.Params["bet_type"])

	cmd = ma.ParseMessage("オッズ 京都 2024-10-13 11 馬連")
	require.Equal(t, "umaren", cmd.Params["bet_type"])
	require.Equal(t, "2024-10-13", cmd.Params["date"])

	cmd = ma.ParseMessage("オッズ")
	require.NotEmpty(t, cmd.Error)
}

func TestParseMessageOtherCommands(t *testing.T) {
	ma := NewMessageAdapter("")

	require.Equal(t, domain.CommandPayout, ma.ParseMessage("払戻 202408040511").Type)
	require.Equal(t, domain.CommandInfo, ma.ParseMessage("情報 202408040511").Type)
	require.Equal(t, domain.CommandHelp, ma.ParseMessage("ヘルプ").Type)
	require.Equal(t, domain.CommandHelp, ma.ParseMessage("HELP").Type)
	require.Equal(t, domain.CommandUnknown, ma.ParseMessage("   ").Type)
}

func TestParseMessageFallsBackToAsk(t *testing.T) {
	ma := NewMessageAdapter("")

	cmd := ma.ParseMessage("昨日の京都\x0011レース、結果は？")
	require.Equal(t, domain.CommandAsk, cmd.Type)
	require.Equal(t, "昨日の京都 11レース、結果は？", cmd.Params["question"])

	long := strings.Repeat("馬", 400)
	cmd = ma.ParseMessage("質問 " + long)
	require.Equal(t, domain.CommandAsk, cmd.Type)
	require.Len(t, []rune(cmd.Params["question"].(string)), 300)
}
