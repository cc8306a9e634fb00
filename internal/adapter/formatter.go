package adapter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/annko/keiba-bot-go/internal/domain"
)

// Odds replies list at most this many combinations.
const maxOddsLines = 20

// ResponseFormatter formats bot responses
type ResponseFormatter struct {
	prefix     string
	askEnabled bool
}

// NewResponseFormatter creates a new ResponseFormatter. The prefix is only used for
// the examples in the help text.
func NewResponseFormatter(prefix string, askEnabled bool) *ResponseFormatter {
	return &ResponseFormatter{prefix: strings.TrimSpace(prefix), askEnabled: askEnabled}
}

// FormatResult renders one line per finisher.
func (f *ResponseFormatter) FormatResult(entries []domain.ResultEntry) string {
	if len(entries) == 0 {
		return MsgResultFailed
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s: %s (人気: %s, オッズ: %s)", e.Rank, e.Name, e.Ninki, e.Odds))
	}
	return strings.Join(lines, "\n")
}

type raceInfoView struct {
	*domain.RaceInfo
	Label string
}

// FormatInfo formats race conditions
func (f *ResponseFormatter) FormatInfo(id domain.RaceID, info *domain.RaceInfo) string {
	if info == nil {
		return f.FormatError("レース情報が見つかりませんでした。")
	}
	rendered, err := executeFormatterTemplate("race_info", raceInfoView{RaceInfo: info, Label: id.Label()})
	if err != nil {
		return f.FormatError("レース情報を表示できませんでした。")
	}
	return rendered
}

// FormatPayouts formats the payout table of a race
func (f *ResponseFormatter) FormatPayouts(id domain.RaceID, payouts []domain.Payout) string {
	if len(payouts) == 0 {
		return f.FormatError("払戻が見つかりませんでした。")
	}
	data := struct {
		Title   string
		Payouts []domain.Payout
	}{Title: raceTitle(id), Payouts: payouts}
	rendered, err := executeFormatterTemplate("payouts", data)
	if err != nil {
		return f.FormatError("払戻を表示できませんでした。")
	}
	return rendered
}

type oddsLine struct {
	Combination string
	Display     string
	odds        float64
}

// FormatOdds lists the combinations of one bet type. Win and place keep horse order;
// combination bets are sorted favourite first and truncated.
func (f *ResponseFormatter) FormatOdds(id domain.RaceID, bet domain.BetType, rows []domain.OddsRow) string {
	if len(rows) == 0 {
		return f.FormatError(fmt.Sprintf("%sのオッズが見つかりませんでした。", bet.Label()))
	}

	lines := make([]oddsLine, 0, len(rows))
	for _, r := range rows {
		display := fmt.Sprintf("%.1f", r.Odds)
		if r.Odds == 0 && r.Raw != "" {
			display = r.Raw
		}
		lines = append(lines, oddsLine{Combination: r.Combination(), Display: display, odds: r.Odds})
	}
	if bet.Legs() > 1 {
		sort.SliceStable(lines, func(i, j int) bool {
			// unpriced rows last
			if (lines[i].odds == 0) != (lines[j].odds == 0) {
				return lines[j].odds == 0
			}
			return lines[i].odds < lines[j].odds
		})
	}

	omitted := 0
	if len(lines) > maxOddsLines {
		omitted = len(lines) - maxOddsLines
		lines = lines[:maxOddsLines]
	}

	data := struct {
		Title    string
		BetLabel string
		Rows     []oddsLine
		Omitted  int
	}{Title: raceTitle(id), BetLabel: bet.Label(), Rows: lines, Omitted: omitted}
	rendered, err := executeFormatterTemplate("odds", data)
	if err != nil {
		return f.FormatError("オッズを表示できませんでした。")
	}
	return rendered
}

// FormatHelp formats help message
func (f *ResponseFormatter) FormatHelp() string {
	labels := make([]string, 0, len(domain.BetTypes()))
	for _, b := range domain.BetTypes() {
		labels = append(labels, b.Label())
	}
	data := struct {
		Prefix     string
		BetTypes   []string
		AskEnabled bool
	}{Prefix: f.prefix, BetTypes: labels, AskEnabled: f.askEnabled}
	rendered, err := executeFormatterTemplate("help", data)
	if err != nil {
		return "「ヘルプ」で使い方を表示します。"
	}
	return rendered
}

// FormatUnknown is sent when a message is neither a command nor an answerable question.
func (f *ResponseFormatter) FormatUnknown() string {
	return fmt.Sprintf("コマンドが分かりませんでした。「%sヘルプ」で使い方を表示します。", f.prefix)
}

// FormatError formats error message
func (f *ResponseFormatter) FormatError(message string) string {
	return fmt.Sprintf("❌ %s", message)
}

func raceTitle(id domain.RaceID) string {
	return fmt.Sprintf("%s %dR", id.Label(), id.Race)
}
