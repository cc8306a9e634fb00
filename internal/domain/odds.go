package domain

import (
	"fmt"
	"strings"
)

type BetType string

const (
	BetWin             BetType = "tansho"
	BetPlace           BetType = "fukusho"
	BetBracketQuinella BetType = "wakuren"
	BetQuinella        BetType = "umaren"
	BetWide            BetType = "wide"
	BetExacta          BetType = "umatan"
	BetTrio            BetType = "sanrenpuku"
	BetTrifecta        BetType = "sanrentan"
)

var betTypes = []struct {
	bet    BetType
	label  string
	setKey string
}{
	{BetWin, "単勝", "TANSHO"},
	{BetPlace, "複勝", "FUKUSHO"},
	{BetBracketQuinella, "枠連", "WAKUREN"},
	{BetQuinella, "馬連", "UMAREN"},
	{BetWide, "ワイド", "WIDE"},
	{BetExacta, "馬単", "UMATAN"},
	{BetTrio, "3連複", "RENPUKU"},
	{BetTrifecta, "3連単", "RENTAN"},
}

func BetTypes() []BetType {
	out := make([]BetType, 0, len(betTypes))
	for _, b := range betTypes {
		out = append(out, b.bet)
	}
	return out
}

// ParseBetType accepts the romanized key or the Japanese label (全角 digits allowed).
func ParseBetType(s string) (BetType, error) {
	s = strings.TrimSpace(s)
	normalized := strings.ToLower(strings.NewReplacer("３", "3", "三", "3").Replace(s))
	for _, b := range betTypes {
		if normalized == string(b.bet) || normalized == b.label || normalized == strings.ToLower(b.setKey) {
			return b.bet, nil
		}
	}
	return "", fmt.Errorf("unknown bet type %q", s)
}

func (b BetType) String() string {
	return string(b)
}

func (b BetType) Label() string {
	for _, t := range betTypes {
		if t.bet == b {
			return t.label
		}
	}
	return string(b)
}

// SetKey is the key the bet type carries inside an OddsSet.
func (b BetType) SetKey() string {
	for _, t := range betTypes {
		if t.bet == b {
			return t.setKey
		}
	}
	return strings.ToUpper(string(b))
}

// Legs is the number of horses a ticket of this type names.
func (b BetType) Legs() int {
	switch b {
	case BetWin, BetPlace:
		return 1
	case BetTrio, BetTrifecta:
		return 3
	default:
		return 2
	}
}

// OddsRow is one priced combination. Unused legs are zero. Raw keeps the cell text so
// that 取消 and ---.- survive alongside a zero Odds.
type OddsRow struct {
	First  int     `json:"first"`
	Second int     `json:"second,omitempty"`
	Third  int     `json:"third,omitempty"`
	Odds   float64 `json:"odds"`
	Raw    string  `json:"raw,omitempty"`
}

func (r OddsRow) Combination() string {
	parts := []string{fmt.Sprint(r.First)}
	if r.Second > 0 {
		parts = append(parts, fmt.Sprint(r.Second))
	}
	if r.Third > 0 {
		parts = append(parts, fmt.Sprint(r.Third))
	}
	return strings.Join(parts, "-")
}

// OddsSet maps SetKey (TANSHO, UMATAN, ...) to rows.
type OddsSet map[string][]OddsRow
