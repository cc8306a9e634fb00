package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBetType(t *testing.T) {
	cases := map[string]BetType{
		"tansho": BetWin,
		"単勝":     BetWin,
		"ワイド":    BetWide,
		"三連単":    BetTrifecta,
		"３連複":    BetTrio,
		"RENTAN": BetTrifecta,
	}
	for input, want := range cases {
		got, err := ParseBetType(input)
		require.NoError(t, err, input)
		require.Equal(t, want, got, input)
	}

	_, err := ParseBetType("win5")
	require.Error(t, err)
}

func TestBetTypeMetadata(t *testing.T) {
	require.Equal(t, "馬単", BetExacta.Label())
	require.Equal(t, "UMATAN", BetExacta.SetKey())
	require.Equal(t, "RENPUKU", BetTrio.SetKey())
	require.Equal(t, 3, BetTrifecta.Legs())
	require.Equal(t, 1, BetPlace.Legs())
	require.Len(t, BetTypes(), 8)
}

func TestOddsRowCombination(t *testing.T) {
	require.Equal(t, "3", OddsRow{First: 3}.Combination())
	require.Equal(t, "1-7-12", OddsRow{First: 1, Second: 7, Third: 12}.Combination())
}
