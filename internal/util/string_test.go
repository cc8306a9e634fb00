package util

import (
	"regexp"
	"testing"
)

func TestNormalizeFoldsFullWidth(t *testing.T) {
	if got := Normalize(" １１Ｒ "); got != "11r" {
		t.Fatalf("expected 11r, got %q", got)
	}
}

func TestAtoi(t *testing.T) {
	cases := map[string]int{
		"05":  5,
		"１２": 12,
		" 7 ": 7,
		"x":   -1,
		"":    -1,
	}
	for in, want := range cases {
		if got := Atoi(in, -1); got != want {
			t.Errorf("Atoi(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestFirstMatchAndNumber(t *testing.T) {
	re := regexp.MustCompile(`\d{3,4}m`)
	if got := FirstMatch(re, "芝右 外1600m / 天候 : 晴", "-1m"); got != "1600m" {
		t.Fatalf("unexpected match %q", got)
	}
	if got := FirstMatch(re, "no distance", "-1m"); got != "-1m" {
		t.Fatalf("expected default, got %q", got)
	}
	if got := FirstNumber("/horse/2019104308/"); got != "2019104308" {
		t.Fatalf("unexpected number %q", got)
	}
}

func TestCellText(t *testing.T) {
	if got := CellText("\n1\n"); got != "1" {
		t.Fatalf("unexpected cell text %q", got)
	}
}
