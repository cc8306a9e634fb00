package domain

import (
	"regexp"
	"strings"

	"github.com/annko/keiba-bot-go/pkg/errors"
)

// Foreign-bred horses carry letters in their db.netkeiba id (e.g. 000a0012bd).
var horseIDPattern = regexp.MustCompile(`^[0-9a-zA-Z]+$`)

func ParseHorseID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !horseIDPattern.MatchString(s) {
		return "", errors.NewValidationError("horse id must be alphanumeric", "horse_id", s)
	}
	return s, nil
}

// HorseRaceRecord is one row of a horse's past performances keyed by column header.
type HorseRaceRecord struct {
	HorseID string            `json:"horse_id"`
	RaceID  string            `json:"race_id,omitempty"`
	Fields  map[string]string `json:"fields"`
}

type HorseResults struct {
	HorseID string            `json:"horse_id"`
	Columns []string          `json:"columns"`
	Records []HorseRaceRecord `json:"records"`
}

// Ancestor is one cell of the five-generation pedigree table. Generation 1 is the
// parents; Position counts top to bottom within the generation.
type Ancestor struct {
	Generation int    `json:"generation"`
	Position   int    `json:"position"`
	Name       string `json:"name"`
	HorseID    string `json:"horse_id"`
}

type HorseProfile struct {
	HorseID  string `json:"horse_id"`
	Sex      string `json:"sex"`
	Birthday string `json:"birthday"`
}
