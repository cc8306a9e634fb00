package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/annko/keiba-bot-go/pkg/errors"
)

const (
	RaceIDLength = 12
	MaxRaceNum   = 12
)

// RaceID is the 12-digit YYYYCCMMDDRR identifier used by netkeiba: year, racecourse
// code, meeting (開催回), day of the meeting (N日目) and race number.
type RaceID struct {
	Year       int
	Racecourse int
	Meeting    int
	Day        int
	Race       int
}

func NewRaceID(year, racecourse, meeting, day, race int) (RaceID, error) {
	id := RaceID{Year: year, Racecourse: racecourse, Meeting: meeting, Day: day, Race: race}
	if err := id.Validate(); err != nil {
		return RaceID{}, err
	}
	return id, nil
}

func ParseRaceID(s string) (RaceID, error) {
	s = strings.TrimSpace(s)
	if len(s) != RaceIDLength {
		return RaceID{}, errors.NewValidationError(
			fmt.Sprintf("race id must be %d digits", RaceIDLength), "race_id", s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return RaceID{}, errors.NewValidationError("race id must be numeric", "race_id", s)
		}
	}

	field := func(from, to int) int {
		n, _ := strconv.Atoi(s[from:to])
		return n
	}
	return NewRaceID(field(0, 4), field(4, 6), field(6, 8), field(8, 10), field(10, 12))
}

func (id RaceID) Validate() error {
	if id.Year < 1000 || id.Year > 9999 {
		return errors.NewValidationError("invalid year", "year", id.Year)
	}
	if _, ok := RacecourseByCode(id.Racecourse); !ok {
		return errors.NewValidationError("invalid racecourse code", "racecourse", id.Racecourse)
	}
	if id.Meeting < 1 || id.Meeting > 99 {
		return errors.NewValidationError("invalid meeting number", "meeting", id.Meeting)
	}
	if id.Day < 1 || id.Day > 99 {
		return errors.NewValidationError("invalid day number", "day", id.Day)
	}
	if id.Race < 1 || id.Race > MaxRaceNum {
		return errors.NewValidationError("invalid race number", "race", id.Race)
	}
	return nil
}

func (id RaceID) String() string {
	return fmt.Sprintf("%04d%02d%02d%02d%02d", id.Year, id.Racecourse, id.Meeting, id.Day, id.Race)
}

func (id RaceID) IsZero() bool {
	return id == RaceID{}
}

func (id RaceID) RacecourseName() string {
	rc, _ := RacecourseByCode(id.Racecourse)
	return rc.Name
}

// Label renders the meeting label JRA uses in its race lists, e.g. "5回京都6日".
func (id RaceID) Label() string {
	return fmt.Sprintf("%d回%s%d日", id.Meeting, id.RacecourseName(), id.Day)
}

// DatabaseCode is the db.netkeiba.com path segment.
func (id RaceID) DatabaseCode() string {
	return id.String()
}

// UmabashiraCode drops the century: jiro8 keys races by the last ten digits.
func (id RaceID) UmabashiraCode() string {
	return id.String()[2:]
}

func (id RaceID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *RaceID) UnmarshalText(text []byte) error {
	parsed, err := ParseRaceID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
