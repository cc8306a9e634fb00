package domain

import (
	"time"

	"github.com/annko/keiba-bot-go/pkg/errors"
)

// RaceQuery is a race as users name it: a racecourse plus either meeting/day or a
// calendar date, and a race number.
type RaceQuery struct {
	Racecourse string     `json:"racecourse"`
	Year       int        `json:"year"`
	Meeting    int        `json:"meeting"`
	Day        int        `json:"day"`
	Race       int        `json:"race"`
	Date       *time.Time `json:"date,omitempty"`
}

func (q RaceQuery) HasDate() bool {
	return q.Date != nil && !q.Date.IsZero()
}

func (q RaceQuery) Course() (Racecourse, error) {
	rc, ok := RacecourseByName(q.Racecourse)
	if !ok {
		return Racecourse{}, errors.NewValidationError("unknown racecourse", "racecourse", q.Racecourse)
	}
	return rc, nil
}

// RaceID builds the identifier directly; it needs Year, Meeting and Day.
func (q RaceQuery) RaceID() (RaceID, error) {
	rc, err := q.Course()
	if err != nil {
		return RaceID{}, err
	}
	return NewRaceID(q.Year, rc.Code, q.Meeting, q.Day, q.Race)
}
