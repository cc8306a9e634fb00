package util

import (
	"fmt"
	"time"
)

var jstLocation *time.Location

func init() {
	var err error
	jstLocation, err = time.LoadLocation("Asia/Tokyo")
	if err != nil {
		jstLocation = time.FixedZone("JST", 9*60*60)
	}
}

func JST() *time.Location {
	return jstLocation
}

func FormatJST(t time.Time, layout string) string {
	return t.In(jstLocation).Format(layout)
}

func NowJST() time.Time {
	return time.Now().In(jstLocation)
}

// ParseDate accepts 2006-01-02, 20060102 and 2006/01/02 in JST.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "20060102", "2006/01/02"} {
		if t, err := time.ParseInLocation(layout, s, jstLocation); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// DaysInMonth returns every date of the given month in JST.
func DaysInMonth(year int, month time.Month) []time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, jstLocation)
	days := make([]time.Time, 0, 31)
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
