package domain

import "strings"

// Racecourse is one of the ten JRA tracks.
type Racecourse struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

var racecourses = []Racecourse{
	{Code: 1, Name: "札幌"},
	{Code: 2, Name: "函館"},
	{Code: 3, Name: "福島"},
	{Code: 4, Name: "新潟"},
	{Code: 5, Name: "東京"},
	{Code: 6, Name: "中山"},
	{Code: 7, Name: "中京"},
	{Code: 8, Name: "京都"},
	{Code: 9, Name: "阪神"},
	{Code: 10, Name: "小倉"},
}

// Racecourses returns the track table ordered by code.
func Racecourses() []Racecourse {
	out := make([]Racecourse, len(racecourses))
	copy(out, racecourses)
	return out
}

func RacecourseByCode(code int) (Racecourse, bool) {
	if code < 1 || code > len(racecourses) {
		return Racecourse{}, false
	}
	return racecourses[code-1], true
}

// RacecourseByName matches the kanji name, tolerating a trailing 競馬場.
func RacecourseByName(name string) (Racecourse, bool) {
	name = strings.TrimSuffix(strings.TrimSpace(name), "競馬場")
	for _, rc := range racecourses {
		if rc.Name == name {
			return rc, true
		}
	}
	return Racecourse{}, false
}
