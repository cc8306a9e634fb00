package prompt

import (
	"strings"
	"time"
)

// ParserPromptVars is the data the parser prompt template sees.
type ParserPromptVars struct {
	Today       string
	Racecourses []RacecourseEntry
	BetTypes    []BetTypeEntry
	UserQuery   string
}

// BuildParserPrompt renders the prompt that turns a racing question into a command.
// Relative dates in the question are anchored to today.
func (pb *PromptBuilder) BuildParserPrompt(today time.Time, query string) (string, error) {
	return pb.render(parserPrompt, ParserPromptVars{
		Today:       today.Format("2006-01-02"),
		Racecourses: pb.racecourses,
		BetTypes:    pb.betTypes,
		UserQuery:   strings.TrimSpace(query),
	})
}
