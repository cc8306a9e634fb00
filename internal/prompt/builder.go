package prompt

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/annko/keiba-bot-go/internal/domain"
)

//go:embed templates/parser_prompt.tmpl
var parserPromptText string

var parserPrompt = template.Must(template.New("parser_prompt").Parse(parserPromptText))

// RacecourseEntry is one track as the model sees it.
type RacecourseEntry struct {
	Code string
	Name string
}

// BetTypeEntry is one answerable bet type as the model sees it.
type BetTypeEntry struct {
	Key     string
	Label   string
	Legs    int
	Ordered bool
}

// PromptBuilder renders the question parser prompt. The track and bet-type tables
// come from the domain package and are built once.
type PromptBuilder struct {
	racecourses []RacecourseEntry
	betTypes    []BetTypeEntry
}

func NewPromptBuilder() *PromptBuilder {
	courses := domain.Racecourses()
	pb := &PromptBuilder{racecourses: make([]RacecourseEntry, 0, len(courses))}
	for _, c := range courses {
		pb.racecourses = append(pb.racecourses, RacecourseEntry{Code: fmt.Sprintf("%02d", c.Code), Name: c.Name})
	}
	for _, b := range domain.BetTypes() {
		// 枠連 odds cannot be fetched, so the model is never offered it.
		if b == domain.BetBracketQuinella {
			continue
		}
		pb.betTypes = append(pb.betTypes, BetTypeEntry{
			Key:     b.String(),
			Label:   b.Label(),
			Legs:    b.Legs(),
			Ordered: b == domain.BetExacta || b == domain.BetTrifecta,
		})
	}
	return pb
}

func (pb *PromptBuilder) render(tmpl *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", tmpl.Name(), err)
	}
	return sb.String(), nil
}
