package odds

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/service/fetch"
)

var ErrUnsupportedBetType = stderrors.New("bet type not supported by this odds source")

// BundleOrder is the bet types All collects, in scrape order.
var BundleOrder = []domain.BetType{
	domain.BetWin,
	domain.BetExacta,
	domain.BetTrifecta,
	domain.BetQuinella,
	domain.BetTrio,
	domain.BetWide,
}

// Source scrapes live odds for one race.
type Source interface {
	Name() string
	Odds(ctx context.Context, id domain.RaceID, bet domain.BetType) ([]domain.OddsRow, error)
	All(ctx context.Context, id domain.RaceID) (domain.OddsSet, error)
}

// session is one browser positioned on a race's odds page.
type session interface {
	scrape(ctx context.Context, bet domain.BetType) ([]domain.OddsRow, error)
}

func withBrowser(ctx context.Context, open fetch.BrowserFactory, fn func(fetch.Browser) error) error {
	b, err := open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	defer b.Close()
	return fn(b)
}

func collect(ctx context.Context, s session) (domain.OddsSet, error) {
	set := make(domain.OddsSet, len(BundleOrder))
	for _, bet := range BundleOrder {
		rows, err := s.scrape(ctx, bet)
		if err != nil {
			return nil, fmt.Errorf("%s odds: %w", bet.Label(), err)
		}
		set[bet.SetKey()] = rows
	}
	return set, nil
}

// bodyTables parses the rendered body and flattens the tables under selector; index
// picks one match (negative for all matches).
func bodyTables(ctx context.Context, b fetch.Browser, selector string, index int) ([]fetch.Table, error) {
	html, err := b.OuterHTML(ctx, "body")
	if err != nil {
		return nil, err
	}
	doc, err := fetch.DocumentFromHTML(html)
	if err != nil {
		return nil, err
	}

	sel := doc.Find(selector)
	if index >= 0 {
		sel = sel.Eq(index)
	} else {
		sel = sel.First()
	}
	if sel.Length() == 0 {
		return nil, fmt.Errorf("odds table not found: %s", selector)
	}
	return fetch.ReadTables(sel), nil
}
