package odds

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/internal/constants"
	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/service/fetch"
)

const (
	netkeibaHorseList = ".RaceOdds_HorseList_Table"
	netkeibaGraph     = ".GraphOdds"
	netkeibaAxis      = "#list_select_horse"
)

var netkeibaTabs = map[domain.BetType]string{
	domain.BetWin:             "#odds_navi_b1",
	domain.BetPlace:           "#odds_navi_b1",
	domain.BetBracketQuinella: "#odds_navi_b3",
	domain.BetQuinella:        "#odds_navi_b4",
	domain.BetWide:            "#odds_navi_b5",
	domain.BetExacta:          "#odds_navi_b6",
	domain.BetTrio:            "#odds_navi_b7",
	domain.BetTrifecta:        "#odds_navi_b8",
}

// NetkeibaScraper reads race.netkeiba.com odds pages through a browser since the
// tables are rendered client side.
type NetkeibaScraper struct {
	open   fetch.BrowserFactory
	logger *zap.Logger
}

func NewNetkeibaScraper(open fetch.BrowserFactory, logger *zap.Logger) *NetkeibaScraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NetkeibaScraper{open: open, logger: logger}
}

func (s *NetkeibaScraper) Name() string {
	return "netkeiba"
}

func (s *NetkeibaScraper) Odds(ctx context.Context, id domain.RaceID, bet domain.BetType) ([]domain.OddsRow, error) {
	if bet == domain.BetBracketQuinella {
		return nil, ErrUnsupportedBetType
	}
	if _, ok := netkeibaTabs[bet]; !ok {
		return nil, ErrUnsupportedBetType
	}

	var rows []domain.OddsRow
	err := withBrowser(ctx, s.open, func(b fetch.Browser) error {
		sess, err := s.visit(ctx, b, id)
		if err != nil {
			return err
		}
		rows, err = sess.scrape(ctx, bet)
		return err
	})
	return rows, err
}

func (s *NetkeibaScraper) All(ctx context.Context, id domain.RaceID) (domain.OddsSet, error) {
	var set domain.OddsSet
	err := withBrowser(ctx, s.open, func(b fetch.Browser) error {
		sess, err := s.visit(ctx, b, id)
		if err != nil {
			return err
		}
		set, err = collect(ctx, sess)
		return err
	})
	return set, err
}

func (s *NetkeibaScraper) visit(ctx context.Context, b fetch.Browser, id domain.RaceID) (*netkeibaSession, error) {
	url := fmt.Sprintf(constants.URLs.NetkeibaOdds, id)
	if err := b.Navigate(ctx, url); err != nil {
		return nil, err
	}
	if err := b.WaitVisible(ctx, netkeibaTabs[domain.BetWin]); err != nil {
		return nil, err
	}
	s.logger.Debug("Opened odds page", zap.String("race_id", id.String()))
	return &netkeibaSession{browser: b}, nil
}

type netkeibaSession struct {
	browser fetch.Browser
}

func (n *netkeibaSession) scrape(ctx context.Context, bet domain.BetType) ([]domain.OddsRow, error) {
	tab, ok := netkeibaTabs[bet]
	if !ok || bet == domain.BetBracketQuinella {
		return nil, ErrUnsupportedBetType
	}
	if err := n.browser.Click(ctx, tab); err != nil {
		return nil, err
	}

	switch bet {
	case domain.BetWin, domain.BetPlace:
		index := 0
		if bet == domain.BetPlace {
			index = 1
		}
		tables, err := bodyTables(ctx, n.browser, netkeibaHorseList, index)
		if err != nil {
			return nil, err
		}
		return ReshapeWin(tables[0], "オッズ"), nil

	case domain.BetQuinella, domain.BetWide, domain.BetExacta:
		tables, err := bodyTables(ctx, n.browser, netkeibaGraph, -1)
		if err != nil {
			return nil, err
		}
		return ReshapePairsByHeader(tables), nil

	default:
		pages, err := n.axisPages(ctx)
		if err != nil {
			return nil, err
		}
		return ReshapeAxis(pages, bet == domain.BetTrio), nil
	}
}

// axisPages selects every axis horse in #list_select_horse (option 0 is the
// placeholder) and reads the odds grid shown for it.
func (n *netkeibaSession) axisPages(ctx context.Context) ([][]fetch.Table, error) {
	if err := n.browser.WaitVisible(ctx, netkeibaAxis); err != nil {
		return nil, err
	}
	html, err := n.browser.OuterHTML(ctx, netkeibaAxis)
	if err != nil {
		return nil, err
	}
	doc, err := fetch.DocumentFromHTML(html)
	if err != nil {
		return nil, err
	}
	options := doc.Find("option").Length()

	pages := make([][]fetch.Table, 0, options)
	for axis := 1; axis < options; axis++ {
		if axis > 1 {
			if err := n.browser.SelectValue(ctx, netkeibaAxis, strconv.Itoa(axis)); err != nil {
				return nil, err
			}
		}
		tables, err := bodyTables(ctx, n.browser, netkeibaGraph, -1)
		if err != nil {
			return nil, err
		}
		pages = append(pages, tables)
	}
	return pages, nil
}
