package netkeiba

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/pkg/errors"
)

// PageFetcher is the part of fetch.Fetcher the extractors need.
type PageFetcher interface {
	Document(ctx context.Context, url, charset string) (*goquery.Document, error)
	LoggedIn() bool
}

// Scraper fetches netkeiba and jiro8 pages and runs the matching Parse* function.
type Scraper struct {
	fetcher PageFetcher
	logger  *zap.Logger
}

func NewScraper(fetcher PageFetcher, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{fetcher: fetcher, logger: logger}
}

func notFound(what, selector string) error {
	return errors.NewNotFoundError(fmt.Sprintf("%s not found (%s)", what, selector), what)
}

// requireOne returns the first match of selector or a not-found error.
func requireOne(doc *goquery.Selection, selector, what string) (*goquery.Selection, error) {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, notFound(what, selector)
	}
	return sel, nil
}
