package odds

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

func goqueryOuter(doc *goquery.Document, selector string) (string, error) {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("no node for %s", selector)
	}
	return goquery.OuterHtml(sel)
}
