package fetch

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

const (
	// CharsetAuto sniffs the <meta> charset and falls back to UTF-8.
	CharsetAuto  = ""
	CharsetUTF8  = "utf-8"
	CharsetEUCJP = "euc-jp"
	CharsetCP932 = "cp932"
)

var metaCharsetPattern = regexp.MustCompile(`(?i)<meta[^>]+charset=["']?([\w-]+)`)

func sniffCharset(body []byte) string {
	head := body
	if len(head) > 2048 {
		head = head[:2048]
	}
	if m := metaCharsetPattern.FindSubmatch(head); m != nil {
		return string(m[1])
	}
	return CharsetUTF8
}

func lookupEncoding(charset string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "utf-8", "utf8":
		return nil, nil
	case "euc-jp", "eucjp":
		return japanese.EUCJP, nil
	case "cp932", "shift_jis", "shift-jis", "sjis", "windows-31j":
		return japanese.ShiftJIS, nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}
	return enc, nil
}

// Decode converts body from charset to UTF-8. CharsetAuto reads the page's own
// <meta> declaration.
func Decode(body []byte, charset string) ([]byte, error) {
	if charset == CharsetAuto {
		charset = sniffCharset(body)
	}
	enc, err := lookupEncoding(charset)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return body, nil
	}

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(body), enc.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", charset, err)
	}
	return decoded, nil
}

// DocumentFromHTML parses rendered markup, typically a browser's OuterHTML.
func DocumentFromHTML(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}
