package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/internal/constants"
)

// Browser is the small surface of a headless browser the odds scrapers drive.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	// ClickNth clicks the n-th (0-based) element matching selector.
	ClickNth(ctx context.Context, selector string, n int) error
	// ClickNthIn clicks the n-th item inside the containerIndex-th container match.
	ClickNthIn(ctx context.Context, container string, containerIndex int, item string, n int) error
	// ClickText clicks the first element matching selector whose whitespace-free text
	// contains text.
	ClickText(ctx context.Context, selector, text string) error
	// SelectValue picks value in a <select> and fires its change event.
	SelectValue(ctx context.Context, selector, value string) error
	OuterHTML(ctx context.Context, selector string) (string, error)
	Close() error
}

// BrowserFactory opens a fresh browser session per scrape.
type BrowserFactory func(ctx context.Context) (Browser, error)

type ChromeOptions struct {
	ExecPath string
	Headless bool
	Timeout  time.Duration
	Settle   time.Duration
}

type ChromeBrowser struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	timeout     time.Duration
	settle      time.Duration
	logger      *zap.Logger
}

// NewChromeBrowser starts a Chrome process. The browser lives until Close, not until
// ctx ends; ctx only bounds the startup.
func NewChromeBrowser(ctx context.Context, opts ChromeOptions, logger *zap.Logger) (*ChromeBrowser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = constants.FetchConfig.BrowserTimeout
	}
	if opts.Settle <= 0 {
		opts.Settle = constants.FetchConfig.BrowserSettle
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(constants.FetchConfig.UserAgent),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	b := &ChromeBrowser{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		timeout:     opts.Timeout,
		settle:      opts.Settle,
		logger:      logger,
	}

	if err := b.run(ctx); err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}
	return b, nil
}

// ChromeFactory adapts NewChromeBrowser to BrowserFactory.
func ChromeFactory(opts ChromeOptions, logger *zap.Logger) BrowserFactory {
	return func(ctx context.Context) (Browser, error) {
		return NewChromeBrowser(ctx, opts, logger)
	}
}

func (b *ChromeBrowser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(b.ctx, b.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (b *ChromeBrowser) Navigate(ctx context.Context, url string) error {
	b.logger.Debug("Browser navigate", zap.String("url", url))
	return b.run(ctx, chromedp.Navigate(url))
}

func (b *ChromeBrowser) WaitVisible(ctx context.Context, selector string) error {
	return b.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (b *ChromeBrowser) Click(ctx context.Context, selector string) error {
	return b.run(ctx,
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.Sleep(b.settle),
	)
}

func (b *ChromeBrowser) ClickNth(ctx context.Context, selector string, n int) error {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelectorAll(%s)[%d];
		if (!el) return false;
		el.click();
		return true;
	})()`, jsString(selector), n)
	return b.evalTrue(ctx, script, fmt.Sprintf("%s[%d]", selector, n))
}

func (b *ChromeBrowser) ClickNthIn(ctx context.Context, container string, containerIndex int, item string, n int) error {
	script := fmt.Sprintf(`(() => {
		const box = document.querySelectorAll(%s)[%d];
		if (!box) return false;
		const el = box.querySelectorAll(%s)[%d];
		if (!el) return false;
		el.click();
		return true;
	})()`, jsString(container), containerIndex, jsString(item), n)
	return b.evalTrue(ctx, script, fmt.Sprintf("%s[%d] %s[%d]", container, containerIndex, item, n))
}

func (b *ChromeBrowser) ClickText(ctx context.Context, selector, text string) error {
	script := fmt.Sprintf(`(() => {
		const el = Array.from(document.querySelectorAll(%s)).find(e => e.textContent.replace(/\s/g, '').includes(%s));
		if (!el) return false;
		(el.querySelector('a') || el).click();
		return true;
	})()`, jsString(selector), jsString(text))
	return b.evalTrue(ctx, script, fmt.Sprintf("%s:contains(%s)", selector, text))
}

func (b *ChromeBrowser) SelectValue(ctx context.Context, selector, value string) error {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		el.value = %s;
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	})()`, jsString(selector), jsString(value))
	return b.evalTrue(ctx, script, selector)
}

func (b *ChromeBrowser) OuterHTML(ctx context.Context, selector string) (string, error) {
	var html string
	if err := b.run(ctx, chromedp.OuterHTML(selector, &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (b *ChromeBrowser) Close() error {
	b.cancelTab()
	b.cancelAlloc()
	return nil
}

func (b *ChromeBrowser) evalTrue(ctx context.Context, script, what string) error {
	var ok bool
	if err := b.run(ctx, chromedp.Evaluate(script, &ok), chromedp.Sleep(b.settle)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("element not found: %s", what)
	}
	return nil
}

func jsString(s string) string {
	encoded, _ := json.Marshal(s)
	return string(encoded)
}
