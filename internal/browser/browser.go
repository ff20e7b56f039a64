// Package browser drives a live Chrome tab over the DevTools protocol and
// exposes it as a dom.Page.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/fortuna/draftlens/internal/logger"
)

const (
	// UserAgent presented by the browser.
	UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36"

	// bindingName is the window function action controls call on click.
	bindingName = "__draftlensAction"

	defaultOpenTimeout = 60 * time.Second
)

// Options configures the browser process.
type Options struct {
	Headless  bool
	UserAgent string
	Width     int
	Height    int
	// LoadDelay is waited after the body is ready so the draft room can
	// render its lists.
	LoadDelay time.Duration
}

// Browser owns one Chrome process.
type Browser struct {
	opts          Options
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// New starts Chrome.
func New(ctx context.Context, opts Options) (*Browser, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = UserAgent
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 1440, 900
	}

	flags := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(opts.UserAgent),
		chromedp.WindowSize(opts.Width, opts.Height),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, flags...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	logger.Log.Info().Bool("headless", opts.Headless).Int("width", opts.Width).Int("height", opts.Height).Msg("browser started")

	return &Browser{
		opts:          opts,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close shuts the browser down together with every open page.
func (b *Browser) Close() {
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	logger.Log.Info().Msg("browser closed")
}

// Open loads url in a new tab.
func (b *Browser) Open(ctx context.Context, url string) (*Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	p := &Page{
		ctx:     tabCtx,
		cancel:  tabCancel,
		url:     url,
		actions: make(map[string]func()),
	}
	chromedp.ListenTarget(tabCtx, p.onEvent)

	// the first Run allocates the target, and the target's event loop lives
	// as long as the context passed to it, so it must be the tab context
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}

	openCtx, cancel := context.WithTimeout(ctx, defaultOpenTimeout)
	defer cancel()

	var location string
	err := p.run(openCtx,
		runtime.AddBinding(bindingName),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(b.opts.LoadDelay),
		chromedp.Location(&location),
	)
	if err != nil {
		tabCancel()
		return nil, fmt.Errorf("open %s: %w", url, err)
	}
	p.setURL(location)

	logger.Log.Debug().Str("url", url).Str("location", location).Msg("page opened")
	return p, nil
}

// onEvent runs on the chromedp event loop and must not block.
func (p *Page) onEvent(ev interface{}) {
	switch ev := ev.(type) {
	case *runtime.EventBindingCalled:
		if ev.Name != bindingName {
			return
		}
		p.mu.Lock()
		cb := p.actions[ev.Payload]
		p.mu.Unlock()
		if cb != nil {
			go cb()
		}
	case *page.EventFrameNavigated:
		if ev.Frame != nil && ev.Frame.ParentID == "" {
			p.mu.Lock()
			p.frame = ev.Frame.ID
			p.mu.Unlock()
			p.setURL(ev.Frame.URL + ev.Frame.URLFragment)
		}
	case *page.EventNavigatedWithinDocument:
		p.mu.Lock()
		main := p.frame == "" || p.frame == ev.FrameID
		p.mu.Unlock()
		if main {
			p.setURL(ev.URL)
		}
	}
}

func (p *Page) setURL(url string) {
	if url == "" {
		return
	}
	p.mu.Lock()
	p.url = url
	p.mu.Unlock()
}
