package cdp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/roach88/navexpect/internal/engine"
	"github.com/roach88/navexpect/internal/webnav"
)

// ErrUnknownTab is returned when Navigate targets a tab other than 0.
var ErrUnknownTab = errors.New("browser has a single tab (0)")

// Config holds the Chrome launch settings.
type Config struct {
	Headless     bool
	NoSandbox    bool
	ExecPath     string
	UserAgent    string
	WindowWidth  int
	WindowHeight int
	// NavigateTimeout bounds each Page.navigate call. Zero means no bound
	// beyond the caller's context.
	NavigateTimeout time.Duration
}

// DefaultConfig returns a headless configuration.
func DefaultConfig() Config {
	return Config{
		Headless:        true,
		WindowWidth:     1280,
		WindowHeight:    800,
		NavigateTimeout: 30 * time.Second,
	}
}

func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	return opts
}

// Browser is a Chrome tab implementing webnav.Browser.
type Browser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	cfg         Config
	logger      *slog.Logger

	tr    *translator
	norm  *webnav.Normalizer
	queue *webnav.Queue
	armed atomic.Bool

	closeOnce sync.Once
}

// Option configures a Browser.
type Option func(*Browser)

// WithLogger sets the logger for dropped or malformed protocol events.
func WithLogger(l *slog.Logger) Option {
	return func(b *Browser) {
		if l != nil {
			b.logger = l
		}
	}
}

// Launch starts Chrome, opens a tab and enables the protocol domains the
// lifecycle mapping needs.
func Launch(ctx context.Context, cfg Config, opts ...Option) (*Browser, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOptions(cfg)...)
	tabCtx, cancel := chromedp.NewContext(allocCtx)

	b := &Browser{
		ctx:         tabCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		cfg:         cfg,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		norm:        webnav.NewNormalizer(),
		queue:       webnav.NewQueue(),
	}
	for _, opt := range opts {
		opt(b)
	}

	// First Run allocates the browser and the tab.
	if err := chromedp.Run(tabCtx); err != nil {
		b.shutdown()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	b.tr = newTranslator(string(chromedp.FromContext(tabCtx).Target.TargetID), time.Now)

	chromedp.ListenTarget(tabCtx, b.listen)
	err := chromedp.Run(tabCtx,
		network.Enable(),
		page.Enable(),
		page.SetLifecycleEventsEnabled(true),
	)
	if err != nil {
		b.shutdown()
		return nil, fmt.Errorf("enable protocol domains: %w", err)
	}

	b.logger.Debug("chrome started", "headless", cfg.Headless)
	return b, nil
}

// listen runs on chromedp's event goroutine and must not block.
func (b *Browser) listen(ev any) {
	rec, ok := b.tr.translate(ev)
	if !ok || !b.armed.Load() {
		return
	}
	obs, err := b.norm.Normalize(rec)
	if err != nil {
		b.logger.Warn("dropping protocol event", "error", err)
		return
	}
	if !b.queue.Push(obs) {
		b.logger.Debug("event after close", "event", obs.Name)
	}
}

// Events implements webnav.Source.
func (b *Browser) Events() <-chan engine.ObservedEvent {
	return b.queue.Events()
}

// Navigate implements webnav.Navigator. The navigation is issued with the
// link transition type.
func (b *Browser) Navigate(ctx context.Context, tab int64, url string) error {
	if tab != 0 {
		return fmt.Errorf("navigate tab %d: %w", tab, ErrUnknownTab)
	}
	b.armed.Store(true)

	if b.cfg.NavigateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.NavigateTimeout)
		defer cancel()
	}

	// The tab context carries the chromedp executor; ctx only bounds the wait.
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(b.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			_, _, errText, _, err := page.Navigate(url).WithTransitionType(page.TransitionTypeLink).Do(ctx)
			if err != nil {
				return err
			}
			if errText != "" {
				return errors.New(errText)
			}
			return nil
		}))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("navigate to %s: %w", url, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("navigate to %s: %w", url, ctx.Err())
	}
}

// Close implements webnav.Source. It stops event delivery and shuts Chrome
// down.
func (b *Browser) Close() error {
	b.closeOnce.Do(func() {
		b.armed.Store(false)
		b.queue.Close()
		b.shutdown()
	})
	return nil
}

func (b *Browser) shutdown() {
	b.cancel()
	b.allocCancel()
}

var _ webnav.Browser = (*Browser)(nil)
