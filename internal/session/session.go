// Package session owns the single long-lived headless browser process and
// the one reusable browsing context shared by every extractor. Keeping one
// warm context with persisted cookies avoids the "fresh session" signal
// that bot defenses key on.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playwright-community/playwright-go"
)

// stealthInit masks the automation markers a headless Chromium exposes by
// default. Injected into every page of the context before any site script
// runs.
const stealthInit = `() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
	Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
}`

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	StateFile      string
	ProxyServer    string
	ProxyUsername  string
	ProxyPassword  string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        60 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1366,
		ViewportHeight: 768,
		StateFile:      "browser-state.json",
	}
}

// Manager lazily launches one browser process and one browsing context and
// reuses them for every extraction until Close. mu guards the playwright
// handles; initializing is the launch guard.
type Manager struct {
	opts *Options

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext

	initializing atomic.Bool
	launchFn     func() error
	logger       *slog.Logger
}

func New(opts *Options) *Manager {
	if opts == nil {
		opts = DefaultOptions()
	}
	m := &Manager{
		opts:   opts,
		logger: slog.Default().With("component", "session"),
	}
	m.launchFn = m.launch
	return m
}

// Context returns the shared browsing context, launching the browser on
// first use. The launch is gated by a compare-and-swap on the initializing
// flag: exactly one caller wins and launches, every loser polls until the
// winner finishes, so a concurrent first-use fan-out never starts a second
// browser process.
func (m *Manager) Context(ctx context.Context) (playwright.BrowserContext, error) {
	for {
		if bc := m.liveContext(); bc != nil {
			return bc, nil
		}

		if m.initializing.CompareAndSwap(false, true) {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	defer m.initializing.Store(false)

	// Winning the swap does not mean the browser is down; a previous winner
	// may have finished launching between our check and the swap.
	if bc := m.liveContext(); bc != nil {
		return bc, nil
	}

	if err := m.launchFn(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.context, nil
}

// liveContext returns the shared context when the browser behind it is
// still connected, nil otherwise.
func (m *Manager) liveContext() playwright.BrowserContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.browser != nil && m.browser.IsConnected() && m.context != nil {
		return m.context
	}
	return nil
}

// launch starts playwright, the browser process and the shared context.
// Only the caller holding the initializing flag runs it, so the build uses
// locals and publishes the handles under mu in one step at the end.
func (m *Manager) launch() error {
	m.logger.Info("launching persistent browser", "headless", m.opts.Headless)

	m.mu.Lock()
	pw := m.pw
	m.mu.Unlock()

	if pw == nil {
		started, err := playwright.Run()
		if err != nil {
			return fmt.Errorf("failed to start playwright: %w", err)
		}
		pw = started
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.opts.Headless),
		Args: []string{
			"--disable-http2",
			"--disable-blink-features=AutomationControlled",
			"--disable-features=IsolateOrigins,site-per-process,SitePerProcess",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			"--ignore-certificate-errors",
			"--disable-dev-shm-usage",
			"--disable-web-security",
			"--disable-features=VizDisplayCompositor",
		},
	}

	if m.opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{
			Server: m.opts.ProxyServer,
		}
		if m.opts.ProxyUsername != "" {
			launchOpts.Proxy.Username = playwright.String(m.opts.ProxyUsername)
			launchOpts.Proxy.Password = playwright.String(m.opts.ProxyPassword)
		}
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(m.opts.UserAgent),
		Viewport: &playwright.Size{
			Width:  m.opts.ViewportWidth,
			Height: m.opts.ViewportHeight,
		},
	}

	// Seed the new context from the previous run's cookies/local storage so
	// the session survives process restarts.
	if _, err := os.Stat(m.opts.StateFile); err == nil {
		contextOpts.StorageStatePath = playwright.String(m.opts.StateFile)
		m.logger.Info("seeding context from saved session state", "file", m.opts.StateFile)
	}

	browserContext, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		return fmt.Errorf("failed to create browser context: %w", err)
	}

	if err := browserContext.AddInitScript(playwright.Script{Content: playwright.String(stealthInit)}); err != nil {
		browserContext.Close()
		browser.Close()
		return fmt.Errorf("failed to add stealth init script: %w", err)
	}

	m.mu.Lock()
	m.pw = pw
	m.browser = browser
	m.context = browserContext
	m.mu.Unlock()

	m.logger.Info("browser context ready")
	return nil
}

// NewPage opens a page on the shared context.
func (m *Manager) NewPage(ctx context.Context) (playwright.Page, error) {
	browserContext, err := m.Context(ctx)
	if err != nil {
		return nil, err
	}

	page, err := browserContext.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(float64(m.opts.Timeout.Milliseconds()))

	return page, nil
}

// NavigateHumanlike performs the fixed pre-navigation ritual (randomized
// wait and pointer movement) and then loads the URL. The ritual is not
// optional instrumentation; skipping it is itself a detection signal.
func (m *Manager) NavigateHumanlike(page playwright.Page, url string) error {
	time.Sleep(time.Second + time.Duration(rand.Int63n(int64(2*time.Second))))

	x := float64(100 + rand.Intn(300))
	y := float64(100 + rand.Intn(300))
	page.Mouse().Move(x, y)

	time.Sleep(500*time.Millisecond + time.Duration(rand.Int63n(int64(time.Second))))

	_, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(m.opts.Timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	return nil
}

// SaveState serializes the context's cookies and local storage to the state
// file. Called after every extraction.
func (m *Manager) SaveState() error {
	m.mu.Lock()
	bc := m.context
	m.mu.Unlock()

	return saveState(bc, m.opts.StateFile)
}

func saveState(bc playwright.BrowserContext, file string) error {
	if bc == nil {
		return nil
	}
	if _, err := bc.StorageState(file); err != nil {
		return fmt.Errorf("failed to save session state: %w", err)
	}
	return nil
}

// Active reports whether the browser process is up and connected.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.browser != nil && m.browser.IsConnected()
}

// Close saves state and tears everything down. The handles are detached
// under the lock and closed outside it, so a slow browser shutdown never
// stalls Active or SaveState callers.
func (m *Manager) Close() error {
	m.mu.Lock()
	bc := m.context
	browser := m.browser
	pw := m.pw
	m.context = nil
	m.browser = nil
	m.pw = nil
	m.mu.Unlock()

	var errs []error

	if bc != nil {
		if err := saveState(bc, m.opts.StateFile); err != nil {
			m.logger.Warn("failed to save state on close", "error", err)
		}
		if err := bc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if browser != nil {
		if err := browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if pw != nil {
		if err := pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}

// Reset closes the browser and deletes the persisted session state.
func (m *Manager) Reset() error {
	if err := m.Close(); err != nil {
		return err
	}
	if err := os.Remove(m.opts.StateFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}
