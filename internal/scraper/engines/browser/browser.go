package browser

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"careersync/internal/config"
	"careersync/internal/logging"
	"careersync/internal/logging/types"
)

// Manager owns the shared browser process. The browser is launched lazily
// on the first session and reused until Cleanup; each fetch gets its own
// page so concurrent fetches never share DOM state.
type Manager struct {
	config   *config.Config
	logger   types.Logger
	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	headless bool
}

// Session is one page checked out of the manager for a single fetch.
type Session struct {
	Page    *rod.Page
	manager *Manager
	router  *rod.HijackRouter
}

// NewManager creates a browser manager. No browser process is started
// until the first session is requested.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		config: cfg,
		logger: logging.GetGlobalLogger(),
	}
}

// NewSession returns a fresh page on the shared browser, relaunching it
// when the requested headless mode differs from the running process.
func (m *Manager) NewSession(ctx context.Context, headless bool) (*Session, error) {
	browser, err := m.ensureBrowser(headless)
	if err != nil {
		return nil, err
	}

	var page *rod.Page
	if m.config.Browser.StealthMode {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	m.preparePage(page)

	return &Session{
		Page:    page,
		manager: m,
		router:  m.blockHeavyResources(page),
	}, nil
}

func (m *Manager) ensureBrowser(headless bool) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		if m.headless == headless && browserAlive(m.browser) {
			return m.browser, nil
		}
		m.closeLocked()
	}

	l := launcher.New().
		Headless(headless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-gpu").
		Set("disable-dev-shm-usage")

	if chromePath := m.findChromeBinary(); chromePath != "" {
		l = l.Bin(chromePath)
		m.logger.Info("Using system Chrome browser", map[string]interface{}{
			"chrome_path": chromePath,
		})
	} else {
		m.logger.Warn("System Chrome not found, browser will be downloaded", map[string]interface{}{})
	}

	if ua := m.config.Fetcher.UserAgent; ua != "" {
		l = l.Set("user-agent", ua)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	m.launcher = l
	m.browser = browser
	m.headless = headless

	m.logger.Info("Browser instance launched", map[string]interface{}{
		"headless": headless,
	})
	return browser, nil
}

// preparePage sets viewport, user agent, and request headers so the page
// profile matches a common desktop browser.
func (m *Manager) preparePage(page *rod.Page) {
	err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		m.logger.Warn("Failed to set viewport", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if ua := m.config.Fetcher.UserAgent; ua != "" {
		err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua})
		if err != nil {
			m.logger.Warn("Failed to set user agent", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	headers := map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"Upgrade-Insecure-Requests": "1",
	}
	for name, value := range headers {
		if _, err := page.SetExtraHeaders([]string{name, value}); err != nil {
			m.logger.Debug("Failed to set header", map[string]interface{}{
				"header": name,
				"error":  err.Error(),
			})
		}
	}
}

// blockHeavyResources drops image, stylesheet, font, and media requests.
// Careers pages are parsed, not rendered for humans, so the payloads are
// dead weight.
func (m *Manager) blockHeavyResources(page *rod.Page) *rod.HijackRouter {
	router := page.HijackRequests()

	err := router.Add("*", "", func(h *rod.Hijack) {
		switch h.Request.Type() {
		case proto.NetworkResourceTypeImage,
			proto.NetworkResourceTypeStylesheet,
			proto.NetworkResourceTypeFont,
			proto.NetworkResourceTypeMedia:
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		default:
			h.ContinueRequest(&proto.FetchContinueRequest{})
		}
	})
	if err != nil {
		m.logger.Warn("Failed to install resource blocking", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	go router.Run()
	return router
}

// Navigate drives the page to the URL, bounded by ctx.
func (s *Session) Navigate(ctx context.Context, url string) error {
	return rod.Try(func() {
		s.Page.Context(ctx).MustNavigate(url)
	})
}

// WaitForSelector waits until the selector matches a visible element.
func (s *Session) WaitForSelector(ctx context.Context, selector string) error {
	return rod.Try(func() {
		s.Page.Context(ctx).MustElement(selector).MustWaitVisible()
	})
}

// WaitLoadAndSettle waits for the load event then a fixed settle delay,
// giving client-side rendering time to fill the listing container.
func (s *Session) WaitLoadAndSettle(ctx context.Context, settle time.Duration) error {
	err := rod.Try(func() {
		s.Page.Context(ctx).MustWaitLoad()
	})
	if err != nil {
		return err
	}

	select {
	case <-time.After(settle):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HTML returns the full serialized DOM of the current page.
func (s *Session) HTML() (string, error) {
	html, err := s.Page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get page HTML: %w", err)
	}
	return html, nil
}

// Screenshot captures a full-page JPEG of the current page state.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	quality := 90
	data, err := s.Page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: &quality,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return data, nil
}

// InjectRecaptchaToken writes a solved reCAPTCHA token into the page and
// triggers the widget callback and any associated form submit.
func (s *Session) InjectRecaptchaToken(token string) error {
	js := fmt.Sprintf(`() => {
		const token = %q;
		const response = document.getElementById('g-recaptcha-response');
		if (response) {
			response.innerHTML = token;
		}
		document.querySelectorAll('[name="g-recaptcha-response"]').forEach(el => {
			el.value = token;
			el.innerHTML = token;
		});
		const widget = document.querySelector('.g-recaptcha');
		if (widget) {
			const callback = widget.getAttribute('data-callback');
			if (callback && typeof window[callback] === 'function') {
				window[callback](token);
			}
		}
		for (const form of document.querySelectorAll('form')) {
			if (form.querySelector('.g-recaptcha') || form.querySelector('[name="g-recaptcha-response"]')) {
				form.submit();
				break;
			}
		}
	}`, token)

	err := rod.Try(func() {
		s.Page.MustEval(js)
	})
	if err != nil {
		return fmt.Errorf("failed to inject reCAPTCHA token: %w", err)
	}
	return nil
}

// InjectTurnstileToken writes a solved Cloudflare Turnstile token into the
// page and triggers the widget callback and any associated form submit.
func (s *Session) InjectTurnstileToken(token string) error {
	js := fmt.Sprintf(`() => {
		const token = %q;
		document.querySelectorAll('input[name*="turnstile"]').forEach(el => {
			el.value = token;
		});
		for (const widget of document.querySelectorAll('[data-sitekey]')) {
			let input = widget.querySelector('input[name="cf-turnstile-response"]');
			if (!input) {
				input = document.createElement('input');
				input.type = 'hidden';
				input.name = 'cf-turnstile-response';
				widget.appendChild(input);
			}
			input.value = token;
			const callback = widget.getAttribute('data-callback');
			if (callback && typeof window[callback] === 'function') {
				window[callback](token);
			}
		}
		for (const form of document.querySelectorAll('form')) {
			if (form.querySelector('[data-sitekey]') || form.querySelector('input[name*="turnstile"]')) {
				form.submit();
				break;
			}
		}
	}`, token)

	err := rod.Try(func() {
		s.Page.MustEval(js)
	})
	if err != nil {
		return fmt.Errorf("failed to inject Turnstile token: %w", err)
	}
	return nil
}

// Close releases the page and its request router. Safe to call on every
// exit path; a leaked page outlives the fetch and pins browser memory.
func (s *Session) Close() {
	if s.router != nil {
		if err := rod.Try(func() { s.router.MustStop() }); err != nil {
			s.manager.logger.Debug("Failed to stop hijack router", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	if s.Page != nil {
		if err := rod.Try(func() { s.Page.MustClose() }); err != nil {
			s.manager.logger.Debug("Failed to close page", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

// Cleanup closes the browser process and launcher resources.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
	m.logger.Info("Browser manager cleanup completed", map[string]interface{}{})
}

func (m *Manager) closeLocked() {
	if m.browser != nil {
		if err := rod.Try(func() { m.browser.MustClose() }); err != nil {
			m.logger.Debug("Failed to close browser", map[string]interface{}{
				"error": err.Error(),
			})
		}
		m.browser = nil
	}
	if m.launcher != nil {
		m.launcher.Cleanup()
		m.launcher = nil
	}
}

// IsHealthy reports whether the manager can serve sessions. A manager
// that has not launched yet is healthy; it will launch on demand.
func (m *Manager) IsHealthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser == nil {
		return true
	}
	return browserAlive(m.browser)
}

func browserAlive(browser *rod.Browser) bool {
	return rod.Try(func() { browser.MustPages() }) == nil
}

// findChromeBinary locates a system Chrome/Chromium install, preferring
// explicit configuration over well-known paths.
func (m *Manager) findChromeBinary() string {
	candidates := []string{
		os.Getenv("CHROME_BIN"),
		os.Getenv("CHROME_PATH"),
		m.config.Browser.ChromePath,
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/opt/google/chrome/chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}

	for _, path := range candidates {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
