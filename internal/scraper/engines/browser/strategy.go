package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"careersync/internal/config"
	"careersync/internal/logging"
	"careersync/internal/logging/types"
	"careersync/internal/scraper/captcha"
	"careersync/internal/scraper/extract"
	"careersync/pkg/models"
	"careersync/pkg/utils"
)

// Strategy fetches careers pages through a headless browser, so listings
// rendered client-side are visible to the extraction ladder. It is the
// fallback for pages the plain HTTP strategy cannot read.
type Strategy struct {
	config  *config.Config
	manager *Manager
	solver  captcha.Solver
	ledger  *captcha.DomainLedger
	spaces  *utils.SpacesClient
	ladder  *extract.Ladder
	phrases []string
	logger  types.Logger
}

// NewStrategy creates a browser strategy with its own browser manager,
// captcha solver, and captcha domain ledger.
func NewStrategy(cfg *config.Config) (*Strategy, error) {
	logger := logging.GetGlobalLogger()

	freeText, err := extract.NewFreeTextExtractor(cfg.GetTitlePattern())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize title pattern: %w", err)
	}

	var spaces *utils.SpacesClient
	if cfg.Spaces.AccessKeyID != "" && cfg.Spaces.AccessKeySecret != "" && cfg.Spaces.BucketName != "" {
		spaces, err = utils.NewSpacesClient(cfg)
		if err != nil {
			logger.Warn("Spaces client unavailable, debug screenshots stay local", map[string]interface{}{
				"error": err.Error(),
			})
			spaces = nil
		}
	}

	return &Strategy{
		config:  cfg,
		manager: NewManager(cfg),
		solver:  captcha.NewTwoCaptchaSolver(cfg),
		ledger:  captcha.NewDomainLedger(""),
		spaces:  spaces,
		ladder:  extract.NewLadder(nil, freeText, logger),
		phrases: cfg.GetNoOpeningsPhrases(),
		logger:  logger,
	}, nil
}

func (s *Strategy) Name() string {
	return "browser"
}

// CanHandle reports whether this strategy can fetch the given source.
func (s *Strategy) CanHandle(cfg *models.SourceConfig) bool {
	return cfg != nil && strings.TrimSpace(cfg.CareersURL) != ""
}

// FetchJobs renders the careers page and extracts raw job records,
// retrying with linear backoff between attempts.
func (s *Strategy) FetchJobs(ctx context.Context, cfg *models.SourceConfig) ([]models.RawJobData, error) {
	pageURL := normalizePageURL(cfg.CareersURL)
	retries := cfg.GetRetries()

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		if attempt > 1 {
			if err := sleepWithContext(ctx, time.Duration(attempt-1)*time.Second); err != nil {
				return nil, err
			}
		}

		jobs, err := s.fetchOnce(ctx, cfg, pageURL)
		if err == nil {
			return jobs, nil
		}
		lastErr = err

		s.logger.Warn("Browser fetch attempt failed", map[string]interface{}{
			"url":     pageURL,
			"attempt": attempt,
			"retries": retries,
			"error":   err.Error(),
		})
	}

	return nil, fmt.Errorf("browser fetch failed after %d attempts: %w", retries, lastErr)
}

// fetchOnce runs one full navigate-wait-extract cycle on a fresh page.
// The page is torn down on every exit path, including panics from the
// browser driver.
func (s *Strategy) fetchOnce(ctx context.Context, cfg *models.SourceConfig, pageURL string) (jobs []models.RawJobData, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("browser fetch panicked: %v", r)
		}
	}()

	headless := s.config.Browser.HeadlessMode
	if cfg.Options != nil && cfg.Options.Headless != nil {
		headless = *cfg.Options.Headless
	}

	session, err := s.manager.NewSession(ctx, headless)
	if err != nil {
		return nil, fmt.Errorf("failed to open browser session: %w", err)
	}
	defer session.Close()

	navCtx, cancel := context.WithTimeout(ctx, cfg.GetTimeout())
	defer cancel()
	if err := session.Navigate(navCtx, pageURL); err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", pageURL, err)
	}

	s.layeredWait(ctx, session, cfg, pageURL)

	html, err := session.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}

	if detected, challenge, _ := captcha.DetectCaptcha(html); detected {
		if err := s.resolveCaptcha(ctx, session, cfg, pageURL, challenge); err != nil {
			if cfg.IsDebug() || s.config.Browser.Debug {
				s.captureDebugScreenshot(ctx, session, cfg)
			}
			return nil, err
		}
	}

	reader := session.Reader()

	if phrase := s.matchNoOpenings(reader.Text()); phrase != "" {
		s.logger.Info("Careers page reports no open positions", map[string]interface{}{
			"url":        pageURL,
			"company_id": cfg.CompanyID,
			"phrase":     phrase,
		})
		return []models.RawJobData{}, nil
	}

	records, technique := s.ladder.Extract(reader)

	if cfg.IsDebug() || s.config.Browser.Debug {
		s.captureDebugScreenshot(ctx, session, cfg)
	}

	s.logger.Info("Browser fetch extracted job records", map[string]interface{}{
		"url":        pageURL,
		"company_id": cfg.CompanyID,
		"count":      len(records),
		"technique":  technique,
	})

	if records == nil {
		records = []models.RawJobData{}
	}
	return records, nil
}

// layeredWait gives the page its best chance to finish rendering: the
// configured listing selector first, then load plus a settle delay.
// Hosts with a captcha history get double the settle time since their
// real content lands late.
func (s *Strategy) layeredWait(ctx context.Context, session *Session, cfg *models.SourceConfig, pageURL string) {
	timeout := cfg.GetTimeout()

	if selector := cfg.GetSelector(); selector != "" {
		waitCtx, cancel := context.WithTimeout(ctx, timeout)
		err := session.WaitForSelector(waitCtx, selector)
		cancel()
		if err == nil {
			return
		}
		s.logger.Debug("Content selector did not appear, falling back to load wait", map[string]interface{}{
			"url":      pageURL,
			"selector": selector,
		})
	}

	settle := s.config.Browser.SettleDelay
	if s.ledger.IsKnown(pageURL) {
		settle *= 2
	}

	loadCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := session.WaitLoadAndSettle(loadCtx, settle); err != nil {
		s.logger.Debug("Load wait incomplete, proceeding with current DOM", map[string]interface{}{
			"url":   pageURL,
			"error": err.Error(),
		})
	}
}

// resolveCaptcha attempts to get past a detected challenge. The domain is
// recorded first so future fetches of this host wait longer up front.
func (s *Strategy) resolveCaptcha(ctx context.Context, session *Session, cfg *models.SourceConfig, pageURL, challenge string) error {
	if err := s.ledger.Add(pageURL); err != nil {
		s.logger.Debug("Could not record captcha domain", map[string]interface{}{
			"url":   pageURL,
			"error": err.Error(),
		})
	}

	s.logger.Warn("Captcha challenge detected", map[string]interface{}{
		"url":       pageURL,
		"challenge": challenge,
	})

	if challenge == "cloudflare" {
		return s.awaitCloudflare(ctx, session, pageURL)
	}

	if !s.config.Captcha.EnableAutoSolve || s.config.Captcha.APIKey == "" {
		return utils.NewCaptchaError(fmt.Sprintf("captcha detected at %s and auto-solve is not configured", pageURL))
	}

	var err error
	if key, ok := strings.CutPrefix(challenge, "turnstile:"); ok {
		var token string
		token, err = s.solver.SolveTurnstile(ctx, key, pageURL)
		if err == nil {
			err = session.InjectTurnstileToken(token)
		}
	} else {
		var token string
		token, err = s.solver.SolveRecaptcha(ctx, challenge, pageURL)
		if err == nil {
			err = session.InjectRecaptchaToken(token)
		}
	}
	if err != nil {
		return utils.NewCaptchaError(fmt.Sprintf("failed to solve captcha at %s: %v", pageURL, err))
	}

	s.layeredWait(ctx, session, cfg, pageURL)

	html, err := session.HTML()
	if err != nil {
		return fmt.Errorf("failed to read page content after captcha solve: %w", err)
	}
	if detected, _, _ := captcha.DetectCaptcha(html); detected {
		return utils.NewCaptchaError(fmt.Sprintf("captcha at %s persisted after solving", pageURL))
	}

	return nil
}

// awaitCloudflare polls for a JavaScript-only Cloudflare challenge to
// clear on its own. There is no widget key to hand a solver here.
func (s *Strategy) awaitCloudflare(ctx context.Context, session *Session, pageURL string) error {
	for i := 0; i < 5; i++ {
		if err := sleepWithContext(ctx, 2*time.Second); err != nil {
			return err
		}

		html, err := session.HTML()
		if err != nil {
			return fmt.Errorf("failed to read page content: %w", err)
		}
		if captcha.IsCloudflareResolved(html) {
			s.logger.Info("Cloudflare challenge cleared", map[string]interface{}{
				"url": pageURL,
			})
			return nil
		}
	}

	return utils.NewCaptchaError(fmt.Sprintf("cloudflare challenge at %s did not clear", pageURL))
}

// captureDebugScreenshot saves a full-page screenshot, uploading to
// Spaces when configured and falling back to the local screenshot dir.
func (s *Strategy) captureDebugScreenshot(ctx context.Context, session *Session, cfg *models.SourceConfig) {
	data, err := session.Screenshot(ctx)
	if err != nil {
		s.logger.Warn("Failed to capture debug screenshot", map[string]interface{}{
			"company_id": cfg.CompanyID,
			"error":      err.Error(),
		})
		return
	}

	name := fmt.Sprintf("%s-%d", cfg.CompanyID, time.Now().UnixMilli())

	if s.spaces != nil {
		if url, err := s.spaces.UploadScreenshot(name, data); err == nil {
			s.logger.Info("Debug screenshot uploaded", map[string]interface{}{
				"company_id":     cfg.CompanyID,
				"screenshot_url": url,
			})
			return
		}
		s.logger.Warn("Screenshot upload failed, saving locally", map[string]interface{}{
			"company_id": cfg.CompanyID,
		})
	}

	dir := s.config.Browser.ScreenshotDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.logger.Warn("Failed to create screenshot directory", map[string]interface{}{
			"dir":   dir,
			"error": err.Error(),
		})
		return
	}

	path := filepath.Join(dir, name+".jpg")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Warn("Failed to write screenshot", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return
	}

	s.logger.Info("Debug screenshot saved", map[string]interface{}{
		"company_id": cfg.CompanyID,
		"path":       path,
	})
}

func (s *Strategy) matchNoOpenings(text string) string {
	lower := strings.ToLower(text)
	for _, phrase := range s.phrases {
		if phrase == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return phrase
		}
	}
	return ""
}

// Cleanup closes the shared browser process.
func (s *Strategy) Cleanup() {
	s.manager.Cleanup()
}

// IsHealthy reports whether the browser manager can serve sessions.
func (s *Strategy) IsHealthy() bool {
	return s.manager.IsHealthy()
}

func normalizePageURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	if !strings.Contains(raw, "://") {
		return "https://" + raw
	}
	return raw
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
