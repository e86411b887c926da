package captcha

import (
	"context"
	"fmt"
	"strings"
	"time"

	api2captcha "github.com/2captcha/2captcha-go"

	"careersync/internal/config"
	"careersync/internal/logging"
	"careersync/internal/logging/types"
	"careersync/pkg/utils"
)

// Solver solves captcha challenges encountered on careers pages.
type Solver interface {
	SolveRecaptcha(ctx context.Context, siteKey, pageURL string) (string, error)
	SolveTurnstile(ctx context.Context, siteKey, pageURL string) (string, error)
	IsHealthy() bool
}

// TwoCaptchaSolver implements Solver using the 2CAPTCHA service.
type TwoCaptchaSolver struct {
	config *config.Config
	client *api2captcha.Client
	logger types.Logger
}

// NewTwoCaptchaSolver creates a solver backed by the configured 2CAPTCHA key.
func NewTwoCaptchaSolver(cfg *config.Config) *TwoCaptchaSolver {
	logger := logging.GetGlobalLogger().WithField("component", "2captcha")

	if cfg.Captcha.APIKey == "" {
		logger.Warn("2CAPTCHA API key not configured, captcha solving disabled", nil)
	}

	client := api2captcha.NewClient(cfg.Captcha.APIKey)
	client.DefaultTimeout = int(cfg.Captcha.Timeout.Seconds())
	client.RecaptchaTimeout = int(cfg.Captcha.Timeout.Seconds())
	client.PollingInterval = 5

	return &TwoCaptchaSolver{
		config: cfg,
		client: client,
		logger: logger,
	}
}

// SolveRecaptcha solves a reCAPTCHA v2 challenge.
func (tcs *TwoCaptchaSolver) SolveRecaptcha(ctx context.Context, siteKey, pageURL string) (string, error) {
	if err := tcs.checkEnabled(); err != nil {
		return "", err
	}

	tcs.logger.Info("Solving reCAPTCHA challenge", map[string]interface{}{
		"site_key": siteKey,
		"page_url": pageURL,
	})

	startTime := time.Now()
	challenge := api2captcha.ReCaptcha{
		SiteKey: siteKey,
		Url:     pageURL,
	}

	code, _, err := tcs.client.Solve(challenge.ToRequest())
	if err != nil {
		return "", fmt.Errorf("failed to solve reCAPTCHA: %w", err)
	}

	tcs.logger.Info("Solved reCAPTCHA challenge", map[string]interface{}{
		"page_url":     pageURL,
		"solving_time": time.Since(startTime).String(),
	})
	return code, nil
}

// SolveTurnstile solves a Cloudflare Turnstile challenge.
func (tcs *TwoCaptchaSolver) SolveTurnstile(ctx context.Context, siteKey, pageURL string) (string, error) {
	if err := tcs.checkEnabled(); err != nil {
		return "", err
	}

	tcs.logger.Info("Solving Cloudflare Turnstile challenge", map[string]interface{}{
		"site_key": siteKey,
		"page_url": pageURL,
	})

	startTime := time.Now()
	challenge := api2captcha.CloudflareTurnstile{
		SiteKey: siteKey,
		Url:     pageURL,
	}

	code, _, err := tcs.client.Solve(challenge.ToRequest())
	if err != nil {
		return "", fmt.Errorf("failed to solve Cloudflare Turnstile: %w", err)
	}

	tcs.logger.Info("Solved Cloudflare Turnstile challenge", map[string]interface{}{
		"page_url":     pageURL,
		"solving_time": time.Since(startTime).String(),
	})
	return code, nil
}

func (tcs *TwoCaptchaSolver) checkEnabled() error {
	if !tcs.config.Captcha.EnableAutoSolve {
		return fmt.Errorf("captcha auto-solve is disabled")
	}
	if tcs.config.Captcha.APIKey == "" {
		return fmt.Errorf("2CAPTCHA API key not configured")
	}
	return nil
}

// IsHealthy verifies the API key by checking the account balance.
func (tcs *TwoCaptchaSolver) IsHealthy() bool {
	if tcs.config.Captcha.APIKey == "" {
		return false
	}

	balance, err := tcs.client.GetBalance()
	if err != nil {
		tcs.logger.Error("2CAPTCHA health check failed", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}

	return balance >= 0
}

// DetectCaptcha reports whether the page content contains a captcha
// challenge, and which one. The returned key is the raw site key for
// reCAPTCHA, "turnstile:<key>" for Turnstile, or "cloudflare" for a
// Cloudflare challenge page whose widget key could not be located.
func DetectCaptcha(pageContent string) (bool, string, error) {
	lower := strings.ToLower(pageContent)

	if strings.Contains(lower, "g-recaptcha") || strings.Contains(lower, "recaptcha") {
		if siteKey := extractRecaptchaSiteKey(pageContent); siteKey != "" {
			return true, siteKey, nil
		}
	}

	if strings.Contains(lower, "turnstile") || strings.Contains(lower, "cf-turnstile") {
		if siteKey := extractTurnstileSiteKey(pageContent); siteKey != "" {
			return true, "turnstile:" + siteKey, nil
		}
	}

	cloudflareIndicators := []string{
		"cf-challenge",
		"just a moment",
		"checking your browser",
		"ddos protection by cloudflare",
		"enable javascript and cookies",
		"cf-browser-verification",
		"__cf_chl_jschl_tk__",
		"performance & security by cloudflare",
	}

	for _, indicator := range cloudflareIndicators {
		if strings.Contains(lower, indicator) {
			if siteKey := extractTurnstileSiteKey(pageContent); siteKey != "" {
				return true, "turnstile:" + siteKey, nil
			}
			return true, "cloudflare", nil
		}
	}

	return false, "", nil
}

// extractRecaptchaSiteKey extracts the reCAPTCHA site key from HTML content.
func extractRecaptchaSiteKey(html string) string {
	patterns := []string{
		`data-sitekey="([^"]+)"`,
		`data-sitekey='([^']+)'`,
		`"sitekey"\s*:\s*"([^"]+)"`,
		`'sitekey'\s*:\s*'([^']+)'`,
	}

	for _, pattern := range patterns {
		if matches := utils.FindRegexMatch(html, pattern); len(matches) > 1 {
			return matches[1]
		}
	}

	return ""
}

// extractTurnstileSiteKey extracts the Cloudflare Turnstile site key from
// HTML content, covering both widget markup and challenge-page iframes.
func extractTurnstileSiteKey(html string) string {
	patterns := []string{
		`(?:turnstile|cf-turnstile)[^>]*data-sitekey="([^"]+)"`,
		`data-sitekey="([^"]+)"[^>]*(?:turnstile|cf-turnstile)`,
		`<div[^>]*class="[^"]*cf-turnstile[^"]*"[^>]*data-sitekey="([^"]+)"`,
		`turnstile\.render\([^)]*['"]([0-9a-zA-Z_-]{20,})['"]`,
		`"sitekey"\s*:\s*"([^"]+)".*?turnstile`,
		`turnstile.*?"sitekey"\s*:\s*"([^"]+)"`,
		`challenges\.cloudflare\.com[^"]*/(0x[0-9a-zA-Z_-]+)/`,
		`challenges\.cloudflare\.com[^"]*?(0x[0-9a-zA-Z_-]{20,})[^"]*`,
	}

	for _, pattern := range patterns {
		if matches := utils.FindRegexMatch(html, pattern); len(matches) > 1 {
			siteKey := strings.TrimSpace(matches[1])
			if len(siteKey) > 10 {
				return siteKey
			}
		}
	}

	return ""
}

// IsCloudflareResolved reports whether the page has moved past a
// Cloudflare challenge onto real content.
func IsCloudflareResolved(pageContent string) bool {
	lower := strings.ToLower(pageContent)

	challengeIndicators := []string{
		"cf-challenge",
		"just a moment",
		"checking your browser",
		"enable javascript and cookies",
		"cf-browser-verification",
		"__cf_chl_jschl_tk__",
		"performance & security by cloudflare",
	}

	for _, indicator := range challengeIndicators {
		if strings.Contains(lower, indicator) {
			return false
		}
	}

	contentIndicators := []string{
		"<title>",
		"careers",
		"open positions",
		"job",
		"apply",
		"<main",
		"<article",
		"<section",
	}

	indicatorCount := 0
	for _, indicator := range contentIndicators {
		if strings.Contains(lower, indicator) {
			indicatorCount++
		}
	}

	return indicatorCount >= 3
}
