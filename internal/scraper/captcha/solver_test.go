package captcha

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectCaptcha(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		detected bool
		key      string
	}{
		{
			name:     "recaptcha widget",
			content:  `<div class="g-recaptcha" data-sitekey="6LdXyZAbCdEfGhIjKlMnOpQrStUvWxYz"></div>`,
			detected: true,
			key:      "6LdXyZAbCdEfGhIjKlMnOpQrStUvWxYz",
		},
		{
			name:     "turnstile widget",
			content:  `<div class="cf-turnstile" data-sitekey="0x4AAAAAAABkMYinukE8nzKd"></div>`,
			detected: true,
			key:      "turnstile:0x4AAAAAAABkMYinukE8nzKd",
		},
		{
			name:     "cloudflare challenge page without widget key",
			content:  `<html><body><h1>Just a moment...</h1><p>Checking your browser before accessing</p></body></html>`,
			detected: true,
			key:      "cloudflare",
		},
		{
			name:     "plain careers page",
			content:  `<html><body><h1>Open Positions</h1><div class="job-listing">Engineer</div></body></html>`,
			detected: false,
			key:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detected, key, err := DetectCaptcha(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.detected, detected)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestIsCloudflareResolved(t *testing.T) {
	challenge := `<html><body>Just a moment... checking your browser</body></html>`
	assert.False(t, IsCloudflareResolved(challenge))

	content := `<html><head><title>Careers at Acme</title></head><body><main>
		<h1>Open positions</h1><a href="/jobs/1">Apply</a></main></body></html>`
	assert.True(t, IsCloudflareResolved(content))
}

func TestDomainLedgerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captcha-domains.txt")

	ledger := NewDomainLedger(path)
	assert.False(t, ledger.IsKnown("https://www.protected.example/careers"))

	require.NoError(t, ledger.Add("https://www.protected.example/careers"))
	assert.True(t, ledger.IsKnown("https://protected.example/jobs"))
	assert.Equal(t, 1, ledger.Count())

	// Adding the same domain again is a no-op.
	require.NoError(t, ledger.Add("https://protected.example/other"))
	assert.Equal(t, 1, ledger.Count())

	// A fresh ledger over the same file sees the persisted domain.
	reloaded := NewDomainLedger(path)
	assert.True(t, reloaded.IsKnown("https://protected.example"))
	assert.Equal(t, 1, reloaded.Count())

	known := reloaded.Known()
	_, ok := known["protected.example"]
	assert.True(t, ok)
}

func TestDomainLedgerRejectsUnparsableURL(t *testing.T) {
	ledger := NewDomainLedger(filepath.Join(t.TempDir(), "domains.txt"))

	err := ledger.Add("not a url")
	require.Error(t, err)
	assert.False(t, ledger.IsKnown("not a url"))
}
