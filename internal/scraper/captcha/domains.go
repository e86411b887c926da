package captcha

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"careersync/internal/logging"
	"careersync/internal/logging/types"
	"careersync/pkg/utils"
)

// DomainLedger remembers which careers-page domains sit behind captcha
// walls, so future fetches can be routed to an engine that copes with
// them without burning a browser attempt first. Persisted as a plain
// tab-separated text file across restarts.
type DomainLedger struct {
	path    string
	domains map[string]time.Time
	mu      sync.RWMutex
	logger  types.Logger
}

func defaultLedgerPath() string {
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		return filepath.Join(dataDir, "captcha-domains.txt")
	}
	return "captcha-domains.txt"
}

// NewDomainLedger creates a ledger backed by the given file. An empty
// path falls back to DATA_DIR/captcha-domains.txt.
func NewDomainLedger(path string) *DomainLedger {
	if path == "" {
		path = defaultLedgerPath()
	}

	ledger := &DomainLedger{
		path:    path,
		domains: make(map[string]time.Time),
		logger:  logging.GetGlobalLogger(),
	}

	if err := ledger.load(); err != nil {
		ledger.logger.Error("Failed to load captcha domain ledger", map[string]interface{}{
			"file":  path,
			"error": err.Error(),
		})
	}

	return ledger
}

// IsKnown reports whether the URL's domain previously hit a captcha wall.
func (dl *DomainLedger) IsKnown(urlStr string) bool {
	domain, err := utils.ExtractDomain(urlStr)
	if err != nil {
		return false
	}

	dl.mu.RLock()
	defer dl.mu.RUnlock()
	_, exists := dl.domains[domain]
	return exists
}

// Add records the URL's domain as captcha-protected and persists the ledger.
func (dl *DomainLedger) Add(urlStr string) error {
	domain, err := utils.ExtractDomain(urlStr)
	if err != nil {
		return fmt.Errorf("failed to extract domain from %s: %w", urlStr, err)
	}

	dl.mu.Lock()
	defer dl.mu.Unlock()

	if _, exists := dl.domains[domain]; exists {
		return nil
	}
	dl.domains[domain] = time.Now()

	dl.logger.Info("Recorded captcha-protected domain", map[string]interface{}{
		"domain":      domain,
		"total_count": len(dl.domains),
	})

	if err := dl.save(); err != nil {
		dl.logger.Error("Failed to persist captcha domain ledger", map[string]interface{}{
			"file":  dl.path,
			"error": err.Error(),
		})
	}
	return nil
}

// Known returns a copy of all recorded domains with their first-seen times.
func (dl *DomainLedger) Known() map[string]time.Time {
	dl.mu.RLock()
	defer dl.mu.RUnlock()

	known := make(map[string]time.Time, len(dl.domains))
	for domain, firstSeen := range dl.domains {
		known[domain] = firstSeen
	}
	return known
}

// Count returns the number of recorded domains.
func (dl *DomainLedger) Count() int {
	dl.mu.RLock()
	defer dl.mu.RUnlock()
	return len(dl.domains)
}

func (dl *DomainLedger) load() error {
	file, err := os.Open(dl.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open ledger file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "\t", 2)
		firstSeen := time.Now()
		if len(parts) > 1 {
			if parsed, err := time.Parse(time.RFC3339, parts[1]); err == nil {
				firstSeen = parsed
			}
		}
		dl.domains[parts[0]] = firstSeen
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading ledger file: %w", err)
	}
	return nil
}

func (dl *DomainLedger) save() error {
	file, err := os.Create(dl.path)
	if err != nil {
		return fmt.Errorf("failed to create ledger file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# Captcha-protected domains (automatically managed)")
	fmt.Fprintln(file, "# Format: domain\\tfirst_seen_timestamp")
	fmt.Fprintln(file)

	for domain, firstSeen := range dl.domains {
		fmt.Fprintf(file, "%s\t%s\n", domain, firstSeen.Format(time.RFC3339))
	}
	return nil
}
