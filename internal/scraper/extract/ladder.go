package extract

import (
	"time"

	"careersync/internal/logging"
	"careersync/pkg/models"
)

// Technique names reported by the ladder
const (
	TechniqueStructured = "structured-dom"
	TechniqueJSONLD     = "json-ld"
	TechniqueFreeText   = "free-text"
)

// Ladder applies the three extraction techniques in strict priority
// order: structured listing elements, then embedded JSON-LD, then
// free-text pattern matching. The first technique that yields at least
// one record wins and the later ones are never evaluated.
type Ladder struct {
	selectors []string
	freeText  *FreeTextExtractor
	logger    logging.Logger
}

// NewLadder builds a ladder. A nil selector list means the default
// candidate selectors.
func NewLadder(selectors []string, freeText *FreeTextExtractor, logger logging.Logger) *Ladder {
	return &Ladder{
		selectors: selectors,
		freeText:  freeText,
		logger:    logger,
	}
}

// Extract runs the ladder against a document and returns the extracted
// records plus the name of the technique that produced them
func (l *Ladder) Extract(reader ElementReader) ([]models.RawJobData, string) {
	if jobs := ExtractStructured(reader, l.selectors); len(jobs) > 0 {
		l.logger.Debug("Extracted jobs from structured elements", map[string]interface{}{
			"count": len(jobs),
		})
		return jobs, TechniqueStructured
	}

	if jobs := ExtractJSONLD(reader); len(jobs) > 0 {
		l.logger.Debug("Extracted jobs from JSON-LD metadata", map[string]interface{}{
			"count": len(jobs),
		})
		return jobs, TechniqueJSONLD
	}

	if l.freeText != nil {
		if jobs := l.freeText.Extract(reader.Text(), time.Now()); len(jobs) > 0 {
			l.logger.Debug("Extracted jobs from page text", map[string]interface{}{
				"count": len(jobs),
			})
			return jobs, TechniqueFreeText
		}
	}

	return nil, ""
}
