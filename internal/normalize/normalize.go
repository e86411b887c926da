package normalize

import (
	"time"

	"careersync/internal/logging"
	"careersync/pkg/models"
)

// Normalizer converts raw scraped records into canonical jobs
type Normalizer struct {
	logger    logging.Logger
	sanitizer *DescriptionSanitizer
}

// New creates a normalizer that logs through the given logger
func New(logger logging.Logger) *Normalizer {
	return &Normalizer{
		logger:    logger,
		sanitizer: NewDescriptionSanitizer(),
	}
}

// NormalizeJobs converts a batch of raw records, dropping any without a
// resolvable title. Every record in a batch shares one processedAt
// timestamp so batch members carry identical processing time.
func (n *Normalizer) NormalizeJobs(rawJobs []models.RawJobData, source models.JobSource) []models.NormalizedJob {
	processedAt := time.Now()

	normalized := make([]models.NormalizedJob, 0, len(rawJobs))
	for _, raw := range rawJobs {
		job := n.normalizeJob(raw, source, processedAt)
		if job == nil {
			continue
		}
		normalized = append(normalized, *job)
	}

	// Dropped records are a data-quality signal, not an error.
	if dropped := len(rawJobs) - len(normalized); dropped > 0 {
		n.logger.Debug("Dropped records without a resolvable title", map[string]interface{}{
			"dropped": dropped,
			"kept":    len(normalized),
			"source":  string(source),
		})
	}

	return normalized
}

func (n *Normalizer) normalizeJob(raw models.RawJobData, source models.JobSource, processedAt time.Time) *models.NormalizedJob {
	title := ExtractTitle(raw)
	if title == "" {
		return nil
	}

	id := ExtractID(raw)
	if id == "" {
		id = SlugID(title, processedAt)
	}

	return &models.NormalizedJob{
		ID:          id,
		Title:       title,
		Department:  ExtractDepartment(raw),
		Location:    ExtractLocation(raw),
		Type:        ExtractJobType(raw),
		Description: n.sanitizer.Sanitize(ExtractDescription(raw)),
		ApplyURL:    ExtractApplyURL(raw),
		PostedDate:  ExtractPostedDate(raw, processedAt),
		Source:      source,
		RawData:     raw,
		ProcessedAt: FormatISO(processedAt),
	}
}
