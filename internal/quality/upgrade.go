package quality

import (
	"log/slog"
	"strconv"
	"strings"

	"quaver/internal/logging"
)

// Improvement tier labels assigned when no explicit estimate is supplied.
const (
	ImprovementSignificant = "significant"
	ImprovementModerate    = "moderate"
	ImprovementMinor       = "minor"
)

// UpgradeCandidate pairs an existing file with a proposed higher-quality
// target format. Construct through NewUpgradeCandidate and treat as
// immutable.
type UpgradeCandidate struct {
	File         *Record
	TargetFormat string
	// QualityGap is the difference between the file's current quality score
	// and the score it could reach after the upgrade.
	QualityGap    int
	PriorityScore int
	// Services lists source names, in preference order, where a
	// higher-quality copy might be obtained.
	Services    []string
	Improvement string
}

// NewUpgradeCandidate validates the supplied candidate value. Negative
// quality gaps are clamped to zero with a logged warning; an out-of-range
// priority score is a hard failure.
func NewUpgradeCandidate(cand UpgradeCandidate, logger *slog.Logger) (*UpgradeCandidate, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	if cand.File == nil {
		return nil, missingField("current_file")
	}
	cand.TargetFormat = normalizeFormat(cand.TargetFormat)
	if cand.TargetFormat == "" {
		return nil, missingField("target_format")
	}
	if cand.PriorityScore < 0 || cand.PriorityScore > 100 {
		return nil, invalidField("priority_score", cand.PriorityScore)
	}

	if cand.QualityGap < 0 {
		logger.Warn("negative quality gap clamped to zero",
			logging.String("path", cand.File.Path),
			logging.Int("quality_gap", cand.QualityGap))
		cand.QualityGap = 0
	}

	if cand.Improvement == "" && cand.QualityGap > 0 {
		cand.Improvement = improvementTier(cand.QualityGap)
	}

	return &cand, nil
}

func improvementTier(gap int) string {
	switch {
	case gap >= 50:
		return ImprovementSignificant
	case gap >= 25:
		return ImprovementModerate
	default:
		return ImprovementMinor
	}
}

// IsHighPriority reports whether the candidate scores 75 or above.
func (c *UpgradeCandidate) IsHighPriority() bool {
	return c.PriorityScore >= 75
}

// IsLosslessUpgrade reports whether the target format is lossless.
func (c *UpgradeCandidate) IsLosslessUpgrade() bool {
	return IsLosslessFormat(c.TargetFormat)
}

// HasAvailableSources reports whether at least one service offers the track.
func (c *UpgradeCandidate) HasAvailableSources() bool {
	return len(c.Services) > 0
}

const (
	keyFilePrefix    = "file."
	keyTargetFormat  = "target_format"
	keyQualityGap    = "quality_gap"
	keyPriorityScore = "priority_score"
	keyServices      = "services"
	keyImprovement   = "improvement"
)

// ToFlat serializes the candidate, nesting the current file's fields under a
// "file." prefix.
func (c *UpgradeCandidate) ToFlat() map[string]string {
	flat := map[string]string{
		keyTargetFormat:  c.TargetFormat,
		keyQualityGap:    strconv.Itoa(c.QualityGap),
		keyPriorityScore: strconv.Itoa(c.PriorityScore),
		keyImprovement:   c.Improvement,
	}
	if len(c.Services) > 0 {
		flat[keyServices] = strings.Join(c.Services, ",")
	}
	for key, value := range c.File.ToFlat() {
		flat[keyFilePrefix+key] = value
	}
	return flat
}

// UpgradeCandidateFromFlat reverses ToFlat, failing with a *ValidationError
// when the current file, target format, or quality gap is absent.
func UpgradeCandidateFromFlat(flat map[string]string, logger *slog.Logger) (*UpgradeCandidate, error) {
	fileFlat := make(map[string]string)
	for key, value := range flat {
		if strings.HasPrefix(key, keyFilePrefix) {
			fileFlat[strings.TrimPrefix(key, keyFilePrefix)] = value
		}
	}
	if len(fileFlat) == 0 {
		return nil, missingField("current_file")
	}
	file, err := RecordFromFlat(fileFlat, logger)
	if err != nil {
		return nil, err
	}

	if _, ok := flat[keyTargetFormat]; !ok {
		return nil, missingField(keyTargetFormat)
	}
	rawGap, ok := flat[keyQualityGap]
	if !ok {
		return nil, missingField(keyQualityGap)
	}
	gap, err := strconv.Atoi(rawGap)
	if err != nil {
		return nil, invalidField(keyQualityGap, rawGap)
	}

	cand := UpgradeCandidate{
		File:         file,
		TargetFormat: flat[keyTargetFormat],
		QualityGap:   gap,
		Improvement:  flat[keyImprovement],
	}
	if raw, ok := flat[keyPriorityScore]; ok {
		cand.PriorityScore, err = strconv.Atoi(raw)
		if err != nil {
			return nil, invalidField(keyPriorityScore, raw)
		}
	}
	if raw, ok := flat[keyServices]; ok && raw != "" {
		cand.Services = strings.Split(raw, ",")
	}

	return NewUpgradeCandidate(cand, logger)
}
