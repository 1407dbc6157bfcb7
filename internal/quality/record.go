package quality

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"quaver/internal/logging"
)

// losslessFormats are format tags that imply lossless audio regardless of the
// reported bitrate.
var losslessFormats = map[string]struct{}{
	"flac": {},
	"wav":  {},
	"aiff": {},
	"ape":  {},
	"alac": {},
}

// IsLosslessFormat reports whether a normalized format tag belongs to the
// lossless set.
func IsLosslessFormat(format string) bool {
	_, ok := losslessFormats[normalizeFormat(format)]
	return ok
}

func normalizeFormat(format string) string {
	return strings.ToLower(strings.TrimSpace(format))
}

// Record captures one audio file's quality metrics. Records are constructed
// once per discovered file by the scanning collaborator and must be treated
// as immutable afterwards; any re-derivation builds a new Record through
// NewRecord.
type Record struct {
	// Path is the absolute location of the audio file.
	Path   string
	Format string
	// Bitrate is in bits per second.
	Bitrate    int
	SampleRate int
	// BitDepth is 0 when the container does not report one.
	BitDepth int
	Channels int
	// Duration is in seconds.
	Duration float64
	// FileSize is in bytes.
	FileSize        int64
	Lossless        bool
	VariableBitrate bool
	// QualityScore is a 0-100 composite assigned by the analysis collaborator.
	QualityScore int
	ModifiedAt   time.Time
}

// NewRecord validates and normalizes the supplied record value, returning a
// finished Record. Hard invariant violations return a *ValidationError;
// physically impossible duration and file size values are clamped to zero
// with a logged warning rather than rejected.
func NewRecord(rec Record, logger *slog.Logger) (*Record, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	if strings.TrimSpace(rec.Path) == "" {
		return nil, missingField("path")
	}
	rec.Format = normalizeFormat(rec.Format)

	if rec.Bitrate < 0 {
		return nil, invalidField("bitrate", rec.Bitrate)
	}
	if rec.SampleRate < 0 {
		return nil, invalidField("sample_rate", rec.SampleRate)
	}
	if rec.Channels < 1 || rec.Channels > 8 {
		return nil, invalidField("channels", rec.Channels)
	}
	if rec.QualityScore < 0 || rec.QualityScore > 100 {
		return nil, invalidField("quality_score", rec.QualityScore)
	}
	if rec.BitDepth < 0 {
		return nil, invalidField("bit_depth", rec.BitDepth)
	}

	if rec.Duration < 0 {
		logger.Warn("negative duration clamped to zero",
			logging.String("path", rec.Path),
			logging.Float64("duration", rec.Duration))
		rec.Duration = 0
	}
	if rec.FileSize < 0 {
		logger.Warn("negative file size clamped to zero",
			logging.String("path", rec.Path),
			logging.Int64("file_size", rec.FileSize))
		rec.FileSize = 0
	}

	if !rec.Lossless {
		if _, ok := losslessFormats[rec.Format]; ok {
			rec.Lossless = true
		}
	}
	if rec.ModifiedAt.IsZero() {
		rec.ModifiedAt = time.Now().UTC()
	}

	return &rec, nil
}

// BitrateKbps returns the bitrate in kilobits per second.
func (r *Record) BitrateKbps() float64 {
	return float64(r.Bitrate) / 1000
}

// FileSizeMB returns the file size in mebibytes.
func (r *Record) FileSizeMB() float64 {
	return float64(r.FileSize) / (1024 * 1024)
}

// IsHighQuality reports whether the file is lossless or encoded at 320 kbps
// or better.
func (r *Record) IsHighQuality() bool {
	return r.Lossless || r.Bitrate >= 320_000
}

// IsCDQuality reports whether the file meets CD audio parameters. A missing
// bit depth does not disqualify, since lossy containers rarely report one.
func (r *Record) IsCDQuality() bool {
	return r.SampleRate >= 44_100 && (r.BitDepth == 0 || r.BitDepth >= 16)
}

// Flat map keys shared by ToFlat and RecordFromFlat.
const (
	keyPath         = "path"
	keyFormat       = "format"
	keyBitrate      = "bitrate"
	keySampleRate   = "sample_rate"
	keyBitDepth     = "bit_depth"
	keyChannels     = "channels"
	keyDuration     = "duration"
	keyFileSize     = "file_size"
	keyLossless     = "lossless"
	keyVBR          = "vbr"
	keyQualityScore = "quality_score"
	keyModifiedAt   = "modified_at"
)

// ToFlat serializes the record to a flat key-value map for persistence.
func (r *Record) ToFlat() map[string]string {
	flat := map[string]string{
		keyPath:         r.Path,
		keyFormat:       r.Format,
		keyBitrate:      strconv.Itoa(r.Bitrate),
		keySampleRate:   strconv.Itoa(r.SampleRate),
		keyChannels:     strconv.Itoa(r.Channels),
		keyDuration:     strconv.FormatFloat(r.Duration, 'f', -1, 64),
		keyFileSize:     strconv.FormatInt(r.FileSize, 10),
		keyLossless:     strconv.FormatBool(r.Lossless),
		keyVBR:          strconv.FormatBool(r.VariableBitrate),
		keyQualityScore: strconv.Itoa(r.QualityScore),
		keyModifiedAt:   r.ModifiedAt.UTC().Format(time.RFC3339Nano),
	}
	if r.BitDepth > 0 {
		flat[keyBitDepth] = strconv.Itoa(r.BitDepth)
	}
	return flat
}

// RecordFromFlat reverses ToFlat. Missing required fields and unparseable
// values produce a *ValidationError naming the field.
func RecordFromFlat(flat map[string]string, logger *slog.Logger) (*Record, error) {
	for _, required := range []string{keyPath, keyFormat, keyBitrate, keySampleRate} {
		if _, ok := flat[required]; !ok {
			return nil, missingField(required)
		}
	}

	rec := Record{
		Path:   flat[keyPath],
		Format: flat[keyFormat],
	}

	var err error
	if rec.Bitrate, err = flatInt(flat, keyBitrate); err != nil {
		return nil, err
	}
	if rec.SampleRate, err = flatInt(flat, keySampleRate); err != nil {
		return nil, err
	}
	if rec.BitDepth, err = flatInt(flat, keyBitDepth); err != nil {
		return nil, err
	}
	if rec.Channels, err = flatInt(flat, keyChannels); err != nil {
		return nil, err
	}
	if rec.QualityScore, err = flatInt(flat, keyQualityScore); err != nil {
		return nil, err
	}

	if raw, ok := flat[keyDuration]; ok {
		rec.Duration, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, invalidField(keyDuration, raw)
		}
	}
	if raw, ok := flat[keyFileSize]; ok {
		rec.FileSize, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, invalidField(keyFileSize, raw)
		}
	}
	if raw, ok := flat[keyLossless]; ok {
		rec.Lossless, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, invalidField(keyLossless, raw)
		}
	}
	if raw, ok := flat[keyVBR]; ok {
		rec.VariableBitrate, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, invalidField(keyVBR, raw)
		}
	}
	if raw, ok := flat[keyModifiedAt]; ok {
		rec.ModifiedAt, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, invalidField(keyModifiedAt, raw)
		}
	}

	return NewRecord(rec, logger)
}

func flatInt(flat map[string]string, key string) (int, error) {
	raw, ok := flat[key]
	if !ok {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidField(key, raw)
	}
	return value, nil
}
