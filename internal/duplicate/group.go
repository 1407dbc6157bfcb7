package duplicate

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"quaver/internal/logging"
	"quaver/internal/quality"
)

// Group is a set of quality records believed to represent the same track,
// with a recommended keep/delete split. Produced by the grouping collaborator
// from files sharing a track hash; immutable once constructed apart from the
// defaults NewGroup fills in.
type Group struct {
	ID string
	// TrackHash is the opaque grouping key supplied by the fingerprinting step.
	TrackHash string
	// Files preserves insertion order; the type itself enforces no uniqueness.
	Files []*quality.Record
	// Keep should be a member of Files. A non-member is logged, not rejected,
	// so a slightly stale recommendation never blocks review.
	Keep   *quality.Record
	Delete []*quality.Record
	// Confidence is in [0,1].
	Confidence float64
	Reason     string
	// SpaceSavings is in bytes; computed from Delete when left at zero.
	SpaceSavings int64
	DiscoveredAt time.Time
}

// NewGroup validates and finishes the supplied group value. A confidence
// outside [0,1] is a hard failure; keep/delete recommendations that are not
// members of Files are logged as warnings only.
func NewGroup(group Group, logger *slog.Logger) (*Group, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	if strings.TrimSpace(group.ID) == "" {
		group.ID = uuid.NewString()
	}
	if group.Confidence < 0 || group.Confidence > 1 {
		return nil, &quality.ValidationError{Field: "confidence", Value: group.Confidence}
	}

	members := make(map[string]struct{}, len(group.Files))
	for _, file := range group.Files {
		members[file.Path] = struct{}{}
	}
	if group.Keep != nil {
		if _, ok := members[group.Keep.Path]; !ok {
			logger.Warn("recommended keep file is not a group member",
				logging.String("group_id", group.ID),
				logging.String("path", group.Keep.Path))
		}
	}
	for _, file := range group.Delete {
		if _, ok := members[file.Path]; !ok {
			logger.Warn("recommended delete file is not a group member",
				logging.String("group_id", group.ID),
				logging.String("path", file.Path))
		}
	}

	if group.SpaceSavings == 0 && len(group.Delete) > 0 {
		for _, file := range group.Delete {
			group.SpaceSavings += file.FileSize
		}
	}
	if group.DiscoveredAt.IsZero() {
		group.DiscoveredAt = time.Now().UTC()
	}

	return &group, nil
}

// FileCount returns the number of files in the group.
func (g *Group) FileCount() int {
	return len(g.Files)
}

// TotalSize returns the combined size in bytes of all files in the group.
func (g *Group) TotalSize() int64 {
	var total int64
	for _, file := range g.Files {
		total += file.FileSize
	}
	return total
}

// SpaceSavingsMB returns the expected space savings in mebibytes.
func (g *Group) SpaceSavingsMB() float64 {
	return float64(g.SpaceSavings) / (1024 * 1024)
}

// IsHighConfidence reports whether the grouping confidence is 0.8 or above.
func (g *Group) IsHighConfidence() bool {
	return g.Confidence >= 0.8
}

const (
	keyID           = "id"
	keyTrackHash    = "track_hash"
	keyConfidence   = "confidence"
	keyReason       = "reason"
	keySpaceSavings = "space_savings"
	keyDiscoveredAt = "discovered_at"
	keyFileCount    = "file_count"
	keyKeepPath     = "keep_path"
)

// ToFlat serializes the group to a flat key-value map. Member records are
// nested under "file.N." prefixes; recommendations are stored by path.
func (g *Group) ToFlat() map[string]string {
	flat := map[string]string{
		keyID:           g.ID,
		keyTrackHash:    g.TrackHash,
		keyConfidence:   strconv.FormatFloat(g.Confidence, 'f', -1, 64),
		keyReason:       g.Reason,
		keySpaceSavings: strconv.FormatInt(g.SpaceSavings, 10),
		keyDiscoveredAt: g.DiscoveredAt.UTC().Format(time.RFC3339Nano),
		keyFileCount:    strconv.Itoa(len(g.Files)),
	}
	for i, file := range g.Files {
		prefix := fmt.Sprintf("file.%d.", i)
		for key, value := range file.ToFlat() {
			flat[prefix+key] = value
		}
	}
	if g.Keep != nil {
		flat[keyKeepPath] = g.Keep.Path
	}
	for i, file := range g.Delete {
		flat[fmt.Sprintf("delete.%d", i)] = file.Path
	}
	return flat
}

// GroupFromFlat reverses ToFlat. The id and track hash are required; keep and
// delete recommendations are resolved back to member records by path.
func GroupFromFlat(flat map[string]string, logger *slog.Logger) (*Group, error) {
	for _, required := range []string{keyID, keyTrackHash} {
		if _, ok := flat[required]; !ok {
			return nil, &quality.ValidationError{Field: required}
		}
	}

	group := Group{
		ID:        flat[keyID],
		TrackHash: flat[keyTrackHash],
		Reason:    flat[keyReason],
	}

	var err error
	if raw, ok := flat[keyConfidence]; ok {
		group.Confidence, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &quality.ValidationError{Field: keyConfidence, Value: raw}
		}
	}
	if raw, ok := flat[keySpaceSavings]; ok {
		group.SpaceSavings, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &quality.ValidationError{Field: keySpaceSavings, Value: raw}
		}
	}
	if raw, ok := flat[keyDiscoveredAt]; ok {
		group.DiscoveredAt, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, &quality.ValidationError{Field: keyDiscoveredAt, Value: raw}
		}
	}

	count := 0
	if raw, ok := flat[keyFileCount]; ok {
		count, err = strconv.Atoi(raw)
		if err != nil {
			return nil, &quality.ValidationError{Field: keyFileCount, Value: raw}
		}
	}
	byPath := make(map[string]*quality.Record, count)
	for i := 0; i < count; i++ {
		prefix := fmt.Sprintf("file.%d.", i)
		fileFlat := make(map[string]string)
		for key, value := range flat {
			if strings.HasPrefix(key, prefix) {
				fileFlat[strings.TrimPrefix(key, prefix)] = value
			}
		}
		file, err := quality.RecordFromFlat(fileFlat, logger)
		if err != nil {
			return nil, err
		}
		group.Files = append(group.Files, file)
		byPath[file.Path] = file
	}

	if keepPath, ok := flat[keyKeepPath]; ok {
		if file, ok := byPath[keepPath]; ok {
			group.Keep = file
		}
	}
	for i := 0; ; i++ {
		path, ok := flat[fmt.Sprintf("delete.%d", i)]
		if !ok {
			break
		}
		if file, ok := byPath[path]; ok {
			group.Delete = append(group.Delete, file)
		}
	}

	return NewGroup(group, logger)
}
