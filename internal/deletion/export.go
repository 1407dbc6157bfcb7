package deletion

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"quaver/internal/logging"
)

type auditDocument struct {
	Metadata auditMetadata `json:"metadata"`
	Groups   []auditGroup  `json:"groups"`
}

type auditMetadata struct {
	TotalGroups int    `json:"total_groups"`
	GeneratedAt string `json:"generated_at"`
}

type auditGroup struct {
	GroupID           string         `json:"group_id"`
	KeepFile          string         `json:"keep_file"`
	DeleteFiles       []string       `json:"delete_files"`
	Reason            string         `json:"reason"`
	ValidationResults []auditFinding `json:"validation_results"`
}

type auditFinding struct {
	Level      string `json:"level"`
	Checkpoint string `json:"checkpoint"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
}

// ExportJSON writes an audit report of the plan and its current findings.
// Call Validate first; groups that were never validated export with an
// empty validation_results list.
func (p *Plan) ExportJSON(path string) error {
	doc := auditDocument{
		Metadata: auditMetadata{
			TotalGroups: len(p.groups),
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		},
		Groups: make([]auditGroup, 0, len(p.groups)),
	}
	for _, group := range p.groups {
		entry := auditGroup{
			GroupID:           group.ID,
			KeepFile:          group.KeepFile,
			DeleteFiles:       append([]string{}, group.DeleteFiles...),
			Reason:            group.Reason,
			ValidationResults: make([]auditFinding, 0, len(group.Findings)),
		}
		for _, finding := range group.Findings {
			entry.ValidationResults = append(entry.ValidationResults, auditFinding{
				Level:      string(finding.Level),
				Checkpoint: finding.Checkpoint,
				Message:    finding.Message,
				Details:    finding.Detail,
			})
		}
		doc.Groups = append(doc.Groups, entry)
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode audit report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write audit report: %w", err)
	}
	p.logger.Info("audit report written",
		logging.String("path", path),
		logging.Int("groups", len(doc.Groups)))
	return nil
}

type manifestDocument struct {
	Groups []manifestGroup `json:"groups"`
}

type manifestGroup struct {
	ID          string   `json:"id"`
	KeepFile    string   `json:"keep_file"`
	DeleteFiles []string `json:"delete_files"`
	Reason      string   `json:"reason,omitempty"`
}

// SaveManifest persists the staged groups so a reviewed plan can be executed
// in a later invocation. Findings are not saved; they are recomputed on load.
func (p *Plan) SaveManifest(path string) error {
	doc := manifestDocument{Groups: make([]manifestGroup, 0, len(p.groups))}
	for _, group := range p.groups {
		doc.Groups = append(doc.Groups, manifestGroup{
			ID:          group.ID,
			KeepFile:    group.KeepFile,
			DeleteFiles: append([]string{}, group.DeleteFiles...),
			Reason:      group.Reason,
		})
	}
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plan manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write plan manifest: %w", err)
	}
	return nil
}

// LoadManifest appends previously saved groups to the plan, preserving their
// ids so audit reports line up across invocations.
func (p *Plan) LoadManifest(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read plan manifest: %w", err)
	}
	var doc manifestDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("decode plan manifest %s: %w", path, err)
	}
	for _, entry := range doc.Groups {
		group := &Group{
			ID:          entry.ID,
			KeepFile:    entry.KeepFile,
			DeleteFiles: append([]string{}, entry.DeleteFiles...),
			Reason:      entry.Reason,
		}
		if group.ID == "" {
			group.ID = newGroupID()
		}
		p.groups = append(p.groups, group)
	}
	return nil
}
