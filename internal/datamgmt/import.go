package datamgmt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/pbaille/sheet/internal/domain"
	"github.com/pbaille/sheet/internal/skilltree"
	"github.com/pbaille/sheet/internal/storage"
	"github.com/pbaille/sheet/internal/validation"
)

// MaxImportBytes bounds the size of an import file.
const MaxImportBytes = 32 << 20

// ImportReport describes what an import did.
type ImportReport struct {
	FromVersion string   `json:"fromVersion"`
	Version     string   `json:"version"`
	Migrated    []string `json:"migrated,omitempty"`
	Written     []string `json:"written"`
	Failed      []string `json:"failed,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// Partial reports whether some sections could not be written.
func (r ImportReport) Partial() bool {
	return len(r.Failed) > 0
}

// ImportJSON parses, validates, migrates and restores a snapshot file.
func (s *Service) ImportJSON(ctx context.Context, r io.Reader) (ImportReport, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxImportBytes+1))
	if err != nil {
		return ImportReport{}, s.rejectImport(fmt.Errorf("read: %w", err))
	}
	if len(raw) > MaxImportBytes {
		return ImportReport{}, s.rejectImport(fmt.Errorf("file exceeds %d bytes", MaxImportBytes))
	}
	snapshotBytes.Set(float64(len(raw)))

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ImportReport{}, s.rejectImport(fmt.Errorf("parse: %w", err))
	}
	result := validation.ValidateWithTolerance(doc, validation.SnapshotSchema())
	if err := result.Err(); err != nil {
		return ImportReport{}, s.rejectImport(err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return ImportReport{}, s.rejectImport(fmt.Errorf("decode: %w", err))
	}
	return s.restore(ctx, &snap, result)
}

// Import validates, migrates and restores an already decoded snapshot.
func (s *Service) Import(ctx context.Context, snap *domain.Snapshot) (ImportReport, error) {
	if snap == nil {
		return ImportReport{}, s.rejectImport(fmt.Errorf("snapshot is required"))
	}
	doc, err := toDocument(snap)
	if err != nil {
		return ImportReport{}, s.rejectImport(err)
	}
	result := validation.ValidateWithTolerance(doc, validation.SnapshotSchema())
	if err := result.Err(); err != nil {
		return ImportReport{}, s.rejectImport(err)
	}
	return s.restore(ctx, snap, result)
}

// Validate checks a snapshot file without touching storage.
func (s *Service) Validate(r io.Reader) (validation.Result, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxImportBytes))
	if err != nil {
		return validation.Result{}, fmt.Errorf("read: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return validation.Result{}, fmt.Errorf("parse: %w", err)
	}
	return validation.ValidateWithTolerance(doc, validation.SnapshotSchema()), nil
}

func (s *Service) restore(ctx context.Context, snap *domain.Snapshot, result validation.Result) (ImportReport, error) {
	start := time.Now()
	report := ImportReport{FromVersion: snap.Metadata.Version, Written: []string{}}
	for _, w := range result.Warnings {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %s", w.Field, w.Message))
	}

	if err := checkInvariants(snap); err != nil {
		return report, s.rejectImport(err)
	}

	if sum, err := Checksum(snap.Data); err == nil && sum != snap.Metadata.Checksum {
		s.logger.Warn("import: checksum drift", "expected", snap.Metadata.Checksum, "actual", sum)
		report.Warnings = append(report.Warnings, fmt.Sprintf("checksum drift: file says %s, data hashes to %s", snap.Metadata.Checksum, sum))
	}

	migrated := snap
	if s.migrator.NeedsMigration(snap) {
		var err error
		migrated, report.Migrated, err = s.migrator.Migrate(ctx, snap)
		if err != nil {
			return report, s.rejectImport(err)
		}
	}
	report.Version = migrated.Metadata.Version

	if err := ctx.Err(); err != nil {
		return report, s.rejectImport(err)
	}

	s.writeSections(ctx, migrated.Data, &report)
	observe("import", time.Since(start).Seconds(), nil)
	if report.Partial() {
		s.logger.Warn("import finished with failures", "failed", report.Failed, "written", len(report.Written))
	} else {
		s.logger.Info("import finished", "written", len(report.Written), "version", report.Version)
	}
	return report, nil
}

// writeSections writes every present section. Absent widget sections are left
// untouched; settings and layout are always replaced.
func (s *Service) writeSections(ctx context.Context, data domain.Data, report *ImportReport) {
	record := func(section string, ok bool) {
		if ok {
			report.Written = append(report.Written, section)
			return
		}
		s.logger.Error("import: section not written", "section", section)
		sectionWriteFailures.WithLabelValues(sectionLabel(section)).Inc()
		report.Failed = append(report.Failed, section)
	}

	w := data.Widgets
	if !domain.IsNull(w.CharacterInfo) {
		record(domain.KeyCharacterInfo, s.adapter.SetRaw(ctx, domain.KeyCharacterInfo, string(w.CharacterInfo)))
	}
	if !domain.IsNull(w.CharacterStatus) {
		record(domain.KeyCharacterStatus, s.adapter.SetRaw(ctx, domain.KeyCharacterStatus, string(w.CharacterStatus)))
	}
	if w.SkillTrees != nil {
		ids := make([]string, 0, len(w.SkillTrees))
		for id := range w.SkillTrees {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			tree := w.SkillTrees[id]
			if tree.ID != id {
				report.Warnings = append(report.Warnings, fmt.Sprintf("skill tree %q carried id %q; stored under %q", id, tree.ID, id))
				tree.ID = id
			}
			record(domain.SkillTreeKey(id), s.registry.Save(ctx, tree))
		}
	}
	if w.Notes != nil {
		items, categories := w.Notes.Items, w.Notes.Categories
		if items == nil {
			items = []domain.Note{}
		}
		if categories == nil {
			categories = []domain.NoteCategory{}
		}
		record(domain.KeyNotes, storage.Set(ctx, s.adapter, domain.KeyNotes, items))
		record(domain.KeyNotesCategories, storage.Set(ctx, s.adapter, domain.KeyNotesCategories, categories))
	}
	if w.Dice != nil {
		record(domain.KeyDiceHistory, storage.Set(ctx, s.adapter, domain.KeyDiceHistory, w.Dice))
	}

	layout := data.Layout
	if layout.Widgets == nil {
		layout.Widgets = []domain.LayoutWidget{}
	}
	record(domain.KeySettings, storage.Set(ctx, s.adapter, domain.KeySettings, data.Settings))
	record(domain.KeyLayout, storage.Set(ctx, s.adapter, domain.KeyLayout, layout))
}

func (s *Service) rejectImport(err error) error {
	observe("import", 0, err)
	s.logger.Error("import rejected", "error", err)
	return fmt.Errorf("%w: %w", ErrImportFailed, err)
}

func checkInvariants(snap *domain.Snapshot) error {
	if err := snap.Data.Layout.Validate(); err != nil {
		return err
	}
	for id := range snap.Data.Widgets.SkillTrees {
		if err := skilltree.ValidateID(id); err != nil {
			return err
		}
	}
	return nil
}

func toDocument(snap *domain.Snapshot) (any, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return doc, nil
}

func sectionLabel(section string) string {
	if _, ok := domain.SkillTreeID(section); ok {
		return "skillTrees"
	}
	return section
}
