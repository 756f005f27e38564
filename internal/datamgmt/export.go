package datamgmt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pbaille/sheet/internal/domain"
	"github.com/pbaille/sheet/internal/storage"
)

// Export assembles a snapshot of every known section. Missing sections never
// fail the export: widget sections come back nil, settings empty and layout
// with no widgets.
func (s *Service) Export(ctx context.Context) (*domain.Snapshot, error) {
	start := time.Now()
	snap, err := s.assemble(ctx)
	observe("export", time.Since(start).Seconds(), err)
	if err != nil {
		s.logger.Error("export failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	return snap, nil
}

func (s *Service) assemble(ctx context.Context) (*domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := domain.Data{
		Widgets: domain.Widgets{
			CharacterInfo:   s.rawSection(ctx, domain.KeyCharacterInfo),
			CharacterStatus: s.rawSection(ctx, domain.KeyCharacterStatus),
			SkillTrees:      s.registry.LoadAll(ctx),
			Notes:           s.readNotes(ctx),
			Dice:            storage.Get[*domain.DiceHistory](ctx, s.adapter, domain.KeyDiceHistory, nil),
		},
		Settings: storage.Get(ctx, s.adapter, domain.KeySettings, domain.Settings{}),
		Layout:   storage.Get(ctx, s.adapter, domain.KeyLayout, domain.Layout{}),
	}
	if data.Layout.Widgets == nil {
		data.Layout.Widgets = []domain.LayoutWidget{}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	checksum, err := Checksum(data)
	if err != nil {
		return nil, fmt.Errorf("checksum: %w", err)
	}

	now := s.now().UTC()
	return &domain.Snapshot{
		Metadata: domain.Metadata{
			Version:            s.migrator.Current(),
			ExportDate:         now.Format(ExportDateLayout),
			ExportID:           s.newID(now),
			ApplicationVersion: s.appVersion,
			Checksum:           checksum,
		},
		Data: data,
	}, nil
}

// ExportJSON writes the snapshot as indented JSON.
func (s *Service) ExportJSON(ctx context.Context, w io.Writer) (*domain.Snapshot, error) {
	snap, err := s.Export(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := EncodeSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %w", ErrExportFailed, err)
	}
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("%w: write: %w", ErrExportFailed, err)
	}
	snapshotBytes.Set(float64(len(raw)))
	return snap, nil
}

// EncodeSnapshot renders snap in the export file format.
func EncodeSnapshot(snap *domain.Snapshot) ([]byte, error) {
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(raw, '\n'), nil
}

func (s *Service) rawSection(ctx context.Context, key string) json.RawMessage {
	raw, ok := s.adapter.GetRaw(ctx, key)
	if !ok {
		return nil
	}
	if !json.Valid([]byte(raw)) {
		s.logger.Warn("export: skipping unreadable section", "key", key)
		return nil
	}
	return json.RawMessage(raw)
}

func (s *Service) readNotes(ctx context.Context) *domain.Notes {
	items := storage.Get[[]domain.Note](ctx, s.adapter, domain.KeyNotes, nil)
	categories := storage.Get[[]domain.NoteCategory](ctx, s.adapter, domain.KeyNotesCategories, nil)
	if items == nil && categories == nil {
		return nil
	}
	notes := &domain.Notes{Items: items, Categories: categories}
	if notes.Items == nil {
		notes.Items = []domain.Note{}
	}
	if notes.Categories == nil {
		notes.Categories = []domain.NoteCategory{}
	}
	return notes
}
