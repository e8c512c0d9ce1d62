package migration

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/inkwell-notes/inkwell"
	"github.com/inkwell-notes/inkwell/domain"
)

// Result is the migration report.
type Result struct {
	NotebooksFound    int
	NotesFound        int
	NotebooksImported int
	NotesImported     int
	EventsGenerated   int
	TagsGenerated     int
	Skipped           int
	Success           bool
	Error             string
}

// Pipeline converts a legacy store into the event log. It is resumable
// rather than atomic: a rerun detects already-imported aggregates by stream
// existence and skips them, so a crashed migration is finished by running it
// again.
type Pipeline struct {
	store        *inkwell.EventStore
	orchestrator *inkwell.Orchestrator
	logger       inkwell.Logger
	autoTag      bool
}

// PipelineOption configures the pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger inkwell.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithOrchestrator makes the pipeline rebuild all projections after the
// import completes.
func WithOrchestrator(o *inkwell.Orchestrator) PipelineOption {
	return func(p *Pipeline) {
		p.orchestrator = o
	}
}

// WithAutoTag enables the best-effort hashtag extraction step.
func WithAutoTag(enabled bool) PipelineOption {
	return func(p *Pipeline) {
		p.autoTag = enabled
	}
}

// NewPipeline creates a migration pipeline writing to the given store.
func NewPipeline(store *inkwell.EventStore, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		store:   store,
		logger:  inkwell.NoopLogger(),
		autoTag: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var hashtagPattern = regexp.MustCompile(`#([\p{L}\p{N}_-]+)`)

// Run executes the migration. The returned Result is populated even on
// failure, reflecting what was imported before the error.
func (p *Pipeline) Run(ctx context.Context, reader Reader) (*Result, error) {
	result := &Result{}

	folders, err := reader.Folders(ctx)
	if err != nil {
		return p.fail(result, "scan", err)
	}
	notes, err := reader.Notes(ctx)
	if err != nil {
		return p.fail(result, "scan", err)
	}
	result.NotebooksFound = len(folders)
	result.NotesFound = len(notes)

	ordered, err := orderByDepth(folders)
	if err != nil {
		return p.fail(result, "order", err)
	}

	p.logger.Info("migration starting", "folders", len(folders), "notes", len(notes))

	// Parents first: a note-tree fold for "create child" assumes the parent
	// row already exists.
	importedNotes := make([]domain.NoteID, 0, len(notes))

	for _, folder := range ordered {
		imported, err := p.importNotebook(ctx, folder, result)
		if err != nil {
			return p.fail(result, "import-notebooks", err)
		}
		if imported {
			result.NotebooksImported++
		}
	}

	for _, note := range notes {
		imported, err := p.importNote(ctx, note, result)
		if err != nil {
			return p.fail(result, "import-notes", err)
		}
		if imported {
			result.NotesImported++
			importedNotes = append(importedNotes, domain.NoteID(note.ID))
		}
	}

	// Auto-tagging is enrichment, not import: a failure here is logged and
	// counted, never fatal.
	if p.autoTag {
		p.generateTags(ctx, notes, importedNotes, result)
	}

	if p.orchestrator != nil {
		if err := p.orchestrator.RebuildAll(ctx); err != nil {
			return p.fail(result, "rebuild", err)
		}
	}

	result.Success = true
	p.logger.Info("migration finished",
		"notebooks", result.NotebooksImported,
		"notes", result.NotesImported,
		"events", result.EventsGenerated,
		"skipped", result.Skipped)
	return result, nil
}

func (p *Pipeline) importNotebook(ctx context.Context, folder LegacyFolder, result *Result) (bool, error) {
	streamID := inkwell.BuildStreamID(domain.AggregateTypeNotebook, folder.ID)
	exists, err := p.streamExists(ctx, streamID)
	if err != nil {
		return false, err
	}
	if exists {
		p.logger.Debug("notebook already imported, skipping", "id", folder.ID)
		result.Skipped++
		return false, nil
	}

	nb := domain.NewNotebook(domain.NotebookID(folder.ID))
	if err := nb.Create(domain.NotebookID(folder.ParentID), folder.Name); err != nil {
		return false, fmt.Errorf("notebook %s: %w", folder.ID, err)
	}

	eventCount := len(nb.UncommittedEvents())
	if err := p.store.Save(ctx, nb); err != nil {
		return false, fmt.Errorf("notebook %s: %w", folder.ID, err)
	}
	result.EventsGenerated += eventCount
	return true, nil
}

func (p *Pipeline) importNote(ctx context.Context, legacy LegacyNote, result *Result) (bool, error) {
	streamID := inkwell.BuildStreamID(domain.AggregateTypeNote, legacy.ID)
	exists, err := p.streamExists(ctx, streamID)
	if err != nil {
		return false, err
	}
	if exists {
		p.logger.Debug("note already imported, skipping", "id", legacy.ID)
		result.Skipped++
		return false, nil
	}

	note := domain.NewNote(domain.NoteID(legacy.ID))
	if err := note.Create(domain.NotebookID(legacy.FolderID), legacy.Title); err != nil {
		return false, fmt.Errorf("note %s: %w", legacy.ID, err)
	}
	// Known terminal state becomes additional mutations before the first
	// save; the resulting history reflects final state, not true history.
	if legacy.Content != "" {
		if err := note.EditContent(legacy.Content); err != nil {
			return false, fmt.Errorf("note %s: %w", legacy.ID, err)
		}
	}
	if legacy.Pinned {
		if err := note.Pin(); err != nil {
			return false, fmt.Errorf("note %s: %w", legacy.ID, err)
		}
	}

	eventCount := len(note.UncommittedEvents())
	if err := p.store.Save(ctx, note); err != nil {
		return false, fmt.Errorf("note %s: %w", legacy.ID, err)
	}
	result.EventsGenerated += eventCount
	return true, nil
}

func (p *Pipeline) generateTags(ctx context.Context, notes []LegacyNote, imported []domain.NoteID, result *Result) {
	importedSet := make(map[string]bool, len(imported))
	for _, id := range imported {
		importedSet[id.String()] = true
	}

	for _, legacy := range notes {
		if !importedSet[legacy.ID] {
			continue
		}
		tags := extractHashtags(legacy.Content)
		if len(tags) == 0 {
			continue
		}

		note := domain.NewNote(domain.NoteID(legacy.ID))
		if err := p.store.Load(ctx, note); err != nil {
			p.logger.Warn("auto-tag: failed to load note", "id", legacy.ID, "error", err)
			continue
		}
		for _, tag := range tags {
			if err := note.AddTag(tag); err != nil {
				p.logger.Warn("auto-tag: failed to tag note", "id", legacy.ID, "tag", tag, "error", err)
			}
		}
		if !note.HasUncommittedEvents() {
			continue
		}

		generated := len(note.UncommittedEvents())
		if err := p.store.Save(ctx, note); err != nil {
			p.logger.Warn("auto-tag: failed to save note", "id", legacy.ID, "error", err)
			continue
		}
		result.TagsGenerated += generated
		result.EventsGenerated += generated
	}
}

func (p *Pipeline) streamExists(ctx context.Context, streamID string) (bool, error) {
	_, err := p.store.GetStreamInfo(ctx, streamID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, inkwell.ErrStreamNotFound) {
		return false, nil
	}
	return false, err
}

func (p *Pipeline) fail(result *Result, stage string, cause error) (*Result, error) {
	err := inkwell.NewMigrationError(stage, cause)
	result.Success = false
	result.Error = err.Error()
	p.logger.Error("migration failed", "stage", stage, "error", cause)
	return result, err
}

// orderByDepth sorts folders so every parent precedes its children. Folders
// whose parent is missing from the set are treated as roots. A parent cycle
// is a hard error.
func orderByDepth(folders []LegacyFolder) ([]LegacyFolder, error) {
	byID := make(map[string]LegacyFolder, len(folders))
	for _, f := range folders {
		byID[f.ID] = f
	}

	depths := make(map[string]int, len(folders))
	var depthOf func(id string, trail map[string]bool) (int, error)
	depthOf = func(id string, trail map[string]bool) (int, error) {
		if d, ok := depths[id]; ok {
			return d, nil
		}
		if trail[id] {
			return 0, fmt.Errorf("folder hierarchy contains a cycle through %q", id)
		}
		trail[id] = true

		folder := byID[id]
		depth := 0
		if folder.ParentID != "" {
			if _, ok := byID[folder.ParentID]; ok {
				parentDepth, err := depthOf(folder.ParentID, trail)
				if err != nil {
					return 0, err
				}
				depth = parentDepth + 1
			}
		}
		depths[id] = depth
		return depth, nil
	}

	for _, f := range folders {
		if _, err := depthOf(f.ID, make(map[string]bool)); err != nil {
			return nil, err
		}
	}

	ordered := make([]LegacyFolder, len(folders))
	copy(ordered, folders)
	sort.SliceStable(ordered, func(i, j int) bool {
		return depths[ordered[i].ID] < depths[ordered[j].ID]
	})
	return ordered, nil
}

func extractHashtags(content string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tag := m[1]
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}
