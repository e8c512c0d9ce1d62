package projections

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/inkwell-notes/inkwell"
	"github.com/inkwell-notes/inkwell/domain"
)

// RecentNote is one entry in the recently-edited list.
type RecentNote struct {
	NoteID       string
	Title        string
	LastPosition uint64
}

// RecentNotesProjection keeps an in-memory list of the most recently edited
// notes, ordered by the stream position of each note's latest event. Being
// position-keyed makes re-application of a batch a no-op.
type RecentNotesProjection struct {
	mu    sync.RWMutex
	notes map[string]*RecentNote
	limit int
}

var _ inkwell.Projection = (*RecentNotesProjection)(nil)

// NewRecentNotesProjection creates the projection. limit caps how many
// entries Recent returns (default 10 when <= 0).
func NewRecentNotesProjection(limit int) *RecentNotesProjection {
	if limit <= 0 {
		limit = 10
	}
	return &RecentNotesProjection{
		notes: make(map[string]*RecentNote),
		limit: limit,
	}
}

// Name identifies this projection's checkpoint row.
func (p *RecentNotesProjection) Name() string { return "recent_notes" }

// HandledEvents lists the event types folded into the list.
func (p *RecentNotesProjection) HandledEvents() []string {
	return []string{"NoteCreated", "NoteRenamed", "NoteContentChanged", "NoteDeleted"}
}

// Reset clears the list.
func (p *RecentNotesProjection) Reset(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notes = make(map[string]*RecentNote)
	return nil
}

// Apply folds a single event into the list.
func (p *RecentNotesProjection) Apply(ctx context.Context, event inkwell.StoredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch event.Type {
	case "NoteCreated":
		var e domain.NoteCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return fmt.Errorf("projections: bad %s payload: %w", event.Type, err)
		}
		p.touch(e.NoteID.String(), e.Title, event.StreamPosition)

	case "NoteRenamed":
		var e domain.NoteRenamed
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return fmt.Errorf("projections: bad %s payload: %w", event.Type, err)
		}
		p.touch(e.NoteID.String(), e.Title, event.StreamPosition)

	case "NoteContentChanged":
		var e domain.NoteContentChanged
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return fmt.Errorf("projections: bad %s payload: %w", event.Type, err)
		}
		if note, ok := p.notes[e.NoteID.String()]; ok {
			p.touch(e.NoteID.String(), note.Title, event.StreamPosition)
		}

	case "NoteDeleted":
		var e domain.NoteDeleted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return fmt.Errorf("projections: bad %s payload: %w", event.Type, err)
		}
		delete(p.notes, e.NoteID.String())
	}

	return nil
}

// touch records an edit at the given position. Older positions never
// overwrite newer ones.
func (p *RecentNotesProjection) touch(noteID, title string, position uint64) {
	if note, ok := p.notes[noteID]; ok {
		if position >= note.LastPosition {
			note.Title = title
			note.LastPosition = position
		}
		return
	}
	p.notes[noteID] = &RecentNote{NoteID: noteID, Title: title, LastPosition: position}
}

// Recent returns up to limit entries, most recently edited first.
func (p *RecentNotesProjection) Recent() []RecentNote {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]RecentNote, 0, len(p.notes))
	for _, note := range p.notes {
		out = append(out, *note)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastPosition > out[j].LastPosition
	})
	if len(out) > p.limit {
		out = out[:p.limit]
	}
	return out
}

// Len returns the number of tracked notes.
func (p *RecentNotesProjection) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.notes)
}
