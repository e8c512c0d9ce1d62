// inkwell is the persistence core behind the Inkwell note-taking app.
//
// # Quick Start
//
// Create an event store with the in-memory adapter for development:
//
//	import (
//	    "github.com/inkwell-notes/inkwell"
//	    "github.com/inkwell-notes/inkwell/adapters/memory"
//	)
//
//	store := inkwell.New(memory.NewAdapter())
//
// For the real application, use the SQLite adapter on the profile's data file:
//
//	import "github.com/inkwell-notes/inkwell/adapters/sqlite"
//
//	adapter, err := sqlite.NewAdapter("inkwell.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store := inkwell.New(adapter)
//
// # Events
//
// Events are structs that declare their type name and are decoded through an
// explicit registry:
//
//	type NoteCreated struct {
//	    NoteID string `json:"noteId"`
//	    Title  string `json:"title"`
//	}
//
//	func (NoteCreated) EventType() string { return "NoteCreated" }
//
//	store.RegisterEvent("NoteCreated", inkwell.JSONDecoder[NoteCreated]())
//
// Every decodable event type must be registered at startup; deserializing an
// unknown type is a hard error rather than a silent fallback.
//
// # Aggregates
//
// Aggregates embed AggregateBase, mutate through methods that Apply events,
// and round-trip via Save and Load:
//
//	note := domain.NewNote(id)
//	note.Create("Groceries", notebookID)
//	if err := store.Save(ctx, note); err != nil { ... }
//
// Load replays the latest snapshot (if one was explicitly saved) plus the
// events recorded after it.
//
// # Projections
//
// Read models implement Projection and are driven by the Orchestrator, which
// persists a checkpoint and status per projection and supports full rebuilds
// from an empty read model as well as incremental catch-up.
package inkwell

// Version returns the library version string.
func Version() string {
	return "0.1.0"
}

// BuildStreamID creates a stream ID from an aggregate type and ID.
// This follows the convention: "{Type}-{ID}"
func BuildStreamID(aggregateType, aggregateID string) string {
	return aggregateType + "-" + aggregateID
}
