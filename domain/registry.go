package domain

import "github.com/inkwell-notes/inkwell"

// RegisterEvents registers decoders for every domain event type with the
// store. The registry is closed: an event type missing here fails loudly at
// load time instead of being skipped.
func RegisterEvents(store *inkwell.EventStore) {
	store.RegisterEvent(NoteCreated{}.EventType(), inkwell.JSONDecoder[NoteCreated]())
	store.RegisterEvent(NoteRenamed{}.EventType(), inkwell.JSONDecoder[NoteRenamed]())
	store.RegisterEvent(NoteContentChanged{}.EventType(), inkwell.JSONDecoder[NoteContentChanged]())
	store.RegisterEvent(NotePinned{}.EventType(), inkwell.JSONDecoder[NotePinned]())
	store.RegisterEvent(NoteUnpinned{}.EventType(), inkwell.JSONDecoder[NoteUnpinned]())
	store.RegisterEvent(NoteTagged{}.EventType(), inkwell.JSONDecoder[NoteTagged]())
	store.RegisterEvent(NoteUntagged{}.EventType(), inkwell.JSONDecoder[NoteUntagged]())
	store.RegisterEvent(NoteMoved{}.EventType(), inkwell.JSONDecoder[NoteMoved]())
	store.RegisterEvent(NoteDeleted{}.EventType(), inkwell.JSONDecoder[NoteDeleted]())
	store.RegisterEvent(TodoAdded{}.EventType(), inkwell.JSONDecoder[TodoAdded]())
	store.RegisterEvent(TodoCompleted{}.EventType(), inkwell.JSONDecoder[TodoCompleted]())
	store.RegisterEvent(TodoReopened{}.EventType(), inkwell.JSONDecoder[TodoReopened]())
	store.RegisterEvent(TodoRemoved{}.EventType(), inkwell.JSONDecoder[TodoRemoved]())
	store.RegisterEvent(NotebookCreated{}.EventType(), inkwell.JSONDecoder[NotebookCreated]())
	store.RegisterEvent(NotebookRenamed{}.EventType(), inkwell.JSONDecoder[NotebookRenamed]())
	store.RegisterEvent(NotebookMoved{}.EventType(), inkwell.JSONDecoder[NotebookMoved]())
	store.RegisterEvent(NotebookDeleted{}.EventType(), inkwell.JSONDecoder[NotebookDeleted]())
}
