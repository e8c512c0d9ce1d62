package domain

import "time"

// Note events.

type NoteCreated struct {
	NoteID     NoteID     `json:"noteId"`
	NotebookID NotebookID `json:"notebookId"`
	Title      string     `json:"title"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func (NoteCreated) EventType() string { return "NoteCreated" }

type NoteRenamed struct {
	NoteID NoteID `json:"noteId"`
	Title  string `json:"title"`
}

func (NoteRenamed) EventType() string { return "NoteRenamed" }

type NoteContentChanged struct {
	NoteID  NoteID `json:"noteId"`
	Content string `json:"content"`
}

func (NoteContentChanged) EventType() string { return "NoteContentChanged" }

type NotePinned struct {
	NoteID NoteID `json:"noteId"`
}

func (NotePinned) EventType() string { return "NotePinned" }

type NoteUnpinned struct {
	NoteID NoteID `json:"noteId"`
}

func (NoteUnpinned) EventType() string { return "NoteUnpinned" }

type NoteTagged struct {
	NoteID NoteID `json:"noteId"`
	Tag    string `json:"tag"`
}

func (NoteTagged) EventType() string { return "NoteTagged" }

type NoteUntagged struct {
	NoteID NoteID `json:"noteId"`
	Tag    string `json:"tag"`
}

func (NoteUntagged) EventType() string { return "NoteUntagged" }

type NoteMoved struct {
	NoteID     NoteID     `json:"noteId"`
	NotebookID NotebookID `json:"notebookId"`
}

func (NoteMoved) EventType() string { return "NoteMoved" }

type NoteDeleted struct {
	NoteID    NoteID    `json:"noteId"`
	DeletedAt time.Time `json:"deletedAt"`
}

func (NoteDeleted) EventType() string { return "NoteDeleted" }

// Checklist events. Todos live inside their note's stream.

type TodoAdded struct {
	NoteID NoteID `json:"noteId"`
	TodoID TodoID `json:"todoId"`
	Text   string `json:"text"`
}

func (TodoAdded) EventType() string { return "TodoAdded" }

type TodoCompleted struct {
	NoteID NoteID `json:"noteId"`
	TodoID TodoID `json:"todoId"`
}

func (TodoCompleted) EventType() string { return "TodoCompleted" }

type TodoReopened struct {
	NoteID NoteID `json:"noteId"`
	TodoID TodoID `json:"todoId"`
}

func (TodoReopened) EventType() string { return "TodoReopened" }

type TodoRemoved struct {
	NoteID NoteID `json:"noteId"`
	TodoID TodoID `json:"todoId"`
}

func (TodoRemoved) EventType() string { return "TodoRemoved" }

// Notebook events.

type NotebookCreated struct {
	NotebookID NotebookID `json:"notebookId"`
	ParentID   NotebookID `json:"parentId"`
	Name       string     `json:"name"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func (NotebookCreated) EventType() string { return "NotebookCreated" }

type NotebookRenamed struct {
	NotebookID NotebookID `json:"notebookId"`
	Name       string     `json:"name"`
}

func (NotebookRenamed) EventType() string { return "NotebookRenamed" }

type NotebookMoved struct {
	NotebookID NotebookID `json:"notebookId"`
	ParentID   NotebookID `json:"parentId"`
}

func (NotebookMoved) EventType() string { return "NotebookMoved" }

type NotebookDeleted struct {
	NotebookID NotebookID `json:"notebookId"`
	DeletedAt  time.Time  `json:"deletedAt"`
}

func (NotebookDeleted) EventType() string { return "NotebookDeleted" }
