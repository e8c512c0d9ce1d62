package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/inkwell-notes/inkwell"
)

// AggregateTypeNote is the stream category for notes.
const AggregateTypeNote = "Note"

var (
	ErrNoteAlreadyExists = errors.New("domain: note already exists")
	ErrNoteNotCreated    = errors.New("domain: note not created")
	ErrNoteDeleted       = errors.New("domain: note is deleted")
	ErrTodoNotFound      = errors.New("domain: todo not found")
	ErrEmptyTitle        = errors.New("domain: title must not be empty")
)

// TodoItem is a checklist entry on a note.
type TodoItem struct {
	ID   TodoID `json:"id" msgpack:"id"`
	Text string `json:"text" msgpack:"text"`
	Done bool   `json:"done" msgpack:"done"`
}

// Note is the note aggregate: title, body, tags, pin state, and an embedded
// checklist. All state is rebuilt by replaying the note's events.
type Note struct {
	inkwell.AggregateBase

	NotebookID NotebookID
	Title      string
	Content    string
	Pinned     bool
	Tags       []string
	Todos      []TodoItem
	Deleted    bool
	CreatedAt  time.Time
}

var _ inkwell.Aggregate = (*Note)(nil)
var _ inkwell.Snapshotter = (*Note)(nil)

// NewNote creates an empty note aggregate ready to replay events into.
func NewNote(id NoteID) *Note {
	return &Note{
		AggregateBase: inkwell.NewAggregateBase(id.String(), AggregateTypeNote),
	}
}

// ID returns the note's identifier.
func (n *Note) ID() NoteID {
	return NoteID(n.AggregateID())
}

// raise records the event as uncommitted and folds it into state, so that
// command methods and replay share a single mutation path.
func (n *Note) raise(event interface{}) error {
	if err := n.ApplyEvent(event); err != nil {
		return err
	}
	n.Apply(event)
	return nil
}

// ApplyEvent folds a single event into the note's state.
func (n *Note) ApplyEvent(event interface{}) error {
	switch e := event.(type) {
	case NoteCreated:
		n.NotebookID = e.NotebookID
		n.Title = e.Title
		n.CreatedAt = e.CreatedAt
	case NoteRenamed:
		n.Title = e.Title
	case NoteContentChanged:
		n.Content = e.Content
	case NotePinned:
		n.Pinned = true
	case NoteUnpinned:
		n.Pinned = false
	case NoteTagged:
		if !containsTag(n.Tags, e.Tag) {
			n.Tags = append(n.Tags, e.Tag)
		}
	case NoteUntagged:
		n.Tags = removeTag(n.Tags, e.Tag)
	case NoteMoved:
		n.NotebookID = e.NotebookID
	case NoteDeleted:
		n.Deleted = true
	case TodoAdded:
		n.Todos = append(n.Todos, TodoItem{ID: e.TodoID, Text: e.Text})
	case TodoCompleted:
		n.setTodoDone(e.TodoID, true)
	case TodoReopened:
		n.setTodoDone(e.TodoID, false)
	case TodoRemoved:
		n.Todos = removeTodo(n.Todos, e.TodoID)
	default:
		return fmt.Errorf("domain: note cannot apply event %T", event)
	}
	return nil
}

// Create initializes the note in the given notebook.
func (n *Note) Create(notebookID NotebookID, title string) error {
	if !n.CreatedAt.IsZero() {
		return ErrNoteAlreadyExists
	}
	if title == "" {
		return ErrEmptyTitle
	}
	return n.raise(NoteCreated{
		NoteID:     n.ID(),
		NotebookID: notebookID,
		Title:      title,
		CreatedAt:  time.Now().UTC(),
	})
}

// Rename changes the note's title.
func (n *Note) Rename(title string) error {
	if err := n.mutable(); err != nil {
		return err
	}
	if title == "" {
		return ErrEmptyTitle
	}
	if title == n.Title {
		return nil
	}
	return n.raise(NoteRenamed{NoteID: n.ID(), Title: title})
}

// EditContent replaces the note's body.
func (n *Note) EditContent(content string) error {
	if err := n.mutable(); err != nil {
		return err
	}
	if content == n.Content {
		return nil
	}
	return n.raise(NoteContentChanged{NoteID: n.ID(), Content: content})
}

// Pin marks the note as pinned.
func (n *Note) Pin() error {
	if err := n.mutable(); err != nil {
		return err
	}
	if n.Pinned {
		return nil
	}
	return n.raise(NotePinned{NoteID: n.ID()})
}

// Unpin clears the pinned flag.
func (n *Note) Unpin() error {
	if err := n.mutable(); err != nil {
		return err
	}
	if !n.Pinned {
		return nil
	}
	return n.raise(NoteUnpinned{NoteID: n.ID()})
}

// AddTag attaches a tag to the note. Adding an existing tag is a no-op.
func (n *Note) AddTag(tag string) error {
	if err := n.mutable(); err != nil {
		return err
	}
	if tag == "" || containsTag(n.Tags, tag) {
		return nil
	}
	return n.raise(NoteTagged{NoteID: n.ID(), Tag: tag})
}

// RemoveTag detaches a tag. Removing an absent tag is a no-op.
func (n *Note) RemoveTag(tag string) error {
	if err := n.mutable(); err != nil {
		return err
	}
	if !containsTag(n.Tags, tag) {
		return nil
	}
	return n.raise(NoteUntagged{NoteID: n.ID(), Tag: tag})
}

// MoveTo moves the note into another notebook.
func (n *Note) MoveTo(notebookID NotebookID) error {
	if err := n.mutable(); err != nil {
		return err
	}
	if notebookID == n.NotebookID {
		return nil
	}
	return n.raise(NoteMoved{NoteID: n.ID(), NotebookID: notebookID})
}

// Delete soft-deletes the note. Further mutations are rejected.
func (n *Note) Delete() error {
	if err := n.mutable(); err != nil {
		return err
	}
	return n.raise(NoteDeleted{NoteID: n.ID(), DeletedAt: time.Now().UTC()})
}

// AddTodo appends a checklist item and returns its ID.
func (n *Note) AddTodo(text string) (TodoID, error) {
	if err := n.mutable(); err != nil {
		return "", err
	}
	todoID := NewTodoID()
	if err := n.raise(TodoAdded{NoteID: n.ID(), TodoID: todoID, Text: text}); err != nil {
		return "", err
	}
	return todoID, nil
}

// CompleteTodo marks a checklist item done.
func (n *Note) CompleteTodo(todoID TodoID) error {
	if err := n.mutable(); err != nil {
		return err
	}
	todo := n.findTodo(todoID)
	if todo == nil {
		return ErrTodoNotFound
	}
	if todo.Done {
		return nil
	}
	return n.raise(TodoCompleted{NoteID: n.ID(), TodoID: todoID})
}

// ReopenTodo marks a completed checklist item as open again.
func (n *Note) ReopenTodo(todoID TodoID) error {
	if err := n.mutable(); err != nil {
		return err
	}
	todo := n.findTodo(todoID)
	if todo == nil {
		return ErrTodoNotFound
	}
	if !todo.Done {
		return nil
	}
	return n.raise(TodoReopened{NoteID: n.ID(), TodoID: todoID})
}

// RemoveTodo deletes a checklist item.
func (n *Note) RemoveTodo(todoID TodoID) error {
	if err := n.mutable(); err != nil {
		return err
	}
	if n.findTodo(todoID) == nil {
		return ErrTodoNotFound
	}
	return n.raise(TodoRemoved{NoteID: n.ID(), TodoID: todoID})
}

func (n *Note) mutable() error {
	if n.CreatedAt.IsZero() {
		return ErrNoteNotCreated
	}
	if n.Deleted {
		return ErrNoteDeleted
	}
	return nil
}

func (n *Note) findTodo(todoID TodoID) *TodoItem {
	for i := range n.Todos {
		if n.Todos[i].ID == todoID {
			return &n.Todos[i]
		}
	}
	return nil
}

func (n *Note) setTodoDone(todoID TodoID, done bool) {
	if todo := n.findTodo(todoID); todo != nil {
		todo.Done = done
	}
}

// NoteSnapshot is the serialized snapshot state for a Note.
type NoteSnapshot struct {
	NotebookID NotebookID `msgpack:"notebookId"`
	Title      string     `msgpack:"title"`
	Content    string     `msgpack:"content"`
	Pinned     bool       `msgpack:"pinned"`
	Tags       []string   `msgpack:"tags"`
	Todos      []TodoItem `msgpack:"todos"`
	Deleted    bool       `msgpack:"deleted"`
	CreatedAt  time.Time  `msgpack:"createdAt"`
}

// SnapshotState returns a copy of the note's state for snapshotting.
func (n *Note) SnapshotState() interface{} {
	tags := make([]string, len(n.Tags))
	copy(tags, n.Tags)
	todos := make([]TodoItem, len(n.Todos))
	copy(todos, n.Todos)

	return &NoteSnapshot{
		NotebookID: n.NotebookID,
		Title:      n.Title,
		Content:    n.Content,
		Pinned:     n.Pinned,
		Tags:       tags,
		Todos:      todos,
		Deleted:    n.Deleted,
		CreatedAt:  n.CreatedAt,
	}
}

// RestoreSnapshot replaces the note's state from a snapshot.
func (n *Note) RestoreSnapshot(state interface{}) error {
	snap, ok := state.(*NoteSnapshot)
	if !ok {
		return fmt.Errorf("domain: unexpected note snapshot state %T", state)
	}

	n.NotebookID = snap.NotebookID
	n.Title = snap.Title
	n.Content = snap.Content
	n.Pinned = snap.Pinned
	n.Tags = snap.Tags
	n.Todos = snap.Todos
	n.Deleted = snap.Deleted
	n.CreatedAt = snap.CreatedAt
	return nil
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func removeTag(tags []string, tag string) []string {
	out := tags[:0]
	for _, t := range tags {
		if t != tag {
			out = append(out, t)
		}
	}
	return out
}

func removeTodo(todos []TodoItem, todoID TodoID) []TodoItem {
	out := todos[:0]
	for _, t := range todos {
		if t.ID != todoID {
			out = append(out, t)
		}
	}
	return out
}
