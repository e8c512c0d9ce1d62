// Package domain contains the Inkwell aggregates (notes, notebooks) and
// their events.
package domain

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// NoteID identifies a note.
type NoteID string

// NewNoteID generates a random NoteID.
func NewNoteID() NoteID {
	return NoteID(uuid.NewString())
}

func (id NoteID) String() string { return string(id) }

// IsEmpty reports whether the ID is unset.
func (id NoteID) IsEmpty() bool { return id == "" }

// MarshalJSON always encodes the ID as a bare string.
func (id NoteID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts both the current bare-string encoding and the legacy
// nested-object encoding ({"value": "..."}). The object branch is a one-time
// compatibility shim for events written before the format change; new code
// must not produce it.
func (id *NoteID) UnmarshalJSON(data []byte) error {
	s, err := decodeID(data)
	if err != nil {
		return fmt.Errorf("domain: invalid note id: %w", err)
	}
	*id = NoteID(s)
	return nil
}

// NotebookID identifies a notebook. The empty value means "root": a notebook
// with an empty parent ID is a top-level notebook.
type NotebookID string

// NewNotebookID generates a random NotebookID.
func NewNotebookID() NotebookID {
	return NotebookID(uuid.NewString())
}

func (id NotebookID) String() string { return string(id) }

// IsEmpty reports whether the ID is unset.
func (id NotebookID) IsEmpty() bool { return id == "" }

// MarshalJSON always encodes the ID as a bare string.
func (id NotebookID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts both the bare-string and legacy nested-object
// encodings. See NoteID.UnmarshalJSON.
func (id *NotebookID) UnmarshalJSON(data []byte) error {
	s, err := decodeID(data)
	if err != nil {
		return fmt.Errorf("domain: invalid notebook id: %w", err)
	}
	*id = NotebookID(s)
	return nil
}

// TodoID identifies a checklist item within a note.
type TodoID string

// NewTodoID generates a random TodoID.
func NewTodoID() TodoID {
	return TodoID(uuid.NewString())
}

func (id TodoID) String() string { return string(id) }

// MarshalJSON always encodes the ID as a bare string.
func (id TodoID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts both the bare-string and legacy nested-object
// encodings. See NoteID.UnmarshalJSON.
func (id *TodoID) UnmarshalJSON(data []byte) error {
	s, err := decodeID(data)
	if err != nil {
		return fmt.Errorf("domain: invalid todo id: %w", err)
	}
	*id = TodoID(s)
	return nil
}

// decodeID is the two-branch identifier decoder: a bare JSON string, or the
// legacy object form. json.Unmarshal matches the "value" key
// case-insensitively, which covers both historical casings.
func decodeID(data []byte) (string, error) {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	}

	var legacy struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &legacy); err != nil {
		return "", err
	}
	return legacy.Value, nil
}
