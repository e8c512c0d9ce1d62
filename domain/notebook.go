package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/inkwell-notes/inkwell"
)

// AggregateTypeNotebook is the stream category for notebooks.
const AggregateTypeNotebook = "Notebook"

var (
	ErrNotebookAlreadyExists = errors.New("domain: notebook already exists")
	ErrNotebookNotCreated    = errors.New("domain: notebook not created")
	ErrNotebookDeleted       = errors.New("domain: notebook is deleted")
	ErrEmptyName             = errors.New("domain: name must not be empty")
	ErrNotebookOwnParent     = errors.New("domain: notebook cannot be its own parent")
)

// Notebook is a hierarchical container for notes. ParentID is empty for
// top-level notebooks. Cycle prevention beyond self-parenting is the
// responsibility of the caller, which can see the whole tree.
type Notebook struct {
	inkwell.AggregateBase

	ParentID  NotebookID
	Name      string
	Deleted   bool
	CreatedAt time.Time
}

var _ inkwell.Aggregate = (*Notebook)(nil)
var _ inkwell.Snapshotter = (*Notebook)(nil)

// NewNotebook creates an empty notebook aggregate ready to replay events into.
func NewNotebook(id NotebookID) *Notebook {
	return &Notebook{
		AggregateBase: inkwell.NewAggregateBase(id.String(), AggregateTypeNotebook),
	}
}

// ID returns the notebook's identifier.
func (nb *Notebook) ID() NotebookID {
	return NotebookID(nb.AggregateID())
}

func (nb *Notebook) raise(event interface{}) error {
	if err := nb.ApplyEvent(event); err != nil {
		return err
	}
	nb.Apply(event)
	return nil
}

// ApplyEvent folds a single event into the notebook's state.
func (nb *Notebook) ApplyEvent(event interface{}) error {
	switch e := event.(type) {
	case NotebookCreated:
		nb.ParentID = e.ParentID
		nb.Name = e.Name
		nb.CreatedAt = e.CreatedAt
	case NotebookRenamed:
		nb.Name = e.Name
	case NotebookMoved:
		nb.ParentID = e.ParentID
	case NotebookDeleted:
		nb.Deleted = true
	default:
		return fmt.Errorf("domain: notebook cannot apply event %T", event)
	}
	return nil
}

// Create initializes the notebook under the given parent (empty = root).
func (nb *Notebook) Create(parentID NotebookID, name string) error {
	if !nb.CreatedAt.IsZero() {
		return ErrNotebookAlreadyExists
	}
	if name == "" {
		return ErrEmptyName
	}
	if parentID == nb.ID() {
		return ErrNotebookOwnParent
	}
	return nb.raise(NotebookCreated{
		NotebookID: nb.ID(),
		ParentID:   parentID,
		Name:       name,
		CreatedAt:  time.Now().UTC(),
	})
}

// Rename changes the notebook's name.
func (nb *Notebook) Rename(name string) error {
	if err := nb.mutable(); err != nil {
		return err
	}
	if name == "" {
		return ErrEmptyName
	}
	if name == nb.Name {
		return nil
	}
	return nb.raise(NotebookRenamed{NotebookID: nb.ID(), Name: name})
}

// MoveTo reparents the notebook (empty = root).
func (nb *Notebook) MoveTo(parentID NotebookID) error {
	if err := nb.mutable(); err != nil {
		return err
	}
	if parentID == nb.ID() {
		return ErrNotebookOwnParent
	}
	if parentID == nb.ParentID {
		return nil
	}
	return nb.raise(NotebookMoved{NotebookID: nb.ID(), ParentID: parentID})
}

// Delete soft-deletes the notebook. Further mutations are rejected.
func (nb *Notebook) Delete() error {
	if err := nb.mutable(); err != nil {
		return err
	}
	return nb.raise(NotebookDeleted{NotebookID: nb.ID(), DeletedAt: time.Now().UTC()})
}

func (nb *Notebook) mutable() error {
	if nb.CreatedAt.IsZero() {
		return ErrNotebookNotCreated
	}
	if nb.Deleted {
		return ErrNotebookDeleted
	}
	return nil
}

// NotebookSnapshot is the serialized snapshot state for a Notebook.
type NotebookSnapshot struct {
	ParentID  NotebookID `msgpack:"parentId"`
	Name      string     `msgpack:"name"`
	Deleted   bool       `msgpack:"deleted"`
	CreatedAt time.Time  `msgpack:"createdAt"`
}

// SnapshotState returns a copy of the notebook's state for snapshotting.
func (nb *Notebook) SnapshotState() interface{} {
	return &NotebookSnapshot{
		ParentID:  nb.ParentID,
		Name:      nb.Name,
		Deleted:   nb.Deleted,
		CreatedAt: nb.CreatedAt,
	}
}

// RestoreSnapshot replaces the notebook's state from a snapshot.
func (nb *Notebook) RestoreSnapshot(state interface{}) error {
	snap, ok := state.(*NotebookSnapshot)
	if !ok {
		return fmt.Errorf("domain: unexpected notebook snapshot state %T", state)
	}

	nb.ParentID = snap.ParentID
	nb.Name = snap.Name
	nb.Deleted = snap.Deleted
	nb.CreatedAt = snap.CreatedAt
	return nil
}
