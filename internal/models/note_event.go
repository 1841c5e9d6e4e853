package models

// NoteEventType names a change to a note.
type NoteEventType string

const (
	NoteCreated NoteEventType = "note.created"
	NoteUpdated NoteEventType = "note.updated"
	NoteDeleted NoteEventType = "note.deleted"
)

// NoteEvent describes a note change for live subscribers. Note is nil for
// deletions; Visibility is the visibility the note had when the event fired.
// PreviousVisibility is set on updates to the visibility before the change.
type NoteEvent struct {
	Type               NoteEventType
	NoteID             string
	Visibility         Visibility
	PreviousVisibility Visibility
	Note               *Note
}
