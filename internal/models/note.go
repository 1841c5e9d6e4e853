package models

import "time"

// Visibility controls who may view a note.
type Visibility string

const (
	// VisibilityPublic notes are visible to anyone, including anonymous callers.
	VisibilityPublic Visibility = "public"
	// VisibilityMember notes are visible to any authenticated user.
	VisibilityMember Visibility = "member"
)

// Valid reports whether v is one of the two known visibilities.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityMember
}

// Author is the embedded author reference returned with a note.
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Note is a titled text entry owned by its author.
type Note struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Visibility Visibility `json:"visibility"`
	Author     Author     `json:"author"`
	CreatedAt  time.Time  `json:"createdAt"`
	EditedAt   time.Time  `json:"editedAt"`
}

// NotePatch holds the fields of a partial note update. Nil fields are left unchanged.
type NotePatch struct {
	Title      *string
	Content    *string
	Visibility *Visibility
}

// Empty reports whether the patch changes nothing.
func (p NotePatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Visibility == nil
}

// NoteFilter selects notes for list queries.
type NoteFilter struct {
	AuthorID     string       // Restrict to one author when set
	Visibilities []Visibility // Allowed visibilities; empty means any
	Search       string       // Case-insensitive substring over title, content and author username
	Offset       int
	Limit        int
}

// NotePage is one page of a note listing.
type NotePage struct {
	Items []Note `json:"items"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Total int    `json:"total"`
}
