package services

import (
	"context"
	"fmt"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/isdelr/nota-be/internal/apperrors"
	"github.com/isdelr/nota-be/internal/auth"
	"github.com/isdelr/nota-be/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	MaxTitleLength   = 100
	MaxContentLength = 1000

	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// NoteRepository is the note store used by NoteService.
type NoteRepository interface {
	Create(ctx context.Context, note models.Note) error
	GetByID(ctx context.Context, id string) (models.Note, error)
	Update(ctx context.Context, id string, patch models.NotePatch, editedAt time.Time) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.NoteFilter) ([]models.Note, int, error)
}

// Publisher receives note change events.
type Publisher interface {
	Publish(event models.NoteEvent)
}

type noopPublisher struct{}

func (noopPublisher) Publish(models.NoteEvent) {}

// CreateNoteInput carries the fields of a new note. An empty Visibility means public.
type CreateNoteInput struct {
	Title      string
	Content    string
	Visibility models.Visibility
}

// NoteQuery is a search and pagination request for note listings.
type NoteQuery struct {
	Search     string
	Page       int
	Limit      int
	Visibility models.Visibility // Optional narrowing filter
}

func (q NoteQuery) normalized() NoteQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	return q
}

// NoteServiceProvider defines the interface for note services.
type NoteServiceProvider interface {
	Create(ctx context.Context, userID string, input CreateNoteInput) (models.Note, error)
	FindAll(ctx context.Context, caller *auth.Identity, q NoteQuery) (models.NotePage, error)
	FindAllByAuthor(ctx context.Context, authorID string, q NoteQuery) (models.NotePage, error)
	FindSharedByAuthor(ctx context.Context, authorID string, q NoteQuery) (models.NotePage, error)
	FindOne(ctx context.Context, id string, caller *auth.Identity) (models.Note, error)
	Update(ctx context.Context, id string, patch models.NotePatch, callerID string) (models.Note, error)
	Remove(ctx context.Context, id string, callerID string) error
}

// NoteService applies visibility and ownership rules on top of the note store.
type NoteService struct {
	notes     NoteRepository
	publisher Publisher
	now       func() time.Time
}

// NewNoteService creates a new NoteService. A nil publisher discards events.
func NewNoteService(notes NoteRepository, publisher Publisher) *NoteService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &NoteService{notes: notes, publisher: publisher, now: time.Now}
}

// Create stores a new note owned by userID.
func (s *NoteService) Create(ctx context.Context, userID string, input CreateNoteInput) (models.Note, error) {
	if input.Visibility == "" {
		input.Visibility = models.VisibilityPublic
	}
	if err := validateNote(&input.Title, &input.Content, &input.Visibility); err != nil {
		return models.Note{}, err
	}

	now := s.now()
	note := models.Note{
		ID:         uuid.New().String(),
		Title:      input.Title,
		Content:    input.Content,
		Visibility: input.Visibility,
		Author:     models.Author{ID: userID},
		CreatedAt:  now,
		EditedAt:   now,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return models.Note{}, err
	}

	created, err := s.notes.GetByID(ctx, note.ID)
	if err != nil {
		return models.Note{}, err
	}

	log.Debug().Str("note_id", created.ID).Str("user_id", userID).Msg("Note created")
	s.publisher.Publish(models.NoteEvent{Type: models.NoteCreated, NoteID: created.ID, Visibility: created.Visibility, Note: &created})
	return created, nil
}

// FindAll lists the site-wide feed. Anonymous callers see public notes only.
func (s *NoteService) FindAll(ctx context.Context, caller *auth.Identity, q NoteQuery) (models.NotePage, error) {
	allowed := []models.Visibility{models.VisibilityPublic, models.VisibilityMember}
	if caller == nil {
		allowed = []models.Visibility{models.VisibilityPublic}
	}
	return s.list(ctx, "", allowed, q)
}

// FindAllByAuthor lists every note of one author.
func (s *NoteService) FindAllByAuthor(ctx context.Context, authorID string, q NoteQuery) (models.NotePage, error) {
	return s.list(ctx, authorID, nil, q)
}

// FindSharedByAuthor lists the public and member notes of one author. It must
// only be reachable by authenticated callers.
func (s *NoteService) FindSharedByAuthor(ctx context.Context, authorID string, q NoteQuery) (models.NotePage, error) {
	return s.list(ctx, authorID, []models.Visibility{models.VisibilityPublic, models.VisibilityMember}, q)
}

// list narrows allowed by the query's visibility filter. A nil allowed set
// means every visibility.
func (s *NoteService) list(ctx context.Context, authorID string, allowed []models.Visibility, q NoteQuery) (models.NotePage, error) {
	q = q.normalized()
	page := models.NotePage{Items: []models.Note{}, Page: q.Page, Limit: q.Limit}

	if q.Visibility != "" {
		if !q.Visibility.Valid() {
			return models.NotePage{}, apperrors.Validation(visibilityMessage)
		}
		if allowed != nil && !slices.Contains(allowed, q.Visibility) {
			return page, nil
		}
		allowed = []models.Visibility{q.Visibility}
	}

	items, total, err := s.notes.List(ctx, models.NoteFilter{
		AuthorID:     authorID,
		Visibilities: allowed,
		Search:       q.Search,
		Offset:       (q.Page - 1) * q.Limit,
		Limit:        q.Limit,
	})
	if err != nil {
		return models.NotePage{}, err
	}
	page.Items = items
	page.Total = total
	return page, nil
}

// FindOne returns a note the caller may see. Member notes require a caller.
func (s *NoteService) FindOne(ctx context.Context, id string, caller *auth.Identity) (models.Note, error) {
	note, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return models.Note{}, err
	}
	if note.Visibility == models.VisibilityMember && caller == nil {
		return models.Note{}, apperrors.Forbidden("you must be logged in to view this note")
	}
	return note, nil
}

// Update applies patch to a note owned by callerID and returns the result.
// An empty patch returns the note unchanged.
func (s *NoteService) Update(ctx context.Context, id string, patch models.NotePatch, callerID string) (models.Note, error) {
	note, err := s.owned(ctx, id, callerID, "update")
	if err != nil {
		return models.Note{}, err
	}
	if patch.Empty() {
		return note, nil
	}
	if err := validateNote(patch.Title, patch.Content, patch.Visibility); err != nil {
		return models.Note{}, err
	}

	if err := s.notes.Update(ctx, id, patch, s.now()); err != nil {
		return models.Note{}, err
	}
	updated, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return models.Note{}, err
	}

	s.publisher.Publish(models.NoteEvent{
		Type:               models.NoteUpdated,
		NoteID:             id,
		Visibility:         updated.Visibility,
		PreviousVisibility: note.Visibility,
		Note:               &updated,
	})
	return updated, nil
}

// Remove deletes a note owned by callerID.
func (s *NoteService) Remove(ctx context.Context, id string, callerID string) error {
	note, err := s.owned(ctx, id, callerID, "delete")
	if err != nil {
		return err
	}
	if err := s.notes.Delete(ctx, id); err != nil {
		return err
	}

	log.Debug().Str("note_id", id).Str("user_id", callerID).Msg("Note deleted")
	s.publisher.Publish(models.NoteEvent{Type: models.NoteDeleted, NoteID: id, Visibility: note.Visibility})
	return nil
}

func (s *NoteService) owned(ctx context.Context, id, callerID, action string) (models.Note, error) {
	caller := &auth.Identity{UserID: callerID}
	note, err := s.FindOne(ctx, id, caller)
	if err != nil {
		return models.Note{}, err
	}
	if note.Author.ID != callerID {
		return models.Note{}, apperrors.Forbidden(fmt.Sprintf("you are not allowed to %s this note", action))
	}
	return note, nil
}

const visibilityMessage = "visibility must be one of the following values: public, member"

// validateNote checks the non-nil fields and reports every violation.
func validateNote(title, content *string, visibility *models.Visibility) error {
	var fields []string
	if title != nil {
		switch n := utf8.RuneCountInString(*title); {
		case n == 0:
			fields = append(fields, "title should not be empty")
		case n > MaxTitleLength:
			fields = append(fields, fmt.Sprintf("title must be shorter than or equal to %d characters", MaxTitleLength))
		}
	}
	if content != nil {
		switch n := utf8.RuneCountInString(*content); {
		case n == 0:
			fields = append(fields, "content should not be empty")
		case n > MaxContentLength:
			fields = append(fields, fmt.Sprintf("content must be shorter than or equal to %d characters", MaxContentLength))
		}
	}
	if visibility != nil && !visibility.Valid() {
		fields = append(fields, visibilityMessage)
	}
	if len(fields) > 0 {
		return apperrors.Validation(fields...)
	}
	return nil
}
