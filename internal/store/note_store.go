package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/isdelr/nota-be/internal/apperrors"
	"github.com/isdelr/nota-be/internal/models"
)

// NoteStore persists notes. Reads join the author's username.
type NoteStore struct {
	db *sql.DB
}

// NewNoteStore creates a new NoteStore.
func NewNoteStore(db *sql.DB) *NoteStore {
	return &NoteStore{db: db}
}

const noteSelect = `
	SELECT n.id, n.title, n.content, n.visibility, n.author_id, u.username, n.created_at, n.edited_at
	FROM notes n
	JOIN users u ON u.id = n.author_id`

// Create inserts a new note. note.Author.ID must reference an existing user.
func (s *NoteStore) Create(ctx context.Context, note models.Note) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (id, author_id, title, content, visibility, created_at, edited_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		note.ID, note.Author.ID, note.Title, note.Content, string(note.Visibility),
		note.CreatedAt.UTC(), note.EditedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// GetByID retrieves a single note with its author.
func (s *NoteStore) GetByID(ctx context.Context, id string) (models.Note, error) {
	row := s.db.QueryRowContext(ctx, noteSelect+` WHERE n.id = ?`, id)
	note, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Note{}, apperrors.NotFound(fmt.Sprintf("note with ID %s not found", id))
		}
		return models.Note{}, fmt.Errorf("get note: %w", err)
	}
	return note, nil
}

// Update applies the non-nil fields of patch and stamps editedAt.
func (s *NoteStore) Update(ctx context.Context, id string, patch models.NotePatch, editedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notes
		SET title = COALESCE(?, title),
			content = COALESCE(?, content),
			visibility = COALESCE(?, visibility),
			edited_at = ?
		WHERE id = ?`,
		nullString(patch.Title), nullString(patch.Content), nullVisibility(patch.Visibility),
		editedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return expectAffected(res, id)
}

// Delete removes a note.
func (s *NoteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return expectAffected(res, id)
}

// List returns the notes matching filter, newest first, together with the
// total number of matches ignoring Offset and Limit.
func (s *NoteStore) List(ctx context.Context, filter models.NoteFilter) ([]models.Note, int, error) {
	where, args := buildNoteWhere(filter)

	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notes n JOIN users u ON u.id = n.author_id`+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count notes: %w", err)
	}

	query := noteSelect + where + ` ORDER BY n.created_at DESC, n.id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := []models.Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list notes: %w", err)
	}
	return notes, total, nil
}

func buildNoteWhere(filter models.NoteFilter) (string, []any) {
	var clauses []string
	var args []any

	if filter.AuthorID != "" {
		clauses = append(clauses, `n.author_id = ?`)
		args = append(args, filter.AuthorID)
	}
	if len(filter.Visibilities) > 0 {
		marks := make([]string, len(filter.Visibilities))
		for i, v := range filter.Visibilities {
			marks[i] = "?"
			args = append(args, string(v))
		}
		clauses = append(clauses, `n.visibility IN (`+strings.Join(marks, ", ")+`)`)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		p := likePattern(term)
		clauses = append(clauses, `(fold(n.title) LIKE ? ESCAPE '\' OR fold(n.content) LIKE ? ESCAPE '\' OR fold(u.username) LIKE ? ESCAPE '\')`)
		args = append(args, p, p, p)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return ` WHERE ` + strings.Join(clauses, ` AND `), args
}

func scanNote(scanner interface{ Scan(...any) error }) (models.Note, error) {
	var note models.Note
	var visibility string
	err := scanner.Scan(
		&note.ID,
		&note.Title,
		&note.Content,
		&visibility,
		&note.Author.ID,
		&note.Author.Username,
		&note.CreatedAt,
		&note.EditedAt,
	)
	if err != nil {
		return models.Note{}, err
	}
	note.Visibility = models.Visibility(visibility)
	return note, nil
}

func expectAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound(fmt.Sprintf("note with ID %s not found", id))
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullVisibility(v *models.Visibility) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*v), Valid: true}
}
