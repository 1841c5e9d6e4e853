package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/isdelr/nota-be/internal/apperrors"
	"github.com/isdelr/nota-be/internal/database"
	"github.com/isdelr/nota-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(database.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func seedUser(t *testing.T, s *UserStore, id, username string) models.User {
	t.Helper()
	u := models.User{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash-" + username,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.Create(context.Background(), u))
	return u
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%grocer%", likePattern("GROCER"))
	assert.Equal(t, `%50\% off%`, likePattern("50% off"))
	assert.Equal(t, `%a\_b%`, likePattern("a_b"))
	assert.Equal(t, `%c:\\tmp%`, likePattern(`C:\tmp`))
	assert.Equal(t, "%école%", likePattern("ÉCOLE"))
}

func TestIsUniqueViolation_OtherErrors(t *testing.T) {
	_, ok := isUniqueViolation(errors.New("boom"))
	assert.False(t, ok)
}

func TestUserStore_CreateAndGet(t *testing.T) {
	s := NewUserStore(setupDB(t))
	ctx := context.Background()
	alice := seedUser(t, s, "u1", "alice")

	byID, err := s.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, alice.Username, byID.Username)
	assert.Equal(t, alice.Email, byID.Email)
	assert.Equal(t, alice.PasswordHash, byID.PasswordHash)
	assert.WithinDuration(t, alice.CreatedAt, byID.CreatedAt, time.Millisecond)

	byName, err := s.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "u1", byName.ID)

	byEmail, err := s.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", byEmail.ID)

	_, err = s.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserStore_CreateConflicts(t *testing.T) {
	s := NewUserStore(setupDB(t))
	ctx := context.Background()
	seedUser(t, s, "u1", "alice")

	err := s.Create(ctx, models.User{ID: "u2", Username: "alice", Email: "other@example.com", PasswordHash: "x", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.EqualError(t, err, "username already exists")

	err = s.Create(ctx, models.User{ID: "u3", Username: "bob", Email: "alice@example.com", PasswordHash: "x", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.EqualError(t, err, "email already exists")
}

func TestUserStore_GetByUsernameOrEmail(t *testing.T) {
	s := NewUserStore(setupDB(t))
	ctx := context.Background()
	seedUser(t, s, "u1", "alice")
	require.NoError(t, s.Create(ctx, models.User{ID: "u2", Username: "bob", Email: "bob@example.com", PasswordHash: "x", CreatedAt: time.Now()}))

	u, err := s.GetByUsernameOrEmail(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	u, err = s.GetByUsernameOrEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u2", u.ID)

	_, err = s.GetByUsernameOrEmail(ctx, "carol")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserStore_UpdatePassword(t *testing.T) {
	s := NewUserStore(setupDB(t))
	ctx := context.Background()
	seedUser(t, s, "u1", "alice")

	require.NoError(t, s.UpdatePassword(ctx, "u1", "new-hash"))
	u, err := s.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "new-hash", u.PasswordHash)

	assert.ErrorIs(t, s.UpdatePassword(ctx, "missing", "x"), apperrors.ErrNotFound)
}

func TestUserStore_DBError(t *testing.T) {
	db, mock := newSQLMock(t)
	s := NewUserStore(db)

	mock.ExpectExec("INSERT INTO users").WillReturnError(errors.New("db down"))
	err := s.Create(context.Background(), models.User{ID: "u1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.NotErrorIs(t, err, apperrors.ErrConflict)

	mock.ExpectQuery("SELECT .* FROM users WHERE id").WillReturnError(errors.New("db down"))
	_, err = s.GetByID(context.Background(), "u1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenBlacklist_AddContainsIdempotent(t *testing.T) {
	b := NewTokenBlacklist(setupDB(t), time.Hour)
	ctx := context.Background()

	ok, err := b.Contains(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Add(ctx, "tok"))
	require.NoError(t, b.Add(ctx, "tok"), "duplicate insert must be a no-op")

	ok, err = b.Contains(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTokenBlacklist_ExpiryAndPurge(t *testing.T) {
	b := NewTokenBlacklist(setupDB(t), time.Hour)
	ctx := context.Background()

	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return start }
	require.NoError(t, b.Add(ctx, "old"))

	b.now = func() time.Time { return start.Add(30 * time.Minute) }
	require.NoError(t, b.Add(ctx, "fresh"))

	b.now = func() time.Time { return start.Add(61 * time.Minute) }
	ok, err := b.Contains(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok, "entry past ttl must be ignored before purge runs")

	ok, err = b.Contains(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := b.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = b.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestTokenBlacklist_DBError(t *testing.T) {
	db, mock := newSQLMock(t)
	b := NewTokenBlacklist(db, time.Hour)

	mock.ExpectQuery("SELECT 1 FROM blacklisted_tokens").WillReturnError(errors.New("db down"))
	_, err := b.Contains(context.Background(), "tok")
	assert.Error(t, err)

	mock.ExpectExec("INSERT OR IGNORE INTO blacklisted_tokens").WillReturnError(errors.New("db down"))
	assert.Error(t, b.Add(context.Background(), "tok"))

	require.NoError(t, mock.ExpectationsWereMet())
}

type noteFixture struct {
	notes *NoteStore
	users *UserStore
}

func newNoteFixture(t *testing.T) noteFixture {
	t.Helper()
	db := setupDB(t)
	f := noteFixture{notes: NewNoteStore(db), users: NewUserStore(db)}
	seedUser(t, f.users, "u1", "alice")
	seedUser(t, f.users, "u2", "bob")
	return f
}

func (f noteFixture) add(t *testing.T, id, authorID, title, content string, v models.Visibility, at time.Time) {
	t.Helper()
	require.NoError(t, f.notes.Create(context.Background(), models.Note{
		ID: id, Title: title, Content: content, Visibility: v,
		Author: models.Author{ID: authorID}, CreatedAt: at, EditedAt: at,
	}))
}

func ids(notes []models.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.ID
	}
	return out
}

func TestNoteStore_CreateGetRoundTrip(t *testing.T) {
	f := newNoteFixture(t)
	now := time.Now().UTC()
	f.add(t, "n1", "u1", "T", "C", models.VisibilityPublic, now)

	n, err := f.notes.GetByID(context.Background(), "n1")
	require.NoError(t, err)
	assert.Equal(t, "T", n.Title)
	assert.Equal(t, "C", n.Content)
	assert.Equal(t, models.VisibilityPublic, n.Visibility)
	assert.Equal(t, models.Author{ID: "u1", Username: "alice"}, n.Author)
	assert.WithinDuration(t, now, n.CreatedAt, time.Millisecond)

	_, err = f.notes.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestNoteStore_CreateRequiresExistingAuthor(t *testing.T) {
	f := newNoteFixture(t)
	err := f.notes.Create(context.Background(), models.Note{
		ID: "n1", Title: "t", Content: "c", Visibility: models.VisibilityPublic,
		Author: models.Author{ID: "ghost"}, CreatedAt: time.Now(), EditedAt: time.Now(),
	})
	assert.Error(t, err)
}

func TestNoteStore_UpdatePartial(t *testing.T) {
	f := newNoteFixture(t)
	ctx := context.Background()
	created := time.Now().UTC().Add(-time.Hour)
	f.add(t, "n1", "u1", "Title", "Content", models.VisibilityPublic, created)

	title := "New title"
	member := models.VisibilityMember
	edited := time.Now().UTC()
	require.NoError(t, f.notes.Update(ctx, "n1", models.NotePatch{Title: &title, Visibility: &member}, edited))

	n, err := f.notes.GetByID(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "New title", n.Title)
	assert.Equal(t, "Content", n.Content)
	assert.Equal(t, models.VisibilityMember, n.Visibility)
	assert.WithinDuration(t, created, n.CreatedAt, time.Millisecond)
	assert.WithinDuration(t, edited, n.EditedAt, time.Millisecond)

	err = f.notes.Update(ctx, "missing", models.NotePatch{Title: &title}, edited)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestNoteStore_Delete(t *testing.T) {
	f := newNoteFixture(t)
	ctx := context.Background()
	f.add(t, "n1", "u1", "t", "c", models.VisibilityPublic, time.Now())

	require.NoError(t, f.notes.Delete(ctx, "n1"))
	_, err := f.notes.GetByID(ctx, "n1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, f.notes.Delete(ctx, "n1"), apperrors.ErrNotFound)
}

func TestNoteStore_ListFilters(t *testing.T) {
	f := newNoteFixture(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f.add(t, "n1", "u1", "Weekly Groceries", "milk, eggs", models.VisibilityPublic, base)
	f.add(t, "n2", "u1", "Secret plans", "member only", models.VisibilityMember, base.Add(time.Minute))
	f.add(t, "n3", "u2", "Reading list", "Dune", models.VisibilityPublic, base.Add(2*time.Minute))
	f.add(t, "n4", "u2", "Discount", "100% off_today", models.VisibilityMember, base.Add(3*time.Minute))

	tests := []struct {
		name   string
		filter models.NoteFilter
		want   []string
	}{
		{"all newest first", models.NoteFilter{}, []string{"n4", "n3", "n2", "n1"}},
		{"public only", models.NoteFilter{Visibilities: []models.Visibility{models.VisibilityPublic}}, []string{"n3", "n1"}},
		{"by author", models.NoteFilter{AuthorID: "u1"}, []string{"n2", "n1"}},
		{"search title lower", models.NoteFilter{Search: "grocer"}, []string{"n1"}},
		{"search title upper", models.NoteFilter{Search: "GROCER"}, []string{"n1"}},
		{"search content", models.NoteFilter{Search: "dune"}, []string{"n3"}},
		{"search author username", models.NoteFilter{Search: "BoB"}, []string{"n4", "n3"}},
		{"search literal percent", models.NoteFilter{Search: "100%"}, []string{"n4"}},
		{"search literal underscore", models.NoteFilter{Search: "f_t"}, []string{"n4"}},
		{"underscore is not a wildcard", models.NoteFilter{Search: "o_f"}, []string{}},
		{"search within author", models.NoteFilter{AuthorID: "u1", Search: "plans"}, []string{"n2"}},
		{"search public only", models.NoteFilter{Search: "bob", Visibilities: []models.Visibility{models.VisibilityPublic}}, []string{"n3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notes, total, err := f.notes.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(notes))
			assert.Equal(t, len(tt.want), total)
		})
	}
}

func TestNoteStore_ListSearchFoldsUnicode(t *testing.T) {
	f := newNoteFixture(t)
	ctx := context.Background()
	f.add(t, "n1", "u1", "ÉCOLE notes", "Ünïcode body", models.VisibilityPublic, time.Now())
	f.add(t, "n2", "u1", "ecole", "ascii only", models.VisibilityPublic, time.Now().Add(-time.Minute))

	for _, term := range []string{"ÉCOLE", "école", "ÉCOLE notes", "écOLE", "üNÏCODE"} {
		t.Run(term, func(t *testing.T) {
			notes, total, err := f.notes.List(ctx, models.NoteFilter{Search: term})
			require.NoError(t, err)
			assert.Equal(t, []string{"n1"}, ids(notes))
			assert.Equal(t, 1, total)
		})
	}
}

func TestFoldFunc(t *testing.T) {
	v, err := foldFunc(nil, []driver.Value{"ÀÉÎ"})
	require.NoError(t, err)
	assert.Equal(t, "àéî", v)

	v, err = foldFunc(nil, []driver.Value{[]byte("ÖL")})
	require.NoError(t, err)
	assert.Equal(t, "öl", v)

	v, err = foldFunc(nil, []driver.Value{nil})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestNoteStore_ListPagination(t *testing.T) {
	f := newNoteFixture(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		f.add(t, id, "u1", "t"+id, "c", models.VisibilityPublic, base.Add(time.Duration(i)*time.Second))
	}

	notes, total, err := f.notes.List(ctx, models.NoteFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Equal(t, []string{"e", "d"}, ids(notes))

	notes, _, err = f.notes.List(ctx, models.NoteFilter{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(notes))

	notes, total, err = f.notes.List(ctx, models.NoteFilter{Limit: 2, Offset: 10})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, notes)
}

func TestNoteStore_DBError(t *testing.T) {
	db, mock := newSQLMock(t)
	s := NewNoteStore(db)

	mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("db down"))
	_, _, err := s.List(context.Background(), models.NoteFilter{})
	assert.Error(t, err)

	mock.ExpectExec("DELETE FROM notes").WillReturnError(errors.New("db down"))
	err = s.Delete(context.Background(), "n1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
