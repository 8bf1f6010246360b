package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/pavelanni/mathpro/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func structuredContent(lesson string, n int) model.Content {
	c := model.Content{Type: model.SourceGenerated, LessonName: lesson}
	for i := 0; i < n; i++ {
		c.Questions = append(c.Questions, model.Question{
			ID:            model.QuestionID(string(rune('1' + i))),
			Type:          model.QuestionMultipleChoice,
			Level:         "Nhận biết",
			Question:      "Câu hỏi",
			Options:       []string{"1", "2", "3", "4"},
			CorrectAnswer: "A",
		})
	}
	return c
}

func insertTestWorksheet(t *testing.T, s *Store, name, grade string, category model.Category, created time.Time) int64 {
	t.Helper()
	id, err := s.InsertWorksheet(context.Background(), model.LibraryEntry{
		Name:      name,
		Grade:     grade,
		Category:  category,
		Content:   structuredContent(name, 2),
		CreatedBy: 1,
		CreatedAt: created,
	})
	if err != nil {
		t.Fatalf("insertTestWorksheet: %v", err)
	}
	return id
}

func TestParseDriver(t *testing.T) {
	tests := []struct {
		in      string
		want    Driver
		wantErr bool
	}{
		{"", DriverSQLite, false},
		{"sqlite", DriverSQLite, false},
		{"Postgres", DriverPostgres, false},
		{"pgx", DriverPostgres, false},
		{"mysql", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDriver(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDriver(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseDriver(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSQLiteDSN(t *testing.T) {
	if got := sqliteDSN(":memory:"); got != ":memory:" {
		t.Errorf("memory dsn changed: %q", got)
	}
	if got := sqliteDSN("file:x.db?mode=ro"); got != "file:x.db?mode=ro" {
		t.Errorf("dsn with params changed: %q", got)
	}
	if got := sqliteDSN("data/mathpro.db"); got == "data/mathpro.db" {
		t.Error("expected pragmas appended")
	}
}

func TestWorksheetCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	list, err := s.ListWorksheets(ctx, "")
	if err != nil {
		t.Fatalf("ListWorksheets: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}

	created := time.Date(2025, 9, 5, 7, 30, 0, 0, time.UTC)
	id := insertTestWorksheet(t, s, "Phân số", "6", model.CategoryPractice, created)

	e, err := s.GetWorksheet(ctx, id)
	if err != nil {
		t.Fatalf("GetWorksheet: %v", err)
	}
	if e == nil {
		t.Fatal("expected worksheet, got nil")
	}
	if e.Name != "Phân số" || e.Grade != "6" || e.Category != model.CategoryPractice {
		t.Errorf("unexpected entry %+v", e)
	}
	if !e.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", e.CreatedAt, created)
	}
	if len(e.Content.Questions) != 2 || e.Content.Questions[0].Options[3] != "4" {
		t.Errorf("content not round-tripped: %+v", e.Content)
	}

	// Not found.
	missing, err := s.GetWorksheet(ctx, 9999)
	if err != nil {
		t.Fatalf("GetWorksheet missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing worksheet, got %+v", missing)
	}

	deleted, err := s.DeleteWorksheet(ctx, id)
	if err != nil {
		t.Fatalf("DeleteWorksheet: %v", err)
	}
	if !deleted {
		t.Error("expected row to be deleted")
	}
	deleted, err = s.DeleteWorksheet(ctx, id)
	if err != nil {
		t.Fatalf("DeleteWorksheet again: %v", err)
	}
	if deleted {
		t.Error("second delete should report nothing deleted")
	}
}

func TestUploadedContentRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	data := []byte{0x25, 0x50, 0x44, 0x46, 0x00, 0xff}
	id, err := s.InsertWorksheet(ctx, model.LibraryEntry{
		Name:     "Đề thi HK1",
		Grade:    "9",
		Category: model.CategoryConsolidation,
		Content: model.Content{
			Type:     model.SourceUploaded,
			FileName: "de-thi.pdf",
			FileType: "application/pdf",
			FileSize: int64(len(data)),
			Data:     data,
		},
	})
	if err != nil {
		t.Fatalf("InsertWorksheet: %v", err)
	}
	e, err := s.GetWorksheet(ctx, id)
	if err != nil {
		t.Fatalf("GetWorksheet: %v", err)
	}
	if e.Content.Kind() != model.KindDocument {
		t.Errorf("Kind = %v, want document", e.Content.Kind())
	}
	if string(e.Content.Data) != string(data) {
		t.Errorf("data not preserved: %v", e.Content.Data)
	}
	if e.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestListWorksheetsByGrade(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	insertTestWorksheet(t, s, "A", "6", model.CategoryPractice, base)
	insertTestWorksheet(t, s, "B", "6", model.CategoryEssay, base.Add(time.Hour))
	insertTestWorksheet(t, s, "C", "7", model.CategoryPractice, base.Add(2*time.Hour))

	tests := []struct {
		grade string
		want  []string
	}{
		{"", []string{"C", "B", "A"}},
		{"6", []string{"B", "A"}},
		{"7", []string{"C"}},
		{"9", nil},
	}
	for _, tt := range tests {
		t.Run("grade="+tt.grade, func(t *testing.T) {
			list, err := s.ListWorksheets(ctx, tt.grade)
			if err != nil {
				t.Fatalf("ListWorksheets: %v", err)
			}
			var names []string
			for _, e := range list {
				names = append(names, e.Name)
			}
			if len(names) != len(tt.want) {
				t.Fatalf("got %v, want %v", names, tt.want)
			}
			for i := range names {
				if names[i] != tt.want[i] {
					t.Errorf("got %v, want %v", names, tt.want)
					break
				}
			}
		})
	}
}

func TestLegacyCategoryLabel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.InsertWorksheet(ctx, model.LibraryEntry{
		Name:     "Cũ",
		Grade:    "8",
		Category: model.Category("Củng cố"),
		Content:  structuredContent("Cũ", 1),
	})
	if err != nil {
		t.Fatalf("InsertWorksheet: %v", err)
	}
	e, err := s.GetWorksheet(ctx, id)
	if err != nil {
		t.Fatalf("GetWorksheet: %v", err)
	}
	if e.Category != model.CategoryConsolidation {
		t.Errorf("Category = %q, want consolidation", e.Category)
	}
}

func TestCountWorksheets(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	insertTestWorksheet(t, s, "A", "6", model.CategoryPractice, now)
	insertTestWorksheet(t, s, "B", "6", model.CategoryPractice, now)
	insertTestWorksheet(t, s, "C", "9", model.CategoryEssay, now)

	counts, err := s.CountWorksheets(context.Background())
	if err != nil {
		t.Fatalf("CountWorksheets: %v", err)
	}
	want := []model.CategoryCount{
		{Grade: "6", Category: "practice", Count: 2},
		{Grade: "9", Category: "essay", Count: 1},
	}
	if len(counts) != len(want) {
		t.Fatalf("got %v, want %v", counts, want)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("counts[%d] = %+v, want %+v", i, counts[i], want[i])
		}
	}
}

func TestExportImportLibrary(t *testing.T) {
	src := newTestStore(t)
	ctx := context.Background()
	insertTestWorksheet(t, src, "A", "6", model.CategoryPractice, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	insertTestWorksheet(t, src, "B", "7", model.CategoryEssay, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC))

	export, err := src.ExportLibrary(ctx)
	if err != nil {
		t.Fatalf("ExportLibrary: %v", err)
	}
	if export.Count != 2 || len(export.Worksheets) != 2 {
		t.Fatalf("expected 2 worksheets, got %d/%d", export.Count, len(export.Worksheets))
	}

	items := append(export.Worksheets,
		model.WorksheetImport{Name: "Bad", Grade: "6", Category: "unknown", Content: structuredContent("Bad", 1)},
		model.WorksheetImport{Name: "Empty", Grade: "6", Category: "Tự luận"},
		model.WorksheetImport{Grade: "8", Category: "Luyện tập", Content: structuredContent("Từ bài học", 1)},
	)

	dst := newTestStore(t)
	n, err := dst.ImportWorksheets(ctx, items, 1)
	if err != nil {
		t.Fatalf("ImportWorksheets: %v", err)
	}
	if n != 3 {
		t.Errorf("imported %d, want 3", n)
	}

	list, err := dst.ListWorksheets(ctx, "8")
	if err != nil {
		t.Fatalf("ListWorksheets: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Từ bài học" || list[0].Category != model.CategoryPractice {
		t.Errorf("unexpected imported entry %+v", list)
	}

	list, err = dst.ListWorksheets(ctx, "7")
	if err != nil {
		t.Fatalf("ListWorksheets: %v", err)
	}
	if len(list) != 1 || !list[0].CreatedAt.Equal(time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("created_at not preserved: %+v", list)
	}
}

func TestImportedFileHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hash, err := s.GetImportedFileHash(ctx, "library.json")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "" {
		t.Errorf("expected empty hash, got %q", hash)
	}

	if err := s.SetImportedFileHash(ctx, "library.json", "abc"); err != nil {
		t.Fatalf("SetImportedFileHash: %v", err)
	}
	if err := s.SetImportedFileHash(ctx, "library.json", "def"); err != nil {
		t.Fatalf("SetImportedFileHash update: %v", err)
	}
	hash, err = s.GetImportedFileHash(ctx, "library.json")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "def" {
		t.Errorf("hash = %q, want def", hash)
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	count, err := s.UserCount(ctx)
	if err != nil {
		t.Fatalf("UserCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 users, got %d", count)
	}

	id, err := s.CreateUser(ctx, model.User{
		Username:     "lan",
		DisplayName:  "Nguyễn Thị Lan",
		PasswordHash: "hash",
		Role:         model.UserRoleStudent,
		Grade:        "7",
		Active:       true,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	u, err := s.GetUserByUsername(ctx, "lan")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u == nil || u.ID != id || u.Grade != "7" || u.Role != model.UserRoleStudent || !u.Active {
		t.Fatalf("unexpected user %+v", u)
	}

	if _, err := s.CreateUser(ctx, model.User{Username: "lan", PasswordHash: "x", Role: model.UserRoleStudent}); err == nil {
		t.Error("expected duplicate username to fail")
	}

	active, err := s.ToggleUserActive(ctx, id)
	if err != nil {
		t.Fatalf("ToggleUserActive: %v", err)
	}
	if active {
		t.Error("toggle should report the user inactive")
	}
	u, err = s.GetUserByID(ctx, id)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if u.Active {
		t.Error("expected user to be inactive")
	}

	missing, err := s.GetUserByID(ctx, 42)
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for missing user, got %+v, %v", missing, err)
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("expected 1 user, got %d", len(users))
	}
}

func TestAuthSessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	uid, err := s.CreateUser(ctx, model.User{Username: "co.hoa", PasswordHash: "h", Role: model.UserRoleTeacher, Active: true})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	token, err := s.CreateAuthSession(ctx, uid)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("expected 64-char token, got %d", len(token))
	}

	sess, err := s.GetAuthSession(ctx, token)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess == nil || sess.UserID != uid {
		t.Fatalf("unexpected session %+v", sess)
	}

	if err := s.DeleteAuthSession(ctx, token); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	sess, err = s.GetAuthSession(ctx, token)
	if err != nil {
		t.Fatalf("GetAuthSession after delete: %v", err)
	}
	if sess != nil {
		t.Error("expected nil session after delete")
	}

	// Expired sessions are not returned.
	_, err = s.db.Exec(`INSERT INTO auth_sessions (id, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		"old", uid, time.Now().Add(-48*time.Hour).Unix(), time.Now().Add(-24*time.Hour).Unix())
	if err != nil {
		t.Fatalf("insert expired session: %v", err)
	}
	sess, err = s.GetAuthSession(ctx, "old")
	if err != nil {
		t.Fatalf("GetAuthSession expired: %v", err)
	}
	if sess != nil {
		t.Error("expected nil for expired session")
	}
	if _, err := s.CleanupExpiredSessions(ctx); err != nil {
		t.Fatalf("CleanupExpiredSessions: %v", err)
	}

	// Deactivation signs the user out everywhere.
	for i := 0; i < 2; i++ {
		if _, err := s.CreateAuthSession(ctx, uid); err != nil {
			t.Fatalf("CreateAuthSession: %v", err)
		}
	}
	n, err := s.DeleteUserSessions(ctx, uid)
	if err != nil {
		t.Fatalf("DeleteUserSessions: %v", err)
	}
	if n != 2 {
		t.Errorf("revoked %d sessions, want 2", n)
	}
}

func TestSessionTTL(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	uid, err := s.CreateUser(ctx, model.User{Username: "lan", PasswordHash: "h", Role: model.UserRoleStudent, Active: true})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	s.SetSessionTTL(time.Hour)
	token, err := s.CreateAuthSession(ctx, uid)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	sess, err := s.GetAuthSession(ctx, token)
	if err != nil || sess == nil {
		t.Fatalf("GetAuthSession: %v, %v", sess, err)
	}
	if got := sess.ExpiresAt.Sub(sess.CreatedAt); got != time.Hour {
		t.Errorf("session lifetime = %v, want 1h", got)
	}
}

func TestToggleMissingUser(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.ToggleUserActive(context.Background(), 99); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}
