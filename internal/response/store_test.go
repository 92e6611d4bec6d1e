package response

import (
	"context"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestResponseDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return db
}

func TestStore_CreateDefaults(t *testing.T) {
	db := setupTestResponseDB(t)
	store := NewStore(db)
	store.Migrate()

	r := &Response{FormID: "form_1", Answers: AnswerList{{FieldID: "f1", Value: "hi"}}}
	if err := store.Create(context.Background(), r); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.HasPrefix(r.ID, "resp_") {
		t.Errorf("expected resp_ prefixed id, got %s", r.ID)
	}
	if r.SubmittedAt.IsZero() {
		t.Error("expected submitted_at default")
	}
}

func TestStore_FindByFormOrdered(t *testing.T) {
	db := setupTestResponseDB(t)
	store := NewStore(db)
	store.Migrate()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.Create(ctx, &Response{FormID: "form_1", SubmittedAt: base.Add(time.Hour)})
	store.Create(ctx, &Response{FormID: "form_1", SubmittedAt: base})
	store.Create(ctx, &Response{FormID: "form_2", SubmittedAt: base})

	responses, err := store.FindByForm(ctx, "form_1", nil, nil)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
	if !responses[0].SubmittedAt.Before(responses[1].SubmittedAt) {
		t.Error("responses must come back in submission order")
	}
}

func TestStore_FindByFormInclusiveBounds(t *testing.T) {
	db := setupTestResponseDB(t)
	store := NewStore(db)
	store.Migrate()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		store.Create(ctx, &Response{FormID: "form_1", SubmittedAt: base.AddDate(0, 0, i)})
	}

	from := base
	to := base.AddDate(0, 0, 1)
	responses, err := store.FindByForm(ctx, "form_1", &from, &to)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(responses) != 2 {
		t.Errorf("inclusive bounds should keep both boundary rows, got %d", len(responses))
	}
}

func TestStore_CountAndDeleteByForm(t *testing.T) {
	db := setupTestResponseDB(t)
	store := NewStore(db)
	store.Migrate()
	ctx := context.Background()

	store.Create(ctx, &Response{FormID: "form_1"})
	store.Create(ctx, &Response{FormID: "form_1"})

	count, err := store.CountByForm(ctx, "form_1")
	if err != nil || count != 2 {
		t.Errorf("expected count 2, got %d %v", count, err)
	}

	if err := store.DeleteByForm(ctx, "form_1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	count, _ = store.CountByForm(ctx, "form_1")
	if count != 0 {
		t.Errorf("expected 0 after delete, got %d", count)
	}
}

func TestStore_FindEvents(t *testing.T) {
	db := setupTestResponseDB(t)
	store := NewStore(db)
	store.Migrate()
	ctx := context.Background()

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.Create(ctx, &Response{
		FormID:      "form_1",
		Answers:     AnswerList{{FieldID: "f1", Value: 4.0}},
		SubmittedAt: at,
	})

	events, err := store.FindEvents(ctx, "form_1", nil, nil)
	if err != nil {
		t.Fatalf("find events failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.FormID != "form_1" || len(ev.Answers) != 1 || ev.Answers[0].FieldID != "f1" {
		t.Errorf("event did not round-trip: %+v", ev)
	}
	if v, ok := ev.Answers[0].Value.(float64); !ok || v != 4.0 {
		t.Errorf("numeric answer value did not round-trip: %v", ev.Answers[0].Value)
	}
}
