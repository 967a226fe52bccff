package stores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campusride/rideshare-backend/internal/models"
)

func TestMessageStore_Append(t *testing.T) {
	db := setupTestDB(t)
	store := NewMessageStore(db)

	msg, err := store.Append(context.Background(), 1, "Alice", "hi")
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if msg.ID == 0 {
		t.Error("expected store-assigned id")
	}
	if msg.CreatedAt.IsZero() {
		t.Error("expected store-assigned timestamp")
	}
	if msg.Body != "hi" || msg.Sender != "Alice" || msg.RideID != 1 {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestMessageStore_Append_EmptyBody(t *testing.T) {
	db := setupTestDB(t)
	store := NewMessageStore(db)

	for _, body := range []string{"", "   ", "\n\t"} {
		if _, err := store.Append(context.Background(), 1, "Alice", body); !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("Append(%q) error = %v, want ErrEmptyMessage", body, err)
		}
	}
}

func TestMessageStore_History_Ordering(t *testing.T) {
	db := setupTestDB(t)
	store := NewMessageStore(db)

	// Seed rows with explicit timestamps, inserted out of order.
	base := time.Now().Add(-time.Hour)
	seed := []models.Message{
		{RideID: 1, Sender: "Bob", Body: "second", CreatedAt: base.Add(2 * time.Minute)},
		{RideID: 1, Sender: "Alice", Body: "first", CreatedAt: base.Add(1 * time.Minute)},
		{RideID: 1, Sender: "Alice", Body: "third", CreatedAt: base.Add(3 * time.Minute)},
		{RideID: 2, Sender: "Eve", Body: "other room", CreatedAt: base},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("failed to seed message: %v", err)
		}
	}

	history, err := store.History(context.Background(), 1)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}

	want := []string{"first", "second", "third"}
	if len(history) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(history))
	}
	for i, body := range want {
		if history[i].Body != body {
			t.Errorf("history[%d] = %q, want %q", i, history[i].Body, body)
		}
	}
	for i := 1; i < len(history); i++ {
		if history[i].CreatedAt.Before(history[i-1].CreatedAt) {
			t.Errorf("history not in non-decreasing timestamp order at %d", i)
		}
	}
}

func TestMessageStore_History_AppendExtendsSequence(t *testing.T) {
	db := setupTestDB(t)
	store := NewMessageStore(db)

	if _, err := store.Append(context.Background(), 1, "Alice", "one"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if _, err := store.Append(context.Background(), 1, "Bob", "two"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	before, err := store.History(context.Background(), 1)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}

	if _, err := store.Append(context.Background(), 1, "Alice", "three"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	after, err := store.History(context.Background(), 1)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}

	if len(after) != len(before)+1 {
		t.Fatalf("expected history to grow by one, got %d -> %d", len(before), len(after))
	}
	// No reordering of already-returned entries
	for i := range before {
		if after[i].ID != before[i].ID {
			t.Errorf("history prefix changed at %d: %d != %d", i, after[i].ID, before[i].ID)
		}
	}
	if after[len(after)-1].Body != "three" {
		t.Errorf("expected new message last, got %q", after[len(after)-1].Body)
	}
}

func TestMessageStore_History_EmptyRoom(t *testing.T) {
	db := setupTestDB(t)
	store := NewMessageStore(db)

	history, err := store.History(context.Background(), 42)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected empty history, got %d messages", len(history))
	}
}
