package audit

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestRecorderAppendsAsync(t *testing.T) {
	sink := NewMemorySink()
	rec := NewRecorder(sink)

	rec.Record(&Entry{Action: "auth.login", ActorID: "u-1", Status: 200})
	rec.Flush()

	entries, err := sink.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.ID == "" {
		t.Fatal("expected generated id")
	}
	if e.OccurredAt.IsZero() {
		t.Fatal("expected timestamp")
	}
	if e.Action != "auth.login" || e.ActorID != "u-1" {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

type failingSink struct{}

func (failingSink) Append(context.Context, *Entry) error {
	return errors.New("disk on fire")
}

// A broken sink must never panic or block the caller.
func TestRecorderSwallowsSinkFailure(t *testing.T) {
	rec := NewRecorder(failingSink{})
	rec.Record(&Entry{Action: "user.update"})
	rec.Flush()
}

func TestRecorderNilSafety(t *testing.T) {
	var rec *Recorder
	rec.Record(&Entry{Action: "noop"})
	rec.Flush()

	NewRecorder(nil).Record(&Entry{Action: "noop"})
}

func TestMultiSinkDeliversToAllDespiteFailure(t *testing.T) {
	mem := NewMemorySink()
	sink := MultiSink{failingSink{}, mem}

	err := sink.Append(context.Background(), &Entry{ID: "e-1", Action: "user.update"})
	if err == nil {
		t.Fatal("expected joined error from failing sink")
	}
	entries, err := mem.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "e-1" {
		t.Fatalf("healthy sink must still receive the entry: %+v", entries)
	}
}

func TestMemorySinkNewestFirstAndLimit(t *testing.T) {
	sink := NewMemorySink()
	for i := 0; i < 5; i++ {
		if err := sink.Append(context.Background(), &Entry{ID: fmt.Sprintf("e-%d", i)}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	entries, err := sink.List(context.Background(), 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "e-4" || entries[1].ID != "e-3" {
		t.Fatalf("expected newest first, got %s then %s", entries[0].ID, entries[1].ID)
	}
}

func TestNoteSnapshot(t *testing.T) {
	ctx, note := WithNote(context.Background())
	if got := NoteFromContext(ctx); got != note {
		t.Fatal("note not retrievable from context")
	}

	var e Entry
	if note.Snapshot(&e) {
		t.Fatal("unset note must not produce an entry")
	}

	note.Set("user.create", "user", "u-9", "created", "user")
	e = Entry{ActorID: "admin-1", ActorName: "Admin"}
	if !note.Snapshot(&e) {
		t.Fatal("expected snapshot after Set")
	}
	if e.Action != "user.create" || e.EntityID != "u-9" || e.Category != "user" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.ActorID != "admin-1" {
		t.Fatalf("actor from request context should be kept: %+v", e)
	}

	note.SetActor("u-9", "New User")
	e = Entry{ActorID: ""}
	if !note.Snapshot(&e) {
		t.Fatal("expected snapshot")
	}
	if e.ActorID != "u-9" || e.ActorName != "New User" {
		t.Fatalf("SetActor should override: %+v", e)
	}
}

func TestNoteNilSafety(t *testing.T) {
	var n *Note
	n.Set("a", "b", "c", "d", "e")
	n.SetActor("x", "y")
	if n.Snapshot(&Entry{}) {
		t.Fatal("nil note must not snapshot")
	}
	if NoteFromContext(context.Background()) != nil {
		t.Fatal("expected nil note from bare context")
	}
}
