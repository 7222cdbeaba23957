package repository

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/store"
)

func TestStoreInteractionStore_AppendQuery(t *testing.T) {
	kv := store.NewMemoryStore()
	defer kv.Close()
	s := NewStoreInteractionStore(kv, "")
	ctx := context.Background()
	now := time.Now()

	records := []*core.UserInteraction{
		{UserID: "u1", CardID: "a", CardType: core.CardTypeNews, Action: core.ActionView, Timestamp: now.Add(-3 * time.Hour)},
		{UserID: "u1", CardID: "b", CardType: core.CardTypeStock, Action: core.ActionSave, Timestamp: now.Add(-1 * time.Hour)},
		{UserID: "u1", CardID: "c", CardType: core.CardTypeNews, Action: core.ActionView, Timestamp: now.Add(-30 * 24 * time.Hour)},
		{UserID: "u2", CardID: "d", CardType: core.CardTypeNews, Action: core.ActionView, Timestamp: now.Add(-1 * time.Hour)},
	}
	for _, it := range records {
		if err := s.Append(ctx, it); err != nil {
			t.Fatalf("Append(%s): %v", it.CardID, err)
		}
	}

	got, err := s.Query(ctx, "u1", now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	// only u1's records inside the window, ascending
	want := []string{"a", "b"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d (%v)", len(got), len(want), got)
	}
	for i, id := range want {
		if got[i].CardID != id {
			t.Errorf("got[%d].CardID = %q, want %q", i, got[i].CardID, id)
		}
	}
	if got[1].Action != core.ActionSave || got[1].CardType != core.CardTypeStock {
		t.Errorf("payload round trip lost fields: %+v", got[1])
	}
}

func TestStoreInteractionStore_RapidRepeatsAreAllKept(t *testing.T) {
	kv := store.NewMemoryStore()
	defer kv.Close()
	s := NewStoreInteractionStore(kv, "")
	ctx := context.Background()
	now := time.Now()

	// same card, same action, nanoseconds apart: none may overwrite another
	for i := 0; i < 3; i++ {
		err := s.Append(ctx, &core.UserInteraction{
			UserID:    "u1",
			CardID:    "a",
			Action:    core.ActionView,
			Timestamp: now.Add(time.Duration(i) * time.Nanosecond),
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := s.Query(ctx, "u1", now.Add(-time.Minute), now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("len = %d, want 3 distinct records", len(got))
	}
}

func TestStoreInteractionStore_EmptyWindow(t *testing.T) {
	kv := store.NewMemoryStore()
	defer kv.Close()
	s := NewStoreInteractionStore(kv, "")

	got, err := s.Query(context.Background(), "nobody", time.Now().Add(-time.Hour), time.Now())
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}
