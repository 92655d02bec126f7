package leads

import (
	"context"
	"testing"
	"time"
)

func TestDispatcher_PersistsInBackground(t *testing.T) {
	store, repo := newTestStore(t)
	d := NewDispatcher(store, 4, nil)
	defer d.Close()

	msg := "reach me at jo@example.com"
	d.Enqueue(scopedCtx("t1"), PersistParams{
		BotID:   "bot-1",
		Message: msg,
		Signals: Extract(msg),
		Origin:  OriginSubscriber,
	})

	deadline := time.Now().Add(2 * time.Second)
	for repo.Count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("lead was never persisted")
		}
		time.Sleep(5 * time.Millisecond)
	}
	found, err := repo.List(context.Background(), "t1", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].Email != "jo@example.com" {
		t.Errorf("persisted leads = %+v, want one with the extracted email", found)
	}
}

func TestDispatcher_DropsWithoutTenant(t *testing.T) {
	store, repo := newTestStore(t)
	d := NewDispatcher(store, 4, nil)

	msg := "reach me at jo@example.com"
	d.Enqueue(context.Background(), PersistParams{
		BotID:   "bot-1",
		Message: msg,
		Signals: Extract(msg),
	})
	d.Close()

	if repo.Count() != 0 {
		t.Errorf("leads persisted = %d, want 0 without tenant scope", repo.Count())
	}
}

func TestDispatcher_EnqueueAfterClose(t *testing.T) {
	store, repo := newTestStore(t)
	d := NewDispatcher(store, 4, nil)
	d.Close()

	// Must drop the job, never panic on the closed queue.
	msg := "reach me at jo@example.com"
	d.Enqueue(scopedCtx("t1"), PersistParams{
		BotID:   "bot-1",
		Message: msg,
		Signals: Extract(msg),
	})

	if repo.Count() != 0 {
		t.Errorf("leads persisted = %d, want 0 after close", repo.Count())
	}
}

func TestDispatcher_CloseDrainsQueue(t *testing.T) {
	store, repo := newTestStore(t)
	d := NewDispatcher(store, 8, nil)

	for i := 0; i < 3; i++ {
		msg := "reach me at jo@example.com"
		d.Enqueue(scopedCtx("t1"), PersistParams{
			BotID:   "bot-1",
			Message: msg,
			Signals: Extract(msg),
		})
	}
	d.Close()

	// All three dedup onto the same lead, but every queued job must
	// have been processed before Close returned.
	if repo.Count() != 1 {
		t.Errorf("leads persisted = %d, want 1 after drain", repo.Count())
	}
}
