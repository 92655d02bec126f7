package leads

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/tenant"
)

func scopedCtx(tenantID string) context.Context {
	return tenant.NewContext(context.Background(), &tenant.Info{TenantID: tenantID})
}

func newTestStore(t *testing.T) (*Store, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	store, err := NewStore(repo, StoreConfig{}, nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store, repo
}

func TestPersistLeadIfAny_Gate(t *testing.T) {
	store, repo := newTestStore(t)

	t.Run("no signals does nothing", func(t *testing.T) {
		result, err := store.PersistLeadIfAny(scopedCtx("t1"), PersistParams{
			BotID:   "bot-1",
			Message: "just browsing",
		})
		if err != nil {
			t.Fatalf("PersistLeadIfAny() error = %v", err)
		}
		if result.Created || result.ID != "" {
			t.Errorf("PersistLeadIfAny() = %+v, want no-op", result)
		}
		if repo.Count() != 0 {
			t.Errorf("repo count = %d, want 0", repo.Count())
		}
	})

	t.Run("missing tenant fails hard", func(t *testing.T) {
		_, err := store.PersistLeadIfAny(context.Background(), PersistParams{
			BotID:   "bot-1",
			Signals: Signals{Email: "a@b.co"},
		})
		if !errors.Is(err, ErrMissingTenant) {
			t.Errorf("PersistLeadIfAny() error = %v, want ErrMissingTenant", err)
		}
	})

	t.Run("placeholder tenant fails hard", func(t *testing.T) {
		_, err := store.PersistLeadIfAny(scopedCtx("default"), PersistParams{
			BotID:   "bot-1",
			Signals: Signals{Email: "a@b.co"},
		})
		if !errors.Is(err, ErrMissingTenant) {
			t.Errorf("PersistLeadIfAny() error = %v, want ErrMissingTenant", err)
		}
	})
}

func TestPersistLeadIfAny_Idempotence(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := scopedCtx("t1")
	params := PersistParams{
		BotID:   "bot-1",
		Message: "contact me at jane@acme.io",
		Signals: Signals{Email: "jane@acme.io"},
	}

	first, err := store.PersistLeadIfAny(ctx, params)
	if err != nil {
		t.Fatalf("first persist error = %v", err)
	}
	if !first.Created {
		t.Error("first persist should create")
	}

	second, err := store.PersistLeadIfAny(ctx, params)
	if err != nil {
		t.Fatalf("second persist error = %v", err)
	}
	if second.Created {
		t.Error("second persist should update, not create")
	}
	if second.ID != first.ID {
		t.Errorf("second persist id = %q, want %q", second.ID, first.ID)
	}
	if repo.Count() != 1 {
		t.Errorf("repo count = %d, want exactly 1", repo.Count())
	}
}

func TestPersistLeadIfAny_SeparateTenantsSeparateLeads(t *testing.T) {
	store, repo := newTestStore(t)
	params := PersistParams{
		BotID:   "bot-1",
		Signals: Signals{Email: "jane@acme.io"},
	}
	if _, err := store.PersistLeadIfAny(scopedCtx("t1"), params); err != nil {
		t.Fatal(err)
	}
	if _, err := store.PersistLeadIfAny(scopedCtx("t2"), params); err != nil {
		t.Fatal(err)
	}
	if repo.Count() != 2 {
		t.Errorf("repo count = %d, want 2 (one per workspace)", repo.Count())
	}
}

func TestPersistLeadIfAny_Merge(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := scopedCtx("t1")

	t.Run("phone preserved when new message has none", func(t *testing.T) {
		first, err := store.PersistLeadIfAny(ctx, PersistParams{
			BotID:   "bot-1",
			Message: "email pat@corp.com or call (555) 123-4567",
			Signals: Signals{Email: "pat@corp.com", Phone: "(555) 123-4567"},
		})
		if err != nil {
			t.Fatal(err)
		}

		_, err = store.PersistLeadIfAny(ctx, PersistParams{
			BotID:   "bot-1",
			Message: "pat@corp.com here again",
			Signals: Signals{Email: "pat@corp.com"},
		})
		if err != nil {
			t.Fatal(err)
		}

		lead, err := store.repo.FindByEmail(ctx, "t1", "bot-1", "pat@corp.com")
		if err != nil {
			t.Fatal(err)
		}
		if lead.ID != first.ID {
			t.Errorf("lead id = %q, want %q", lead.ID, first.ID)
		}
		if lead.Phone != "(555) 123-4567" {
			t.Errorf("merge dropped phone, got %q", lead.Phone)
		}
		if lead.LastMessage != "pat@corp.com here again" {
			t.Errorf("last message = %q, not refreshed", lead.LastMessage)
		}
	})

	t.Run("intent-only lead upgrades to new on contact", func(t *testing.T) {
		ctx := scopedCtx("t2")
		created, err := store.PersistLeadIfAny(ctx, PersistParams{
			BotID:   "bot-1",
			Message: "what is the pricing",
			Signals: Signals{IntentKeywords: []string{"pricing"}},
		})
		if err != nil {
			t.Fatal(err)
		}
		if !created.Created {
			t.Fatal("intent-only message should create a lead")
		}

		// No contact yet, so dedup by contact cannot match; the lead
		// stays incomplete until a contact value arrives on a lead
		// found by contact lookup.
		repo := store.repo.(*MemoryRepository)
		stored, _ := repo.find("t2", "bot-1", func(l *Lead) bool { return l.ID == created.ID })
		if stored.Status != StatusIncomplete {
			t.Errorf("status = %q, want incomplete", stored.Status)
		}
	})

	t.Run("incomplete upgrades to new when contact arrives on match", func(t *testing.T) {
		ctx := scopedCtx("t3")
		created, err := store.PersistLeadIfAny(ctx, PersistParams{
			BotID:   "bot-1",
			Message: "call me at 555-123-4567",
			Signals: Signals{Phone: "555-123-4567"},
		})
		if err != nil {
			t.Fatal(err)
		}
		repo := store.repo.(*MemoryRepository)
		stored, _ := repo.find("t3", "bot-1", func(l *Lead) bool { return l.ID == created.ID })
		if stored.Status != StatusNew {
			t.Errorf("status = %q, want new (contact present at creation)", stored.Status)
		}
	})
}

func TestPersistLeadIfAny_NameCompanyHeuristics(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := scopedCtx("t1")

	result, err := store.PersistLeadIfAny(ctx, PersistParams{
		BotID:   "bot-1",
		Message: "my name is Priya and I work at Initech, email priya@initech.com",
		Signals: Signals{Email: "priya@initech.com"},
	})
	if err != nil {
		t.Fatal(err)
	}
	lead, err := store.repo.FindByEmail(ctx, "t1", "bot-1", "priya@initech.com")
	if err != nil {
		t.Fatal(err)
	}
	if lead.ID != result.ID {
		t.Fatalf("lookup returned wrong lead")
	}
	if lead.Name != "Priya" {
		t.Errorf("name = %q, want Priya", lead.Name)
	}
	if lead.Company != "Initech" {
		t.Errorf("company = %q, want Initech", lead.Company)
	}

	// Explicit values win over heuristics on later messages for empty
	// fields only; an existing name is not overwritten.
	if _, err := store.PersistLeadIfAny(ctx, PersistParams{
		BotID:   "bot-1",
		Message: "my name is Someone Else, priya@initech.com",
		Signals: Signals{Email: "priya@initech.com"},
	}); err != nil {
		t.Fatal(err)
	}
	lead, _ = store.repo.FindByEmail(ctx, "t1", "bot-1", "priya@initech.com")
	if lead.Name != "Priya" {
		t.Errorf("merge overwrote name, got %q", lead.Name)
	}
}

func TestPersistLeadIfAny_ClockInjection(t *testing.T) {
	store, _ := newTestStore(t)
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	restore := timeNow
	timeNow = func() time.Time { return fixed }
	defer func() { timeNow = restore }()

	ctx := scopedCtx("t1")
	result, err := store.PersistLeadIfAny(ctx, PersistParams{
		BotID:   "bot-1",
		Signals: Signals{Email: "x@y.co"},
	})
	if err != nil {
		t.Fatal(err)
	}
	lead, _ := store.repo.FindByEmail(ctx, "t1", "bot-1", "x@y.co")
	if lead.ID != result.ID || !lead.CreatedAt.Equal(fixed) {
		t.Errorf("created_at = %v, want %v", lead.CreatedAt, fixed)
	}
}
