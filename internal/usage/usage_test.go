package usage

import (
	"context"
	"testing"
	"time"
)

func TestMemoryRecorder_CountsPerTenantPerMonth(t *testing.T) {
	restore := timeNow
	defer func() { timeNow = restore }()
	now := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return now }

	r := NewMemoryRecorder()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := r.RecordMessage(ctx, "t1"); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.RecordMessage(ctx, "t2"); err != nil {
		t.Fatal(err)
	}

	if n, _ := r.MonthlyCount(ctx, "t1"); n != 3 {
		t.Errorf("t1 count = %d, want 3", n)
	}
	if n, _ := r.MonthlyCount(ctx, "t2"); n != 1 {
		t.Errorf("t2 count = %d, want 1", n)
	}

	// Month rollover starts a fresh counter.
	now = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	if n, _ := r.MonthlyCount(ctx, "t1"); n != 0 {
		t.Errorf("t1 count after rollover = %d, want 0", n)
	}
}

func TestMemoryRecorder_Uploads(t *testing.T) {
	r := NewMemoryRecorder()
	ctx := context.Background()

	if err := r.RecordUpload(ctx, "t1", 120); err != nil {
		t.Fatal(err)
	}
	if err := r.RecordUpload(ctx, "t1", 80); err != nil {
		t.Fatal(err)
	}

	uploads, words := r.MonthlyUploads("t1")
	if uploads != 2 || words != 200 {
		t.Errorf("uploads = %d, words = %d, want 2 and 200", uploads, words)
	}
	// Uploads do not count as messages.
	if n, _ := r.MonthlyCount(ctx, "t1"); n != 0 {
		t.Errorf("message count = %d, want 0", n)
	}
}

func TestRecordMessage_RequiresTenant(t *testing.T) {
	if err := NewMemoryRecorder().RecordMessage(context.Background(), ""); err == nil {
		t.Error("empty tenant id should error")
	}
}

func TestMonthOf(t *testing.T) {
	in := time.Date(2025, 7, 29, 23, 59, 0, 0, time.FixedZone("X", 3600))
	got := monthOf(in)
	want := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("monthOf = %v, want %v", got, want)
	}
}
