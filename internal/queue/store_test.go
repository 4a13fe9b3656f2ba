package queue_test

import (
	"context"
	"testing"
	"time"

	"cardscan/internal/queue"
	"cardscan/internal/testsupport"
)

func TestEnqueueAndGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job, err := store.Enqueue(ctx, queue.NewJob{
		FilePath:     "/tmp/scan-001.png",
		OriginalName: "scan-001.png",
		Foil:         true,
		SetCodeHint:  "NEO",
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if job.ID == 0 {
		t.Fatal("expected job ID to be assigned")
	}
	if job.Status != queue.StatusQueued {
		t.Fatalf("expected queued status, got %s", job.Status)
	}
	if job.Condition != "NM" {
		t.Fatalf("expected default condition NM, got %q", job.Condition)
	}
	if job.SetCodeHint != "neo" {
		t.Fatalf("expected lowercased set hint, got %q", job.SetCodeHint)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.FilePath != "/tmp/scan-001.png" || !fetched.Foil {
		t.Fatalf("unexpected fetched job: %#v", fetched)
	}
}

func TestEnqueueRequiresFilePath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.Enqueue(context.Background(), queue.NewJob{}); err == nil {
		t.Fatal("expected error when file path missing")
	}
}

func TestClaimLeasesOldestQueuedJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first, err := store.Enqueue(ctx, queue.NewJob{FilePath: "/tmp/a.png"})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if _, err := store.Enqueue(ctx, queue.NewJob{FilePath: "/tmp/b.png"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	claimed, err := store.Claim(ctx, 5*time.Minute)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if claimed == nil || claimed.ID != first.ID {
		t.Fatalf("expected oldest job %d, got %#v", first.ID, claimed)
	}
	if claimed.Status != queue.StatusProcessing {
		t.Fatalf("expected processing status, got %s", claimed.Status)
	}
	if claimed.Attempts != 1 {
		t.Fatalf("expected attempts incremented to 1, got %d", claimed.Attempts)
	}
	if claimed.LockedAt == nil {
		t.Fatal("expected lock timestamp to be set")
	}
}

func TestClaimSkipsFreshLocks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, err := store.Enqueue(ctx, queue.NewJob{FilePath: "/tmp/a.png"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if _, err := store.Claim(ctx, 5*time.Minute); err != nil {
		t.Fatalf("first Claim failed: %v", err)
	}

	second, err := store.Claim(ctx, 5*time.Minute)
	if err != nil {
		t.Fatalf("second Claim failed: %v", err)
	}
	if second != nil {
		t.Fatalf("expected no eligible job while lock is fresh, got %#v", second)
	}
}

func TestClaimReclaimsStaleLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job, err := store.Enqueue(ctx, queue.NewJob{FilePath: "/tmp/a.png"})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	claimed, err := store.Claim(ctx, 5*time.Minute)
	if err != nil || claimed == nil {
		t.Fatalf("first Claim failed: %v %#v", err, claimed)
	}

	// Age the lock past the timeout.
	stale := time.Now().UTC().Add(-10 * time.Minute)
	claimed.LockedAt = &stale
	if err := store.Update(ctx, claimed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	reclaimed, err := store.Claim(ctx, 5*time.Minute)
	if err != nil {
		t.Fatalf("reclaim failed: %v", err)
	}
	if reclaimed == nil || reclaimed.ID != job.ID {
		t.Fatalf("expected stale job to be reclaimed, got %#v", reclaimed)
	}
	if reclaimed.Attempts != 2 {
		t.Fatalf("expected attempts to increase by exactly 1 per claim, got %d", reclaimed.Attempts)
	}
	if !reclaimed.LockedAt.After(stale) {
		t.Fatal("expected lock timestamp to be refreshed on reclaim")
	}
}

func TestSetFailureRequeuesUntilAttemptsExhausted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, err := store.Enqueue(ctx, queue.NewJob{FilePath: "/tmp/a.png"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	const maxAttempts = 5
	var job *queue.Job
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var err error
		job, err = store.Claim(ctx, 5*time.Minute)
		if err != nil || job == nil {
			t.Fatalf("Claim %d failed: %v %#v", attempt, err, job)
		}
		terminal := job.SetFailure("low_confidence: name below usable floor", maxAttempts)
		if attempt < maxAttempts && terminal {
			t.Fatalf("attempt %d should requeue, not fail terminally", attempt)
		}
		if attempt == maxAttempts && !terminal {
			t.Fatal("final attempt should be terminal")
		}
		if err := store.Update(ctx, job); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}

	final, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if final.Status != queue.StatusFailed {
		t.Fatalf("expected failed status after %d attempts, got %s", maxAttempts, final.Status)
	}
	if final.LastError == "" {
		t.Fatal("terminal jobs must keep their error visible")
	}
	if final.FinishedAt == nil {
		t.Fatal("terminal jobs must record a finish time")
	}
}

func TestSetDoneRecordsResult(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, err := store.Enqueue(ctx, queue.NewJob{FilePath: "/tmp/a.png"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	job, err := store.Claim(ctx, 5*time.Minute)
	if err != nil || job == nil {
		t.Fatalf("Claim failed: %v %#v", err, job)
	}

	job.SetDone(queue.Result{
		GuessedName:     "Lightning Bolt",
		NameConfidence:  91,
		CollectorNumber: "123",
		ChosenSet:       "m10",
		ChosenSetName:   "Magic 2010",
		ChosenCollector: "146",
		OCRTextBottom:   "146/249 M10",
	})
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	final, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if final.Status != queue.StatusDone || final.ChosenSet != "m10" || final.FinishedAt == nil {
		t.Fatalf("unexpected final job: %#v", final)
	}
	if final.LastError != "" {
		t.Fatalf("done jobs must have a cleared error, got %q", final.LastError)
	}
}

func TestListNewestFirstWithFilter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.Enqueue(ctx, queue.NewJob{FilePath: "/tmp/a.png"}); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	claimed, err := store.Claim(ctx, 5*time.Minute)
	if err != nil || claimed == nil {
		t.Fatalf("Claim failed: %v", err)
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(all))
	}
	if !all[0].CreatedAt.After(all[len(all)-1].CreatedAt) {
		t.Fatal("expected newest-first ordering")
	}

	queued, err := store.List(ctx, 0, queue.StatusQueued)
	if err != nil {
		t.Fatalf("List filtered failed: %v", err)
	}
	if len(queued) != 2 {
		t.Fatalf("expected 2 queued jobs, got %d", len(queued))
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[queue.StatusQueued] != 2 || stats[queue.StatusProcessing] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestRetryFailedResetsAttempts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, err := store.Enqueue(ctx, queue.NewJob{FilePath: "/tmp/a.png"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	job, err := store.Claim(ctx, 5*time.Minute)
	if err != nil || job == nil {
		t.Fatalf("Claim failed: %v", err)
	}
	job.SetFailure("catalog_no_match", 1)
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 retried job, got %d", count)
	}

	retried, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if retried.Status != queue.StatusQueued || retried.Attempts != 0 || retried.LastError != "" {
		t.Fatalf("unexpected retried job: %#v", retried)
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input string
		want  queue.Status
		ok    bool
	}{
		{"queued", queue.StatusQueued, true},
		{" Processing ", queue.StatusProcessing, true},
		{"DONE", queue.StatusDone, true},
		{"failed", queue.StatusFailed, true},
		{"ripping", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, ok := queue.ParseStatus(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseStatus(%q) = %q, %v; want %q, %v", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}
