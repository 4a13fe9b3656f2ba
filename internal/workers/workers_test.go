package workers

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"cardscan/internal/catalog"
	"cardscan/internal/config"
	"cardscan/internal/inventory"
	"cardscan/internal/logging"
	"cardscan/internal/ocr"
	"cardscan/internal/pipeline"
	"cardscan/internal/queue"
	"cardscan/internal/testsupport"
)

type scriptedEngine struct {
	name      ocr.Result
	collector ocr.Result
}

func (s *scriptedEngine) Recognize(_ context.Context, path string, _ ocr.Options) (ocr.Result, error) {
	if strings.Contains(path, "_coll_") {
		return s.collector, nil
	}
	return s.name, nil
}

func confidentEngine() *scriptedEngine {
	return &scriptedEngine{
		name:      ocr.Result{Text: "Lightning Bolt", Confidence: 95},
		collector: ocr.Result{Text: "146/249", Confidence: 80},
	}
}

func fakeCatalogClient(t *testing.T) *catalog.Client {
	t.Helper()
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/cards/named", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"name": "Lightning Bolt", "set": "m10", "set_name": "Magic 2010",
			"collector_number": "146", "finishes": ["nonfoil"], "lang": "en",
			"released_at": "2009-07-17", "set_type": "core", "layout": "normal",
			"prints_search_uri": %q, "prices": {"usd": "2.50"}}`, server.URL+"/prints")
	})
	mux.HandleFunc("/prints", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": [{"name": "Lightning Bolt", "set": "m10",
			"set_name": "Magic 2010", "collector_number": "146",
			"finishes": ["nonfoil"], "lang": "en", "released_at": "2009-07-17",
			"set_type": "core", "layout": "normal", "prices": {"usd": "2.50"}}],
			"has_more": false}`)
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := catalog.New(catalog.Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("catalog.New failed: %v", err)
	}
	return client
}

func newPool(t *testing.T, cfg *config.Config, store *queue.Store, engine ocr.Engine) *Pool {
	t.Helper()
	inv, err := inventory.NewStore(store.DB())
	if err != nil {
		t.Fatalf("inventory.NewStore failed: %v", err)
	}
	pipe := pipeline.New(cfg, engine, fakeCatalogClient(t), nil, inv, logging.NewNop())
	return New(cfg.Workers, store, pipe, logging.NewNop())
}

func writeScan(t *testing.T, cfg *config.Config, name string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 200, 280))
	for y := 0; y < 280; y++ {
		for x := 0; x < 200; x++ {
			v := uint8(x * 255 / 199)
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	if err := os.MkdirAll(cfg.Paths.UploadDir, 0o755); err != nil {
		t.Fatalf("mkdir uploads: %v", err)
	}
	path := filepath.Join(cfg.Paths.UploadDir, name)
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("write scan: %v", err)
	}
	return path
}

func TestProcessOneEmptyQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	pool := newPool(t, cfg, store, confidentEngine())

	claimed, err := pool.ProcessOne(context.Background())
	if err != nil {
		t.Fatalf("ProcessOne failed: %v", err)
	}
	if claimed {
		t.Fatal("empty queue must yield no work")
	}
}

func TestProcessOneCompletesJobAndDeletesArtifact(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	pool := newPool(t, cfg, store, confidentEngine())
	ctx := context.Background()

	scanPath := writeScan(t, cfg, "scan.png")
	job, err := store.Enqueue(ctx, queue.NewJob{FilePath: scanPath, OriginalName: "scan.png"})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	claimed, err := pool.ProcessOne(ctx)
	if err != nil || !claimed {
		t.Fatalf("ProcessOne = %v, %v", claimed, err)
	}

	final, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if final.Status != queue.StatusDone {
		t.Fatalf("expected done, got %s (%s)", final.Status, final.LastError)
	}
	if final.GuessedName != "Lightning Bolt" || final.ChosenSet != "m10" {
		t.Fatalf("unexpected persisted result: %#v", final)
	}
	if final.FinishedAt == nil {
		t.Fatal("done jobs must carry a finish time")
	}
	if _, err := os.Stat(scanPath); !os.IsNotExist(err) {
		t.Fatal("source artifact must be deleted after processing")
	}
}

func TestFailedJobRequeuesThenExhausts(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxAttempts(2))
	store := testsupport.MustOpenStore(t, cfg)
	pool := newPool(t, cfg, store, confidentEngine())
	ctx := context.Background()

	// The artifact never exists, so every attempt fails up front.
	job, err := store.Enqueue(ctx, queue.NewJob{FilePath: filepath.Join(cfg.Paths.UploadDir, "ghost.png")})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	if claimed, err := pool.ProcessOne(ctx); err != nil || !claimed {
		t.Fatalf("first ProcessOne = %v, %v", claimed, err)
	}
	mid, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if mid.Status != queue.StatusQueued || mid.Attempts != 1 {
		t.Fatalf("first failure must requeue: %#v", mid)
	}
	if !strings.Contains(mid.LastError, "input_missing") {
		t.Fatalf("expected input_missing in error, got %q", mid.LastError)
	}

	if claimed, err := pool.ProcessOne(ctx); err != nil || !claimed {
		t.Fatalf("second ProcessOne = %v, %v", claimed, err)
	}
	final, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if final.Status != queue.StatusFailed {
		t.Fatalf("attempt cap must make the job terminal: %#v", final)
	}
	if final.LastError == "" || final.FinishedAt == nil {
		t.Fatal("terminal failures must keep error and finish time visible")
	}
}

func TestRunDrainsQueueOnTick(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkerCount(2))
	store := testsupport.MustOpenStore(t, cfg)
	pool := newPool(t, cfg, store, confidentEngine())
	ctx := context.Background()

	first, err := store.Enqueue(ctx, queue.NewJob{FilePath: writeScan(t, cfg, "a.png")})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	second, err := store.Enqueue(ctx, queue.NewJob{FilePath: writeScan(t, cfg, "b.png")})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Run(runCtx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, id := range []int64{first.ID, second.ID} {
		job, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if job.Status != queue.StatusDone {
			t.Fatalf("job %d not drained: %#v", id, job)
		}
	}
}
