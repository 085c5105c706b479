package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediacheck/internal/archive"
	"mediacheck/internal/inventory"
	"mediacheck/internal/logging"
	"mediacheck/internal/services"
	"mediacheck/internal/testsupport"
	"mediacheck/internal/workflow"
)

type nameValidator struct{ calls int }

func (v *nameValidator) Validate(_ context.Context, path string) services.Outcome {
	v.calls++
	if strings.Contains(filepath.Base(path), "bad") {
		return services.Outcome{Kind: services.OutcomeFailed, ExitCode: 1}
	}
	return services.Outcome{Kind: services.OutcomeOK}
}

type extractToMKV struct{ calls []string }

func (d *extractToMKV) Extract(_ context.Context, archivePath string) (archive.Extraction, services.Outcome) {
	d.calls = append(d.calls, archivePath)
	member := strings.TrimSuffix(archivePath, filepath.Ext(archivePath)) + ".mkv"
	if err := os.WriteFile(member, []byte("x"), 0o644); err != nil {
		return archive.Extraction{}, services.Outcome{Kind: services.OutcomeError, Err: err}
	}
	return archive.Extraction{Consumed: archive.VolumeSet(archivePath), Members: []string{member}}, services.Outcome{Kind: services.OutcomeOK}
}

type countingMuxer struct {
	calls int
	fail  bool
}

func (m *countingMuxer) Merge(context.Context, string, string, string) services.Outcome {
	m.calls++
	if m.fail {
		return services.Outcome{Kind: services.OutcomeFailed, ExitCode: 2}
	}
	return services.Outcome{Kind: services.OutcomeOK}
}

type staticOracle struct {
	active    bool
	connected bool
}

func (o *staticOracle) Connect(context.Context) error { o.connected = true; return nil }

func (o *staticOracle) IsActive(context.Context, string) bool { return o.active }

func TestRunValidatesThenReconciles(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithArchives(true), testsupport.WithMoveDestination())
	root := testsupport.MediaDir(t, cfg)
	release := filepath.Join(root, "Some.Movie.2014.BluRay")
	testsupport.Touch(t,
		filepath.Join(root, "good.mkv"),
		filepath.Join(root, "nested", "bad.mp4"),
		filepath.Join(root, ".DS_Store"),
		filepath.Join(root, "notes.txt"),
		filepath.Join(release, "some.movie.rar"),
		filepath.Join(release, "some.movie.r00"),
	)

	validator := &nameValidator{}
	decomp := &extractToMKV{}
	muxer := &countingMuxer{}
	oracle := &staticOracle{}
	opts := workflow.Options{
		Validator:     validator,
		Decompressor:  decomp,
		Multiplexer:   muxer,
		Oracle:        oracle,
		SkipPreflight: true,
	}

	summary, err := workflow.Run(context.Background(), cfg, root, logging.NewNop(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.RunID == "" {
		t.Fatal("expected run id")
	}
	if summary.Files.Checked != 2 || summary.Files.Moved != 1 || summary.Purged != 1 || summary.Ignored != 3 {
		t.Fatalf("unexpected file summary: %+v", summary)
	}
	if summary.Dirs.ByAction[inventory.DirActionMerged] != 1 || muxer.calls != 1 || !oracle.connected {
		t.Fatalf("unexpected dir summary: %+v muxCalls=%d", summary.Dirs, muxer.calls)
	}

	store := testsupport.MustOpenStore(t, cfg)
	moved := filepath.Join(cfg.Scan.MoveDestination, "bad.mp4")
	rec, err := store.LookupFile(context.Background(), moved)
	if err != nil || rec == nil || rec.Action != inventory.FileActionMoved {
		t.Fatalf("expected moved record at %s, got %+v err=%v", moved, rec, err)
	}
	dir, err := store.LookupDir(context.Background(), release)
	if err != nil || dir == nil || dir.Action != inventory.DirActionMerged {
		t.Fatalf("expected merged dir record, got %+v err=%v", dir, err)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	root := testsupport.MediaDir(t, cfg)
	testsupport.Touch(t, filepath.Join(root, "a.mkv"), filepath.Join(root, "b.mkv"))
	validator := &nameValidator{}
	opts := workflow.Options{Validator: validator, SkipPreflight: true}

	if _, err := workflow.Run(context.Background(), cfg, root, logging.NewNop(), opts); err != nil {
		t.Fatalf("first run: %v", err)
	}
	summary, err := workflow.Run(context.Background(), cfg, root, logging.NewNop(), opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if validator.calls != 2 || summary.Files.Skipped != 2 || summary.Files.Checked != 0 {
		t.Fatalf("second run must not revalidate: calls=%d summary=%+v", validator.calls, summary.Files)
	}
}

func TestRunResumesMergeFromInventory(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithArchives(true))
	root := testsupport.MediaDir(t, cfg)
	release := filepath.Join(root, "Resumed.2011")
	testsupport.Touch(t, filepath.Join(release, "resumed.mkv"))

	store, err := inventory.Open(cfg.Paths.InventoryDB)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.UpsertDir(context.Background(), release, filepath.Join(release, "resumed.mkv"), "", inventory.DirActionErrorMerge); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	decomp := &extractToMKV{}
	muxer := &countingMuxer{}
	summary, err := workflow.Run(context.Background(), cfg, root, logging.NewNop(), workflow.Options{
		Validator:     &nameValidator{},
		Decompressor:  decomp,
		Multiplexer:   muxer,
		Oracle:        &staticOracle{},
		SkipPreflight: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Resumed != 1 || muxer.calls != 1 || len(decomp.calls) != 0 {
		t.Fatalf("expected resumed merge only, summary=%+v mux=%d decomp=%v", summary, muxer.calls, decomp.calls)
	}
}

func TestRunDecompressOnlyLeavesExpandedDirs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithArchives(false))
	root := testsupport.MediaDir(t, cfg)
	release := filepath.Join(root, "Expanded.2012")
	member := filepath.Join(release, "expanded.mkv")
	testsupport.Touch(t, member)

	store, err := inventory.Open(cfg.Paths.InventoryDB)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.UpsertDir(context.Background(), release, member, "", inventory.DirActionDecompressed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	decomp := &extractToMKV{}
	summary, err := workflow.Run(context.Background(), cfg, root, logging.NewNop(), workflow.Options{
		Validator:     &nameValidator{},
		Decompressor:  decomp,
		Multiplexer:   &countingMuxer{},
		Oracle:        &staticOracle{},
		SkipPreflight: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Resumed != 0 || summary.Dirs.Processed != 0 || len(decomp.calls) != 0 {
		t.Fatalf("expanded dir must not be requeued without merge: summary=%+v decomp=%v", summary, decomp.calls)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	rec, err := reopened.LookupDir(context.Background(), release)
	if err != nil || rec == nil || rec.Action != inventory.DirActionDecompressed {
		t.Fatalf("expected record untouched, got %+v err=%v", rec, err)
	}
}

func TestRunActiveTransferLeavesArchives(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithArchives(true))
	root := testsupport.MediaDir(t, cfg)
	archivePath := filepath.Join(root, "Busy.2020", "busy.rar")
	testsupport.Touch(t, archivePath)
	decomp := &extractToMKV{}

	summary, err := workflow.Run(context.Background(), cfg, root, logging.NewNop(), workflow.Options{
		Validator:     &nameValidator{},
		Decompressor:  decomp,
		Multiplexer:   &countingMuxer{},
		Oracle:        &staticOracle{active: true},
		SkipPreflight: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Dirs.Skipped[archive.SkipActive] != 1 || len(decomp.calls) != 0 || !testsupport.Exists(archivePath) {
		t.Fatalf("active transfer must not be decompressed: %+v", summary.Dirs)
	}
}

func TestRunCancelledClosesInventory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	root := testsupport.MediaDir(t, cfg)
	testsupport.Touch(t, filepath.Join(root, "a.mkv"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := workflow.Run(ctx, cfg, root, logging.NewNop(), workflow.Options{Validator: &nameValidator{}, SkipPreflight: true})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	// The lock must have been released by the deferred close.
	store, err := inventory.Open(cfg.Paths.InventoryDB)
	if err != nil {
		t.Fatalf("inventory still locked after cancellation: %v", err)
	}
	_ = store.Close()
}

func TestRunPreflightFailureTouchesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Tools.FFmpeg = "clearly-not-present-ffmpeg"
	root := testsupport.MediaDir(t, cfg)
	testsupport.Touch(t, filepath.Join(root, "a.mkv"))

	_, err := workflow.Run(context.Background(), cfg, root, logging.NewNop(), workflow.Options{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if testsupport.Exists(cfg.Paths.InventoryDB) {
		t.Fatal("inventory must not be created when preflight fails")
	}
}

func TestRunWritesMetricsTextfile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Metrics.Textfile = filepath.Join(testsupport.BaseDir(cfg), "metrics", "mediacheck.prom")
	root := testsupport.MediaDir(t, cfg)
	testsupport.Touch(t, filepath.Join(root, "a.mkv"))

	if _, err := workflow.Run(context.Background(), cfg, root, logging.NewNop(), workflow.Options{Validator: &nameValidator{}, SkipPreflight: true}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, err := os.ReadFile(cfg.Metrics.Textfile)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(data), `mediacheck_files_checked_total{status="ok"} 1`) {
		t.Fatalf("unexpected metrics:\n%s", data)
	}
}

func TestRunRejectsMissingRoot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := workflow.Run(context.Background(), cfg, filepath.Join(t.TempDir(), "absent"), logging.NewNop(), workflow.Options{SkipPreflight: true})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
