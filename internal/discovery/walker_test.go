package discovery_test

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"mediacheck/internal/config"
	"mediacheck/internal/discovery"
	"mediacheck/internal/logging"
	"mediacheck/internal/testsupport"
)

func newWalker(t *testing.T, mutate func(*config.Config)) (*discovery.Walker, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if mutate != nil {
		mutate(cfg)
		if err := cfg.Finalize(); err != nil {
			t.Fatalf("finalize: %v", err)
		}
	}
	return discovery.NewWalker(cfg, logging.NewNop()), testsupport.MediaDir(t, cfg)
}

func TestEnqueueFiltersByExtensionCaseInsensitively(t *testing.T) {
	walker, root := newWalker(t, func(c *config.Config) {
		c.Scan.Extensions = []string{"mkv", "mp4"}
	})
	testsupport.Touch(t,
		filepath.Join(root, "movie.MKV"),
		filepath.Join(root, "notes.txt"),
		filepath.Join(root, "nested", "deeper", "clip.mp4"),
		filepath.Join(root, "README"),
		filepath.Join(root, "trailing."),
	)

	result, err := walker.Enqueue(context.Background(), root)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	got := append([]string(nil), result.Files...)
	sort.Strings(got)
	want := []string{
		filepath.Join(root, "movie.MKV"),
		filepath.Join(root, "nested", "deeper", "clip.mp4"),
	}
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("unexpected files: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("file %d = %q, want %q", i, got[i], want[i])
		}
	}
	if result.Skipped != 1 {
		t.Fatalf("expected notes.txt counted as skipped, got %d", result.Skipped)
	}
	if len(result.Dirs) != 0 {
		t.Fatalf("expected no archive candidates with decompression off, got %v", result.Dirs)
	}
}

func TestEnqueuePurgesMetadataFiles(t *testing.T) {
	walker, root := newWalker(t, nil)
	junk := []string{
		filepath.Join(root, ".DS_Store"),
		filepath.Join(root, "sub", "._movie.mkv"),
		filepath.Join(root, "sub", "Thumbs.db"),
	}
	keep := filepath.Join(root, "sub", "movie.mkv")
	testsupport.Touch(t, append(junk, keep)...)

	result, err := walker.Enqueue(context.Background(), root)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	for _, path := range junk {
		if testsupport.Exists(path) {
			t.Fatalf("expected %s to be removed", path)
		}
	}
	if len(result.Purged) != len(junk) {
		t.Fatalf("expected %d purged, got %v", len(junk), result.Purged)
	}
	if len(result.Files) != 1 || result.Files[0] != keep {
		t.Fatalf("expected only %s enqueued, got %v", keep, result.Files)
	}
}

func TestEnqueueProbesArchiveCandidates(t *testing.T) {
	walker, root := newWalker(t, func(c *config.Config) { c.Archives.Decompress = true })
	release := filepath.Join(root, "Some.Movie.2014.BluRay")
	testsupport.Touch(t,
		filepath.Join(release, "some.movie.r00"),
		filepath.Join(release, "some.movie.rar"),
		filepath.Join(release, "Subs", "some.movie.subs.rar"),
		filepath.Join(root, "plain", "movie.mkv"),
	)

	result, err := walker.Enqueue(context.Background(), root)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if len(result.Dirs) != 1 {
		t.Fatalf("expected one candidate, got %+v", result.Dirs)
	}
	got := result.Dirs[0]
	if got.Dir != release {
		t.Fatalf("unexpected candidate dir %q", got.Dir)
	}
	if got.ArchiveRef != filepath.Join(release, "some.movie.rar") {
		t.Fatalf("expected first volume as archive ref, got %q", got.ArchiveRef)
	}
	if got.SubsRef != filepath.Join(release, "Subs", "some.movie.subs.rar") {
		t.Fatalf("expected archive inside Subs folder, got %q", got.SubsRef)
	}
}

func TestEnqueueMissingRootFails(t *testing.T) {
	walker, root := newWalker(t, nil)
	if _, err := walker.Enqueue(context.Background(), filepath.Join(root, "absent")); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestEnqueueHonoursCancellation(t *testing.T) {
	walker, root := newWalker(t, nil)
	testsupport.Touch(t, filepath.Join(root, "a.mkv"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := walker.Enqueue(ctx, root); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestProbeArchiveCandidate(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		wantOK   bool
		wantRef  string
		wantSubs string
	}{
		{name: "no archive", files: []string{"movie.mkv", "Subs/x.srt"}},
		{name: "part volumes prefer part1", files: []string{"m.part02.rar", "m.part01.rar", "m.part03.rar"}, wantOK: true, wantRef: "m.part01.rar"},
		{name: "subs folder without archive", files: []string{"m.rar", "Subs/eng.srt"}, wantOK: true, wantRef: "m.rar", wantSubs: "Subs"},
		{name: "subs file", files: []string{"m.rar", "m.subs.idx"}, wantOK: true, wantRef: "m.rar", wantSubs: "m.subs.idx"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tc.files {
				testsupport.Touch(t, filepath.Join(dir, f))
			}
			cand, ok, err := discovery.ProbeArchiveCandidate(dir)
			if err != nil {
				t.Fatalf("probe: %v", err)
			}
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if !ok {
				return
			}
			if cand.ArchiveRef != filepath.Join(dir, tc.wantRef) {
				t.Fatalf("archive ref = %q, want %q", cand.ArchiveRef, tc.wantRef)
			}
			wantSubs := ""
			if tc.wantSubs != "" {
				wantSubs = filepath.Join(dir, tc.wantSubs)
			}
			if cand.SubsRef != wantSubs {
				t.Fatalf("subs ref = %q, want %q", cand.SubsRef, wantSubs)
			}
		})
	}
}

func TestVolumeNaming(t *testing.T) {
	tests := []struct {
		name      string
		archive   bool
		stem      string
		hasVolume bool
	}{
		{"movie.part01.rar", true, "movie", true},
		{"Movie.PART2.RAR", true, "Movie", true},
		{"movie.rar", true, "movie", true},
		{"movie.r05", true, "movie", true},
		{"movie.s00", true, "movie", true},
		{"movie.mkv", false, "", false},
		{"movie.srt", false, "", false},
	}
	for _, tc := range tests {
		if got := discovery.IsArchiveName(tc.name); got != tc.archive {
			t.Fatalf("IsArchiveName(%q) = %v, want %v", tc.name, got, tc.archive)
		}
		stem, ok := discovery.VolumeStem(tc.name)
		if ok != tc.hasVolume || stem != tc.stem {
			t.Fatalf("VolumeStem(%q) = %q %v, want %q %v", tc.name, stem, ok, tc.stem, tc.hasVolume)
		}
	}
	if !discovery.IsVolumeOf("movie.r01", "movie") || discovery.IsVolumeOf("other.r01", "movie") {
		t.Fatal("IsVolumeOf mismatch")
	}
}

func TestExtension(t *testing.T) {
	cases := map[string]string{
		"a.MKV":       "mkv",
		"archive.tar": "tar",
		"noext":       "",
		"dot.":        "",
		".hidden":     "hidden",
	}
	for name, want := range cases {
		if got := discovery.Extension(name); got != want {
			t.Fatalf("Extension(%q) = %q, want %q", name, got, want)
		}
	}
}
