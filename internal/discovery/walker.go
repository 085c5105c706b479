package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mediacheck/internal/config"
	"mediacheck/internal/logging"
)

// Candidate is a directory that looks like a packed release.
type Candidate struct {
	Dir        string
	ArchiveRef string
	SubsRef    string
}

// Result holds the work lists produced by one walk.
type Result struct {
	Files   []string
	Dirs    []Candidate
	Purged  []string
	Skipped int
}

// Walker classifies entries under a root path.
type Walker struct {
	extensions    map[string]struct{}
	purgePatterns []string
	probeArchives bool
	logger        *slog.Logger
}

// NewWalker builds a walker from the scan and archive settings.
func NewWalker(cfg *config.Config, logger *slog.Logger) *Walker {
	return &Walker{
		extensions:    cfg.ExtensionSet(),
		purgePatterns: append([]string(nil), cfg.Scan.PurgePatterns...),
		probeArchives: cfg.Archives.Decompress,
		logger:        logging.NewComponentLogger(logger, "discovery"),
	}
}

// Enqueue walks root depth-first. Unreadable subtrees are logged and skipped;
// only a missing or unreadable root is an error.
func (w *Walker) Enqueue(ctx context.Context, root string) (Result, error) {
	var result Result

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return result, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return result, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return result, fmt.Errorf("root %q is not a directory", absRoot)
	}

	logger := logging.WithContext(ctx, w.logger)

	// Folders inside an accepted release (Subs/) belong to that release.
	candidates := make(map[string]struct{})
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == absRoot {
				return err
			}
			logging.WarnWithContext(logger, "walk error", "walk_error",
				logging.String(logging.FieldPath, path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on the directory"),
				logging.String(logging.FieldImpact, "entries below this path were not scanned"),
			)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != absRoot && w.probeArchives {
				if _, nested := candidates[filepath.Dir(path)]; !nested {
					if w.probe(logger, path, &result) {
						candidates[path] = struct{}{}
					}
				}
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		name := d.Name()
		if w.shouldPurge(name) {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				logging.WarnWithContext(logger, "purge failed", "purge_failed",
					logging.String(logging.FieldPath, path),
					logging.Error(err),
				)
				return nil
			}
			logger.Info("removed metadata file",
				logging.String(logging.FieldEventType, "file_purged"),
				logging.String(logging.FieldPath, path),
			)
			result.Purged = append(result.Purged, path)
			return nil
		}

		ext := Extension(name)
		if ext == "" {
			return nil
		}
		if _, ok := w.extensions[ext]; !ok {
			logger.Debug("skipping file with unlisted extension",
				logging.String(logging.FieldPath, path),
				logging.String("extension", ext),
			)
			result.Skipped++
			return nil
		}
		result.Files = append(result.Files, path)
		return nil
	})
	if walkErr != nil {
		return result, walkErr
	}

	logger.Info("discovery complete",
		logging.String(logging.FieldEventType, "discovery_complete"),
		logging.String(logging.FieldPath, absRoot),
		logging.Int("files", len(result.Files)),
		logging.Int("dirs", len(result.Dirs)),
		logging.Int("purged", len(result.Purged)),
		logging.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (w *Walker) probe(logger *slog.Logger, dir string, result *Result) bool {
	candidate, ok, err := ProbeArchiveCandidate(dir)
	if err != nil {
		logger.Debug("archive probe failed", logging.String(logging.FieldPath, dir), logging.Error(err))
		return false
	}
	if !ok {
		return false
	}
	logger.Debug("archive candidate found",
		logging.String(logging.FieldPath, dir),
		logging.String("archive_ref", candidate.ArchiveRef),
		logging.String("subs_ref", candidate.SubsRef),
	)
	result.Dirs = append(result.Dirs, candidate)
	return true
}

func (w *Walker) shouldPurge(name string) bool {
	for _, pattern := range w.purgePatterns {
		if matched, err := filepath.Match(pattern, name); err == nil && matched {
			return true
		}
	}
	return false
}

// Extension returns the lowercase substring after the last dot, or "" when
// the name has none.
func Extension(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

// ProbeArchiveCandidate inspects the direct children of dir. A directory is a
// candidate when it holds a file whose name contains "rar"; a child whose name
// contains "sub" supplies the secondary reference (an archive inside it when
// it is a folder, otherwise the child itself).
func ProbeArchiveCandidate(dir string) (Candidate, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Candidate{}, false, err
	}

	var archives []string
	subsRef := ""
	for _, entry := range entries {
		name := entry.Name()
		lower := strings.ToLower(name)
		switch {
		case strings.Contains(lower, "rar") && entry.Type().IsRegular():
			archives = append(archives, name)
		case strings.Contains(lower, "sub") && subsRef == "":
			child := filepath.Join(dir, name)
			subsRef = child
			if entry.IsDir() {
				if inner := firstArchiveIn(child); inner != "" {
					subsRef = filepath.Join(child, inner)
				}
			}
		}
	}
	if len(archives) == 0 {
		return Candidate{}, false, nil
	}
	return Candidate{
		Dir:        dir,
		ArchiveRef: filepath.Join(dir, pickFirstVolume(archives)),
		SubsRef:    subsRef,
	}, true, nil
}

func firstArchiveIn(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.Contains(strings.ToLower(entry.Name()), "rar") {
			names = append(names, entry.Name())
		}
	}
	return pickFirstVolume(names)
}
