package archive

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"mediacheck/internal/discovery"
	"mediacheck/internal/services"
)

// Expansion is the net effect of expanding an archive and everything nested
// inside it.
type Expansion struct {
	// Members lists extracted files that are not themselves archives.
	Members []string
	// Consumed lists every archive volume read during the expansion.
	Consumed []string
}

// PrimaryMember returns the first extracted non-archive file, or fallback.
func (e Expansion) PrimaryMember(fallback string) string {
	if len(e.Members) > 0 {
		return e.Members[0]
	}
	return fallback
}

// Expand extracts archivePath and then every archive set it reveals until no
// archive members remain. Consumed volumes are only removed once the whole
// worklist succeeded, so a failed expansion can be retried from the same
// inputs. The first non-OK outcome is returned unchanged.
func Expand(ctx context.Context, d Decompressor, archivePath string) (Expansion, services.Outcome, []error) {
	var result Expansion
	stack := []string{archivePath}
	visited := make(map[string]struct{})
	consumed := make(map[string]struct{})
	var last services.Outcome

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return result, services.Outcome{Kind: services.OutcomeCanceled, Err: err}, nil
		}
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}

		extraction, outcome := d.Extract(ctx, current)
		if !outcome.OK() {
			return result, outcome, nil
		}
		last = outcome
		for _, volume := range extraction.Consumed {
			if _, dup := consumed[volume]; !dup {
				consumed[volume] = struct{}{}
				result.Consumed = append(result.Consumed, volume)
			}
		}
		stack = append(stack, nestedEntryPoints(extraction.Members)...)
		for _, member := range extraction.Members {
			if !discovery.IsArchiveName(filepath.Base(member)) {
				result.Members = append(result.Members, member)
			}
		}
	}

	var removeErrs []error
	for _, volume := range result.Consumed {
		if err := os.Remove(volume); err != nil && !errors.Is(err, fs.ErrNotExist) {
			removeErrs = append(removeErrs, err)
		}
	}
	return result, last, removeErrs
}

// nestedEntryPoints groups archive members by directory and volume set and
// returns one entry point per set.
func nestedEntryPoints(members []string) []string {
	type setKey struct{ dir, stem string }
	sets := make(map[setKey][]string)
	var order []setKey
	for _, member := range members {
		name := filepath.Base(member)
		if !discovery.IsArchiveName(name) {
			continue
		}
		stem, _ := discovery.VolumeStem(name)
		key := setKey{dir: filepath.Dir(member), stem: stem}
		if _, ok := sets[key]; !ok {
			order = append(order, key)
		}
		sets[key] = append(sets[key], name)
	}
	entries := make([]string, 0, len(order))
	for _, key := range order {
		entries = append(entries, filepath.Join(key.dir, discovery.FirstVolume(sets[key])))
	}
	return entries
}
