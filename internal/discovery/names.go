package discovery

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	partVolumePattern   = regexp.MustCompile(`(?i)^(.+)\.part(\d+)\.rar$`)
	legacyVolumePattern = regexp.MustCompile(`(?i)^(.+)\.[rs](\d{2,3})$`)
)

// IsArchiveName reports whether name looks like a RAR archive or volume.
func IsArchiveName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".rar") || legacyVolumePattern.MatchString(lower)
}

// VolumeStem returns the shared base name of a multi-volume set and whether
// name follows a recognised volume scheme. A plain "x.rar" has stem "x".
func VolumeStem(name string) (string, bool) {
	if m := partVolumePattern.FindStringSubmatch(name); m != nil {
		return m[1], true
	}
	if m := legacyVolumePattern.FindStringSubmatch(name); m != nil {
		return m[1], true
	}
	if strings.HasSuffix(strings.ToLower(name), ".rar") {
		return name[:len(name)-len(".rar")], true
	}
	return "", false
}

// IsVolumeOf reports whether name belongs to the volume set rooted at stem.
func IsVolumeOf(name, stem string) bool {
	got, ok := VolumeStem(name)
	return ok && got == stem
}

// volumeRank orders archive-like names so the volume unrar should be pointed
// at sorts first: part1 and plain .rar, then later parts, then anything else.
func volumeRank(name string) int {
	if m := partVolumePattern.FindStringSubmatch(name); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil && n <= 1 {
			return 0
		}
		return 2
	}
	if strings.HasSuffix(strings.ToLower(name), ".rar") {
		return 1
	}
	if legacyVolumePattern.MatchString(name) {
		return 3
	}
	return 4
}

// pickFirstVolume returns the best entry point among names, keeping the
// input order for ties.
func pickFirstVolume(names []string) string {
	best := ""
	bestRank := -1
	for _, name := range names {
		rank := volumeRank(name)
		if bestRank == -1 || rank < bestRank {
			best, bestRank = name, rank
		}
	}
	return best
}

// FirstVolume returns the entry point unrar should be given among names, or
// "" when names is empty.
func FirstVolume(names []string) string {
	return pickFirstVolume(names)
}
