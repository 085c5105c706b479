package remux

import (
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"mediacheck/internal/textutil"
)

// yearToken matches a bare or parenthesized four-digit year in 1900-2099.
// Other four-digit tokens such as "2160" (resolution) or "1080" are title or
// junk tokens, never years.
var yearToken = regexp.MustCompile(`^\(?((?:19|20)\d{2})\)?$`)

// DeriveDisplayName converts a raw release name into "Title (Year)". The year
// is the first year token that follows at least one title token; it and every
// later token are dropped from the title. A year token in the very first
// position is always part of the title, so "1917.2019" gives "1917 (2019)"
// and "2012.2009" gives "2012 (2009)". Without a year after the title the
// cleaned tokens are returned as-is.
func DeriveDisplayName(raw string) string {
	tokens := textutil.SplitSeparators(norm.NFC.String(raw))
	prefix := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if m := yearToken.FindStringSubmatch(tok); m != nil && len(prefix) > 0 {
			return strings.Join(prefix, " ") + " (" + m[1] + ")"
		}
		prefix = append(prefix, tok)
	}
	return strings.Join(prefix, " ")
}

// OutputPath returns where the remuxed file for dirPath is written: inside
// outputDir when set, otherwise inside dirPath itself.
func OutputPath(outputDir, dirPath string) string {
	name := textutil.SanitizeFileName(DeriveDisplayName(filepath.Base(dirPath)))
	if name == "" {
		name = "remux"
	}
	dir := outputDir
	if strings.TrimSpace(dir) == "" {
		dir = dirPath
	}
	return filepath.Join(dir, name+".mkv")
}
