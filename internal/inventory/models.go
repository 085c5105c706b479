package inventory

import "time"

// Status is the validation outcome recorded for a file.
type Status string

const (
	StatusUnchecked Status = "unchecked"
	StatusOK        Status = "ok"
	StatusInvalid   Status = "invalid"
	StatusTimeout   Status = "timeout"
	StatusError     Status = "error"
)

// Statuses lists every file status in display order.
func Statuses() []Status {
	return []Status{StatusUnchecked, StatusOK, StatusInvalid, StatusTimeout, StatusError}
}

// ParseStatus validates a user supplied status value.
func ParseStatus(value string) (Status, bool) {
	for _, s := range Statuses() {
		if string(s) == value {
			return s, true
		}
	}
	return "", false
}

// FileAction is the remediation applied to a file. The zero value means no
// remediation was taken and is stored as NULL.
type FileAction string

const (
	FileActionNone    FileAction = ""
	FileActionDeleted FileAction = "deleted"
	FileActionMoved   FileAction = "moved"
)

// DirAction is the reconciliation stage a directory last reached. The zero
// value means nothing has happened yet and is stored as NULL.
type DirAction string

const (
	DirActionNone            DirAction = ""
	DirActionDecompressed    DirAction = "decompressed"
	DirActionMerged          DirAction = "merged"
	DirActionErrorDecompress DirAction = "error_decompress"
	DirActionErrorSubs       DirAction = "error_subs"
	DirActionErrorMerge      DirAction = "error_merge"
)

// DirActions lists every non-empty directory action in lifecycle order.
func DirActions() []DirAction {
	return []DirAction{
		DirActionDecompressed,
		DirActionMerged,
		DirActionErrorDecompress,
		DirActionErrorSubs,
		DirActionErrorMerge,
	}
}

// ParseDirAction validates a user supplied directory action value.
func ParseDirAction(value string) (DirAction, bool) {
	for _, a := range DirActions() {
		if string(a) == value {
			return a, true
		}
	}
	return "", false
}

// FileRecord is the stored state of one validated file.
type FileRecord struct {
	Path        string
	Status      Status
	Action      FileAction
	LastChecked time.Time
}

// Remediated reports whether a delete or move was applied. Remediated records
// are never re-validated unless forced.
func (r FileRecord) Remediated() bool {
	return r.Action != FileActionNone
}

// DirRecord is the stored state of one archive-candidate directory.
type DirRecord struct {
	Path        string
	ArchiveRef  string
	SubsRef     string
	Action      DirAction
	LastChecked time.Time
}

// Terminal reports whether the directory must never be processed again.
func (r DirRecord) Terminal() bool {
	return r.Action == DirActionMerged
}

// Expanded reports whether decompression already completed for the directory.
func (r DirRecord) Expanded() bool {
	return r.Action == DirActionDecompressed || r.Action == DirActionErrorMerge
}

// Stats summarizes the inventory contents.
type Stats struct {
	Files       int
	ByStatus    map[Status]int
	ByAction    map[FileAction]int
	Dirs        int
	ByDirAction map[DirAction]int
}
