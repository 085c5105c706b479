package validation

import (
	"mediacheck/internal/config"
	"mediacheck/internal/inventory"
	"mediacheck/internal/services"
)

// SkipReason explains why a file was not re-validated.
type SkipReason string

const (
	SkipNone       SkipReason = ""
	SkipRemediated SkipReason = "already_remediated"
	SkipValid      SkipReason = "already_valid"
)

// Decide reports whether path must be validated given its stored record.
// Force bypasses both skip rules.
func Decide(rec *inventory.FileRecord, force bool) SkipReason {
	if force || rec == nil {
		return SkipNone
	}
	if rec.Remediated() {
		return SkipRemediated
	}
	if rec.Status == inventory.StatusOK {
		return SkipValid
	}
	return SkipNone
}

// StatusFor maps a validator outcome to the stored status.
func StatusFor(outcome services.Outcome) inventory.Status {
	switch outcome.Kind {
	case services.OutcomeOK:
		return inventory.StatusOK
	case services.OutcomeTimedOut:
		return inventory.StatusTimeout
	case services.OutcomeFailed:
		return inventory.StatusInvalid
	default:
		return inventory.StatusError
	}
}

// Remediation returns the configured action to apply for status. Only
// invalid and timeout results are remediated; a validator that never ran
// says nothing about the file.
func Remediation(status inventory.Status, action string) string {
	switch status {
	case inventory.StatusInvalid, inventory.StatusTimeout:
		switch action {
		case config.ActionDelete, config.ActionMove:
			return action
		}
	}
	return config.ActionNone
}
