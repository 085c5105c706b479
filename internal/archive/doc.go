// Package archive reconciles packed release directories.
//
// A Reconciler takes archive candidates from discovery, consults the inventory
// and the liveness oracle, expands RAR sets (nested archives included) through
// an explicit worklist, and optionally hands the expanded directory to the
// remux engine. Every stage transition is recorded as a DirRecord action so a
// later run can resume from the stage that failed. Decompression is performed
// by an external unrar binary driven through services.Runner.
package archive
