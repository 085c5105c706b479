// Package workflow runs one scan end to end.
//
// Run checks external tools and destinations, opens (and always closes) the
// inventory, walks the root, drains the file queue through the validation
// engine, and then drains the directory queue through the archive
// reconciler. The two queues never overlap. Directories that an earlier run
// left part way (decompressed, error_subs, error_merge) are re-queued from the
// inventory because their archives are gone and discovery no longer sees them.
package workflow
