// Package discovery walks a media tree and builds the two work lists a scan
// drains: files whose extension is on the allow-list, and directories that
// look like they hold a packed release (a primary archive and optionally a
// subtitle archive or folder).
//
// Discovery never writes to the inventory, so re-walking a tree is always
// safe. The only disk mutation is removing OS metadata files that match the
// configured purge patterns.
package discovery
