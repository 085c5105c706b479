// Package remux combines the media and subtitle tracks of an unpacked release
// into a single Matroska file named after the release.
//
// DeriveDisplayName turns a scene-style directory name into "Title (Year)".
// Engine selects tracks by extension and drives mkvmerge, writing to a
// temporary file that is renamed into place only on success.
package remux
