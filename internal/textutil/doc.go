// Package textutil provides small text helpers for turning release-style
// directory names into readable, filesystem-safe file names.
package textutil
