// Package inventory persists per-file and per-directory validation state in
// SQLite.
//
// The Store is the only durable state mediacheck keeps. It is opened once per
// run, holds an exclusive lock file next to the database so a second process
// cannot write concurrently, and serializes writes within the process. Records
// are upserted keyed by path and never deleted; the tables double as an audit
// trail of every check and remediation.
//
// The schema is managed with golang-migrate using migrations embedded in the
// binary, so opening an older database upgrades it in place.
package inventory
