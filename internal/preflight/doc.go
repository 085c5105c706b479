// Package preflight provides readiness checks for the external tools,
// filesystem paths, and services a scan depends on.
//
// These checks run in two contexts:
//   - The workflow calls RunAll before the inventory is opened. A failed
//     required check aborts the run with services.ErrConfiguration so no
//     partial inventory mutation happens.
//   - The CLI "mediacheck deps" command renders CheckSystemDeps directly.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
